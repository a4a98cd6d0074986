package models

import "time"

// Account matches the document in the accounts collection.
type Account struct {
	UserID    string    `bson:"uid" json:"uid"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	Password  string    `bson:"password" json:"-"`
	Role      string    `bson:"role" json:"role"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

const (
	RoleDealer   = "dealer"
	RoleSupplier = "supplier"
	// RoleTrader can both post requests and submit offers.
	RoleTrader = "trader"
	RoleAdmin  = "admin"
)
