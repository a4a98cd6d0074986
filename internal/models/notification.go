package models

import "time"

type Notification struct {
	ID        string    `bson:"id" json:"id"`
	Type      string    `bson:"type" json:"type"`
	Message   string    `bson:"message" json:"message"`
	OrderID   string    `bson:"orderId,omitempty" json:"orderId,omitempty"`
	RequestID string    `bson:"requestId,omitempty" json:"requestId,omitempty"`
	Read      bool      `bson:"read" json:"read"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}
