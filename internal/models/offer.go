package models

import "time"

type OfferStatus string

const (
	OfferPending  OfferStatus = "pending"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

// Terminal offers never change status again.
func (s OfferStatus) Terminal() bool {
	return s == OfferAccepted || s == OfferRejected
}

// Offer is embedded in ProcurementRequest.SupplierResponses and also stored
// standalone under users/{supplier}/offers/{offerId}.
type Offer struct {
	OfferID             string      `bson:"offerId" json:"offerId"`
	GlobalProcurementID string      `bson:"globalProcurementId" json:"globalProcurementId"`
	SupplierID          string      `bson:"supplierUid" json:"supplierUid"`
	SupplierName        string      `bson:"supplierName" json:"supplierName"`
	Location            string      `bson:"location" json:"location"`
	ItemID              string      `bson:"itemID" json:"itemID"`
	ItemName            string      `bson:"itemName" json:"itemName"`
	Price               float64     `bson:"price" json:"price"`
	Details             string      `bson:"details" json:"details"`
	Payment             Payment     `bson:"payment" json:"payment"`
	Delivery            Delivery    `bson:"delivery" json:"delivery"`
	Status              OfferStatus `bson:"status" json:"status"`
	GlobalOrderID       string      `bson:"globalOrderId,omitempty" json:"globalOrderId,omitempty"`
	ChainOfferID        string      `bson:"chainOfferId,omitempty" json:"chainOfferId,omitempty"`
	CreatedAt           time.Time   `bson:"createdAt" json:"createdAt"`
}
