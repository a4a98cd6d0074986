// server/internal/models/order.go
package models

import "time"

type OrderStatus string

const (
	OrderOrdered         OrderStatus = "ordered"
	OrderPreparingToShip OrderStatus = "Preparing to Ship"
	OrderShipped         OrderStatus = "Shipped"
	OrderInTransit       OrderStatus = "In Transit"
	OrderDelivered       OrderStatus = "Delivered"
	OrderFulfilled       OrderStatus = "fulfilled"
)

// OrderPipeline là thứ tự cố định của trạng thái đơn hàng.
var OrderPipeline = []OrderStatus{
	OrderOrdered,
	OrderPreparingToShip,
	OrderShipped,
	OrderInTransit,
	OrderDelivered,
	OrderFulfilled,
}

// Rank returns the position of s in OrderPipeline, or -1 for unknown values.
func (s OrderStatus) Rank() int {
	for i, p := range OrderPipeline {
		if p == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool { return s.Rank() >= 0 }

type TrackingEntry struct {
	Date   time.Time   `bson:"date" json:"date"`
	Status OrderStatus `bson:"status" json:"status"`
	Note   string      `bson:"note" json:"note"`
}

// SignaturePayload là chữ ký của một bên cùng phiên bản khóa đã dùng.
type SignaturePayload struct {
	KeyVersion string `bson:"v" json:"v"`
	Signature  string `bson:"sig" json:"sig"`
}

type ContractSignatures struct {
	Dealer   *SignaturePayload `bson:"dealer,omitempty" json:"dealer,omitempty"`
	Supplier *SignaturePayload `bson:"supplier,omitempty" json:"supplier,omitempty"`
}

// Order lives in globalOrders, users/{dealer}/orders and
// users/{supplier}/orderFulfilment under the same id.
type Order struct {
	GlobalOrderID       string             `bson:"globalOrderId" json:"globalOrderId"`
	GlobalProcurementID string             `bson:"globalProcurementId" json:"globalProcurementId"`
	OfferID             string             `bson:"offerId" json:"offerId"`
	DealerID            string             `bson:"dealerUid" json:"dealerUid"`
	SupplierID          string             `bson:"supplierUid" json:"supplierUid"`
	SupplierName        string             `bson:"supplier" json:"supplier"`
	DealerGSTIN         string             `bson:"dealerGSTIN" json:"dealerGSTIN"`
	SupplierGSTIN       string             `bson:"supplierGSTIN" json:"supplierGSTIN"`
	ItemID              string             `bson:"itemID" json:"itemID"`
	ItemName            string             `bson:"itemName" json:"itemName"`
	Quantity            float64            `bson:"quantity" json:"quantity"`
	Price               float64            `bson:"price" json:"price"`
	Details             string             `bson:"details" json:"details"`
	Payment             Payment            `bson:"payment" json:"payment"`
	Delivery            Delivery           `bson:"delivery" json:"delivery"`
	Status              OrderStatus        `bson:"status" json:"status"`
	Tracking            []TrackingEntry    `bson:"tracking" json:"tracking"`
	ContractSignatures  ContractSignatures `bson:"contractSignatures" json:"contractSignatures"`
	Revision            int64              `bson:"revision" json:"revision"`
	CreatedAt           time.Time          `bson:"createdAt" json:"createdAt"`
	FulfilledAt         *time.Time         `bson:"fulfilledAt,omitempty" json:"fulfilledAt,omitempty"`
}
