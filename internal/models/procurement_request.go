package models

import "time"

type RequestStatus string

const (
	RequestOpen      RequestStatus = "open"
	RequestPending   RequestStatus = "pending"
	RequestOrdered   RequestStatus = "ordered"
	RequestCompleted RequestStatus = "completed"
	RequestClosed    RequestStatus = "closed"
)

// ActiveRequestStatuses blocks a second request for the same dealer and item.
var ActiveRequestStatuses = []RequestStatus{RequestOpen, RequestPending, RequestOrdered}

func (s RequestStatus) Active() bool {
	for _, a := range ActiveRequestStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// ProcurementRequest is stored twice: globalProcurementRequests/{id} and
// users/{dealer}/procurementRequests/{id}. Both copies carry the same fields.
type ProcurementRequest struct {
	GlobalProcurementID string        `bson:"globalProcurementId" json:"globalProcurementId"`
	ItemID              string        `bson:"itemID" json:"itemID"`
	ItemName            string        `bson:"itemName" json:"itemName"`
	RequestedQty        float64       `bson:"requestedQty" json:"requestedQty"`
	CurrentQty          float64       `bson:"currentQty" json:"currentQty"`
	Status              RequestStatus `bson:"status" json:"status"`
	SupplierResponses   []Offer       `bson:"supplierResponses" json:"supplierResponses"`

	DealerID          string  `bson:"userUid" json:"userUid"`
	DealerCompanyName string  `bson:"dealerCompanyName" json:"dealerCompanyName"`
	DealerAddress     Address `bson:"dealerAddress" json:"dealerAddress"`
	Location          string  `bson:"location" json:"location"`

	Accepted           bool   `bson:"accepted" json:"accepted"`
	AcceptedOffer      *Offer `bson:"acceptedOffer,omitempty" json:"acceptedOffer,omitempty"`
	GlobalOrderID      string `bson:"globalOrderId,omitempty" json:"globalOrderId,omitempty"`
	ChainProcurementID string `bson:"chainProcurementId,omitempty" json:"chainProcurementId,omitempty"`
	Fulfilled          bool   `bson:"fulfilled" json:"fulfilled"`

	// Revision tăng mỗi lần bản global bị ghi; dùng cho compare-and-swap.
	Revision int64 `bson:"revision" json:"revision"`

	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	OrderedAt   *time.Time `bson:"orderedAt,omitempty" json:"orderedAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}
