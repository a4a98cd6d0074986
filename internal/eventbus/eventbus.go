// Package eventbus publishes procurement lifecycle events for downstream consumers.
package eventbus

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Routing keys.
const (
	ProcurementCreated = "procurement.created"
	OfferSubmitted     = "offer.submitted"
	OfferAccepted      = "offer.accepted"
	OfferRejected      = "offer.rejected"
	ContractSigned     = "contract.signed"
	OrderStatusChanged = "order.status_changed"
	OrderFulfilled     = "order.fulfilled"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, data interface{}) error
}

// Event is the envelope every message carries.
type Event struct {
	EventID    string      `json:"eventId"`
	Type       string      `json:"type"`
	OccurredAt time.Time   `json:"occurredAt"`
	Data       interface{} `json:"data"`
}

func NewEvent(routingKey string, data interface{}) Event {
	return Event{
		EventID:    uuid.New().String(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, string, interface{}) error { return nil }
