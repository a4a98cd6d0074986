package marketplace

import (
	"context"
	"fmt"

	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/inventory"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"

	"github.com/rs/zerolog/log"
)

type FulfillInput struct {
	DealerID  string `json:"-"`
	OrderID   string `json:"-"`
	RequestID string `json:"requestId"`
	// NewQuantity, when set, becomes the dealer's stock of the item.
	NewQuantity *float64 `json:"newQuantity"`
}

func checkFulfil(o *models.Order) error {
	switch o.Status {
	case models.OrderDelivered:
		return nil
	case models.OrderFulfilled:
		return fmt.Errorf("%w: %w", ErrInvalidTransition, ErrAlreadyFulfilled)
	}
	return fmt.Errorf("%w: order %s is %s, not %s", ErrInvalidTransition, o.GlobalOrderID, o.Status, models.OrderDelivered)
}

// MarkFulfilled closes a delivered order: the request becomes completed, the
// order fulfilled, and the dealer's stock is updated. Nothing may change the
// pair afterwards.
func (s *Service) MarkFulfilled(ctx context.Context, in FulfillInput) (models.Order, error) {
	o, err := load(ctx, s, orderEntity, in.OrderID)
	if err != nil {
		return models.Order{}, err
	}
	if o.DealerID != in.DealerID {
		return models.Order{}, ErrNotParty
	}
	if in.RequestID != "" && in.RequestID != o.GlobalProcurementID {
		return models.Order{}, fmt.Errorf("%w: order %s belongs to request %s", ErrInvalidInput, o.GlobalOrderID, o.GlobalProcurementID)
	}
	if in.NewQuantity != nil && *in.NewQuantity < 0 {
		return models.Order{}, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	if err := checkFulfil(&o); err != nil {
		return models.Order{}, err
	}

	now := s.now()
	_, err = update(ctx, s, requestEntity, o.GlobalProcurementID, func(r *models.ProcurementRequest) error {
		if r.Status == models.RequestCompleted && r.Fulfilled {
			return errNoChange
		}
		if r.Status != models.RequestOrdered {
			return fmt.Errorf("%w: request %s is %s", ErrInvalidTransition, r.GlobalProcurementID, r.Status)
		}
		r.Status = models.RequestCompleted
		r.Fulfilled = true
		r.CompletedAt = &now
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}

	order, err := update(ctx, s, orderEntity, in.OrderID, func(o *models.Order) error {
		if err := checkFulfil(o); err != nil {
			return err
		}
		o.Status = models.OrderFulfilled
		o.FulfilledAt = &now
		o.Tracking = append(o.Tracking, models.TrackingEntry{Date: now, Status: models.OrderFulfilled, Note: "Dealer marked order fulfilled."})
		return nil
	})
	if err != nil {
		return order, err
	}

	if in.NewQuantity != nil && s.inventory != nil {
		if _, err := s.inventory.SetQuantity(ctx, order.DealerID, order.ItemID, order.ItemName, *in.NewQuantity, inventory.ReasonFulfilled); err != nil {
			log.Error().Err(err).Str("order", order.GlobalOrderID).Str("item", order.ItemID).Msg("order fulfilled but inventory update failed")
		}
	}

	s.publish(ctx, eventbus.OrderFulfilled, order)
	s.notifier.Notify(ctx, order.SupplierID, models.Notification{
		Type:      notify.TypeOrderFulfilled,
		Message:   fmt.Sprintf("Order %s was marked fulfilled by the dealer.", order.GlobalOrderID),
		OrderID:   order.GlobalOrderID,
		RequestID: order.GlobalProcurementID,
	})
	return order, nil
}
