package marketplace

import (
	"context"
	"fmt"

	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"
)

type AdvanceStatusInput struct {
	OrderID string             `json:"-"`
	ActorID string             `json:"-"`
	Status  models.OrderStatus `json:"status" binding:"required"`
	Note    string             `json:"note"`
}

// checkAdvance validates a tracking transition. Statuses only move forward
// through the pipeline; Delivered ends manual tracking and fulfilled is set by
// MarkFulfilled alone.
func checkAdvance(o *models.Order, next models.OrderStatus) error {
	if o.ContractSignatures.Dealer == nil || o.ContractSignatures.Supplier == nil {
		return fmt.Errorf("%w: order %s", ErrContractNotFullySigned, o.GlobalOrderID)
	}
	switch {
	case !next.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	case next == models.OrderFulfilled:
		return fmt.Errorf("%w: orders are fulfilled by the dealer", ErrInvalidTransition)
	case o.Status == models.OrderDelivered || o.Status == models.OrderFulfilled:
		return fmt.Errorf("%w: order %s is %s", ErrInvalidTransition, o.GlobalOrderID, o.Status)
	case next.Rank() <= o.Status.Rank():
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	return nil
}

// AdvanceStatus moves an order forward and appends a tracking entry in every copy.
func (s *Service) AdvanceStatus(ctx context.Context, in AdvanceStatusInput) (models.Order, error) {
	var from models.OrderStatus
	order, err := update(ctx, s, orderEntity, in.OrderID, func(o *models.Order) error {
		role := ""
		switch in.ActorID {
		case o.SupplierID:
			role = "Supplier"
		case o.DealerID:
			role = "Dealer"
		default:
			return ErrNotParty
		}
		if err := checkAdvance(o, in.Status); err != nil {
			return err
		}
		note := in.Note
		if note == "" {
			note = role + " updated status."
		}
		from = o.Status
		o.Status = in.Status
		o.Tracking = append(o.Tracking, models.TrackingEntry{Date: s.now(), Status: in.Status, Note: note})
		return nil
	})
	if err != nil {
		return order, err
	}

	s.publish(ctx, eventbus.OrderStatusChanged, map[string]interface{}{
		"globalOrderId": order.GlobalOrderID,
		"from":          from,
		"to":            order.Status,
	})
	for _, uid := range []string{order.DealerID, order.SupplierID} {
		if uid == in.ActorID {
			continue
		}
		s.notifier.Notify(ctx, uid, models.Notification{
			Type:    notify.TypeStatusUpdate,
			Message: fmt.Sprintf("Order %s is now %s.", order.GlobalOrderID, order.Status),
			OrderID: order.GlobalOrderID,
		})
	}
	return order, nil
}
