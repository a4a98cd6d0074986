package marketplace

import (
	"context"
	"errors"
	"fmt"

	"blocknex-supply-api-server/internal/inventory"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"

	"github.com/rs/zerolog/log"
)

type RestockResult struct {
	Item    models.InventoryItem       `json:"item"`
	Request *models.ProcurementRequest `json:"request,omitempty"`
}

// RecordStock updates the dealer's stock of an item. Items in preset mode that
// fall below their preset quantity open a procurement request automatically,
// unless one is already active.
func (s *Service) RecordStock(ctx context.Context, dealerID, itemID string, qty float64) (RestockResult, error) {
	if s.inventory == nil {
		return RestockResult{}, fmt.Errorf("%w: inventory is not configured", ErrExternalServiceUnavailable)
	}
	item, err := s.inventory.SetQuantity(ctx, dealerID, itemID, "", qty, inventory.ReasonManual)
	if err != nil {
		if errors.Is(err, inventory.ErrInvalidQuantity) {
			return RestockResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return RestockResult{}, err
	}
	res := RestockResult{Item: item}

	want := restockQuantity(item)
	if want <= 0 {
		return res, nil
	}
	req, err := s.CreateRequest(ctx, CreateRequestInput{
		DealerID:     dealerID,
		ItemID:       item.ItemID,
		ItemName:     firstNonEmpty(item.ItemName, item.ItemID),
		RequestedQty: want,
		CurrentQty:   item.Quantity,
	})
	switch {
	case errors.Is(err, ErrDuplicateActiveRequest):
		log.Debug().Str("dealer", dealerID).Str("item", itemID).Msg("auto-restock skipped, request already active")
		return res, nil
	case err != nil:
		return res, err
	}
	res.Request = &req
	s.notifier.Notify(ctx, dealerID, models.Notification{
		Type:      notify.TypeAutoRestock,
		Message:   fmt.Sprintf("Procurement request created for %s, qty %v.", req.ItemName, req.RequestedQty),
		RequestID: req.GlobalProcurementID,
	})
	return res, nil
}

// restockQuantity is how much to request for item, or 0 when no request is due.
func restockQuantity(item models.InventoryItem) float64 {
	if !item.PresetMode || item.PresetQty <= 0 || item.Quantity >= item.PresetQty {
		return 0
	}
	if item.RequestQty > 0 {
		return item.RequestQty
	}
	return item.PresetQty - item.Quantity
}
