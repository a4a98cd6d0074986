// Package inventory keeps per-user stock levels and their history.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/store"

	"github.com/rs/zerolog/log"
)

var (
	ErrItemNotFound    = errors.New("inventory: item not found")
	ErrInvalidQuantity = errors.New("inventory: quantity must not be negative")
)

// Reasons recorded with history snapshots.
const (
	ReasonManual    = "manual"
	ReasonFulfilled = "order_fulfilled"
)

type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) List(ctx context.Context, uid string) ([]models.InventoryItem, error) {
	snaps, err := s.store.List(ctx, models.InventoryPath(uid), nil)
	if err != nil {
		return nil, err
	}
	items := make([]models.InventoryItem, 0, len(snaps))
	for _, snap := range snaps {
		var item models.InventoryItem
		if err := snap.Decode(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ItemName < items[j].ItemName })
	return items, nil
}

func (s *Service) Get(ctx context.Context, uid, itemID string) (models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.store.Get(ctx, models.InventoryPath(uid), itemID, &item); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return item, fmt.Errorf("%w: %s", ErrItemNotFound, itemID)
		}
		return item, err
	}
	return item, nil
}

// Upsert saves item settings. Quantity changes go through SetQuantity so they
// reach the history.
func (s *Service) Upsert(ctx context.Context, uid string, item models.InventoryItem) (models.InventoryItem, error) {
	if item.ItemID == "" {
		return item, fmt.Errorf("inventory: itemID is required")
	}
	if item.Quantity < 0 || item.PresetQty < 0 || item.RequestQty < 0 {
		return item, ErrInvalidQuantity
	}
	existing, err := s.Get(ctx, uid, item.ItemID)
	switch {
	case errors.Is(err, ErrItemNotFound):
		item.UpdatedAt = s.now()
		if err := s.store.Put(ctx, models.InventoryPath(uid), item.ItemID, item); err != nil {
			return item, err
		}
		s.record(ctx, uid, item.ItemID, item.Quantity, ReasonManual)
		return item, nil
	case err != nil:
		return item, err
	}

	fields := map[string]interface{}{
		"itemName":   item.ItemName,
		"unit":       item.Unit,
		"presetMode": item.PresetMode,
		"presetQty":  item.PresetQty,
		"requestQty": item.RequestQty,
		"updatedAt":  s.now(),
	}
	if err := s.store.Patch(ctx, models.InventoryPath(uid), item.ItemID, fields); err != nil {
		return item, err
	}
	if item.Quantity != existing.Quantity {
		return s.SetQuantity(ctx, uid, item.ItemID, item.ItemName, item.Quantity, ReasonManual)
	}
	return s.Get(ctx, uid, item.ItemID)
}

// SetQuantity sets the stock of an item, creating the item when missing, and
// appends a history snapshot.
func (s *Service) SetQuantity(ctx context.Context, uid, itemID, itemName string, qty float64, reason string) (models.InventoryItem, error) {
	if qty < 0 {
		return models.InventoryItem{}, ErrInvalidQuantity
	}
	fields := map[string]interface{}{
		"itemID":    itemID,
		"quantity":  qty,
		"updatedAt": s.now(),
	}
	if itemName != "" {
		fields["itemName"] = itemName
	}
	if err := s.store.Merge(ctx, models.InventoryPath(uid), itemID, fields); err != nil {
		return models.InventoryItem{}, err
	}
	s.record(ctx, uid, itemID, qty, reason)
	return s.Get(ctx, uid, itemID)
}

// record is best effort; a lost snapshot only weakens the trend.
func (s *Service) record(ctx context.Context, uid, itemID string, qty float64, reason string) {
	snap := models.InventorySnapshot{ItemID: itemID, Quantity: qty, Reason: reason, Timestamp: s.now()}
	if _, err := s.store.Create(ctx, models.InventoryHistoryPath(uid), snap); err != nil {
		log.Warn().Err(err).Str("user", uid).Str("item", itemID).Msg("failed to record inventory history")
	}
}

func (s *Service) History(ctx context.Context, uid, itemID string) ([]models.InventorySnapshot, error) {
	snaps, err := s.store.List(ctx, models.InventoryHistoryPath(uid), store.Where(store.Eq("itemID", itemID)))
	if err != nil {
		return nil, err
	}
	out := make([]models.InventorySnapshot, 0, len(snaps))
	for _, snap := range snaps {
		var h models.InventorySnapshot
		if err := snap.Decode(&h); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Service) Trend(ctx context.Context, uid, itemID string) ([]WindowTrend, error) {
	history, err := s.History(ctx, uid, itemID)
	if err != nil {
		return nil, err
	}
	return Predict(history, s.now()), nil
}
