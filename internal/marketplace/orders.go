package marketplace

import (
	"context"
	"sort"

	"blocknex-supply-api-server/internal/models"
)

func (s *Service) GetOrder(ctx context.Context, orderID string) (models.Order, error) {
	return load(ctx, s, orderEntity, orderID)
}

// OrderForParty reads the global copy of an order the caller is a party to.
func (s *Service) OrderForParty(ctx context.Context, uid, orderID string) (models.Order, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return o, err
	}
	if uid != o.DealerID && uid != o.SupplierID {
		return models.Order{}, ErrNotParty
	}
	return o, nil
}

// ListDealerOrders reads users/{dealer}/orders.
func (s *Service) ListDealerOrders(ctx context.Context, dealerID string) ([]models.Order, error) {
	return s.listOrders(ctx, models.DealerOrdersPath(dealerID))
}

// ListSupplierFulfilments reads users/{supplier}/orderFulfilment.
func (s *Service) ListSupplierFulfilments(ctx context.Context, supplierID string) ([]models.Order, error) {
	return s.listOrders(ctx, models.SupplierFulfilmentPath(supplierID))
}

func (s *Service) listOrders(ctx context.Context, path string) ([]models.Order, error) {
	snaps, err := s.store.List(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	orders, err := decodeAll[models.Order](snaps)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}
