package marketplace

import (
	"context"
	"fmt"
	"time"

	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/ids"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"
	"blocknex-supply-api-server/internal/store"
)

// acceptable checks that dealerID may accept the offer at idx of r.
func acceptable(r *models.ProcurementRequest, dealerID string, idx int) (models.Offer, error) {
	if r.DealerID != dealerID {
		return models.Offer{}, ErrNotParty
	}
	if r.Accepted || r.Status == models.RequestOrdered {
		return models.Offer{}, fmt.Errorf("%w: %s", ErrAlreadyAccepted, r.GlobalProcurementID)
	}
	if r.Status != models.RequestOpen && r.Status != models.RequestPending {
		return models.Offer{}, fmt.Errorf("%w: %s is %s", ErrRequestNotOpen, r.GlobalProcurementID, r.Status)
	}
	if idx < 0 || idx >= len(r.SupplierResponses) {
		return models.Offer{}, fmt.Errorf("%w: offer #%d on %s", ErrNotFound, idx, r.GlobalProcurementID)
	}
	offer := r.SupplierResponses[idx]
	if offer.Status == models.OfferRejected {
		return models.Offer{}, fmt.Errorf("%w: offer %s was rejected", ErrInvalidTransition, offer.OfferID)
	}
	return offer, nil
}

// AcceptOffer turns one offer into an order. The request is locked as ordered
// (every other offer rejected) before the order exists, so a failure later on
// can never lead to a second acceptance.
func (s *Service) AcceptOffer(ctx context.Context, dealerID, requestID string, offerIndex int) (models.Order, error) {
	cur, err := load(ctx, s, requestEntity, requestID)
	if err != nil {
		return models.Order{}, err
	}
	offer, err := acceptable(&cur, dealerID, offerIndex)
	if err != nil {
		return models.Order{}, err
	}
	if err := s.confirmAcceptance(ctx, cur, offer); err != nil {
		return models.Order{}, err
	}

	now := s.now()
	var rejected []models.Offer
	req, err := update(ctx, s, requestEntity, requestID, func(r *models.ProcurementRequest) error {
		chosen, err := acceptable(r, dealerID, offerIndex)
		if err != nil {
			return err
		}
		if chosen.OfferID != offer.OfferID {
			return fmt.Errorf("%w: offer #%d changed", ErrConflict, offerIndex)
		}
		rejected = rejected[:0]
		for i := range r.SupplierResponses {
			if i == offerIndex {
				r.SupplierResponses[i].Status = models.OfferAccepted
				continue
			}
			if r.SupplierResponses[i].Status == models.OfferPending {
				rejected = append(rejected, r.SupplierResponses[i])
			}
			r.SupplierResponses[i].Status = models.OfferRejected
		}
		accepted := r.SupplierResponses[offerIndex]
		r.Status = models.RequestOrdered
		r.Accepted = true
		r.AcceptedOffer = &accepted
		r.OrderedAt = &now
		return nil
	})
	if err != nil {
		return models.Order{}, err
	}
	offer = *req.AcceptedOffer
	applied := requestLocations(&req)

	order, err := s.newOrder(ctx, req, offer, now)
	if err != nil {
		return models.Order{}, asPartial(orderEntity.name, requestID, applied, store.Ref{Path: models.GlobalOrdersCollection}, err)
	}
	locs := orderLocations(&order)
	if err := s.createAll(ctx, orderEntity.name, order.GlobalOrderID, applied, locs, order); err != nil {
		return order, err
	}
	applied = append(applied, locs...)

	req, err = update(ctx, s, requestEntity, requestID, func(r *models.ProcurementRequest) error {
		r.GlobalOrderID = order.GlobalOrderID
		if r.AcceptedOffer != nil {
			r.AcceptedOffer.GlobalOrderID = order.GlobalOrderID
		}
		r.SupplierResponses[offerIndex].GlobalOrderID = order.GlobalOrderID
		return nil
	})
	if err != nil {
		return order, asPartial(requestEntity.name, requestID, applied, requestLocations(&cur)[0], err)
	}

	if err := s.updateStandaloneOffers(ctx, order, offer, rejected, applied); err != nil {
		return order, err
	}

	s.publish(ctx, eventbus.OfferAccepted, order)
	s.notifier.Notify(ctx, offer.SupplierID, models.Notification{
		Type:      notify.TypeOfferAccepted,
		Message:   fmt.Sprintf("Your offer for %s was accepted. Order %s created.", order.ItemName, order.GlobalOrderID),
		OrderID:   order.GlobalOrderID,
		RequestID: requestID,
	})
	s.notifier.Notify(ctx, dealerID, models.Notification{
		Type:      notify.TypeOrderCreated,
		Message:   fmt.Sprintf("Order %s created for %s with %s.", order.GlobalOrderID, order.ItemName, order.SupplierName),
		OrderID:   order.GlobalOrderID,
		RequestID: requestID,
	})
	for _, o := range rejected {
		s.publish(ctx, eventbus.OfferRejected, o)
		s.notifier.Notify(ctx, o.SupplierID, models.Notification{
			Type:      notify.TypeOfferRejected,
			Message:   fmt.Sprintf("Your offer for %s was not selected.", o.ItemName),
			RequestID: requestID,
		})
	}
	return order, nil
}

func (s *Service) newOrder(ctx context.Context, req models.ProcurementRequest, offer models.Offer, now time.Time) (models.Order, error) {
	dealer, err := s.profile(ctx, req.DealerID)
	if err != nil {
		return models.Order{}, err
	}
	supplier, err := s.profile(ctx, offer.SupplierID)
	if err != nil {
		return models.Order{}, err
	}
	return models.Order{
		GlobalOrderID:       ids.NewAt(ids.Order, now),
		GlobalProcurementID: req.GlobalProcurementID,
		OfferID:             offer.OfferID,
		DealerID:            req.DealerID,
		SupplierID:          offer.SupplierID,
		SupplierName:        offer.SupplierName,
		DealerGSTIN:         firstNonEmpty(dealer.GSTNumber, req.DealerID),
		SupplierGSTIN:       supplier.GSTNumber,
		ItemID:              req.ItemID,
		ItemName:            req.ItemName,
		Quantity:            req.RequestedQty,
		Price:               offer.Price,
		Details:             offer.Details,
		Payment:             offer.Payment,
		Delivery:            offer.Delivery,
		Status:              models.OrderOrdered,
		Tracking:            []models.TrackingEntry{},
		Revision:            1,
		CreatedAt:           now,
	}, nil
}

// updateStandaloneOffers brings the supplier-side offer documents in line with
// the request copies.
func (s *Service) updateStandaloneOffers(ctx context.Context, order models.Order, accepted models.Offer, rejected []models.Offer, applied []store.Ref) error {
	fields := map[store.Ref]map[string]interface{}{
		{Path: models.SupplierOffersPath(accepted.SupplierID), ID: accepted.OfferID}: {
			"status":        models.OfferAccepted,
			"globalOrderId": order.GlobalOrderID,
		},
	}
	locs := []store.Ref{{Path: models.SupplierOffersPath(accepted.SupplierID), ID: accepted.OfferID}}
	for _, o := range rejected {
		ref := store.Ref{Path: models.SupplierOffersPath(o.SupplierID), ID: o.OfferID}
		fields[ref] = map[string]interface{}{"status": models.OfferRejected}
		locs = append(locs, ref)
	}
	return s.fanout(ctx, "offer", accepted.OfferID, applied, locs, func(ctx context.Context, loc store.Ref) error {
		return s.store.Merge(ctx, loc.Path, loc.ID, fields[loc])
	})
}

// RejectOffer rejects a single pending offer in every copy. The request status
// is left alone. Rejecting an already rejected offer changes nothing.
func (s *Service) RejectOffer(ctx context.Context, dealerID, requestID string, offerIndex int) (models.Offer, error) {
	changed := false
	req, err := update(ctx, s, requestEntity, requestID, func(r *models.ProcurementRequest) error {
		changed = false
		if r.DealerID != dealerID {
			return ErrNotParty
		}
		if offerIndex < 0 || offerIndex >= len(r.SupplierResponses) {
			return fmt.Errorf("%w: offer #%d on %s", ErrNotFound, offerIndex, requestID)
		}
		switch r.SupplierResponses[offerIndex].Status {
		case models.OfferAccepted:
			return fmt.Errorf("%w: offer %s is already accepted", ErrInvalidTransition, r.SupplierResponses[offerIndex].OfferID)
		case models.OfferRejected:
			return errNoChange
		}
		r.SupplierResponses[offerIndex].Status = models.OfferRejected
		changed = true
		return nil
	})
	if err != nil {
		return models.Offer{}, err
	}
	offer := req.SupplierResponses[offerIndex]

	standalone := store.Ref{Path: models.SupplierOffersPath(offer.SupplierID), ID: offer.OfferID}
	if err := s.store.Patch(ctx, standalone.Path, standalone.ID, map[string]interface{}{"status": models.OfferRejected}); err != nil {
		return offer, asPartial("offer", offer.OfferID, requestLocations(&req), standalone, err)
	}
	if changed {
		s.publish(ctx, eventbus.OfferRejected, offer)
		s.notifier.Notify(ctx, offer.SupplierID, models.Notification{
			Type:      notify.TypeOfferRejected,
			Message:   fmt.Sprintf("Your offer for %s was rejected.", offer.ItemName),
			RequestID: requestID,
		})
	}
	return offer, nil
}
