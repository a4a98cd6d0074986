package marketplace

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/ids"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"
	"blocknex-supply-api-server/internal/store"

	"github.com/rs/zerolog/log"
)

type SubmitOfferInput struct {
	RequestID  string          `json:"-"`
	SupplierID string          `json:"-"`
	Price      float64         `json:"price" binding:"required"`
	Details    string          `json:"details"`
	Payment    models.Payment  `json:"payment"`
	Delivery   models.Delivery `json:"delivery"`
}

// SubmitOffer stores the standalone copy under the supplier and then appends
// the pending offer to both request copies. The open status is checked against the
// revision being written, not only when the request was first read.
func (s *Service) SubmitOffer(ctx context.Context, in SubmitOfferInput) (models.Offer, error) {
	if in.SupplierID == "" || in.RequestID == "" || in.Price <= 0 || in.Delivery.Days < 0 {
		return models.Offer{}, fmt.Errorf("%w: a positive price is required", ErrInvalidInput)
	}
	supplier, err := s.profile(ctx, in.SupplierID)
	if err != nil {
		return models.Offer{}, err
	}

	now := s.now()
	offer := models.Offer{
		OfferID:             ids.NewAt(ids.Offer, now),
		GlobalProcurementID: in.RequestID,
		SupplierID:          in.SupplierID,
		SupplierName:        firstNonEmpty(supplier.CompanyName, in.SupplierID),
		Location:            firstNonEmpty(supplier.Location, supplier.CompanyAddress.City, supplier.CompanyAddress.FullText),
		Price:               in.Price,
		Details:             in.Details,
		Payment:             in.Payment,
		Delivery:            in.Delivery,
		Status:              models.OfferPending,
		CreatedAt:           now,
	}

	cur, err := load(ctx, s, requestEntity, in.RequestID)
	if err != nil {
		return models.Offer{}, err
	}
	if cur.DealerID == in.SupplierID {
		return models.Offer{}, ErrOwnRequest
	}
	offer.ItemID = cur.ItemID
	offer.ItemName = cur.ItemName

	// Written before the offer is visible on the request copies.
	standalone := store.Ref{Path: models.SupplierOffersPath(in.SupplierID), ID: offer.OfferID}
	if err := s.store.Put(ctx, standalone.Path, standalone.ID, offer); err != nil {
		return models.Offer{}, err
	}

	req, err := update(ctx, s, requestEntity, in.RequestID, func(r *models.ProcurementRequest) error {
		if r.DealerID == in.SupplierID {
			return ErrOwnRequest
		}
		if r.Status != models.RequestOpen {
			return fmt.Errorf("%w: %s is %s", ErrRequestNotOpen, r.GlobalProcurementID, r.Status)
		}
		r.SupplierResponses = append(r.SupplierResponses, offer)
		return nil
	})
	if err != nil {
		var pe *PartialFanoutError
		if errors.As(err, &pe) {
			return offer, asPartial("offer", offer.OfferID, []store.Ref{standalone}, standalone, err)
		}
		if derr := s.store.Delete(ctx, standalone.Path, standalone.ID); derr != nil && !errors.Is(derr, store.ErrNotFound) {
			log.Error().Err(derr).Str("offer", offer.OfferID).Msg("orphaned standalone offer")
		}
		return models.Offer{}, err
	}

	s.auditOffer(req, offer)
	s.publish(ctx, eventbus.OfferSubmitted, offer)
	s.notifier.Notify(ctx, req.DealerID, models.Notification{
		Type:      notify.TypeOfferReceived,
		Message:   fmt.Sprintf("New offer from %s for %s: Rs.%v", offer.SupplierName, req.ItemName, offer.Price),
		RequestID: req.GlobalProcurementID,
	})
	return offer, nil
}

// ListSupplierOffers returns the supplier's standalone offers, newest first.
func (s *Service) ListSupplierOffers(ctx context.Context, supplierID string) ([]models.Offer, error) {
	snaps, err := s.store.List(ctx, models.SupplierOffersPath(supplierID), nil)
	if err != nil {
		return nil, err
	}
	offers, err := decodeAll[models.Offer](snaps)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(offers, func(i, j int) bool { return offers[i].CreatedAt.After(offers[j].CreatedAt) })
	return offers, nil
}
