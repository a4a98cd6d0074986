package marketplace

import (
	"context"
	"fmt"

	"blocknex-supply-api-server/internal/blockchain"
	"blocknex-supply-api-server/internal/models"

	"github.com/rs/zerolog/log"
)

// auditProcurement records a new request on chain in the background and stores
// the chain id once confirmed. Failures only log.
func (s *Service) auditProcurement(req models.ProcurementRequest) {
	if s.ledger == nil {
		return
	}
	s.runAudit("procurement", req.GlobalProcurementID, func(ctx context.Context) error {
		tx, err := s.ledger.SubmitProcurement(ctx, req.ItemID, req.RequestedQty, req.DealerID)
		if err != nil {
			return err
		}
		receipt, err := blockchain.WaitForEvent(ctx, s.ledger, tx, blockchain.EventProcurementCreated, s.confirmTimeout, s.pollInterval)
		if err != nil {
			return err
		}
		_, err = update(ctx, s, requestEntity, req.GlobalProcurementID, func(r *models.ProcurementRequest) error {
			if r.ChainProcurementID == receipt.ProcurementID {
				return errNoChange
			}
			r.ChainProcurementID = receipt.ProcurementID
			return nil
		})
		return err
	})
}

// auditOffer records an offer on chain when its request already has a chain id.
func (s *Service) auditOffer(req models.ProcurementRequest, offer models.Offer) {
	if s.ledger == nil || req.ChainProcurementID == "" {
		return
	}
	s.runAudit("offer", offer.OfferID, func(ctx context.Context) error {
		tx, err := s.ledger.SubmitOffer(ctx, req.ChainProcurementID, offer.SupplierID, offer.Price, offer.Details)
		if err != nil {
			return err
		}
		receipt, err := blockchain.WaitForEvent(ctx, s.ledger, tx, blockchain.EventOfferSubmitted, s.confirmTimeout, s.pollInterval)
		if err != nil {
			return err
		}
		_, err = update(ctx, s, requestEntity, req.GlobalProcurementID, func(r *models.ProcurementRequest) error {
			for i := range r.SupplierResponses {
				if r.SupplierResponses[i].OfferID == offer.OfferID {
					if r.SupplierResponses[i].ChainOfferID == receipt.OfferID {
						return errNoChange
					}
					r.SupplierResponses[i].ChainOfferID = receipt.OfferID
					return nil
				}
			}
			return fmt.Errorf("%w: offer %s", ErrNotFound, offer.OfferID)
		})
		if err != nil {
			return err
		}
		return s.store.Patch(ctx, models.SupplierOffersPath(offer.SupplierID), offer.OfferID, map[string]interface{}{
			"chainOfferId": receipt.OfferID,
		})
	})
}

// confirmAcceptance submits the on-chain accept and waits for OfferAccepted.
// It is a hard precondition of AcceptOffer when both chain ids are known.
func (s *Service) confirmAcceptance(ctx context.Context, req models.ProcurementRequest, offer models.Offer) error {
	if s.ledger == nil || req.ChainProcurementID == "" || offer.ChainOfferID == "" {
		return nil
	}
	tx, err := s.ledger.AcceptOffer(ctx, req.ChainProcurementID, offer.ChainOfferID)
	if err == nil {
		_, err = blockchain.WaitForEvent(ctx, s.ledger, tx, blockchain.EventOfferAccepted, s.confirmTimeout, s.pollInterval)
	}
	if err != nil {
		log.Error().Err(err).Str("request", req.GlobalProcurementID).Str("offer", offer.OfferID).Msg("on-chain acceptance failed")
		return fmt.Errorf("%w: ledger: %v", ErrExternalServiceUnavailable, err)
	}
	return nil
}

func (s *Service) runAudit(kind, id string, fn func(ctx context.Context) error) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.confirmTimeout+s.pollInterval)
		defer cancel()
		if err := fn(ctx); err != nil {
			log.Warn().Err(err).Str("kind", kind).Str("id", id).Msg("on-chain audit skipped")
			return
		}
		log.Info().Str("kind", kind).Str("id", id).Msg("on-chain audit confirmed")
	}()
}
