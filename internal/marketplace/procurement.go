package marketplace

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"blocknex-supply-api-server/internal/advisory"
	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/ids"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/store"

	"golang.org/x/sync/errgroup"
)

const advisoryConcurrency = 4

type CreateRequestInput struct {
	DealerID     string  `json:"-"`
	ItemID       string  `json:"itemID" binding:"required"`
	ItemName     string  `json:"itemName" binding:"required"`
	RequestedQty float64 `json:"requestedQty" binding:"required"`
	CurrentQty   float64 `json:"currentQty"`
}

// CreateRequest opens a procurement request. Only one active request may exist
// per dealer and item.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (models.ProcurementRequest, error) {
	in.ItemID = strings.TrimSpace(in.ItemID)
	in.ItemName = strings.TrimSpace(in.ItemName)
	if in.DealerID == "" || in.ItemID == "" || in.ItemName == "" || in.RequestedQty <= 0 {
		return models.ProcurementRequest{}, fmt.Errorf("%w: dealer, item and a positive quantity are required", ErrInvalidInput)
	}

	unlock := s.locks.Lock(in.DealerID + "|" + in.ItemID)
	defer unlock()

	active, err := s.store.List(ctx, models.GlobalRequestsCollection, store.Where(
		store.Eq("userUid", in.DealerID),
		store.Eq("itemID", in.ItemID),
		store.In("status", models.ActiveRequestStatuses...),
	))
	if err != nil {
		return models.ProcurementRequest{}, err
	}
	if len(active) > 0 {
		return models.ProcurementRequest{}, fmt.Errorf("%w: %s (%s)", ErrDuplicateActiveRequest, in.ItemName, active[0].Ref.ID)
	}

	dealer, err := s.profile(ctx, in.DealerID)
	if err != nil {
		return models.ProcurementRequest{}, err
	}

	now := s.now()
	req := models.ProcurementRequest{
		GlobalProcurementID: ids.NewAt(ids.Procurement, now),
		ItemID:              in.ItemID,
		ItemName:            in.ItemName,
		RequestedQty:        in.RequestedQty,
		CurrentQty:          in.CurrentQty,
		Status:              models.RequestOpen,
		SupplierResponses:   []models.Offer{},
		DealerID:            in.DealerID,
		DealerCompanyName:   dealer.CompanyName,
		DealerAddress:       dealer.CompanyAddress,
		Location:            firstNonEmpty(dealer.Location, dealer.CompanyAddress.City, dealer.CompanyAddress.FullText),
		Revision:            1,
		CreatedAt:           now,
	}
	if err := s.createAll(ctx, requestEntity.name, req.GlobalProcurementID, nil, requestLocations(&req), req); err != nil {
		return models.ProcurementRequest{}, err
	}

	s.auditProcurement(req)
	s.publish(ctx, eventbus.ProcurementCreated, req)
	s.notifier.Announce(eventbus.ProcurementCreated, req)
	return req, nil
}

// ListOpenRequests is the supplier marketplace feed: open requests of every
// dealer other than excludeDealerID, newest first.
func (s *Service) ListOpenRequests(ctx context.Context, excludeDealerID string) ([]models.ProcurementRequest, error) {
	filter := store.Where(store.Eq("status", models.RequestOpen))
	if excludeDealerID != "" {
		filter = append(filter, store.Ne("userUid", excludeDealerID))
	}
	snaps, err := s.store.List(ctx, models.GlobalRequestsCollection, filter)
	if err != nil {
		return nil, err
	}
	reqs, err := decodeAll[models.ProcurementRequest](snaps)
	if err != nil {
		return nil, err
	}
	sortRequests(reqs)
	return reqs, nil
}

func (s *Service) GetRequest(ctx context.Context, id string) (models.ProcurementRequest, error) {
	return load(ctx, s, requestEntity, id)
}

// RequestForParty returns the request if uid owns it, has offered on it, or
// it is still open to offers.
func (s *Service) RequestForParty(ctx context.Context, uid, id string) (models.ProcurementRequest, error) {
	r, err := s.GetRequest(ctx, id)
	if err != nil {
		return r, err
	}
	if uid == r.DealerID || (r.Status == models.RequestOpen && uid != "") {
		return r, nil
	}
	for _, o := range r.SupplierResponses {
		if o.SupplierID == uid {
			return r, nil
		}
	}
	return models.ProcurementRequest{}, ErrNotParty
}

// RequestView is a dealer's request with optional demand advisory tags.
type RequestView struct {
	models.ProcurementRequest `bson:",inline"`
	Seasonal                  *advisory.Verdict `json:"seasonal,omitempty"`
	Market                    *advisory.Verdict `json:"market,omitempty"`
}

// ListDealerRequests reads the dealer's private copies. Advisory lookups run
// concurrently and a missing verdict just leaves the tag out.
func (s *Service) ListDealerRequests(ctx context.Context, dealerID string, withAdvisory bool) ([]RequestView, error) {
	snaps, err := s.store.List(ctx, models.DealerRequestsPath(dealerID), nil)
	if err != nil {
		return nil, err
	}
	reqs, err := decodeAll[models.ProcurementRequest](snaps)
	if err != nil {
		return nil, err
	}
	sortRequests(reqs)

	views := make([]RequestView, len(reqs))
	for i := range reqs {
		views[i].ProcurementRequest = reqs[i]
	}
	if !withAdvisory || s.advisor == nil {
		return views, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(advisoryConcurrency)
	for i := range views {
		v := &views[i]
		g.Go(func() error {
			if verdict, ok := s.advisor.Advise(gctx, v.ItemName, advisory.Seasonal); ok {
				v.Seasonal = &verdict
			}
			if verdict, ok := s.advisor.Advise(gctx, v.ItemName, advisory.Market); ok {
				v.Market = &verdict
			}
			return nil
		})
	}
	_ = g.Wait()
	return views, nil
}

func sortRequests(reqs []models.ProcurementRequest) {
	sort.SliceStable(reqs, func(i, j int) bool { return reqs[i].CreatedAt.After(reqs[j].CreatedAt) })
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
