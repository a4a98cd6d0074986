package marketplace

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/store"

	"github.com/rs/zerolog/log"
)

// CopyState summarizes one physical copy for consistency reports.
type CopyState struct {
	Ref            store.Ref `json:"ref"`
	Status         string    `json:"status"`
	Revision       int64     `json:"revision"`
	TrackingLen    int       `json:"trackingLen,omitempty"`
	DealerSigned   bool      `json:"dealerSigned,omitempty"`
	SupplierSigned bool      `json:"supplierSigned,omitempty"`
	GlobalOrderID  string    `json:"globalOrderId,omitempty"`
}

type ConsistencyReport struct {
	OrderID    string      `json:"orderId"`
	RequestID  string      `json:"requestId"`
	Copies     []CopyState `json:"copies"`
	Missing    []store.Ref `json:"missing,omitempty"`
	Divergent  []string    `json:"divergent,omitempty"`
	Consistent bool        `json:"consistent"`
}

// CheckOrderConsistency compares every copy of an order and its request with
// the global copies. Private order copies are found with group queries so
// copies stored under an unexpected parent show up too.
func (s *Service) CheckOrderConsistency(ctx context.Context, orderID string) (ConsistencyReport, error) {
	global, err := load(ctx, s, orderEntity, orderID)
	if err != nil {
		return ConsistencyReport{}, err
	}
	report := ConsistencyReport{OrderID: orderID, RequestID: global.GlobalProcurementID}
	report.Copies = append(report.Copies, orderCopy(orderLocations(&global)[0], global))

	found := map[store.Ref]bool{}
	for _, group := range []string{models.DealerOrdersGroup, models.SupplierFulfilmentGroup} {
		snaps, err := s.store.ListGroup(ctx, group, store.Where(store.Eq("globalOrderId", orderID)))
		if err != nil {
			return report, err
		}
		for _, snap := range snaps {
			var o models.Order
			if err := snap.Decode(&o); err != nil {
				return report, err
			}
			found[snap.Ref] = true
			report.Copies = append(report.Copies, orderCopy(snap.Ref, o))
			report.Divergent = append(report.Divergent, diffOrder(snap.Ref, global, o)...)
		}
	}
	for _, loc := range orderLocations(&global)[1:] {
		if !found[loc] {
			report.Missing = append(report.Missing, loc)
		}
	}

	req, err := load(ctx, s, requestEntity, global.GlobalProcurementID)
	switch {
	case err == nil:
		report.Copies = append(report.Copies, requestCopy(requestLocations(&req)[0], req))
		if req.GlobalOrderID != orderID {
			report.Divergent = append(report.Divergent, fmt.Sprintf("%s: globalOrderId %q", requestLocations(&req)[0], req.GlobalOrderID))
		}
		if err := s.checkRequestCopies(ctx, &report, req); err != nil {
			return report, err
		}
	case errors.Is(err, ErrNotFound):
		report.Missing = append(report.Missing, store.Ref{Path: models.GlobalRequestsCollection, ID: global.GlobalProcurementID})
	default:
		return report, err
	}

	report.Consistent = len(report.Missing) == 0 && len(report.Divergent) == 0
	return report, nil
}

func (s *Service) checkRequestCopies(ctx context.Context, report *ConsistencyReport, global models.ProcurementRequest) error {
	snaps, err := s.store.ListGroup(ctx, models.DealerRequestsGroup, store.Where(store.Eq("globalProcurementId", global.GlobalProcurementID)))
	if err != nil {
		return err
	}
	found := map[store.Ref]bool{}
	for _, snap := range snaps {
		var r models.ProcurementRequest
		if err := snap.Decode(&r); err != nil {
			return err
		}
		found[snap.Ref] = true
		report.Copies = append(report.Copies, requestCopy(snap.Ref, r))
		if r.Status != global.Status || r.Fulfilled != global.Fulfilled || r.GlobalOrderID != global.GlobalOrderID ||
			!reflect.DeepEqual(offerStatuses(r), offerStatuses(global)) {
			report.Divergent = append(report.Divergent, fmt.Sprintf("%s: request fields differ from global copy", snap.Ref))
		}
	}
	for _, loc := range requestLocations(&global)[1:] {
		if !found[loc] {
			report.Missing = append(report.Missing, loc)
		}
	}
	return nil
}

func diffOrder(ref store.Ref, want, got models.Order) []string {
	var out []string
	if got.Status != want.Status {
		out = append(out, fmt.Sprintf("%s: status %q, global %q", ref, got.Status, want.Status))
	}
	if !sameTracking(got.Tracking, want.Tracking) {
		out = append(out, fmt.Sprintf("%s: tracking differs (%d entries, global %d)", ref, len(got.Tracking), len(want.Tracking)))
	}
	if !reflect.DeepEqual(got.ContractSignatures, want.ContractSignatures) {
		out = append(out, fmt.Sprintf("%s: contract signatures differ", ref))
	}
	return out
}

func sameTracking(a, b []models.TrackingEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Status != b[i].Status || a[i].Note != b[i].Note || !a[i].Date.Equal(b[i].Date) {
			return false
		}
	}
	return true
}

func offerStatuses(r models.ProcurementRequest) []models.OfferStatus {
	out := make([]models.OfferStatus, len(r.SupplierResponses))
	for i, o := range r.SupplierResponses {
		out[i] = o.Status
	}
	return out
}

func orderCopy(ref store.Ref, o models.Order) CopyState {
	return CopyState{
		Ref:            ref,
		Status:         string(o.Status),
		Revision:       o.Revision,
		TrackingLen:    len(o.Tracking),
		DealerSigned:   o.ContractSignatures.Dealer != nil,
		SupplierSigned: o.ContractSignatures.Supplier != nil,
	}
}

func requestCopy(ref store.Ref, r models.ProcurementRequest) CopyState {
	return CopyState{Ref: ref, Status: string(r.Status), Revision: r.Revision, GlobalOrderID: r.GlobalOrderID}
}

// ResyncOrder overwrites every private copy of an order and its request with
// the global copy, then reports the result. It is the manual repair for a
// partial fan-out.
func (s *Service) ResyncOrder(ctx context.Context, orderID string) (ConsistencyReport, error) {
	o, err := load(ctx, s, orderEntity, orderID)
	if err != nil {
		return ConsistencyReport{}, err
	}
	locs := orderLocations(&o)
	if err := s.createAll(ctx, orderEntity.name, orderID, locs[:1], locs[1:], o); err != nil {
		return ConsistencyReport{}, err
	}
	if req, err := load(ctx, s, requestEntity, o.GlobalProcurementID); err == nil {
		rlocs := requestLocations(&req)
		if err := s.createAll(ctx, requestEntity.name, req.GlobalProcurementID, rlocs[:1], rlocs[1:], req); err != nil {
			return ConsistencyReport{}, err
		}
	}
	log.Warn().Str("order", orderID).Msg("order copies resynchronized from global copy")
	return s.CheckOrderConsistency(ctx, orderID)
}
