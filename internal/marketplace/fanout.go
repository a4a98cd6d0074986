package marketplace

import (
	"context"
	"errors"
	"fmt"

	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/store"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
)

const maxCASAttempts = 5

// errNoChange from a mutate func ends an update without writing.
var errNoChange = errors.New("no change")

// requestLocations lists every physical copy of a request, global copy first.
func requestLocations(r *models.ProcurementRequest) []store.Ref {
	return []store.Ref{
		{Path: models.GlobalRequestsCollection, ID: r.GlobalProcurementID},
		{Path: models.DealerRequestsPath(r.DealerID), ID: r.GlobalProcurementID},
	}
}

// orderLocations lists every physical copy of an order, global copy first.
func orderLocations(o *models.Order) []store.Ref {
	return []store.Ref{
		{Path: models.GlobalOrdersCollection, ID: o.GlobalOrderID},
		{Path: models.DealerOrdersPath(o.DealerID), ID: o.GlobalOrderID},
		{Path: models.SupplierFulfilmentPath(o.SupplierID), ID: o.GlobalOrderID},
	}
}

// entity describes a revisioned document kept in one global and several private copies.
type entity[T any] struct {
	name      string
	global    string
	revision  func(*T) *int64
	locations func(*T) []store.Ref
}

var requestEntity = entity[models.ProcurementRequest]{
	name:      "procurement request",
	global:    models.GlobalRequestsCollection,
	revision:  func(r *models.ProcurementRequest) *int64 { return &r.Revision },
	locations: requestLocations,
}

var orderEntity = entity[models.Order]{
	name:      "order",
	global:    models.GlobalOrdersCollection,
	revision:  func(o *models.Order) *int64 { return &o.Revision },
	locations: orderLocations,
}

func load[T any](ctx context.Context, s *Service, e entity[T], id string) (T, error) {
	var doc T
	if err := s.store.Get(ctx, e.global, id, &doc); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return doc, fmt.Errorf("%w: %s %s", ErrNotFound, e.name, id)
		}
		return doc, err
	}
	return doc, nil
}

// update is the single writer of revisioned entities. It re-reads the global
// copy, applies mutate, writes it back only if the revision is unchanged and
// then mirrors the new state into every private copy. mutate re-checks its
// preconditions on each attempt.
func update[T any](ctx context.Context, s *Service, e entity[T], id string, mutate func(*T) error) (T, error) {
	var zero T
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		cur, err := load(ctx, s, e, id)
		if err != nil {
			return zero, err
		}
		next := cur
		read := *e.revision(&next)
		if err := mutate(&next); err != nil {
			if errors.Is(err, errNoChange) {
				return cur, nil
			}
			return zero, err
		}
		*e.revision(&next) = read + 1

		fields, err := toFields(next)
		if err != nil {
			return zero, err
		}
		err = s.store.PatchIf(ctx, e.global, id, store.Where(store.Eq("revision", read)), fields)
		if errors.Is(err, store.ErrConditionFailed) {
			log.Debug().Str("entity", e.name).Str("id", id).Int("attempt", attempt+1).Msg("revision changed, retrying")
			continue
		}
		if err != nil {
			return zero, err
		}

		locs := e.locations(&next)
		if err := s.mirror(ctx, e.name, id, locs[:1], locs[1:], next, read+1); err != nil {
			return next, err
		}
		return next, nil
	}
	return zero, fmt.Errorf("%w: %s %s", ErrConflict, e.name, id)
}

// mirror copies doc at revision rev into locs. Copies already at rev or later
// are left alone; a missing copy is recreated.
func (s *Service) mirror(ctx context.Context, entityName, id string, applied, locs []store.Ref, doc interface{}, rev int64) error {
	fields, err := toFields(doc)
	if err != nil {
		return err
	}
	return s.fanout(ctx, entityName, id, applied, locs, func(ctx context.Context, loc store.Ref) error {
		err := s.store.PatchIf(ctx, loc.Path, loc.ID, store.Where(store.Lt("revision", rev)), fields)
		switch {
		case err == nil, errors.Is(err, store.ErrConditionFailed):
			return nil
		case errors.Is(err, store.ErrNotFound):
			log.Warn().Str("entity", entityName).Str("location", loc.String()).Msg("private copy missing, recreating")
			return s.store.Put(ctx, loc.Path, loc.ID, doc)
		default:
			return err
		}
	})
}

// fanout applies write to every location in order and stops at the first
// failure. Failing after anything was written yields a *PartialFanoutError.
func (s *Service) fanout(ctx context.Context, entityName, id string, applied, locs []store.Ref, write func(context.Context, store.Ref) error) error {
	done := append([]store.Ref(nil), applied...)
	for _, loc := range locs {
		if err := write(ctx, loc); err != nil {
			if len(done) == 0 {
				return err
			}
			pe := &PartialFanoutError{Entity: entityName, ID: id, Applied: done, Failed: loc, Err: err}
			log.Error().Err(err).
				Str("entity", entityName).
				Str("id", id).
				Str("failed", loc.String()).
				Int("applied", len(done)).
				Msg("CRITICAL: partial fan-out, copies diverged and need manual reconciliation")
			return pe
		}
		done = append(done, loc)
	}
	return nil
}

// createAll writes a new document to every location.
func (s *Service) createAll(ctx context.Context, entityName, id string, applied, locs []store.Ref, doc interface{}) error {
	return s.fanout(ctx, entityName, id, applied, locs, func(ctx context.Context, loc store.Ref) error {
		return s.store.Put(ctx, loc.Path, loc.ID, doc)
	})
}

// asPartial reports err as a fan-out failure when earlier locations were already written.
func asPartial(entityName, id string, applied []store.Ref, failed store.Ref, err error) error {
	var pe *PartialFanoutError
	if errors.As(err, &pe) {
		pe.Applied = append(append([]store.Ref(nil), applied...), pe.Applied...)
		return pe
	}
	log.Error().Err(err).Str("entity", entityName).Str("id", id).Str("failed", failed.String()).
		Msg("CRITICAL: partial fan-out, copies diverged and need manual reconciliation")
	return &PartialFanoutError{Entity: entityName, ID: id, Applied: applied, Failed: failed, Err: err}
}

// toFields flattens doc into top-level fields for a patch.
func toFields(doc interface{}) (map[string]interface{}, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
