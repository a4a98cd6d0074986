// Package marketplace runs the procurement-to-order lifecycle: requests, offers,
// acceptance, contract co-signing, shipment tracking and fulfilment.
package marketplace

import (
	"context"
	"errors"
	"sync"
	"time"

	"blocknex-supply-api-server/internal/advisory"
	"blocknex-supply-api-server/internal/blockchain"
	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"
	"blocknex-supply-api-server/internal/signing"
	"blocknex-supply-api-server/internal/store"

	"github.com/rs/zerolog/log"
)

// Inventory is the stock keeping collaborator.
type Inventory interface {
	SetQuantity(ctx context.Context, uid, itemID, itemName string, qty float64, reason string) (models.InventoryItem, error)
}

// Archiver stores rendered contract certificates.
type Archiver interface {
	ArchiveCertificate(ctx context.Context, orderID string, pdf []byte) (string, error)
}

type Service struct {
	store     store.Store
	signer    signing.Signer
	ledger    blockchain.Ledger
	advisor   advisory.Advisor
	events    eventbus.Publisher
	notifier  notify.Notifier
	inventory Inventory
	archiver  Archiver

	confirmTimeout time.Duration
	pollInterval   time.Duration
	now            func() time.Time

	locks      *keyedMutex
	background sync.WaitGroup
}

type Option func(*Service)

// WithLedger enables the on-chain audit trail.
func WithLedger(l blockchain.Ledger, confirmTimeout, pollInterval time.Duration) Option {
	return func(s *Service) {
		s.ledger = l
		if confirmTimeout > 0 {
			s.confirmTimeout = confirmTimeout
		}
		if pollInterval > 0 {
			s.pollInterval = pollInterval
		}
	}
}

func WithAdvisor(a advisory.Advisor) Option  { return func(s *Service) { s.advisor = a } }
func WithEvents(p eventbus.Publisher) Option { return func(s *Service) { s.events = p } }
func WithNotifier(n notify.Notifier) Option  { return func(s *Service) { s.notifier = n } }
func WithInventory(inv Inventory) Option     { return func(s *Service) { s.inventory = inv } }
func WithArchiver(a Archiver) Option         { return func(s *Service) { s.archiver = a } }
func WithClock(now func() time.Time) Option  { return func(s *Service) { s.now = now } }

func NewService(st store.Store, signer signing.Signer, opts ...Option) *Service {
	s := &Service{
		store:          st,
		signer:         signer,
		events:         eventbus.Nop{},
		notifier:       nopNotifier{},
		confirmTimeout: blockchain.DefaultConfirmTimeout,
		pollInterval:   blockchain.DefaultPollInterval,
		now:            func() time.Time { return time.Now().UTC() },
		locks:          newKeyedMutex(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Wait blocks until background ledger audits have finished.
func (s *Service) Wait() {
	s.background.Wait()
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, models.Notification) {}
func (nopNotifier) Announce(string, interface{})                        {}

func (s *Service) publish(ctx context.Context, routingKey string, data interface{}) {
	if err := s.events.Publish(ctx, routingKey, data); err != nil {
		log.Warn().Err(err).Str("event", routingKey).Msg("failed to publish domain event")
	}
}

// profile returns info/{uid}; a missing profile is empty, not an error.
func (s *Service) profile(ctx context.Context, uid string) (models.Profile, error) {
	var p models.Profile
	err := s.store.Get(ctx, models.ProfilesCollection, uid, &p)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return p, err
	}
	p.UserID = uid
	return p, nil
}

func decodeAll[T any](snaps []store.Snapshot) ([]T, error) {
	out := make([]T, 0, len(snaps))
	for _, snap := range snaps {
		var v T
		if err := snap.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
