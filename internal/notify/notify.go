// Package notify writes user inbox notifications and pushes them to live websocket clients.
package notify

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/socket"
	"blocknex-supply-api-server/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Notification types.
const (
	TypeOfferReceived  = "offer_received"
	TypeOfferAccepted  = "offer_accepted"
	TypeOfferRejected  = "offer_rejected"
	TypeOrderCreated   = "order_created"
	TypeContractSigned = "contract_signed"
	TypeStatusUpdate   = "status_update"
	TypeOrderFulfilled = "order_fulfilled"
	TypeAutoRestock    = "auto_restock"
)

// Notifier is what lifecycle services depend on. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, uid string, n models.Notification)
	// Announce broadcasts a feed event to every connected client.
	Announce(event string, payload interface{})
}

type Service struct {
	store store.Store
	hub   *socket.Hub
	now   func() time.Time
}

// NewService; hub may be nil when no websocket server runs.
func NewService(s store.Store, hub *socket.Hub) *Service {
	return &Service{store: s, hub: hub, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Notify(ctx context.Context, uid string, n models.Notification) {
	if uid == "" {
		return
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.Read = false
	n.CreatedAt = s.now()
	if err := s.store.Put(ctx, models.NotificationsPath(uid), n.ID, n); err != nil {
		log.Error().Err(err).Str("user", uid).Str("type", n.Type).Msg("failed to store notification")
	}
}

type feedMessage struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

func (s *Service) Announce(event string, payload interface{}) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(feedMessage{Event: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("failed to encode feed message")
		return
	}
	s.hub.Broadcast(msg)
}

// List returns the inbox of uid, newest first.
func (s *Service) List(ctx context.Context, uid string, unreadOnly bool) ([]models.Notification, error) {
	var filter store.Filter
	if unreadOnly {
		filter = store.Where(store.Eq("read", false))
	}
	snaps, err := s.store.List(ctx, models.NotificationsPath(uid), filter)
	if err != nil {
		return nil, err
	}
	out := make([]models.Notification, 0, len(snaps))
	for _, snap := range snaps {
		var n models.Notification
		if err := snap.Decode(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Service) MarkRead(ctx context.Context, uid, id string) error {
	return s.store.Patch(ctx, models.NotificationsPath(uid), id, map[string]interface{}{"read": true})
}

// Stream forwards every new unread notification of uid to send until ctx ends
// or send fails.
func (s *Service) Stream(ctx context.Context, uid string, send func(models.Notification) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch, err := s.store.Subscribe(ctx, models.NotificationsPath(uid), store.Where(store.Eq("read", false)))
	if err != nil {
		return err
	}
	for snap := range ch {
		var n models.Notification
		if err := snap.Decode(&n); err != nil {
			log.Warn().Err(err).Str("user", uid).Msg("skipping undecodable notification")
			continue
		}
		if err := send(n); err != nil {
			return err
		}
	}
	return ctx.Err()
}
