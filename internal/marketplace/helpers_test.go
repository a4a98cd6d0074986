package marketplace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"blocknex-supply-api-server/internal/advisory"
	"blocknex-supply-api-server/internal/blockchain"
	"blocknex-supply-api-server/internal/inventory"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/signing"
	"blocknex-supply-api-server/internal/store"

	"github.com/stretchr/testify/require"
)

const (
	dealer    = "dealer-1"
	supplier1 = "supplier-1"
	supplier2 = "supplier-2"
)

type recordingNotifier struct {
	mu        sync.Mutex
	notes     map[string][]models.Notification
	announced []string
}

func (n *recordingNotifier) Notify(_ context.Context, uid string, note models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.notes == nil {
		n.notes = map[string][]models.Notification{}
	}
	n.notes[uid] = append(n.notes[uid], note)
}

func (n *recordingNotifier) Announce(event string, _ interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.announced = append(n.announced, event)
}

func (n *recordingNotifier) types(uid string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, note := range n.notes[uid] {
		out = append(out, note.Type)
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, routingKey string, _ interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, routingKey)
	return nil
}

func (p *recordingPublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

// faultyStore fails writes to paths containing failPath. A hook armed with
// beforeWrite or afterWrite runs once around the next write to its path.
type faultyStore struct {
	*store.MemoryStore
	mu       sync.Mutex
	failPath string
	hooks    map[hookKey]func()
}

type hookKey struct {
	after bool
	path  string
}

func (f *faultyStore) beforeWrite(path string, fn func()) { f.arm(hookKey{false, path}, fn) }

func (f *faultyStore) afterWrite(path string, fn func()) { f.arm(hookKey{true, path}, fn) }

func (f *faultyStore) arm(k hookKey, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hooks == nil {
		f.hooks = map[hookKey]func(){}
	}
	f.hooks[k] = fn
}

func (f *faultyStore) fire(after bool, path string) {
	f.mu.Lock()
	k := hookKey{after, path}
	fn := f.hooks[k]
	delete(f.hooks, k)
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

var errInjected = errors.New("injected write failure")

func (f *faultyStore) failOn(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPath = path
}

func (f *faultyStore) shouldFail(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failPath != "" && strings.Contains(path, f.failPath)
}

func (f *faultyStore) Put(ctx context.Context, path, id string, doc interface{}) error {
	f.fire(false, path)
	if f.shouldFail(path) {
		return errInjected
	}
	err := f.MemoryStore.Put(ctx, path, id, doc)
	f.fire(true, path)
	return err
}

func (f *faultyStore) PatchIf(ctx context.Context, path, id string, cond store.Filter, fields map[string]interface{}) error {
	f.fire(false, path)
	if f.shouldFail(path) {
		return errInjected
	}
	err := f.MemoryStore.PatchIf(ctx, path, id, cond, fields)
	f.fire(true, path)
	return err
}

func (f *faultyStore) Patch(ctx context.Context, path, id string, fields map[string]interface{}) error {
	return f.PatchIf(ctx, path, id, nil, fields)
}

type fakeAdvisor struct{}

func (fakeAdvisor) Advise(_ context.Context, item string, kind advisory.Kind) (advisory.Verdict, bool) {
	if item == "Steel Rod" && kind == advisory.Seasonal {
		return advisory.Verdict{Demand: true, Reason: "monsoon construction"}, true
	}
	return advisory.Verdict{}, false
}

func (fakeAdvisor) Suggestions(context.Context) []advisory.Suggestion { return nil }

type fakeLedger struct {
	mu           sync.Mutex
	seq          int
	receipts     map[string]blockchain.Receipt
	revertAccept bool
	accepts      int
}

func (l *fakeLedger) record(build func(seq int) blockchain.Receipt) blockchain.TxHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.receipts == nil {
		l.receipts = map[string]blockchain.Receipt{}
	}
	l.seq++
	r := build(l.seq)
	r.TxHash = fmt.Sprintf("tx-%d", l.seq)
	l.receipts[r.TxHash] = r
	return blockchain.TxHandle{Hash: r.TxHash, SubmittedAt: time.Now()}
}

func (l *fakeLedger) SubmitProcurement(context.Context, string, float64, string) (blockchain.TxHandle, error) {
	return l.record(func(int) blockchain.Receipt {
		return blockchain.Receipt{Status: blockchain.ReceiptConfirmed, Event: blockchain.EventProcurementCreated, ProcurementID: "chain-prc"}
	}), nil
}

func (l *fakeLedger) SubmitOffer(context.Context, string, string, float64, string) (blockchain.TxHandle, error) {
	return l.record(func(seq int) blockchain.Receipt {
		return blockchain.Receipt{Status: blockchain.ReceiptConfirmed, Event: blockchain.EventOfferSubmitted, OfferID: fmt.Sprintf("chain-ofr-%d", seq)}
	}), nil
}

func (l *fakeLedger) AcceptOffer(context.Context, string, string) (blockchain.TxHandle, error) {
	l.mu.Lock()
	l.accepts++
	revert := l.revertAccept
	l.mu.Unlock()
	return l.record(func(int) blockchain.Receipt {
		if revert {
			return blockchain.Receipt{Status: blockchain.ReceiptReverted, Reason: "offer expired"}
		}
		return blockchain.Receipt{Status: blockchain.ReceiptConfirmed, Event: blockchain.EventOfferAccepted}
	}), nil
}

func (l *fakeLedger) Receipt(_ context.Context, tx blockchain.TxHandle) (blockchain.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.receipts[tx.Hash]
	if !ok {
		return blockchain.Receipt{}, blockchain.ErrUnknownTransaction
	}
	return r, nil
}

type testEnv struct {
	ctx       context.Context
	store     *faultyStore
	svc       *Service
	notes     *recordingNotifier
	events    *recordingPublisher
	inventory *inventory.Service
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	ctx := context.Background()
	st := &faultyStore{MemoryStore: store.NewMemoryStore()}
	e := &testEnv{
		ctx:       ctx,
		store:     st,
		notes:     &recordingNotifier{},
		events:    &recordingPublisher{},
		inventory: inventory.NewService(st),
	}
	base := []Option{WithNotifier(e.notes), WithEvents(e.events), WithInventory(e.inventory)}
	e.svc = NewService(st, signing.NewService(st, signing.WithKeyBits(1024)), append(base, opts...)...)

	for uid, p := range map[string]models.Profile{
		dealer:    {CompanyName: "Acme Builders", GSTNumber: "29ABCDE1234F1Z5", Location: "Bengaluru"},
		supplier1: {CompanyName: "Steelworks One", GSTNumber: "27AAAAA0000A1Z1", Location: "Pune"},
		supplier2: {CompanyName: "Steelworks Two", GSTNumber: "24BBBBB1111B1Z2", Location: "Surat"},
	} {
		p.UserID = uid
		require.NoError(t, st.Put(ctx, models.ProfilesCollection, uid, p))
	}
	return e
}

// openWithOffers creates a Steel Rod request with offers at 500 and 480.
func (e *testEnv) openWithOffers(t *testing.T) models.ProcurementRequest {
	t.Helper()
	req, err := e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "steel-rod", ItemName: "Steel Rod", RequestedQty: 100})
	require.NoError(t, err)
	for _, o := range []struct {
		supplier string
		price    float64
	}{{supplier1, 500}, {supplier2, 480}} {
		_, err := e.svc.SubmitOffer(e.ctx, SubmitOfferInput{
			RequestID:  req.GlobalProcurementID,
			SupplierID: o.supplier,
			Price:      o.price,
			Details:    "TMT Fe500",
			Payment:    models.Payment{Method: "bank transfer", Terms: "net 30"},
			Delivery:   models.Delivery{Method: "truck", Days: 5},
		})
		require.NoError(t, err)
	}
	got, err := e.svc.GetRequest(e.ctx, req.GlobalProcurementID)
	require.NoError(t, err)
	return got
}

// signedOrder accepts the 480 offer and has both parties sign.
func (e *testEnv) signedOrder(t *testing.T) models.Order {
	t.Helper()
	req := e.openWithOffers(t)
	order, err := e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 1)
	require.NoError(t, err)
	_, err = e.svc.SignContract(e.ctx, order.GlobalOrderID, dealer)
	require.NoError(t, err)
	order, err = e.svc.SignContract(e.ctx, order.GlobalOrderID, supplier2)
	require.NoError(t, err)
	return order
}

func (e *testEnv) advance(t *testing.T, orderID string, statuses ...models.OrderStatus) models.Order {
	t.Helper()
	var order models.Order
	for _, st := range statuses {
		var err error
		order, err = e.svc.AdvanceStatus(e.ctx, AdvanceStatusInput{OrderID: orderID, ActorID: supplier2, Status: st})
		require.NoError(t, err)
	}
	return order
}

func (e *testEnv) requestCopies(t *testing.T, id string) []models.ProcurementRequest {
	t.Helper()
	var global, private models.ProcurementRequest
	require.NoError(t, e.store.Get(e.ctx, models.GlobalRequestsCollection, id, &global))
	require.NoError(t, e.store.Get(e.ctx, models.DealerRequestsPath(global.DealerID), id, &private))
	return []models.ProcurementRequest{global, private}
}

func (e *testEnv) orderCopies(t *testing.T, id string) []models.Order {
	t.Helper()
	var global models.Order
	require.NoError(t, e.store.Get(e.ctx, models.GlobalOrdersCollection, id, &global))
	out := []models.Order{global}
	for _, loc := range orderLocations(&global)[1:] {
		var o models.Order
		require.NoError(t, e.store.Get(e.ctx, loc.Path, loc.ID, &o))
		out = append(out, o)
	}
	return out
}
