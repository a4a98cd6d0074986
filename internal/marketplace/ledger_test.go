package marketplace

import (
	"testing"
	"time"

	"blocknex-supply-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerAuditAndConfirmedAcceptance(t *testing.T) {
	ledger := &fakeLedger{}
	e := newTestEnv(t, WithLedger(ledger, time.Second, 5*time.Millisecond))

	req, err := e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "steel-rod", ItemName: "Steel Rod", RequestedQty: 100})
	require.NoError(t, err)
	e.svc.Wait()

	req, err = e.svc.GetRequest(e.ctx, req.GlobalProcurementID)
	require.NoError(t, err)
	assert.Equal(t, "chain-prc", req.ChainProcurementID)

	_, err = e.svc.SubmitOffer(e.ctx, SubmitOfferInput{RequestID: req.GlobalProcurementID, SupplierID: supplier1, Price: 500})
	require.NoError(t, err)
	e.svc.Wait()

	req, err = e.svc.GetRequest(e.ctx, req.GlobalProcurementID)
	require.NoError(t, err)
	require.NotEmpty(t, req.SupplierResponses[0].ChainOfferID)

	offers, err := e.svc.ListSupplierOffers(e.ctx, supplier1)
	require.NoError(t, err)
	assert.Equal(t, req.SupplierResponses[0].ChainOfferID, offers[0].ChainOfferID)

	_, err = e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.accepts)
}

func TestRevertedAcceptanceCreatesNoOrder(t *testing.T) {
	ledger := &fakeLedger{}
	e := newTestEnv(t, WithLedger(ledger, time.Second, 5*time.Millisecond))

	req, err := e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "steel-rod", ItemName: "Steel Rod", RequestedQty: 100})
	require.NoError(t, err)
	e.svc.Wait()
	_, err = e.svc.SubmitOffer(e.ctx, SubmitOfferInput{RequestID: req.GlobalProcurementID, SupplierID: supplier1, Price: 500})
	require.NoError(t, err)
	e.svc.Wait()

	ledger.mu.Lock()
	ledger.revertAccept = true
	ledger.mu.Unlock()

	_, err = e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 0)
	require.ErrorIs(t, err, ErrExternalServiceUnavailable)

	for _, c := range e.requestCopies(t, req.GlobalProcurementID) {
		assert.Equal(t, models.RequestOpen, c.Status)
		assert.False(t, c.Accepted)
	}
	orders, err := e.store.List(e.ctx, models.GlobalOrdersCollection, nil)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestAcceptanceWithoutChainIDsSkipsLedger(t *testing.T) {
	ledger := &fakeLedger{}
	e := newTestEnv(t)
	req := e.openWithOffers(t)

	e.svc.ledger = ledger
	_, err := e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, ledger.accepts)
}
