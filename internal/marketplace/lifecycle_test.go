package marketplace

import (
	"testing"

	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcceptOfferCreatesSingleOrder(t *testing.T) {
	e := newTestEnv(t)
	req := e.openWithOffers(t)
	require.Len(t, req.SupplierResponses, 2)
	assert.Equal(t, models.RequestOpen, req.Status)

	order, err := e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 1)
	require.NoError(t, err)

	assert.Equal(t, supplier2, order.SupplierID)
	assert.Equal(t, 480.0, order.Price)
	assert.Equal(t, 100.0, order.Quantity)
	assert.Equal(t, "Steelworks Two", order.SupplierName)
	assert.Equal(t, "29ABCDE1234F1Z5", order.DealerGSTIN)
	assert.Equal(t, "24BBBBB1111B1Z2", order.SupplierGSTIN)
	assert.Equal(t, models.OrderOrdered, order.Status)
	assert.Empty(t, order.Tracking)
	assert.Equal(t, StateUnsigned, StateOf(order))

	for _, c := range e.requestCopies(t, req.GlobalProcurementID) {
		assert.Equal(t, models.RequestOrdered, c.Status)
		assert.True(t, c.Accepted)
		assert.Equal(t, order.GlobalOrderID, c.GlobalOrderID)
		assert.Equal(t, models.OfferRejected, c.SupplierResponses[0].Status)
		assert.Equal(t, models.OfferAccepted, c.SupplierResponses[1].Status)
		require.NotNil(t, c.AcceptedOffer)
		assert.Equal(t, order.OfferID, c.AcceptedOffer.OfferID)
	}

	offers1, err := e.svc.ListSupplierOffers(e.ctx, supplier1)
	require.NoError(t, err)
	require.Len(t, offers1, 1)
	assert.Equal(t, models.OfferRejected, offers1[0].Status)

	offers2, err := e.svc.ListSupplierOffers(e.ctx, supplier2)
	require.NoError(t, err)
	require.Len(t, offers2, 1)
	assert.Equal(t, models.OfferAccepted, offers2[0].Status)
	assert.Equal(t, order.GlobalOrderID, offers2[0].GlobalOrderID)

	feed, err := e.svc.ListOpenRequests(e.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, feed)

	copies := e.orderCopies(t, order.GlobalOrderID)
	require.Len(t, copies, 3)
	for _, c := range copies[1:] {
		assert.Equal(t, copies[0].Status, c.Status)
		assert.Equal(t, copies[0].Price, c.Price)
	}

	_, err = e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 0)
	assert.ErrorIs(t, err, ErrAlreadyAccepted)

	orders, err := e.store.List(e.ctx, models.GlobalOrdersCollection, nil)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	assert.Contains(t, e.notes.types(supplier2), notify.TypeOfferAccepted)
	assert.Contains(t, e.notes.types(supplier1), notify.TypeOfferRejected)
	assert.Contains(t, e.events.keys(), eventbus.OfferAccepted)
}

func TestContractSigningOrder(t *testing.T) {
	e := newTestEnv(t)
	req := e.openWithOffers(t)
	order, err := e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 1)
	require.NoError(t, err)
	id := order.GlobalOrderID

	_, err = e.svc.SignContract(e.ctx, id, supplier2)
	assert.ErrorIs(t, err, ErrWrongSigner)
	_, err = e.svc.SignContract(e.ctx, id, supplier1)
	assert.ErrorIs(t, err, ErrWrongSigner)

	_, err = e.svc.AdvanceStatus(e.ctx, AdvanceStatusInput{OrderID: id, ActorID: supplier2, Status: models.OrderPreparingToShip})
	assert.ErrorIs(t, err, ErrContractNotFullySigned)

	order, err = e.svc.SignContract(e.ctx, id, dealer)
	require.NoError(t, err)
	assert.Equal(t, StateDealerSigned, StateOf(order))

	_, err = e.svc.SignContract(e.ctx, id, dealer)
	assert.ErrorIs(t, err, ErrAlreadySigned)

	_, err = e.svc.AdvanceStatus(e.ctx, AdvanceStatusInput{OrderID: id, ActorID: supplier2, Status: models.OrderPreparingToShip})
	assert.ErrorIs(t, err, ErrContractNotFullySigned)

	order, err = e.svc.SignContract(e.ctx, id, supplier2)
	require.NoError(t, err)
	assert.Equal(t, StateBothSigned, StateOf(order))

	_, err = e.svc.SignContract(e.ctx, id, supplier2)
	assert.ErrorIs(t, err, ErrAlreadySigned)

	for _, c := range e.orderCopies(t, id) {
		require.NotNil(t, c.ContractSignatures.Dealer)
		require.NotNil(t, c.ContractSignatures.Supplier)
		assert.Equal(t, order.ContractSignatures, c.ContractSignatures)
	}

	order, err = e.svc.AdvanceStatus(e.ctx, AdvanceStatusInput{OrderID: id, ActorID: supplier2, Status: models.OrderPreparingToShip})
	require.NoError(t, err)
	require.Len(t, order.Tracking, 1)
	assert.Equal(t, "Supplier updated status.", order.Tracking[0].Note)

	verification, err := e.svc.VerifyContract(e.ctx, dealer, id)
	require.NoError(t, err)
	assert.True(t, verification.Valid)
	assert.True(t, verification.Dealer.Trusted)
	assert.True(t, verification.Supplier.Trusted)

	_, err = e.svc.VerifyContract(e.ctx, supplier1, id)
	assert.ErrorIs(t, err, ErrNotParty)
}

func TestDuplicateActiveRequest(t *testing.T) {
	e := newTestEnv(t)
	order := e.signedOrder(t)

	_, err := e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "steel-rod", ItemName: "Steel Rod", RequestedQty: 20})
	assert.ErrorIs(t, err, ErrDuplicateActiveRequest)

	e.advance(t, order.GlobalOrderID, models.OrderShipped, models.OrderDelivered)
	qty := 120.0
	_, err = e.svc.MarkFulfilled(e.ctx, FulfillInput{DealerID: dealer, OrderID: order.GlobalOrderID, NewQuantity: &qty})
	require.NoError(t, err)

	for _, c := range e.requestCopies(t, order.GlobalProcurementID) {
		assert.Equal(t, models.RequestCompleted, c.Status)
		assert.True(t, c.Fulfilled)
		assert.NotNil(t, c.CompletedAt)
	}

	next, err := e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "steel-rod", ItemName: "Steel Rod", RequestedQty: 20})
	require.NoError(t, err)
	assert.NotEqual(t, order.GlobalProcurementID, next.GlobalProcurementID)

	// Other dealers and other items are unaffected.
	_, err = e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "cement", ItemName: "Cement", RequestedQty: 5})
	require.NoError(t, err)
}

func TestMarkFulfilledRequiresDelivered(t *testing.T) {
	e := newTestEnv(t)
	order := e.signedOrder(t)
	e.advance(t, order.GlobalOrderID, models.OrderShipped)

	_, err := e.svc.MarkFulfilled(e.ctx, FulfillInput{DealerID: dealer, OrderID: order.GlobalOrderID})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	for _, c := range e.requestCopies(t, order.GlobalProcurementID) {
		assert.Equal(t, models.RequestOrdered, c.Status)
	}

	e.advance(t, order.GlobalOrderID, models.OrderDelivered)

	_, err = e.svc.MarkFulfilled(e.ctx, FulfillInput{DealerID: supplier2, OrderID: order.GlobalOrderID})
	assert.ErrorIs(t, err, ErrNotParty)
	_, err = e.svc.MarkFulfilled(e.ctx, FulfillInput{DealerID: dealer, OrderID: order.GlobalOrderID, RequestID: "PRC-other"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	qty := 150.0
	done, err := e.svc.MarkFulfilled(e.ctx, FulfillInput{DealerID: dealer, OrderID: order.GlobalOrderID, RequestID: order.GlobalProcurementID, NewQuantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, models.OrderFulfilled, done.Status)
	assert.NotNil(t, done.FulfilledAt)
	assert.Equal(t, models.OrderFulfilled, done.Tracking[len(done.Tracking)-1].Status)

	for _, c := range e.orderCopies(t, order.GlobalOrderID) {
		assert.Equal(t, models.OrderFulfilled, c.Status)
		assert.Len(t, c.Tracking, len(done.Tracking))
	}

	item, err := e.inventory.Get(e.ctx, dealer, "steel-rod")
	require.NoError(t, err)
	assert.Equal(t, 150.0, item.Quantity)

	_, err = e.svc.MarkFulfilled(e.ctx, FulfillInput{DealerID: dealer, OrderID: order.GlobalOrderID})
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, err, ErrAlreadyFulfilled)

	_, err = e.svc.AdvanceStatus(e.ctx, AdvanceStatusInput{OrderID: order.GlobalOrderID, ActorID: supplier2, Status: models.OrderDelivered})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAdvanceStatusIsMonotonic(t *testing.T) {
	e := newTestEnv(t)
	order := e.signedOrder(t)
	id := order.GlobalOrderID

	// Forward skips are allowed.
	e.advance(t, id, models.OrderShipped)

	tests := []struct {
		name   string
		actor  string
		status models.OrderStatus
		want   error
	}{
		{name: "backwards", actor: supplier2, status: models.OrderPreparingToShip, want: ErrInvalidTransition},
		{name: "same state", actor: supplier2, status: models.OrderShipped, want: ErrInvalidTransition},
		{name: "unknown", actor: supplier2, status: "Lost", want: ErrInvalidTransition},
		{name: "fulfilled is dealer only", actor: dealer, status: models.OrderFulfilled, want: ErrInvalidTransition},
		{name: "outsider", actor: supplier1, status: models.OrderInTransit, want: ErrNotParty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.AdvanceStatus(e.ctx, AdvanceStatusInput{OrderID: id, ActorID: tt.actor, Status: tt.status})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	order, err := e.svc.AdvanceStatus(e.ctx, AdvanceStatusInput{OrderID: id, ActorID: dealer, Status: models.OrderInTransit, Note: "Crossed state border"})
	require.NoError(t, err)
	order = e.advance(t, id, models.OrderDelivered)

	_, err = e.svc.AdvanceStatus(e.ctx, AdvanceStatusInput{OrderID: id, ActorID: supplier2, Status: models.OrderDelivered})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	last := -1
	for _, entry := range order.Tracking {
		require.Greater(t, entry.Status.Rank(), last)
		last = entry.Status.Rank()
	}
	assert.Equal(t, "Crossed state border", order.Tracking[1].Note)
	assert.Contains(t, e.notes.types(dealer), notify.TypeStatusUpdate)

	report, err := e.svc.CheckOrderConsistency(e.ctx, id)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "%+v", report)
}

func TestSubmitOfferGuards(t *testing.T) {
	e := newTestEnv(t)
	req := e.openWithOffers(t)

	_, err := e.svc.SubmitOffer(e.ctx, SubmitOfferInput{RequestID: req.GlobalProcurementID, SupplierID: dealer, Price: 10})
	assert.ErrorIs(t, err, ErrOwnRequest)

	_, err = e.svc.SubmitOffer(e.ctx, SubmitOfferInput{RequestID: req.GlobalProcurementID, SupplierID: supplier1, Price: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.svc.SubmitOffer(e.ctx, SubmitOfferInput{RequestID: "PRC-missing", SupplierID: supplier1, Price: 10})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 0)
	require.NoError(t, err)

	_, err = e.svc.SubmitOffer(e.ctx, SubmitOfferInput{RequestID: req.GlobalProcurementID, SupplierID: supplier1, Price: 450})
	assert.ErrorIs(t, err, ErrRequestNotOpen)

	for _, c := range e.requestCopies(t, req.GlobalProcurementID) {
		assert.Len(t, c.SupplierResponses, 2)
	}
}

func TestRejectOffer(t *testing.T) {
	e := newTestEnv(t)
	req := e.openWithOffers(t)
	id := req.GlobalProcurementID

	_, err := e.svc.RejectOffer(e.ctx, supplier1, id, 0)
	assert.ErrorIs(t, err, ErrNotParty)
	_, err = e.svc.RejectOffer(e.ctx, dealer, id, 7)
	assert.ErrorIs(t, err, ErrNotFound)

	offer, err := e.svc.RejectOffer(e.ctx, dealer, id, 0)
	require.NoError(t, err)
	assert.Equal(t, models.OfferRejected, offer.Status)

	// Rejecting twice changes nothing and notifies once.
	_, err = e.svc.RejectOffer(e.ctx, dealer, id, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{notify.TypeOfferRejected}, e.notes.types(supplier1))

	for _, c := range e.requestCopies(t, id) {
		assert.Equal(t, models.RequestOpen, c.Status)
		assert.Equal(t, models.OfferRejected, c.SupplierResponses[0].Status)
		assert.Equal(t, models.OfferPending, c.SupplierResponses[1].Status)
	}
	offers, err := e.svc.ListSupplierOffers(e.ctx, supplier1)
	require.NoError(t, err)
	assert.Equal(t, models.OfferRejected, offers[0].Status)

	_, err = e.svc.AcceptOffer(e.ctx, dealer, id, 0)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.svc.AcceptOffer(e.ctx, dealer, id, 1)
	require.NoError(t, err)
	_, err = e.svc.RejectOffer(e.ctx, dealer, id, 1)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestListOpenRequestsExcludesOwnRequests(t *testing.T) {
	e := newTestEnv(t)
	req := e.openWithOffers(t)

	feed, err := e.svc.ListOpenRequests(e.ctx, supplier1)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, req.GlobalProcurementID, feed[0].GlobalProcurementID)
	assert.Equal(t, "Acme Builders", feed[0].DealerCompanyName)
	assert.Equal(t, "Bengaluru", feed[0].Location)

	feed, err = e.svc.ListOpenRequests(e.ctx, dealer)
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestListDealerRequestsWithAdvisory(t *testing.T) {
	e := newTestEnv(t, WithAdvisor(fakeAdvisor{}))
	e.openWithOffers(t)
	_, err := e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "cement", ItemName: "Cement", RequestedQty: 5})
	require.NoError(t, err)

	views, err := e.svc.ListDealerRequests(e.ctx, dealer, true)
	require.NoError(t, err)
	require.Len(t, views, 2)
	for _, v := range views {
		assert.Nil(t, v.Market)
		if v.ItemName == "Steel Rod" {
			require.NotNil(t, v.Seasonal)
			assert.True(t, v.Seasonal.Demand)
		} else {
			assert.Nil(t, v.Seasonal)
		}
	}

	plain, err := e.svc.ListDealerRequests(e.ctx, dealer, false)
	require.NoError(t, err)
	for _, v := range plain {
		assert.Nil(t, v.Seasonal)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "x", ItemName: "X", RequestedQty: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: " ", ItemName: "X", RequestedQty: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRequestForParty(t *testing.T) {
	e := newTestEnv(t)
	req, err := e.svc.CreateRequest(e.ctx, CreateRequestInput{DealerID: dealer, ItemID: "cement", ItemName: "Cement", RequestedQty: 40})
	require.NoError(t, err)
	id := req.GlobalProcurementID

	_, err = e.svc.RequestForParty(e.ctx, supplier2, id)
	require.NoError(t, err)

	_, err = e.svc.SubmitOffer(e.ctx, SubmitOfferInput{RequestID: id, SupplierID: supplier1, Price: 300})
	require.NoError(t, err)
	_, err = e.svc.AcceptOffer(e.ctx, dealer, id, 0)
	require.NoError(t, err)

	for _, uid := range []string{dealer, supplier1} {
		got, err := e.svc.RequestForParty(e.ctx, uid, id)
		require.NoError(t, err)
		assert.Equal(t, models.RequestOrdered, got.Status)
	}
	_, err = e.svc.RequestForParty(e.ctx, supplier2, id)
	assert.ErrorIs(t, err, ErrNotParty)
	_, err = e.svc.RequestForParty(e.ctx, supplier2, "PRC-missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
