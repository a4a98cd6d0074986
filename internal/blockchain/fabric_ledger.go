package blockchain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Submitter is the part of *gateway.Contract the ledger uses.
type Submitter interface {
	SubmitTransaction(name string, args ...string) ([]byte, error)
}

// Receipts are forgotten this long after they resolve.
const receiptRetention = time.Hour

// FabricLedger submits audit transactions in the background and resolves
// receipts from the chaincode response.
type FabricLedger struct {
	contract Submitter

	mu       sync.Mutex
	receipts map[string]*trackedReceipt
}

type trackedReceipt struct {
	receipt    Receipt
	resolvedAt time.Time
}

func NewFabricLedger(contract Submitter) *FabricLedger {
	return &FabricLedger{
		contract: contract,
		receipts: make(map[string]*trackedReceipt),
	}
}

func (l *FabricLedger) SubmitProcurement(ctx context.Context, itemID string, quantity float64, dealerID string) (TxHandle, error) {
	return l.submit(EventProcurementCreated, "CreateProcurement", itemID, formatFloat(quantity), dealerID), nil
}

func (l *FabricLedger) SubmitOffer(ctx context.Context, chainProcurementID, supplierID string, price float64, details string) (TxHandle, error) {
	return l.submit(EventOfferSubmitted, "SubmitOffer", chainProcurementID, supplierID, formatFloat(price), details), nil
}

func (l *FabricLedger) AcceptOffer(ctx context.Context, chainProcurementID, chainOfferID string) (TxHandle, error) {
	return l.submit(EventOfferAccepted, "AcceptOffer", chainProcurementID, chainOfferID), nil
}

func (l *FabricLedger) Receipt(ctx context.Context, tx TxHandle) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.receipts[tx.Hash]
	if !ok {
		return Receipt{TxHash: tx.Hash}, fmt.Errorf("%w: %s", ErrUnknownTransaction, tx.Hash)
	}
	return t.receipt, nil
}

// chaincodeResult is the JSON every audit chaincode function returns.
type chaincodeResult struct {
	TxID          string `json:"txId"`
	Event         string `json:"event"`
	ProcurementID string `json:"procurementId"`
	OfferID       string `json:"offerId"`
}

func (l *FabricLedger) submit(event, fn string, args ...string) TxHandle {
	h := TxHandle{Hash: uuid.NewString(), SubmittedAt: time.Now()}

	l.mu.Lock()
	l.prune(h.SubmittedAt)
	l.receipts[h.Hash] = &trackedReceipt{receipt: Receipt{TxHash: h.Hash, Status: ReceiptPending}}
	l.mu.Unlock()

	go func() {
		result, err := l.contract.SubmitTransaction(fn, args...)

		l.mu.Lock()
		defer l.mu.Unlock()
		t, ok := l.receipts[h.Hash]
		if !ok {
			return
		}
		t.resolvedAt = time.Now()
		if err != nil {
			log.Error().Err(err).Str("function", fn).Str("tx", h.Hash).Msg("audit transaction failed")
			t.receipt.Status = ReceiptReverted
			t.receipt.Reason = err.Error()
			return
		}

		var res chaincodeResult
		if err := json.Unmarshal(result, &res); err != nil {
			log.Warn().Err(err).Str("function", fn).Msg("audit chaincode returned non-JSON result")
		}
		if res.Event == "" {
			res.Event = event
		}
		if res.TxID != "" {
			t.receipt.TxHash = res.TxID
		}
		t.receipt.Status = ReceiptConfirmed
		t.receipt.Event = res.Event
		t.receipt.ProcurementID = res.ProcurementID
		t.receipt.OfferID = res.OfferID
	}()
	return h
}

// prune must be called with l.mu held.
func (l *FabricLedger) prune(now time.Time) {
	for k, t := range l.receipts {
		if !t.resolvedAt.IsZero() && now.Sub(t.resolvedAt) > receiptRetention {
			delete(l.receipts, k)
		}
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
