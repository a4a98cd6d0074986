package blockchain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Chaincode events emitted by the audit contract.
const (
	EventProcurementCreated = "ProcurementCreated"
	EventOfferSubmitted     = "OfferSubmitted"
	EventOfferAccepted      = "OfferAccepted"
)

const (
	DefaultConfirmTimeout = 120 * time.Second
	DefaultPollInterval   = 2 * time.Second
)

var (
	ErrTimeout             = errors.New("blockchain: timed out waiting for confirmation")
	ErrTransactionReverted = errors.New("blockchain: transaction reverted")
	ErrEventNotFound       = errors.New("blockchain: expected event not in receipt")
	ErrUnknownTransaction  = errors.New("blockchain: unknown transaction")
)

type ReceiptStatus string

const (
	ReceiptPending   ReceiptStatus = "pending"
	ReceiptConfirmed ReceiptStatus = "confirmed"
	ReceiptReverted  ReceiptStatus = "reverted"
)

// TxHandle is returned as soon as a transaction is submitted.
type TxHandle struct {
	Hash        string    `json:"txHash"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// Receipt is the resolved state of a transaction.
type Receipt struct {
	TxHash        string        `json:"txHash"`
	Status        ReceiptStatus `json:"status"`
	Event         string        `json:"event,omitempty"`
	ProcurementID string        `json:"procurementId,omitempty"`
	OfferID       string        `json:"offerId,omitempty"`
	Reason        string        `json:"reason,omitempty"`
}

// Ledger is the optional on-chain audit trail of the procurement lifecycle.
type Ledger interface {
	SubmitProcurement(ctx context.Context, itemID string, quantity float64, dealerID string) (TxHandle, error)
	SubmitOffer(ctx context.Context, chainProcurementID, supplierID string, price float64, details string) (TxHandle, error)
	AcceptOffer(ctx context.Context, chainProcurementID, chainOfferID string) (TxHandle, error)
	Receipt(ctx context.Context, tx TxHandle) (Receipt, error)
}

// WaitForEvent polls the receipt of tx until it confirms with event, reverts or
// timeout passes. An empty event accepts any confirmed receipt.
func WaitForEvent(ctx context.Context, l Ledger, tx TxHandle, event string, timeout, interval time.Duration) (Receipt, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		r, err := l.Receipt(ctx, tx)
		if err != nil {
			return r, err
		}
		switch r.Status {
		case ReceiptConfirmed:
			if event != "" && r.Event != event {
				return r, fmt.Errorf("%w: want %s, got %q", ErrEventNotFound, event, r.Event)
			}
			return r, nil
		case ReceiptReverted:
			return r, fmt.Errorf("%w: %s", ErrTransactionReverted, r.Reason)
		}

		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case <-deadline.C:
			return r, fmt.Errorf("%w: tx %s after %s", ErrTimeout, tx.Hash, timeout)
		case <-ticker.C:
		}
	}
}
