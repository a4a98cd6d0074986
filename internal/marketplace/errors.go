package marketplace

import (
	"errors"
	"fmt"
	"strings"

	"blocknex-supply-api-server/internal/store"
)

var (
	ErrNotFound                   = errors.New("marketplace: not found")
	ErrInvalidInput               = errors.New("marketplace: invalid input")
	ErrDuplicateActiveRequest     = errors.New("marketplace: an active procurement request already exists for this item")
	ErrRequestNotOpen             = errors.New("marketplace: procurement request is not open")
	ErrAlreadyAccepted            = errors.New("marketplace: an offer was already accepted for this request")
	ErrWrongSigner                = errors.New("marketplace: signer may not sign the contract now")
	ErrAlreadySigned              = errors.New("marketplace: contract already signed by this party")
	ErrContractNotFullySigned     = errors.New("marketplace: contract is not signed by both parties")
	ErrInvalidTransition          = errors.New("marketplace: invalid status transition")
	ErrAlreadyFulfilled           = errors.New("marketplace: order already fulfilled")
	ErrNotParty                   = errors.New("marketplace: user is not a party to this record")
	ErrOwnRequest                 = errors.New("marketplace: suppliers cannot offer on their own request")
	ErrExternalServiceUnavailable = errors.New("marketplace: external service unavailable")
	ErrConflict                   = errors.New("marketplace: record kept changing, retry later")
	ErrPartialFanout              = errors.New("marketplace: partial fan-out write")
)

// PartialFanoutError reports a multi-copy write that stopped half way. The
// applied locations are not rolled back; the copies need manual reconciliation.
type PartialFanoutError struct {
	Entity  string
	ID      string
	Applied []store.Ref
	Failed  store.Ref
	Err     error
}

func (e *PartialFanoutError) Error() string {
	applied := make([]string, 0, len(e.Applied))
	for _, r := range e.Applied {
		applied = append(applied, r.String())
	}
	return fmt.Sprintf("partial fan-out of %s %s: write to %s failed after [%s]: %v",
		e.Entity, e.ID, e.Failed, strings.Join(applied, ", "), e.Err)
}

func (e *PartialFanoutError) Unwrap() []error {
	return []error{ErrPartialFanout, e.Err}
}
