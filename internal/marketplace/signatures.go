package marketplace

import (
	"bytes"
	"context"
	"fmt"

	"blocknex-supply-api-server/internal/contract"
	"blocknex-supply-api-server/internal/eventbus"
	"blocknex-supply-api-server/internal/models"
	"blocknex-supply-api-server/internal/notify"
	"blocknex-supply-api-server/internal/signing"
)

type ContractState string

const (
	StateUnsigned     ContractState = "unsigned"
	StateDealerSigned ContractState = "dealer_signed"
	StateBothSigned   ContractState = "both_signed"
	// StateInconsistent: supplier signature without a dealer one; only reachable by hand edits.
	StateInconsistent ContractState = "inconsistent"
)

func StateOf(o models.Order) ContractState {
	sig := o.ContractSignatures
	switch {
	case sig.Dealer != nil && sig.Supplier != nil:
		return StateBothSigned
	case sig.Dealer != nil:
		return StateDealerSigned
	case sig.Supplier != nil:
		return StateInconsistent
	}
	return StateUnsigned
}

// signerRole decides which slot signerID may fill on o right now.
func signerRole(o *models.Order, signerID string) (string, error) {
	sig := o.ContractSignatures
	switch signerID {
	case o.DealerID:
		if sig.Dealer != nil {
			return "", fmt.Errorf("%w: dealer on %s", ErrAlreadySigned, o.GlobalOrderID)
		}
		return contract.RoleDealer, nil
	case o.SupplierID:
		if sig.Dealer == nil {
			return "", fmt.Errorf("%w: the dealer signs first", ErrWrongSigner)
		}
		if sig.Supplier != nil {
			return "", fmt.Errorf("%w: supplier on %s", ErrAlreadySigned, o.GlobalOrderID)
		}
		return contract.RoleSupplier, nil
	}
	return "", fmt.Errorf("%w: not a party to %s", ErrWrongSigner, o.GlobalOrderID)
}

// SignContract signs the canonical contract text of an order with a one-time
// key and stores the signature in every copy. The dealer signs first.
func (s *Service) SignContract(ctx context.Context, orderID, signerID string) (models.Order, error) {
	cur, err := load(ctx, s, orderEntity, orderID)
	if err != nil {
		return models.Order{}, err
	}
	if _, err := signerRole(&cur, signerID); err != nil {
		return models.Order{}, err
	}

	message := contract.Message(cur)
	payload, err := s.signer.Sign(ctx, signerID, message)
	if err != nil {
		return models.Order{}, fmt.Errorf("sign contract %s: %w", orderID, err)
	}

	var role string
	order, err := update(ctx, s, orderEntity, orderID, func(o *models.Order) error {
		r, err := signerRole(o, signerID)
		if err != nil {
			return err
		}
		if !bytes.Equal(contract.Message(*o), message) {
			return fmt.Errorf("%w: contract text of %s changed while signing", ErrConflict, orderID)
		}
		p := payload
		if r == contract.RoleDealer {
			o.ContractSignatures.Dealer = &p
		} else {
			o.ContractSignatures.Supplier = &p
		}
		role = r
		return nil
	})
	if err != nil {
		return order, err
	}

	counterparty := order.SupplierID
	if role == contract.RoleSupplier {
		counterparty = order.DealerID
	}
	s.publish(ctx, eventbus.ContractSigned, map[string]interface{}{
		"globalOrderId": order.GlobalOrderID,
		"role":          role,
		"keyVersion":    payload.KeyVersion,
		"state":         StateOf(order),
	})
	s.notifier.Notify(ctx, counterparty, models.Notification{
		Type:    notify.TypeContractSigned,
		Message: fmt.Sprintf("%s signed the contract for order %s.", role, order.GlobalOrderID),
		OrderID: order.GlobalOrderID,
	})
	return order, nil
}

type PartyVerification struct {
	Signed bool `json:"signed"`
	signing.Verification
	// Trusted requires the exact key version to verify.
	Trusted bool   `json:"trusted"`
	Error   string `json:"error,omitempty"`
}

type ContractVerification struct {
	OrderID  string            `json:"orderId"`
	State    ContractState     `json:"state"`
	Digest   string            `json:"digest"`
	Dealer   PartyVerification `json:"dealer"`
	Supplier PartyVerification `json:"supplier"`
	// Valid when both parties signed and both signatures are trusted.
	Valid bool `json:"valid"`
}

// VerifyContract re-derives the contract text from the current order state and
// checks both signatures against it.
func (s *Service) VerifyContract(ctx context.Context, uid, orderID string) (ContractVerification, error) {
	o, err := s.OrderForParty(ctx, uid, orderID)
	if err != nil {
		return ContractVerification{}, err
	}
	text := contract.Text(o)
	res := ContractVerification{OrderID: o.GlobalOrderID, State: StateOf(o), Digest: contract.Digest(text)}
	message := []byte(contract.Canonicalize(text))
	res.Dealer = s.verifyParty(ctx, o.DealerID, o.ContractSignatures.Dealer, message)
	res.Supplier = s.verifyParty(ctx, o.SupplierID, o.ContractSignatures.Supplier, message)
	res.Valid = res.Dealer.Trusted && res.Supplier.Trusted
	return res, nil
}

func (s *Service) verifyParty(ctx context.Context, uid string, p *models.SignaturePayload, message []byte) PartyVerification {
	if p == nil {
		return PartyVerification{}
	}
	v, err := s.signer.Verify(ctx, uid, p.KeyVersion, message, p.Signature)
	pv := PartyVerification{Signed: true, Verification: v, Trusted: v.Exact()}
	if err != nil {
		pv.Error = err.Error()
	}
	return pv
}

// Certificate renders the current contract with both signature blocks.
func (s *Service) Certificate(ctx context.Context, uid, orderID string) (contract.Certificate, error) {
	o, err := s.OrderForParty(ctx, uid, orderID)
	if err != nil {
		return contract.Certificate{}, err
	}
	return contract.NewCertificate(o), nil
}

func (s *Service) CertificatePDF(ctx context.Context, uid, orderID string) ([]byte, error) {
	c, err := s.Certificate(ctx, uid, orderID)
	if err != nil {
		return nil, err
	}
	return contract.RenderPDF(c)
}

// ArchiveCertificate renders the certificate PDF and stores it in the archive.
func (s *Service) ArchiveCertificate(ctx context.Context, uid, orderID string) (string, error) {
	if s.archiver == nil {
		return "", fmt.Errorf("%w: certificate archive is not configured", ErrExternalServiceUnavailable)
	}
	pdf, err := s.CertificatePDF(ctx, uid, orderID)
	if err != nil {
		return "", err
	}
	url, err := s.archiver.ArchiveCertificate(ctx, orderID, pdf)
	if err != nil {
		return "", fmt.Errorf("%w: archive: %v", ErrExternalServiceUnavailable, err)
	}
	return url, nil
}

type CertificateVerification struct {
	OrderID  string            `json:"orderId"`
	Digest   string            `json:"digest"`
	Dealer   PartyVerification `json:"dealer"`
	Supplier PartyVerification `json:"supplier"`
	// MatchesOrder is true when the text equals the contract derived from the
	// order as it is stored now.
	MatchesOrder bool `json:"matchesOrder"`
	Valid        bool `json:"valid"`
}

// VerifyCertificate checks an exported certificate. The signatures are verified
// against the text in the certificate itself.
func (s *Service) VerifyCertificate(ctx context.Context, text string) (CertificateVerification, error) {
	c, err := contract.ParseCertificate(text)
	if err != nil {
		return CertificateVerification{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if c.OrderID == "" {
		return CertificateVerification{}, fmt.Errorf("%w: certificate has no order id", ErrInvalidInput)
	}
	o, err := load(ctx, s, orderEntity, c.OrderID)
	if err != nil {
		return CertificateVerification{}, err
	}
	message := []byte(contract.Canonicalize(c.Text))
	res := CertificateVerification{
		OrderID:      c.OrderID,
		Digest:       contract.Digest(c.Text),
		Dealer:       s.verifyParty(ctx, o.DealerID, c.Dealer, message),
		Supplier:     s.verifyParty(ctx, o.SupplierID, c.Supplier, message),
		MatchesOrder: contract.Canonicalize(contract.Text(o)) == contract.Canonicalize(c.Text),
	}
	res.Valid = res.Dealer.Trusted && res.Supplier.Trusted
	return res, nil
}
