package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"blocknex-supply-api-server/internal/models"
)

var ErrMalformedCertificate = errors.New("contract: malformed certificate")

const (
	RoleDealer   = "Dealer"
	RoleSupplier = "Supplier"
	none         = "-"
)

// Certificate is the exported contract: text plus both signature blocks.
type Certificate struct {
	OrderID  string                   `json:"orderId"`
	Text     string                   `json:"text"`
	Dealer   *models.SignaturePayload `json:"dealer,omitempty"`
	Supplier *models.SignaturePayload `json:"supplier,omitempty"`
}

func NewCertificate(o models.Order) Certificate {
	return Certificate{
		OrderID:  o.GlobalOrderID,
		Text:     Text(o),
		Dealer:   o.ContractSignatures.Dealer,
		Supplier: o.ContractSignatures.Supplier,
	}
}

func (c Certificate) String() string {
	var b strings.Builder
	b.WriteString(c.Text)
	b.WriteString("\n\n")
	b.WriteString(signatureLine(RoleDealer, c.Dealer))
	b.WriteString("\n")
	b.WriteString(signatureLine(RoleSupplier, c.Supplier))
	b.WriteString("\n")
	return b.String()
}

func signatureLine(role string, p *models.SignaturePayload) string {
	version, sig := none, none
	if p != nil {
		if p.KeyVersion != "" {
			version = p.KeyVersion
		}
		if p.Signature != "" {
			sig = p.Signature
		}
	}
	return fmt.Sprintf("%s Signature (v:%s): %s", role, version, sig)
}

var (
	signatureLineRe = regexp.MustCompile(`^(Dealer|Supplier) Signature \(v:([^)]*)\): (\S+)$`)
	orderIDLineRe   = regexp.MustCompile(`(?m)^[ \t]*Order ID:[ \t]*(\S+)[ \t]*\r?$`)
)

// ParseCertificate reads back the output of Certificate.String.
func ParseCertificate(s string) (Certificate, error) {
	s = strings.TrimRight(strings.ReplaceAll(s, "\r\n", "\n"), "\n")

	idx := strings.LastIndex(s, "\n\n"+RoleDealer+" Signature (v:")
	if idx < 0 {
		return Certificate{}, fmt.Errorf("%w: no signature block", ErrMalformedCertificate)
	}
	c := Certificate{Text: s[:idx]}

	lines := strings.Split(s[idx+2:], "\n")
	if len(lines) != 2 {
		return Certificate{}, fmt.Errorf("%w: expected two signature lines", ErrMalformedCertificate)
	}
	for _, l := range lines {
		m := signatureLineRe.FindStringSubmatch(strings.TrimSpace(l))
		if m == nil {
			return Certificate{}, fmt.Errorf("%w: bad signature line %q", ErrMalformedCertificate, l)
		}
		p := parsePayload(m[2], m[3])
		if m[1] == RoleDealer {
			c.Dealer = p
		} else {
			c.Supplier = p
		}
	}

	if m := orderIDLineRe.FindStringSubmatch(c.Text); m != nil {
		c.OrderID = m[1]
	}
	return c, nil
}

func parsePayload(version, sig string) *models.SignaturePayload {
	if sig == none {
		return nil
	}
	if version == none {
		version = ""
	}
	return &models.SignaturePayload{KeyVersion: version, Signature: sig}
}
