package contract

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"blocknex-supply-api-server/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder() models.Order {
	return models.Order{
		GlobalOrderID: "ORD-20250102030405-AB12",
		DealerID:      "dealer-1",
		SupplierID:    "supplier-2",
		SupplierName:  "Acme Metals",
		SupplierGSTIN: "29ABCDE1234F1Z5",
		ItemName:      "Steel Rod",
		Quantity:      100,
		Price:         480,
		Details:       "Grade A, bundled",
		CreatedAt:     time.Date(2025, 1, 2, 3, 4, 5, 678000000, time.UTC),
	}
}

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "a\r\nb\r\n", "a\nb"},
		{"trailing spaces and tabs", "a  \t\nb\t", "a\nb"},
		{"nbsp", "a\u00a0b\u00a0", "a b"},
		{"trailing newlines", "a\n\n\n", "a"},
		{"blank trailing lines with spaces", "a\n  \n\t\n", "a"},
		{"inner blank lines kept", "a\n\nb", "a\n\nb"},
		{"lone cr", "a\rb", "a\nb"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Canonicalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Canonicalize(got), "canonicalize must be idempotent")
		})
	}
}

func TestTextIsDeterministic(t *testing.T) {
	o := sampleOrder()
	text := Text(o)

	assert.Equal(t, text, Text(o))
	assert.True(t, strings.HasPrefix(text, "Digital Supply Contract\n\nOrder ID: ORD-20250102030405-AB12\n"))
	assert.Contains(t, text, "Quantity: 100\n")
	assert.Contains(t, text, "Price: Rs.480\n")
	assert.Contains(t, text, "Supplier GSTIN: 29ABCDE1234F1Z5\n")
	assert.Contains(t, text, "Dealer GSTIN: dealer-1\n")
	assert.Contains(t, text, "Date: 2025-01-02 03:04:05 UTC\n\n")
	assert.True(t, strings.HasSuffix(text, "By signing, both parties agree to the above terms."))

	// Sub-second drift in the stored timestamp does not change the text.
	o.CreatedAt = o.CreatedAt.Truncate(time.Millisecond)
	assert.Equal(t, text, Text(o))
}

func TestMessageIgnoresWhitespaceDrift(t *testing.T) {
	o := sampleOrder()
	drifted := o
	drifted.Details = "Grade A, bundled  "
	assert.Equal(t, Message(o), Message(drifted))
}

func TestCertificateRoundTrip(t *testing.T) {
	o := sampleOrder()
	o.ContractSignatures.Dealer = &models.SignaturePayload{KeyVersion: "1700000000000", Signature: "c2lnbmF0dXJl"}

	cert := NewCertificate(o)
	out := cert.String()
	assert.Contains(t, out, "\n\nDealer Signature (v:1700000000000): c2lnbmF0dXJl\n")
	assert.Contains(t, out, "Supplier Signature (v:-): -\n")

	parsed, err := ParseCertificate(out)
	require.NoError(t, err)
	assert.Equal(t, cert.Text, parsed.Text)
	assert.Equal(t, o.GlobalOrderID, parsed.OrderID)
	assert.Equal(t, o.ContractSignatures.Dealer, parsed.Dealer)
	assert.Nil(t, parsed.Supplier)

	parsed, err = ParseCertificate(strings.ReplaceAll(out, "\n", "\r\n"))
	require.NoError(t, err)
	assert.Equal(t, Canonicalize(cert.Text), Canonicalize(parsed.Text))

	padded := cert
	padded.Text = strings.ReplaceAll(cert.Text, "\n", " \t\r\n")
	parsed, err = ParseCertificate(padded.String())
	require.NoError(t, err)
	assert.Equal(t, o.GlobalOrderID, parsed.OrderID)
}

func TestParseCertificateRejectsGarbage(t *testing.T) {
	_, err := ParseCertificate("hello world")
	assert.ErrorIs(t, err, ErrMalformedCertificate)

	_, err = ParseCertificate("text\n\nDealer Signature (v:1): abc\nSupplier Signature: broken")
	assert.ErrorIs(t, err, ErrMalformedCertificate)
}

func TestRenderPDF(t *testing.T) {
	o := sampleOrder()
	o.ContractSignatures.Dealer = &models.SignaturePayload{KeyVersion: "1", Signature: strings.Repeat("A", 344)}

	data, err := RenderPDF(NewCertificate(o))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestQRPayload(t *testing.T) {
	cert := NewCertificate(sampleOrder())
	parts := strings.Split(cert.QRPayload(), "|")
	require.Len(t, parts, 4)
	assert.Equal(t, "ORD-20250102030405-AB12", parts[0])
	assert.Equal(t, "-", parts[1])
	assert.Equal(t, Digest(cert.Text), parts[3])
}
