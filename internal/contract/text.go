// Package contract derives the contract document of an order and its
// signature certificate. Everything here is a pure function of order fields.
package contract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"blocknex-supply-api-server/internal/models"
)

const (
	title  = "Digital Supply Contract"
	footer = "By signing, both parties agree to the above terms."
)

// Canonicalize normalizes incidental whitespace before signing or verifying.
func Canonicalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

// Text renders the contract for o. The same order state always gives the same bytes.
func Text(o models.Order) string {
	dealerTaxID := o.DealerGSTIN
	if dealerTaxID == "" {
		dealerTaxID = o.DealerID
	}

	var b strings.Builder
	b.WriteString(title + "\n\n")
	fmt.Fprintf(&b, "Order ID: %s\n", o.GlobalOrderID)
	fmt.Fprintf(&b, "Item: %s\n", o.ItemName)
	fmt.Fprintf(&b, "Quantity: %s\n", formatNumber(o.Quantity))
	fmt.Fprintf(&b, "Supplier: %s\n", o.SupplierName)
	fmt.Fprintf(&b, "Supplier GSTIN: %s\n", o.SupplierGSTIN)
	fmt.Fprintf(&b, "Dealer GSTIN: %s\n", dealerTaxID)
	fmt.Fprintf(&b, "Price: Rs.%s\n", formatNumber(o.Price))
	fmt.Fprintf(&b, "Details: %s\n", o.Details)
	fmt.Fprintf(&b, "Date: %s\n\n", FormatDate(o.CreatedAt))
	b.WriteString(footer)
	return b.String()
}

// Message is the exact byte sequence that gets signed for o.
func Message(o models.Order) []byte {
	return []byte(Canonicalize(Text(o)))
}

// Digest is the hex SHA-256 of the canonical contract text.
func Digest(text string) string {
	sum := sha256.Sum256([]byte(Canonicalize(text)))
	return hex.EncodeToString(sum[:])
}

// FormatDate drops sub-second precision, which the document store does not keep exactly.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
