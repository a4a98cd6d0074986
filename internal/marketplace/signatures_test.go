package marketplace

import (
	"context"
	"strings"
	"testing"

	"blocknex-supply-api-server/internal/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCertificateRoundTrip(t *testing.T) {
	e := newTestEnv(t)
	order := e.signedOrder(t)

	cert, err := e.svc.Certificate(e.ctx, supplier2, order.GlobalOrderID)
	require.NoError(t, err)
	assert.Contains(t, cert.String(), "Dealer Signature (v:"+order.ContractSignatures.Dealer.KeyVersion+")")

	res, err := e.svc.VerifyCertificate(e.ctx, cert.String())
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.True(t, res.MatchesOrder)

	// Incidental whitespace does not matter.
	padded := cert
	padded.Text = strings.ReplaceAll(cert.Text, "\n", "  \r\n")
	res, err = e.svc.VerifyCertificate(e.ctx, padded.String())
	require.NoError(t, err)
	assert.True(t, res.Valid)

	tampered := strings.Replace(cert.String(), "Price: Rs.480", "Price: Rs.48", 1)
	res, err = e.svc.VerifyCertificate(e.ctx, tampered)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.False(t, res.MatchesOrder)
	assert.False(t, res.Dealer.Valid)

	_, err = e.svc.VerifyCertificate(e.ctx, "not a certificate")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.svc.Certificate(e.ctx, supplier1, order.GlobalOrderID)
	assert.ErrorIs(t, err, ErrNotParty)
}

func TestCertificateOfUnsignedOrder(t *testing.T) {
	e := newTestEnv(t)
	req := e.openWithOffers(t)
	order, err := e.svc.AcceptOffer(e.ctx, dealer, req.GlobalProcurementID, 0)
	require.NoError(t, err)

	cert, err := e.svc.Certificate(e.ctx, dealer, order.GlobalOrderID)
	require.NoError(t, err)
	assert.Contains(t, cert.String(), "Dealer Signature (v:-): -")

	v, err := e.svc.VerifyContract(e.ctx, dealer, order.GlobalOrderID)
	require.NoError(t, err)
	assert.Equal(t, StateUnsigned, v.State)
	assert.False(t, v.Valid)
	assert.False(t, v.Dealer.Signed)
}

func TestSignedTextIsCanonicalContract(t *testing.T) {
	e := newTestEnv(t)
	order := e.signedOrder(t)
	stored, err := e.svc.GetOrder(e.ctx, order.GlobalOrderID)
	require.NoError(t, err)

	text := contract.Text(stored)
	assert.Equal(t, contract.Canonicalize(text), contract.Canonicalize(contract.Canonicalize(text)))
	assert.Contains(t, text, "Supplier GSTIN: 24BBBBB1111B1Z2")
	assert.Contains(t, text, "Dealer GSTIN: 29ABCDE1234F1Z5")
}

type fakeArchiver struct {
	orderID string
	size    int
}

func (a *fakeArchiver) ArchiveCertificate(_ context.Context, orderID string, pdf []byte) (string, error) {
	a.orderID = orderID
	a.size = len(pdf)
	return "https://archive.example/" + orderID + ".pdf", nil
}

func TestArchiveCertificate(t *testing.T) {
	e := newTestEnv(t)
	order := e.signedOrder(t)

	_, err := e.svc.ArchiveCertificate(e.ctx, dealer, order.GlobalOrderID)
	assert.ErrorIs(t, err, ErrExternalServiceUnavailable)

	archiver := &fakeArchiver{}
	e.svc.archiver = archiver
	url, err := e.svc.ArchiveCertificate(e.ctx, dealer, order.GlobalOrderID)
	require.NoError(t, err)
	assert.Equal(t, "https://archive.example/"+order.GlobalOrderID+".pdf", url)
	assert.Equal(t, order.GlobalOrderID, archiver.orderID)
	assert.Greater(t, archiver.size, 0)
}
