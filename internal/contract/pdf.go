package contract

import (
	"bytes"
	"fmt"
	"strings"

	"blocknex-supply-api-server/internal/models"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// QRPayload binds the order, both key versions and the text digest.
func (c Certificate) QRPayload() string {
	return strings.Join([]string{
		c.OrderID,
		versionOf(c.Dealer),
		versionOf(c.Supplier),
		Digest(c.Text),
	}, "|")
}

func versionOf(p *models.SignaturePayload) string {
	if p == nil || p.KeyVersion == "" {
		return none
	}
	return p.KeyVersion
}

// RenderPDF lays out the certificate on A4 with a verification QR code.
func RenderPDF(c Certificate) ([]byte, error) {
	qrPNG, err := qrcode.Encode(c.QRPayload(), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 11)
	body := strings.TrimPrefix(c.Text, title)
	pdf.MultiCell(140, 6, strings.TrimLeft(body, "\n"), "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Courier", "", 7)
	pdf.MultiCell(0, 4, signatureLine(RoleDealer, c.Dealer), "", "L", false)
	pdf.Ln(2)
	pdf.MultiCell(0, 4, signatureLine(RoleSupplier, c.Supplier), "", "L", false)

	imageOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", imageOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 160, 20, 40, 40, false, imageOpts, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}
