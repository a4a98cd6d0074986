package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"blocknex-supply-api-server/internal/api/middleware"
	"blocknex-supply-api-server/internal/marketplace"

	"github.com/gin-gonic/gin"
)

// Giới hạn kích thước file chứng nhận tải lên
const maxCertificateSize = 1 << 20

type ContractHandler struct {
	Market *marketplace.Service
}

// GetState trả về trạng thái ký của hợp đồng.
func (h *ContractHandler) GetState(c *gin.Context) {
	order, err := h.Market.OrderForParty(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to load order", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orderId":    order.GlobalOrderID,
		"state":      marketplace.StateOf(order),
		"signatures": order.ContractSignatures,
	})
}

// Sign ký hợp đồng bằng một khóa dùng một lần.
func (h *ContractHandler) Sign(c *gin.Context) {
	order, err := h.Market.SignContract(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		respondError(c, "Failed to sign contract", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"state": marketplace.StateOf(order),
		"order": order,
	})
}

func (h *ContractHandler) Verify(c *gin.Context) {
	res, err := h.Market.VerifyContract(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to verify contract", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ContractHandler) CertificateText(c *gin.Context) {
	cert, err := h.Market.Certificate(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to export certificate", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", cert.OrderID+"-certificate.txt"))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(cert.String()))
}

func (h *ContractHandler) CertificatePDF(c *gin.Context) {
	pdf, err := h.Market.CertificatePDF(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to render certificate", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.Param("id")+"-certificate.pdf"))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Archive lưu file PDF chứng nhận lên S3 và trả về URL.
func (h *ContractHandler) Archive(c *gin.Context) {
	url, err := h.Market.ArchiveCertificate(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		respondError(c, "Failed to archive certificate", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

// VerifyCertificate accepts the certificate as a multipart "file" field or as
// the raw request body.
func (h *ContractHandler) VerifyCertificate(c *gin.Context) {
	text, err := readCertificate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Certificate is required", "details": err.Error()})
		return
	}
	res, err := h.Market.VerifyCertificate(c.Request.Context(), text)
	if err != nil {
		respondError(c, "Failed to verify certificate", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func readCertificate(c *gin.Context) (string, error) {
	var r io.Reader = c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fileHeader, err := c.FormFile("file")
		if err != nil {
			return "", err
		}
		f, err := fileHeader.Open()
		if err != nil {
			return "", err
		}
		defer f.Close()
		r = f
	}
	body, err := io.ReadAll(io.LimitReader(r, maxCertificateSize))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", fmt.Errorf("empty certificate")
	}
	return string(body), nil
}
