package handlers

import (
	"errors"
	"net/http"

	"blocknex-supply-api-server/internal/blockchain"

	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	// Ledger is nil when the Fabric audit trail is disabled.
	Ledger blockchain.Ledger
}

// GetReceipt trả về trạng thái của một giao dịch trên chuỗi.
func (h *LedgerHandler) GetReceipt(c *gin.Context) {
	if h.Ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Blockchain ledger is not enabled"})
		return
	}
	receipt, err := h.Ledger.Receipt(c.Request.Context(), blockchain.TxHandle{Hash: c.Param("tx")})
	if err != nil {
		if errors.Is(err, blockchain.ErrUnknownTransaction) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found", "details": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query receipt", "details": err.Error()})
		return
	}
	c.JSON(http.StatusOK, receipt)
}
