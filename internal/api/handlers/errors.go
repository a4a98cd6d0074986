package handlers

import (
	"errors"
	"net/http"

	"blocknex-supply-api-server/internal/auth"
	"blocknex-supply-api-server/internal/contract"
	"blocknex-supply-api-server/internal/inventory"
	"blocknex-supply-api-server/internal/marketplace"
	"blocknex-supply-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, marketplace.ErrPartialFanout):
		return http.StatusInternalServerError
	case errors.Is(err, marketplace.ErrNotFound),
		errors.Is(err, inventory.ErrItemNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, marketplace.ErrInvalidInput),
		errors.Is(err, inventory.ErrInvalidQuantity),
		errors.Is(err, contract.ErrMalformedCertificate),
		errors.Is(err, auth.ErrInvalidAccount):
		return http.StatusBadRequest
	case errors.Is(err, marketplace.ErrNotParty),
		errors.Is(err, marketplace.ErrWrongSigner),
		errors.Is(err, marketplace.ErrOwnRequest),
		errors.Is(err, auth.ErrAccountDisabled):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, marketplace.ErrDuplicateActiveRequest),
		errors.Is(err, marketplace.ErrRequestNotOpen),
		errors.Is(err, marketplace.ErrAlreadyAccepted),
		errors.Is(err, marketplace.ErrAlreadySigned),
		errors.Is(err, marketplace.ErrContractNotFullySigned),
		errors.Is(err, marketplace.ErrInvalidTransition),
		errors.Is(err, marketplace.ErrConflict),
		errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, marketplace.ErrExternalServiceUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// respondError writes the standard error body. Partial fan-out failures also
// report which copies were written so an operator can repair them.
func respondError(c *gin.Context, message string, err error) {
	status := statusOf(err)
	body := gin.H{"error": message, "details": err.Error()}

	var partial *marketplace.PartialFanoutError
	if errors.As(err, &partial) {
		body["applied"] = partial.Applied
		body["failed"] = partial.Failed
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	}
	c.JSON(status, body)
}
