package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"blocknex-supply-api-server/internal/auth"
	"blocknex-supply-api-server/internal/marketplace"
	"blocknex-supply-api-server/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{marketplace.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", store.ErrNotFound), http.StatusNotFound},
		{marketplace.ErrInvalidInput, http.StatusBadRequest},
		{marketplace.ErrNotParty, http.StatusForbidden},
		{marketplace.ErrWrongSigner, http.StatusForbidden},
		{marketplace.ErrDuplicateActiveRequest, http.StatusConflict},
		{fmt.Errorf("%w: %w", marketplace.ErrInvalidTransition, marketplace.ErrAlreadyFulfilled), http.StatusConflict},
		{marketplace.ErrConflict, http.StatusConflict},
		{marketplace.ErrExternalServiceUnavailable, http.StatusServiceUnavailable},
		{auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}

func TestRespondErrorReportsPartialFanout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	err := &marketplace.PartialFanoutError{
		Entity:  "order",
		ID:      "ORD-1",
		Applied: []store.Ref{{Path: "globalOrders", ID: "ORD-1"}},
		Failed:  store.Ref{Path: "users/s1/orderFulfilment", ID: "ORD-1"},
		Err:     errors.New("write failed"),
	}
	respondError(c, "Failed to accept offer", err)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Failed to accept offer", body["error"])
	assert.Len(t, body["applied"], 1)
	assert.Equal(t, "users/s1/orderFulfilment", body["failed"].(map[string]interface{})["path"])
}
