package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"farmmarket/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestContext(t *testing.T, authHeader string) *gin.Context {
	t.Helper()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	c.Request = req
	return c
}

func TestCheckoutErrorResponse(t *testing.T) {
	status, body := checkoutErrorResponse(service.ErrEmptyCart)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Cart is empty", body["error"])

	status, body = checkoutErrorResponse(&service.InsufficientStockError{ProductID: 42})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, int64(42), body["product_id"])

	status, _ = checkoutErrorResponse(&service.StorageError{Err: fmt.Errorf("connection refused")})
	assert.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = checkoutErrorResponse(fmt.Errorf("something else"))
	assert.Equal(t, http.StatusInternalServerError, status)
}

func TestBearerTokenParsing(t *testing.T) {
	cases := []struct {
		header string
		want   string
	}{
		{"", ""},
		{"Bearer abc123", "abc123"},
		{"bearer abc123", "abc123"},
		{"Basic abc123", ""},
		{"Bearer", ""},
	}

	for _, tc := range cases {
		c := newTestContext(t, tc.header)
		assert.Equal(t, tc.want, bearerToken(c), "header %q", tc.header)
	}
}
