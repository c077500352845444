package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductValidation(t *testing.T) {
	product, err := NewProduct("apples", 1000, 10, 3)
	require.NoError(t, err)
	assert.Equal(t, "apples", product.Name)
	assert.Equal(t, int64(1000), product.Price)
	assert.Equal(t, 10, product.Quantity)
	assert.Equal(t, int64(3), product.FarmerID)

	cases := []struct {
		name     string
		pname    string
		price    int64
		quantity int
		farmerID int64
	}{
		{"empty name", "", 1000, 10, 3},
		{"negative price", "apples", -1, 10, 3},
		{"negative quantity", "apples", 1000, -1, 3},
		{"missing farmer", "apples", 1000, 10, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProduct(tc.pname, tc.price, tc.quantity, tc.farmerID)
			assert.Error(t, err)
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"pending", "confirmed", "shipped", "cancelled"} {
		status, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), status)
	}

	for _, s := range []string{"", "PENDING", "delivered", "whatever the admin typed"} {
		_, err := ParseStatus(s)
		assert.Error(t, err, "status %q should be rejected", s)
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusConfirmed, StatusShipped},
		{StatusConfirmed, StatusCancelled},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr.from, tr.to), "%s -> %s should be allowed", tr.from, tr.to)
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusShipped},
		{StatusShipped, StatusCancelled},
		{StatusShipped, StatusPending},
		{StatusCancelled, StatusConfirmed},
		{StatusCancelled, StatusPending},
		{StatusConfirmed, StatusPending},
	}
	for _, tr := range denied {
		assert.False(t, CanTransition(tr.from, tr.to), "%s -> %s should be denied", tr.from, tr.to)
	}
}
