package dto

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProductRequestAllowsZeroPrice(t *testing.T) {
	var req CreateProductRequest
	err := binding.JSON.BindBody([]byte(`{"name": "sample pack", "price": 0}`), &req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), req.Price)

	// Name stays mandatory
	var missingName CreateProductRequest
	err = binding.JSON.BindBody([]byte(`{"price": 100}`), &missingName)
	assert.Error(t, err)
}

func TestTransferRequestAllowsZeroAmount(t *testing.T) {
	var req TransferRequest
	err := binding.JSON.BindBody([]byte(`{"to": "0x1111111111111111111111111111111111111111", "amount": 0}`), &req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), req.Amount)
}

func TestPurchaseItemRequestAllowsZeroUnitPrice(t *testing.T) {
	var req PurchaseItemRequest
	err := binding.JSON.BindBody([]byte(`{
		"company": "0x1111111111111111111111111111111111111111",
		"product_id": 1,
		"quantity": 2,
		"unit_price": 0
	}`), &req)
	require.NoError(t, err)
	assert.Equal(t, int64(0), req.UnitPrice)

	// Quantity of zero is still rejected at the boundary
	err = binding.JSON.BindBody([]byte(`{
		"company": "0x1111111111111111111111111111111111111111",
		"product_id": 1,
		"quantity": 0,
		"unit_price": 10
	}`), &req)
	assert.Error(t, err)
}
