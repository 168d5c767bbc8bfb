package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

func TestValidateSaleFieldsMissingSalePrice(t *testing.T) {
	err := validateSaleFields(100, true, 0, false)

	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestValidateSaleFieldsSalePriceNotBelowPrice(t *testing.T) {
	for _, salePrice := range []float64{100, 120} {
		assert.Error(t, validateSaleFields(100, true, salePrice, true), "salePrice=%v", salePrice)
	}
	assert.NoError(t, validateSaleFields(100, true, 80, true))
	assert.NoError(t, validateSaleFields(100, false, 0, false))
}

func TestResolveSaleChangeDisablingClearsSalePrice(t *testing.T) {
	existing := &models.Product{Price: 100, SaleEnabled: true, SalePrice: 80}
	off := false

	got, err := resolveSaleChange(existing, saleChange{SaleEnabled: &off})
	require.NoError(t, err)

	assert.False(t, got.SaleEnabled)
	assert.Zero(t, got.SalePrice)
	assert.True(t, got.SetSaleEnabled)
	assert.True(t, got.SetSalePrice)
}

func TestResolveSaleChangeRejectsPriceDropBelowSale(t *testing.T) {
	existing := &models.Product{Price: 100, SaleEnabled: true, SalePrice: 80}
	price := 70.0

	_, err := resolveSaleChange(existing, saleChange{Price: &price})

	assert.ErrorContains(t, err, "salePrice must be less than price")
}

func TestResolveSaleChangeEnableWithoutPrice(t *testing.T) {
	existing := &models.Product{Price: 100}
	on := true

	_, err := resolveSaleChange(existing, saleChange{SaleEnabled: &on})

	assert.ErrorContains(t, err, "salePrice is required")
}

func TestDecodeProductDerivesFlags(t *testing.T) {
	raw, err := bson.Marshal(bson.M{
		"name":        "Linen Shirt",
		"price":       120.0,
		"saleEnabled": true,
		"salePrice":   99.0,
		"stock":       10,
		"category":    "Shirts, Summer",
		"sizes":       bson.A{"S", "M"},
	})
	require.NoError(t, err)

	product, err := decodeProduct(raw)
	require.NoError(t, err)

	assert.True(t, product.IsOnSale)
	assert.True(t, product.InStock)
	assert.Equal(t, models.StringList{"Shirts", "Summer"}, product.Category)
	assert.Equal(t, 99.0, effectivePrice(&product))

	body, err := json.Marshal(product)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"salePrice":99`)
	assert.Contains(t, string(body), `"isOnSale":true`)
}

func TestEffectivePriceIgnoresDisabledSale(t *testing.T) {
	assert.Equal(t, 100.0, effectivePrice(&models.Product{Price: 100, SalePrice: 75}))
	assert.Equal(t, 75.0, effectivePrice(&models.Product{Price: 100, SaleEnabled: true, SalePrice: 75}))
}
