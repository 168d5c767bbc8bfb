package handlers

import (
	"storefront/internal/apperr"
	"storefront/internal/models"
)

// saleChange carries the optional pricing fields of a product edit.
type saleChange struct {
	Price       *float64
	SaleEnabled *bool
	SalePrice   *float64
}

type salePricing struct {
	Price          float64
	SaleEnabled    bool
	SalePrice      float64
	SetSaleEnabled bool
	SetSalePrice   bool
}

func isProductOnSale(price float64, saleEnabled bool, salePrice float64) bool {
	return saleEnabled && salePrice > 0 && salePrice < price
}

// effectivePrice is what a customer pays for one unit right now.
func effectivePrice(p *models.Product) float64 {
	if isProductOnSale(p.Price, p.SaleEnabled, p.SalePrice) {
		return p.SalePrice
	}
	return p.Price
}

// decorateProduct fills the derived, non-persisted fields.
func decorateProduct(p *models.Product) {
	p.InStock = p.Stock > 0
	p.IsOnSale = isProductOnSale(p.Price, p.SaleEnabled, p.SalePrice)
}

func validateSaleFields(price float64, saleEnabled bool, salePrice float64, salePriceSet bool) error {
	if !saleEnabled {
		return nil
	}
	switch {
	case !salePriceSet:
		return apperr.Validation("salePrice is required when saleEnabled is true")
	case salePrice <= 0:
		return apperr.Validation("salePrice must be greater than 0")
	case salePrice >= price:
		return apperr.Validation("salePrice must be less than price")
	}
	return nil
}

// resolveSaleChange merges a partial edit into the stored pricing. Turning
// the sale off clears the sale price.
func resolveSaleChange(existing *models.Product, change saleChange) (salePricing, error) {
	out := salePricing{
		Price:       existing.Price,
		SaleEnabled: existing.SaleEnabled,
		SalePrice:   existing.SalePrice,
	}
	if change.Price != nil {
		out.Price = *change.Price
	}

	salePriceKnown := existing.SalePrice > 0
	if change.SaleEnabled != nil {
		out.SaleEnabled = *change.SaleEnabled
		out.SetSaleEnabled = true
		if !out.SaleEnabled {
			out.SalePrice = 0
			out.SetSalePrice = true
			salePriceKnown = false
		}
	}
	if change.SalePrice != nil {
		out.SalePrice = *change.SalePrice
		out.SetSalePrice = true
		salePriceKnown = true
	}

	if err := validateSaleFields(out.Price, out.SaleEnabled, out.SalePrice, salePriceKnown); err != nil {
		return salePricing{}, err
	}
	return out, nil
}
