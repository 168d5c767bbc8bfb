package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront/internal/apperr"
	"storefront/internal/models"
)

const maxMultipartMemory = 32 << 20

// productForm is a parsed multipart product request. Each Set flag records
// whether the field was present so updates stay partial.
type productForm struct {
	Name           string
	NameSet        bool
	Description    string
	DescriptionSet bool
	Brand          string
	BrandSet       bool
	Price          float64
	PriceSet       bool
	SaleEnabled    bool
	SaleEnabledSet bool
	SalePrice      float64
	SalePriceSet   bool
	Stock          int
	StockSet       bool
	IsActive       bool
	IsActiveSet    bool
	IsFeatured     bool
	IsFeaturedSet  bool
	CategoryIDs    []string
	CategoryIDSet  bool
	Sizes          models.StringList
	SizesSet       bool
	Colors         models.StringList
	ColorsSet      bool
	Image          *multipart.FileHeader
}

func (f productForm) saleChange() saleChange {
	var change saleChange
	if f.PriceSet {
		change.Price = &f.Price
	}
	if f.SaleEnabledSet {
		change.SaleEnabled = &f.SaleEnabled
	}
	if f.SalePriceSet {
		change.SalePrice = &f.SalePrice
	}
	return change
}

func parseProductForm(c *gin.Context) (productForm, error) {
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return productForm{}, apperr.Validation("invalid multipart body")
	}

	var form productForm

	if value, ok := lastPostForm(c, "name"); ok {
		form.Name, form.NameSet = strings.TrimSpace(value), true
	}
	if value, ok := lastPostForm(c, "description"); ok {
		form.Description, form.DescriptionSet = strings.TrimSpace(value), true
	}
	if value, ok := lastPostForm(c, "brand"); ok {
		form.Brand, form.BrandSet = strings.TrimSpace(value), true
	}

	if value, ok := lastPostForm(c, "price"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return productForm{}, apperr.Validation("price must be a number")
		}
		form.Price, form.PriceSet = parsed, true
	}
	if value, ok := lastPostForm(c, "salePrice"); ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return productForm{}, apperr.Validation("salePrice must be a number")
		}
		form.SalePrice, form.SalePriceSet = parsed, true
	}
	if value, ok := lastPostForm(c, "stock"); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return productForm{}, apperr.Validation("stock must be an integer")
		}
		form.Stock, form.StockSet = parsed, true
	}

	for field, dst := range map[string]struct {
		value *bool
		set   *bool
	}{
		"saleEnabled": {&form.SaleEnabled, &form.SaleEnabledSet},
		"isActive":    {&form.IsActive, &form.IsActiveSet},
		"isFeatured":  {&form.IsFeatured, &form.IsFeaturedSet},
	} {
		value, ok := lastPostForm(c, field)
		if !ok {
			continue
		}
		parsed, err := parseBoolValue(value)
		if err != nil {
			return productForm{}, apperr.Validation(field + " must be boolean")
		}
		*dst.value, *dst.set = parsed, true
	}

	if ids := c.PostFormArray("category_id"); len(ids) > 0 {
		form.CategoryIDs, form.CategoryIDSet = ids, true
	}
	if values, ok := c.GetPostFormArray("sizes"); ok {
		form.Sizes, form.SizesSet = splitListValues(values), true
	}
	if values, ok := c.GetPostFormArray("colors"); ok {
		form.Colors, form.ColorsSet = splitListValues(values), true
	}

	file, err := c.FormFile("image")
	switch {
	case err == nil:
		form.Image = file
	case errors.Is(err, http.ErrMissingFile):
	default:
		return productForm{}, apperr.Validation("invalid image upload")
	}

	return form, nil
}

// lastPostForm returns the last value of a repeated form field. Browsers send
// a hidden "false" before a checked checkbox's "true".
func lastPostForm(c *gin.Context, key string) (string, bool) {
	values, ok := c.GetPostFormArray(key)
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[len(values)-1], true
}

// splitListValues accepts repeated fields, comma separated text, or both.
func splitListValues(values []string) models.StringList {
	var parts []string
	for _, v := range values {
		parts = append(parts, strings.Split(v, ",")...)
	}
	return models.NormalizeList(parts)
}

func parseBoolValue(value string) (bool, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "on" {
		return true, nil
	}
	return strconv.ParseBool(value)
}
