package service

import (
	"errors"
	"reflect"
	"strings"

	"stock-alert-service/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name           string              `json:"name" validate:"required"`
	SKU            string              `json:"sku" validate:"required"`
	Description    string              `json:"description"`
	Category       string              `json:"category"`
	Price          decimal.NullDecimal `json:"price"`
	Quantity       *int                `json:"quantity" validate:"omitempty,gte=0"`
	MinStockLevel  *int                `json:"min_stock_level" validate:"omitempty,gte=0"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateCreate normalizes req in place and rejects bad fields
func (e *AlertEngine) validateCreate(req *CreateProductRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.TrimSpace(req.SKU)

	if err := e.validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return invalid(fe.Field(), describeTag(fe))
		}
		return invalid("request", err.Error())
	}
	return validatePrice(req.Price)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be >= " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}

func validatePrice(price decimal.NullDecimal) error {
	if price.Valid && price.Decimal.IsNegative() {
		return invalid("price", "must be >= 0")
	}
	return nil
}

// validatePatch trims string fields in place and rejects empty identity
// fields or negative numbers
func validatePatch(patch *models.ProductPatch) error {
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return invalid("name", "is required")
		}
		patch.Name = &name
	}
	if patch.SKU != nil {
		sku := strings.TrimSpace(*patch.SKU)
		if sku == "" {
			return invalid("sku", "is required")
		}
		patch.SKU = &sku
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return invalid("quantity", "must be >= 0")
	}
	if patch.MinStockLevel != nil && *patch.MinStockLevel < 0 {
		return invalid("min_stock_level", "must be >= 0")
	}
	if patch.Price != nil {
		return validatePrice(*patch.Price)
	}
	return nil
}
