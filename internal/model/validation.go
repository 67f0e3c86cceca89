package model

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validator checks item payloads submitted through the save path.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a Validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// ValidateFields runs the presence checks on an item payload. The image is
// not checked here: edits may reuse the stored image.
func (v *Validator) ValidateFields(fields *ItemFields) error {
	if fields == nil {
		return errors.New("item fields cannot be nil")
	}

	if math.IsNaN(fields.Price) || math.IsInf(fields.Price, 0) {
		return ErrNonFinitePrice
	}

	return v.validate.Struct(fields)
}

// FormatValidationError turns validation failures into a field -> message
// map suitable for API responses.
func FormatValidationError(err error) map[string]string {
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		switch {
		case errors.Is(err, ErrNonFinitePrice):
			errs["price"] = "Must be a finite number"
		case errors.Is(err, ErrMissingImage):
			errs["image"] = "This field is required"
		default:
			errs["error"] = "Invalid request format"
		}
		return errs
	}

	for _, e := range validationErrors {
		field := fieldName(e)
		switch e.Tag() {
		case "required":
			errs[field] = "This field is required"
		case "gt":
			errs[field] = fmt.Sprintf("Must be greater than %s", e.Param())
		case "min":
			errs[field] = fmt.Sprintf("Select at least %s", e.Param())
		default:
			errs[field] = "Invalid value"
		}
	}

	return errs
}

// fieldName strips any slice index so that "tags[0]" reports as "tags".
func fieldName(e validator.FieldError) string {
	name := e.Field()
	if idx := strings.IndexByte(name, '['); idx >= 0 {
		name = name[:idx]
	}
	return name
}
