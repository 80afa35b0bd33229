package validation

import (
	"errors"
	"reflect"
	"slices"
	"strings"
	"unicode/utf8"

	"flashgen/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// rangeBounds reports the accepted range for fields validated with min/max so
// the error can name both ends.
var rangeBounds = map[string][2]int{
	"context": {domain.MinContentLength, domain.MaxContentLength},
	"count":   {domain.MinItemCount, domain.MaxItemCount},
}

// Validator provides request validation functionality
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance. Field names in errors use
// the json tag of the struct field.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("language", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.SupportedLanguages, fl.Field().String())
	})
	_ = v.RegisterValidation("level", func(fl validator.FieldLevel) bool {
		return slices.Contains(domain.Levels, domain.DifficultyLevel(fl.Field().String()))
	})

	return &Validator{validate: v}
}

// ValidateStruct checks s against its validate tags and returns one
// ValidationError per failing field, or nil.
func (v *Validator) ValidateStruct(s interface{}) domain.ValidationErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.ValidationErrors{domain.NewInvalidFormatError("body", nil)}
	}

	out := make(domain.ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, toValidationError(fe))
	}
	return out
}

func toValidationError(fe validator.FieldError) domain.ValidationError {
	field := fe.Field()
	switch fe.Tag() {
	case "required", "notblank":
		return domain.NewMissingFieldError(field)
	case "min", "max":
		bounds, ok := rangeBounds[field]
		if !ok {
			return domain.NewInvalidFormatError(field, fe.Value())
		}
		return domain.NewOutOfRangeError(field, measure(fe.Value()), bounds[0], bounds[1])
	default:
		return domain.NewInvalidFormatError(field, fe.Value())
	}
}

// measure reports strings by their character count so oversized content is
// never echoed back.
func measure(value interface{}) interface{} {
	if s, ok := value.(string); ok {
		return utf8.RuneCountInString(s)
	}
	return value
}
