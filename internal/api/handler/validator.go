package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

// echoValidator lets Echo call c.Validate(req) on go-playground rules.
type echoValidator struct {
	v *validator.Validate
}

// NewValidator returns a validator whose messages use json field names.
// Besides the built-in tags it knows "eventkind" and "channel".
func NewValidator() *echoValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("eventkind", func(fl validator.FieldLevel) bool {
		return domain.EventKind(fl.Field().String()).Known()
	})
	_ = v.RegisterValidation("channel", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseChannel(fl.Field().String())
		return err == nil
	})
	return &echoValidator{v: v}
}

// Validate satisfies echo.Validator.
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func fieldError(fe validator.FieldError) string {
	field := fe.Field()
	unit := "characters"
	if k := fe.Kind(); k == reflect.Slice || k == reflect.Map {
		unit = "items"
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s %s", field, fe.Param(), unit)
	case "max":
		return fmt.Sprintf("%s must be at most %s %s", field, fe.Param(), unit)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "eventkind":
		return fmt.Sprintf("%s %q is not a known event kind", field, fe.Value())
	case "channel":
		return fmt.Sprintf("%s %q is not a valid channel", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
