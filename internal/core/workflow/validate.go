package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// NewValidator returns a validator with the tags drafts rely on registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", validators.NotBlank)
	return v
}

// ValidateDraft checks the content rules of a draft.
func ValidateDraft(v *validator.Validate, d domain.Draft) error {
	if err := v.Struct(d); err != nil {
		if msg, ok := Describe(err); ok {
			return &domain.Error{Kind: domain.KindValidation, Op: "validate draft", Msg: msg}
		}
		return err
	}
	return nil
}

// Describe renders validator field errors as one readable line. It reports
// false when err does not come from field validation.
func Describe(err error) (string, bool) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return "", false
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; "), true
}

func describeField(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required", "notblank":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	}
	return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
}
