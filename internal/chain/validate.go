package chain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MaxContentBytes bounds every free-text field of a step.
const MaxContentBytes = 64 * 1024

// stepValidate is the validator instance for step payloads and configuration.
var stepValidate = mustStepValidator()

func mustStepValidator() *validator.Validate {
	v, err := newStepValidator()
	if err != nil {
		panic(fmt.Sprintf("chain: %v", err))
	}
	return v
}

// newStepValidator builds a validator that reports JSON field names and
// knows the maxbytes tag.
func newStepValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("maxbytes", validateMaxBytes); err != nil {
		return nil, fmt.Errorf("registering maxbytes validator: %w", err)
	}
	return v, nil
}

// validateMaxBytes checks the byte length, not rune count, of a string field.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxContentBytes
}

// ValidateStruct runs tag validation over v and converts failures into a
// structural *Error naming every offending field.
func ValidateStruct(v any) error {
	err := stepValidate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewInternalError(err)
	}

	fields := make([]string, 0, len(verrs))
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldPath(fe)
		fields = append(fields, name)
		messages = append(messages, describe(name, fe))
	}
	return NewStructuralError(CodeInvalidField, strings.Join(messages, "; "), fields...)
}

// fieldPath drops the root struct name from the namespace: Step.category.type -> category.type.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func describe(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", name)
	case "gte", "min":
		return fmt.Sprintf("%s must be >= %s", name, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be <= %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%s exceeds %d bytes", name, MaxContentBytes)
	case "printascii":
		return fmt.Sprintf("%s must contain printable ASCII only", name)
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}
