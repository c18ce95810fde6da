package entityform

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors maps a field name (its json name) to a message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// Checker adds rules that struct tags cannot express.
type Checker interface {
	Check() Errors
}

// Validator wraps a shared validator instance reporting json field names.
type Validator struct {
	v *validator.Validate
}

// NewValidator configures struct-tag validation.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{v: v}
}

// Validate runs struct tags, then Check when the entity implements Checker.
func (v *Validator) Validate(entity any) Errors {
	errs := Errors{}
	if err := v.v.Struct(entity); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			errs["general"] = err.Error()
			return errs
		}
		for _, fe := range fieldErrs {
			key := fieldKey(fe)
			if _, seen := errs[key]; !seen {
				errs[key] = message(fe)
			}
		}
	}
	if checker, ok := entity.(Checker); ok {
		for k, msg := range checker.Check() {
			if _, seen := errs[k]; !seen {
				errs[k] = msg
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// fieldKey drops the struct name from the namespace: Banner.imageUrl -> imageUrl.
func fieldKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map {
			return fmt.Sprintf("needs at least %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "url", "http_url":
		return "must be a valid URL"
	case "gtfield":
		return "must be after " + fe.Param()
	case "alphanumunicode", "excludesall":
		return "contains invalid characters"
	case "gt":
		return "must be greater than " + fe.Param()
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}
