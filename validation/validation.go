package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/modelkit/errors"
)

// FieldError is one rejected field, listed under the "fields" detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// validate reports fields by the key users write in config.yml or JSON.
var validate = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "mapstructure", "yaml"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return toSnakeCase(f.Name)
	})
	return v
})

// Validate checks s against its `validate:"..."` tags.
func Validate(s any) error {
	err := validate().Struct(s)
	if err == nil {
		return nil
	}
	var invalid validator.ValidationErrors
	if !stderrors.As(err, &invalid) {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(invalid))
	messages := make([]string, len(invalid))
	for i, e := range invalid {
		fields[i] = FieldError{Field: fieldPath(e), Message: describe(e)}
		messages[i] = fields[i].Field + ": " + fields[i].Message
	}
	return errors.Validation(strings.Join(messages, "; ")).WithDetail("fields", fields)
}

// fieldPath renders "models[groq].api_key" style paths without the root type.
func fieldPath(e validator.FieldError) string {
	_, path, found := strings.Cut(e.Namespace(), ".")
	if !found || path == "" {
		return toSnakeCase(e.Field())
	}
	return path
}

func describe(e validator.FieldError) string {
	unit := ""
	if e.Kind() == reflect.String {
		unit = " characters"
	}
	switch e.Tag() {
	case "required", "required_without", "required_if":
		return "is required"
	case "min", "gte":
		return "must be at least " + e.Param() + unit
	case "max", "lte":
		return "must be at most " + e.Param() + unit
	case "gt":
		return "must be greater than " + e.Param()
	case "url", "http_url":
		return "must be a valid URL"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
