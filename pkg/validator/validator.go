package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

var phonePattern = regexp.MustCompile(`^\d{3}-\d{3,4}-\d{4}$`)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report the name a client actually sent: json tag, then form tag,
	// then the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation("notblank", validators.NotBlank)
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	// maxbytes bounds the UTF-8 length, unlike max which counts runes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			panic(fmt.Sprintf("maxbytes: bad parameter %q", fl.Param()))
		}
		return len(fl.Field().String()) <= limit
	})
	_ = v.RegisterValidation("letters", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return false
		}
		for _, r := range s {
			if !unicode.IsLetter(r) {
				return false
			}
		}
		return true
	})
	return v
}

// Validate runs the struct's `validate` tags. Tag failures come back as a
// *ValidationError keyed by the json or form name of each field.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{Errors: validationErrors}
		}
		return err
	}
	return nil
}

// ValidationError wraps validator.ValidationErrors with a user-friendly message.
// Extra carries field failures produced outside of struct tags, such as
// cross-field checks done by a service.
type ValidationError struct {
	Errors validator.ValidationErrors
	Extra  map[string]string
}

// NewFieldError builds a ValidationError for a single field.
func NewFieldError(field, msg string) *ValidationError {
	return &ValidationError{Extra: map[string]string{field: msg}}
}

func (e *ValidationError) Error() string {
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", err.Field(), msgForTag(err)))
	}
	for field, msg := range e.Extra {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", field, msg))
	}
	return strings.Join(msgs, "; ")
}

// Fields returns a map of field names to error messages.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors)+len(e.Extra))
	for _, err := range e.Errors {
		fields[err.Field()] = msgForTag(err)
	}
	for field, msg := range e.Extra {
		fields[field] = msg
	}
	return fields
}

// Message returns the first failure as a single sentence, suitable for the
// top-level error string of a form action reply.
func (e *ValidationError) Message() string {
	if len(e.Errors) > 0 {
		fe := e.Errors[0]
		return fmt.Sprintf("%s %s", fe.Field(), msgForTag(fe))
	}
	for field, msg := range e.Extra {
		return fmt.Sprintf("%s %s", field, msg)
	}
	return "invalid input"
}

func msgForTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "eqfield":
		return fmt.Sprintf("must match %s", lowerFirst(fe.Param()))
	case "maxbytes":
		return fmt.Sprintf("must be at most %s bytes", fe.Param())
	case "phone":
		return "must look like 010-1234-5678"
	case "letters":
		return "must contain letters only"
	default:
		return fmt.Sprintf("failed on '%s' validation", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
