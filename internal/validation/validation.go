// Package validation parses and checks incoming payloads before they reach
// persistence. Every entity has a create payload and a patch type; a patch is
// applied to the stored row and the merged row is validated as one unit.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is matched by every validation failure.
var ErrInvalidInput = errors.New("invalid input")

// Error describes a failed parse or validation. Fields lists the offending
// JSON fields and the rule each one broke.
type Error struct {
	Fields []string
	Err    error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return "invalid input: " + strings.Join(e.Fields, ", ")
	}
	if e.Err != nil {
		return "invalid input: " + e.Err.Error()
	}
	return ErrInvalidInput.Error()
}

// Is makes errors.Is(err, ErrInvalidInput) hold for every *Error.
func (e *Error) Is(target error) bool {
	return target == ErrInvalidInput
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Invalid builds an *Error for a rule checked outside struct tags.
func Invalid(field, rule string) error {
	return &Error{Fields: []string{field + ":" + rule}}
}

// Normalizer is implemented by payloads that clean themselves up before
// validation (trimming, lower-casing emails).
type Normalizer interface {
	Normalize()
}

var validate = newValidator()

func newValidator() *validator.Validate {
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
	return v
}

// Parse decodes a JSON body into dst, rejecting unknown fields, then
// normalizes and validates it.
func Parse(r io.Reader, dst any) error {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &Error{Err: fmt.Errorf("decode body: %w", err)}
	}
	return Check(dst)
}

// Check normalizes v when it implements Normalizer and validates its tags.
func Check(v any) error {
	if n, ok := v.(Normalizer); ok {
		n.Normalize()
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+":"+fe.Tag())
			}
			return &Error{Fields: fields, Err: err}
		}
		return &Error{Err: err}
	}
	return nil
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}

// FlexTime accepts RFC 3339 timestamps, plain dates and Unix seconds.
type FlexTime struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *FlexTime) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" || raw == `""` {
		t.Time = time.Time{}
		return nil
	}

	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}

	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTime coerces a date-like string into a UTC time.
func ParseTime(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts.UTC(), nil
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts.UTC(), nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}
