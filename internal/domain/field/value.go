package field

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNotNumeric   = errors.New("must be a number")
	ErrInvalidEmail = errors.New("must be a valid email address")
	ErrInvalidURL   = errors.New("must be a valid URL")
	ErrInvalidDate  = errors.New("must be a date (YYYY-MM-DD)")
)

var validate = validator.New()

// IsBlank reports whether v counts as "no value" for a required field.
func IsBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	default:
		return false
	}
}

// Rule maps a value error to the short rule name used in API error details.
func Rule(err error) string {
	switch {
	case errors.Is(err, ErrNotNumeric):
		return "numeric"
	case errors.Is(err, ErrInvalidEmail):
		return "email"
	case errors.Is(err, ErrInvalidURL):
		return "url"
	case errors.Is(err, ErrInvalidDate):
		return "date"
	default:
		return "type"
	}
}

// CheckValue validates a non-blank value against the field type and returns the
// value in its stored form: float64 for numbers, trimmed strings for the rest.
func (s Schema) CheckValue(v any) (any, error) {
	switch s.Type {
	case TypeNumber:
		return toNumber(v)
	case TypeEmail:
		str := toString(v)
		if err := validate.Var(str, "email"); err != nil {
			return nil, ErrInvalidEmail
		}
		return str, nil
	case TypeURL:
		str := toString(v)
		if err := validate.Var(str, "url"); err != nil {
			return nil, ErrInvalidURL
		}
		return str, nil
	case TypeDate:
		str := toString(v)
		if _, err := time.Parse(time.DateOnly, str); err != nil {
			return nil, ErrInvalidDate
		}
		return str, nil
	default:
		return toString(v), nil
	}
}

func toNumber(v any) (float64, error) {
	var f float64

	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, ErrNotNumeric
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, ErrNotNumeric
		}
		f = n
	default:
		return 0, ErrNotNumeric
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotNumeric
	}
	return f, nil
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
