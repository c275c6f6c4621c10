package events

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var (
	ErrMissingField = errors.New("missing required field")
	ErrInvalidField = errors.New("invalid field value")
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeInto fills target from the keys that match its json tags exactly.
// Keys differing only in case are ignored, so they count as missing.
func decodeInto(raw []byte, target interface{}) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return err
	}

	exact := make(map[string]json.RawMessage, len(fields))
	for _, name := range jsonNames(target) {
		if v, ok := fields[name]; ok {
			exact[name] = v
		}
	}
	filtered, err := json.Marshal(exact)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(filtered, target); err != nil {
		return err
	}
	if err := validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w %q", ErrMissingField, verrs[0].Field())
		}
		return err
	}
	return nil
}

func jsonNames(target interface{}) []string {
	t := reflect.TypeOf(target)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			names = append(names, name)
		}
	}
	return names
}

// number accepts a JSON number or a string holding one.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", ErrInvalidField, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %q is not a finite number", ErrInvalidField, s)
	}
	*n = number(f)
	return nil
}

// integer accepts whole numbers, including "46" and 46.0.
type integer int64

func (i *integer) UnmarshalJSON(b []byte) error {
	s, err := scalarText(b)
	if err != nil {
		return err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*i = integer(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return fmt.Errorf("%w: %q is not an integer", ErrInvalidField, s)
	}
	*i = integer(f)
	return nil
}

// text accepts a JSON string, number or bool. Numbers keep their literal form.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	switch {
	case s == "null":
		return ErrMissingField
	case strings.HasPrefix(s, `"`):
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
		*t = text(str)
	case s == "true" || s == "false":
		*t = text(s)
	case isNumberLiteral(s):
		*t = text(s)
	default:
		return fmt.Errorf("%w: expected a string, got %.32s", ErrInvalidField, s)
	}
	return nil
}

func scalarText(b []byte) (string, error) {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return "", ErrMissingField
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidField, err)
		}
		return strings.TrimSpace(str), nil
	}
	if !isNumberLiteral(s) {
		return "", fmt.Errorf("%w: expected a number, got %.32s", ErrInvalidField, s)
	}
	return s, nil
}

func isNumberLiteral(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c == '-' || (c >= '0' && c <= '9')
}
