package field

import (
	"errors"
	"strings"
)

type Type string

const (
	TypeText   Type = "text"
	TypeNumber Type = "number"
	TypeTel    Type = "tel"
	TypeEmail  Type = "email"
	TypeDate   Type = "date"
	TypeURL    Type = "url"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeText, TypeNumber, TypeTel, TypeEmail, TypeDate, TypeURL:
		return true
	default:
		return false
	}
}

// Schema describes one attendee attribute an event collects.
type Schema struct {
	Name     string `json:"name" binding:"required,max=64"`
	Label    string `json:"label" binding:"required,max=120"`
	Required bool   `json:"required"`
	Type     Type   `json:"type" binding:"required,oneof=text number tel email date url"`
}

var (
	ErrEmptyName     = errors.New("field name is required")
	ErrInvalidType   = errors.New("field type is not supported")
	ErrDuplicateName = errors.New("field name already used")
	ErrNoFields      = errors.New("at least one field required")
)

// the one default schema, built once and only ever handed out as copies
var defaults = []Schema{
	{Name: "name", Label: "Full Name", Required: true, Type: TypeText},
	{Name: "age", Label: "Age", Required: true, Type: TypeNumber},
	{Name: "mobile", Label: "Mobile Number", Required: true, Type: TypeTel},
	{Name: "location", Label: "Location", Required: true, Type: TypeText},
	{Name: "occupation", Label: "Occupation", Required: true, Type: TypeText},
}

func Defaults() []Schema {
	return Clone(defaults)
}

func Clone(fields []Schema) []Schema {
	if fields == nil {
		return nil
	}
	out := make([]Schema, len(fields))
	copy(out, fields)
	return out
}

// Validate checks a single schema entry in isolation.
func (s Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if !s.Type.IsValid() {
		return ErrInvalidType
	}
	return nil
}

// ValidateList checks every entry plus the list level rules: non-empty, unique names.
func ValidateList(fields []Schema) error {
	if len(fields) == 0 {
		return ErrNoFields
	}

	seen := make(map[string]struct{}, len(fields))

	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return err
		}
		if _, ok := seen[f.Name]; ok {
			return ErrDuplicateName
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// Index returns the position of the field called name, or -1.
func Index(fields []Schema, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// InputType is the HTML input type a browser should render for the field.
func (s Schema) InputType() string {
	switch s.Type {
	case TypeNumber, TypeTel, TypeEmail, TypeDate, TypeURL:
		return string(s.Type)
	default:
		return "text"
	}
}
