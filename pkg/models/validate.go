package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var ErrInvalid = errors.New("invalid catalog data")

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateFields checks struct constraints, id uniqueness and that options are
// present exactly when the field is a select.
func ValidateFields(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for i, f := range fields {
		if err := validate.Struct(f); err != nil {
			return fmt.Errorf("%w: field %d (%q): %s", ErrInvalid, i, f.ID, describe(err))
		}
		if _, dup := seen[f.ID]; dup {
			return fmt.Errorf("%w: duplicate field id %q", ErrInvalid, f.ID)
		}
		seen[f.ID] = struct{}{}

		if f.Type == FieldSelect && len(f.Options) == 0 {
			return fmt.Errorf("%w: field %q is a select without options", ErrInvalid, f.ID)
		}
		if f.Type != FieldSelect && len(f.Options) > 0 {
			return fmt.Errorf("%w: field %q has options but is %s", ErrInvalid, f.ID, f.Type)
		}
	}
	return nil
}

// ValidateItems checks items against the field schema. Spec keys that do not
// match a known field are kept and not checked.
func ValidateItems(fields []Field, items []Item) error {
	idx := FieldIndex(fields)
	seen := make(map[string]struct{}, len(items))
	for i, it := range items {
		if err := validate.Struct(it); err != nil {
			return fmt.Errorf("%w: item %d (%q): %s", ErrInvalid, i, it.ID, describe(err))
		}
		if _, dup := seen[it.ID]; dup {
			return fmt.Errorf("%w: duplicate item id %q", ErrInvalid, it.ID)
		}
		seen[it.ID] = struct{}{}

		for key, v := range it.Specs {
			f, ok := idx[key]
			if !ok {
				continue
			}
			if err := CheckValue(f, v); err != nil {
				return fmt.Errorf("%w: item %q: %v", ErrInvalid, it.ID, err)
			}
		}
	}
	return nil
}

// CheckValue reports whether v has the shape the field type requires.
func CheckValue(f Field, v SpecValue) error {
	want := []ValueKind{KindString}
	switch f.Type {
	case FieldNumber, FieldRating, FieldDimension:
		want = []ValueKind{KindNumber}
	case FieldBoolean:
		want = []ValueKind{KindBool}
	case FieldRange:
		want = []ValueKind{KindString, KindNumber}
	}

	ok := false
	for _, k := range want {
		if v.Kind() == k {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("field %q expects %s, got %s", f.ID, kindNames(want), v.Kind())
	}

	if f.Type == FieldSelect {
		s, _ := v.Text()
		for _, opt := range f.Options {
			if opt == s {
				return nil
			}
		}
		return fmt.Errorf("field %q: %q is not one of %s", f.ID, s, strings.Join(f.Options, ", "))
	}
	return nil
}

func kindNames(kinds []ValueKind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, " or ")
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
