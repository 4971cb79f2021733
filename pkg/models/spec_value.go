package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

type ValueKind uint8

const (
	KindInvalid ValueKind = iota
	KindNumber
	KindBool
	KindString
)

func (k ValueKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindString:
		return "string"
	}
	return "invalid"
}

// SpecValue is a single spec entry. Exactly one of the number, boolean or string
// payloads is meaningful, selected by Kind. The zero value is invalid and is never
// stored in Specs.
type SpecValue struct {
	kind ValueKind
	num  float64
	b    bool
	str  string
}

func Number(f float64) SpecValue { return SpecValue{kind: KindNumber, num: f} }
func Bool(b bool) SpecValue      { return SpecValue{kind: KindBool, b: b} }
func String(s string) SpecValue  { return SpecValue{kind: KindString, str: s} }

func (v SpecValue) Kind() ValueKind { return v.kind }
func (v SpecValue) IsValid() bool   { return v.kind != KindInvalid }

func (v SpecValue) Float() (float64, bool) {
	return v.num, v.kind == KindNumber
}

func (v SpecValue) Boolean() (bool, bool) {
	return v.b, v.kind == KindBool
}

func (v SpecValue) Text() (string, bool) {
	return v.str, v.kind == KindString
}

// Equal compares by kind and value. Values of different kinds are never equal.
func (v SpecValue) Equal(o SpecValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.str == o.str
	}
	return true
}

// String renders the value for display and CSV output.
func (v SpecValue) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return v.str
	}
	return ""
}

func (v SpecValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	case KindString:
		return json.Marshal(v.str)
	}
	return []byte("null"), nil
}

func (v *SpecValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = SpecValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '{', '[':
		return fmt.Errorf("spec value must be a scalar, got %s", data)
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return err
		}
		*v = Number(f)
	}
	return nil
}

func (v SpecValue) MarshalYAML() (any, error) {
	switch v.kind {
	case KindNumber:
		return v.num, nil
	case KindBool:
		return v.b, nil
	case KindString:
		return v.str, nil
	}
	return nil, nil
}

func (v *SpecValue) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("spec value must be a scalar (line %d)", node.Line)
	}
	switch node.ShortTag() {
	case "!!null":
		*v = SpecValue{}
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = Bool(b)
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = Number(f)
	default:
		*v = String(node.Value)
	}
	return nil
}

// Specs maps field ids to values. Unset fields are absent, never null-filled.
type Specs map[string]SpecValue

// Get returns the value for a field id and whether it is defined.
func (s Specs) Get(fieldID string) (SpecValue, bool) {
	v, ok := s[fieldID]
	if !ok || !v.IsValid() {
		return SpecValue{}, false
	}
	return v, true
}

func (s *Specs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Specs, len(raw))
	for k, msg := range raw {
		var v SpecValue
		if err := v.UnmarshalJSON(msg); err != nil {
			return fmt.Errorf("spec %q: %w", k, err)
		}
		if v.IsValid() {
			out[k] = v
		}
	}
	*s = out
	return nil
}

func (s *Specs) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]SpecValue
	if err := node.Decode(&raw); err != nil {
		return err
	}
	out := make(Specs, len(raw))
	for k, v := range raw {
		if v.IsValid() {
			out[k] = v
		}
	}
	*s = out
	return nil
}
