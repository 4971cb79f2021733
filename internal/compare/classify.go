package compare

import (
	"encoding/json"
	"fmt"

	"tvcompare/pkg/models"
)

type Class int

const (
	ClassAbsent Class = iota
	ClassTrue
	ClassFalse
	ClassScalar
)

func (c Class) String() string {
	switch c {
	case ClassTrue:
		return "true"
	case ClassFalse:
		return "false"
	case ClassScalar:
		return "scalar"
	}
	return "absent"
}

func (c Class) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *Class) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "true":
		*c = ClassTrue
	case "false":
		*c = ClassFalse
	case "scalar":
		*c = ClassScalar
	case "absent":
		*c = ClassAbsent
	default:
		return fmt.Errorf("unknown cell class %q", s)
	}
	return nil
}

// Cell is the rendering contract for one value: the presentation layer decides
// styling, but must honour the class.
type Cell struct {
	Class Class            `json:"class"`
	Value models.SpecValue `json:"value"`
	Unit  string           `json:"unit,omitempty"`
}

// Classify buckets a raw value. Booleans are classified by value kind and are
// never treated as scalars, even on numeric fields.
func Classify(v models.SpecValue, present bool, field models.Field) Cell {
	if !present || !v.IsValid() {
		return Cell{Class: ClassAbsent}
	}
	if b, ok := v.Boolean(); ok {
		if b {
			return Cell{Class: ClassTrue}
		}
		return Cell{Class: ClassFalse}
	}
	return Cell{Class: ClassScalar, Value: v, Unit: field.Unit}
}
