package models

import "sort"

type FieldType string

const (
	FieldText      FieldType = "text"
	FieldNumber    FieldType = "number"
	FieldBoolean   FieldType = "boolean"
	FieldSelect    FieldType = "select" // single-select, options required
	FieldRating    FieldType = "rating"
	FieldDimension FieldType = "dimension"
	FieldRange     FieldType = "range"
)

type ComparisonRule string

const (
	RuleHigherIsBetter ComparisonRule = "higher_is_better"
	RuleLowerIsBetter  ComparisonRule = "lower_is_better"
	RuleEqual          ComparisonRule = "equal"
	RuleNone           ComparisonRule = "none"
)

// Field describes one comparable attribute shared by every item in the catalog.
type Field struct {
	ID              string         `json:"id" yaml:"id" validate:"required"`
	Label           string         `json:"label" yaml:"label" validate:"required"`
	Type            FieldType      `json:"type" yaml:"type" validate:"required,oneof=text number boolean select rating dimension range"`
	Unit            string         `json:"unit,omitempty" yaml:"unit,omitempty"`
	Order           int            `json:"order" yaml:"order"`
	IsHighlightable bool           `json:"is_highlightable" yaml:"is_highlightable"`
	HighlightColor  string         `json:"highlight_color,omitempty" yaml:"highlight_color,omitempty"`
	HighlightIcon   string         `json:"highlight_icon,omitempty" yaml:"highlight_icon,omitempty"`
	ComparisonRule  ComparisonRule `json:"comparison_rule" yaml:"comparison_rule" validate:"required,oneof=higher_is_better lower_is_better equal none"`
	Options         []string       `json:"options,omitempty" yaml:"options,omitempty"`
}

// IsNumeric reports whether values of this field are expected to be numbers.
func (f Field) IsNumeric() bool {
	switch f.Type {
	case FieldNumber, FieldRating, FieldDimension:
		return true
	}
	return false
}

// SortFields returns a copy ordered by Order; equal orders keep insertion order.
func SortFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// FieldIndex maps field ids to their definitions.
func FieldIndex(fields []Field) map[string]Field {
	idx := make(map[string]Field, len(fields))
	for _, f := range fields {
		idx[f.ID] = f
	}
	return idx
}
