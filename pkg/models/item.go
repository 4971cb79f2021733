package models

import (
	"strings"
	"unicode"
)

// Item is one catalog entry (a TV model).
type Item struct {
	ID               string   `json:"id" yaml:"id" validate:"required"`
	Brand            string   `json:"brand" yaml:"brand"`
	Name             string   `json:"name" yaml:"name" validate:"required"`
	Slug             string   `json:"slug" yaml:"slug"`
	Description      string   `json:"description,omitempty" yaml:"description,omitempty"`
	Images           []string `json:"images" yaml:"images"`
	Specs            Specs    `json:"specs" yaml:"specs"`
	ManualBestFields []string `json:"manual_best_fields,omitempty" yaml:"manual_best_fields,omitempty"`
}

// PrimaryImage is the first image, used for listings.
func (it Item) PrimaryImage() string {
	if len(it.Images) == 0 {
		return ""
	}
	return it.Images[0]
}

func (it Item) IsManualBest(fieldID string) bool {
	for _, id := range it.ManualBestFields {
		if id == fieldID {
			return true
		}
	}
	return false
}

// Slugify lower-cases the name and replaces whitespace runs with "-".
func Slugify(name string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.TrimSpace(strings.ToLower(name)) {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte('-')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Catalog is the pair of collections the rest of the system reads and writes.
type Catalog struct {
	Fields []Field `json:"fields"`
	Items  []Item  `json:"items"`
}
