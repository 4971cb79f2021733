package catalog

import (
	"strings"

	"github.com/google/uuid"

	"tvcompare/pkg/models"
)

const placeholderImage = "https://picsum.photos/400/300"

func newFieldID() string {
	return "f_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
}

// normalizeFields assigns ids to fields that have none. Everything else is
// left for validation to judge.
func normalizeFields(fields []models.Field) []models.Field {
	out := make([]models.Field, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.ID) == "" {
			f.ID = newFieldID()
		}
		out[i] = f
	}
	return out
}

func normalizeItems(items []models.Item) []models.Item {
	out := make([]models.Item, len(items))
	for i, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			it.ID = uuid.NewString()
		}
		if it.Slug == "" {
			it.Slug = models.Slugify(it.Name)
		}
		if it.Images == nil {
			it.Images = []string{}
		}
		if it.Specs == nil {
			it.Specs = models.Specs{}
		}
		out[i] = it
	}
	return out
}

// fillField applies the editor defaults for a field added to a collection of
// n fields.
func fillField(f models.Field, n int) models.Field {
	if f.Type == "" {
		f.Type = models.FieldText
	}
	if f.ComparisonRule == "" {
		f.ComparisonRule = models.RuleNone
	}
	if f.Order == 0 {
		f.Order = n + 1
	}
	return normalizeFields([]models.Field{f})[0]
}

func fillItem(it models.Item) models.Item {
	if strings.TrimSpace(it.Brand) == "" {
		it.Brand = "Unknown"
	}
	if len(it.Images) == 0 {
		it.Images = []string{placeholderImage}
	}
	return normalizeItems([]models.Item{it})[0]
}
