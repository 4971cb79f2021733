// Package compare holds the field-rule comparison engine: per-field best value
// selection, cross-item difference detection and value classification.
package compare

import "tvcompare/pkg/models"

// BestItem returns the id of the item holding the best value for field.
// ok is false when the rule is none/equal or fewer than two items are given.
//
// The first item with a defined value seeds the best, whatever its kind. Later
// values replace it only when they are numbers strictly better than a numeric
// best, so ties keep the earlier item and a non-numeric seed is never beaten.
func BestItem(field models.Field, items []models.Item) (id string, ok bool) {
	if field.ComparisonRule == models.RuleNone || field.ComparisonRule == models.RuleEqual || len(items) < 2 {
		return "", false
	}

	var best models.SpecValue
	for _, it := range items {
		v, defined := it.Specs.Get(field.ID)
		if !defined {
			continue
		}
		if !ok {
			best, id, ok = v, it.ID, true
			continue
		}
		if better(field.ComparisonRule, v, best) {
			best, id = v, it.ID
		}
	}
	return id, ok
}

func better(rule models.ComparisonRule, candidate, current models.SpecValue) bool {
	c, cNum := candidate.Float()
	b, bNum := current.Float()
	if !cNum || !bNum {
		return false
	}
	switch rule {
	case models.RuleHigherIsBetter:
		return c > b
	case models.RuleLowerIsBetter:
		return c < b
	}
	return false
}

// FieldDiffers reports whether any item's value for fieldID differs from the
// first item's. An absent value differs from every defined one.
func FieldDiffers(fieldID string, items []models.Item) bool {
	if len(items) < 2 {
		return false
	}
	first, firstOK := items[0].Specs.Get(fieldID)
	for _, it := range items[1:] {
		v, ok := it.Specs.Get(fieldID)
		if ok != firstOK {
			return true
		}
		if ok && !v.Equal(first) {
			return true
		}
	}
	return false
}
