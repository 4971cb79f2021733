package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSpecsDecodeTaggedValues(t *testing.T) {
	var it Item
	err := json.Unmarshal([]byte(`{
		"id": "lg-c3", "name": "LG OLED C3",
		"specs": {"hz": 120, "hdr": true, "os": "WebOS", "gone": null}
	}`), &it)
	require.NoError(t, err)

	hz, ok := it.Specs.Get("hz")
	require.True(t, ok)
	f, isNum := hz.Float()
	assert.True(t, isNum)
	assert.Equal(t, 120.0, f)

	hdr, _ := it.Specs.Get("hdr")
	assert.Equal(t, KindBool, hdr.Kind())

	os, _ := it.Specs.Get("os")
	assert.Equal(t, KindString, os.Kind())

	_, present := it.Specs.Get("gone")
	assert.False(t, present, "null entries are dropped, not stored")
	assert.Len(t, it.Specs, 3)
}

func TestSpecValueRejectsCompositeJSON(t *testing.T) {
	var s Specs
	err := json.Unmarshal([]byte(`{"size": [55, 65]}`), &s)
	require.Error(t, err)
}

func TestSpecValueEqualIsKindAware(t *testing.T) {
	assert.True(t, Number(1).Equal(Number(1)))
	assert.False(t, Number(1).Equal(Bool(true)))
	assert.False(t, Number(0).Equal(Bool(false)))
	assert.False(t, String("1").Equal(Number(1)))
	assert.True(t, String("4K").Equal(String("4K")))
}

func TestSpecsMarshalRoundTripKeepsKinds(t *testing.T) {
	in := Specs{"hz": Number(144), "hdr": Bool(false), "panel": String("OLED")}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"hz":144,"hdr":false,"panel":"OLED"}`, string(b))
}

func TestSpecsDecodeYAML(t *testing.T) {
	var it Item
	err := yaml.Unmarshal([]byte(`
id: sony-a80l
name: Sony Bravia XR A80L
specs:
  screen_size: 55
  hdr_support: true
  smart_os: Google TV
  unset: ~
`), &it)
	require.NoError(t, err)

	v, ok := it.Specs.Get("screen_size")
	require.True(t, ok)
	assert.Equal(t, KindNumber, v.Kind())
	_, ok = it.Specs.Get("unset")
	assert.False(t, ok)
}

func TestSyncDocumentAcceptsLegacyModelsKey(t *testing.T) {
	var doc SyncDocument
	err := json.Unmarshal([]byte(`{"fields": [], "models": [{"id": "a", "name": "A"}]}`), &doc)
	require.NoError(t, err)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "a", doc.Items[0].ID)
	assert.NotNil(t, doc.Fields)
}

func TestSyncDocumentMissingCollectionsStayNil(t *testing.T) {
	var doc SyncDocument
	require.NoError(t, json.Unmarshal([]byte(`{"last_updated": "2026-01-02T03:04:05Z"}`), &doc))
	assert.Nil(t, doc.Fields)
	assert.Nil(t, doc.Items)
	assert.Equal(t, 2026, doc.LastUpdated.Year())
}

func TestSortFieldsIsStable(t *testing.T) {
	fields := []Field{
		{ID: "b", Order: 2},
		{ID: "a1", Order: 1},
		{ID: "c", Order: 2},
		{ID: "a2", Order: 1},
	}
	sorted := SortFields(fields)
	ids := make([]string, len(sorted))
	for i, f := range sorted {
		ids[i] = f.ID
	}
	assert.Equal(t, []string{"a1", "a2", "b", "c"}, ids)
	assert.Equal(t, "b", fields[0].ID, "input is not reordered")
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "lg-oled-c3", Slugify("LG OLED C3"))
	assert.Equal(t, "samsung-s95c", Slugify("  Samsung   S95C "))
}

func TestValidateFields(t *testing.T) {
	valid := []Field{
		{ID: "hz", Label: "Refresh", Type: FieldNumber, ComparisonRule: RuleHigherIsBetter},
		{ID: "res", Label: "Resolution", Type: FieldSelect, ComparisonRule: RuleNone, Options: []string{"4K", "8K"}},
	}
	require.NoError(t, ValidateFields(valid))

	cases := map[string][]Field{
		"duplicate id": {valid[0], valid[0]},
		"select without options": {
			{ID: "res", Label: "Resolution", Type: FieldSelect, ComparisonRule: RuleNone},
		},
		"options on non-select": {
			{ID: "hz", Label: "Refresh", Type: FieldNumber, ComparisonRule: RuleNone, Options: []string{"x"}},
		},
		"unknown type": {
			{ID: "hz", Label: "Refresh", Type: "color", ComparisonRule: RuleNone},
		},
		"unknown rule": {
			{ID: "hz", Label: "Refresh", Type: FieldNumber, ComparisonRule: "bigger"},
		},
		"missing label": {
			{ID: "hz", Type: FieldNumber, ComparisonRule: RuleNone},
		},
	}
	for name, fields := range cases {
		t.Run(name, func(t *testing.T) {
			err := ValidateFields(fields)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestValidateItems(t *testing.T) {
	fields := []Field{
		{ID: "hz", Label: "Refresh", Type: FieldNumber, ComparisonRule: RuleHigherIsBetter},
		{ID: "hdr", Label: "HDR", Type: FieldBoolean, ComparisonRule: RuleEqual},
		{ID: "res", Label: "Resolution", Type: FieldSelect, ComparisonRule: RuleNone, Options: []string{"4K", "8K"}},
		{ID: "size", Label: "Sizes", Type: FieldRange, ComparisonRule: RuleNone},
	}

	ok := []Item{{
		ID: "a", Name: "A",
		Specs: Specs{"hz": Number(120), "hdr": Bool(true), "res": String("4K"), "size": String("43-85"), "orphan": String("kept")},
	}}
	require.NoError(t, ValidateItems(fields, ok))

	bad := map[string]Item{
		"number as string":  {ID: "a", Name: "A", Specs: Specs{"hz": String("120")}},
		"bool as number":    {ID: "a", Name: "A", Specs: Specs{"hdr": Number(1)}},
		"option not listed": {ID: "a", Name: "A", Specs: Specs{"res": String("HD")}},
		"missing name":      {ID: "a"},
	}
	for name, it := range bad {
		t.Run(name, func(t *testing.T) {
			err := ValidateItems(fields, []Item{it})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	dup := []Item{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}
	assert.ErrorIs(t, ValidateItems(fields, dup), ErrInvalid)
}
