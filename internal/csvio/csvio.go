// Package csvio converts the item catalog to and from spreadsheets. The
// fixed columns are followed by one column per field, keyed by field id.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"tvcompare/pkg/models"
)

// listSep joins multi-valued cells (images, manual_best_fields).
const listSep = "|"

var fixedColumns = []string{"id", "brand", "name", "slug", "description", "images", "manual_best_fields"}

// Write emits a header row and one row per item. Field columns follow the
// display order of fields; absent specs are empty cells.
func Write(w io.Writer, fields []models.Field, items []models.Item) error {
	fields = models.SortFields(fields)

	cw := csv.NewWriter(w)
	header := append([]string{}, fixedColumns...)
	for _, f := range fields {
		header = append(header, f.ID)
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, it := range items {
		row := []string{
			it.ID,
			it.Brand,
			it.Name,
			it.Slug,
			it.Description,
			strings.Join(it.Images, listSep),
			strings.Join(it.ManualBestFields, listSep),
		}
		for _, f := range fields {
			v, _ := it.Specs.Get(f.ID)
			row = append(row, v.String())
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses rows written by Write (or by hand). Columns that match no
// field are ignored; cells are typed by the field they belong to. Rows with
// neither id nor name are skipped. Items are not validated here.
func Read(r io.Reader, fields []models.Field) ([]models.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return nil, err
	}

	var items []models.Item
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		it := models.Item{
			ID:               valueAt(header, row, "id"),
			Brand:            valueAt(header, row, "brand"),
			Name:             valueAt(header, row, "name"),
			Slug:             valueAt(header, row, "slug"),
			Description:      valueAt(header, row, "description"),
			Images:           splitList(valueAt(header, row, "images")),
			ManualBestFields: splitList(valueAt(header, row, "manual_best_fields")),
			Specs:            models.Specs{},
		}
		if it.ID == "" && it.Name == "" {
			continue
		}

		for _, f := range fields {
			raw := valueAt(header, row, strings.ToLower(f.ID))
			if raw == "" {
				continue
			}
			v, err := ParseValue(f, raw)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			it.Specs[f.ID] = v
		}
		items = append(items, it)
	}
	return items, nil
}

// ParseValue types a raw cell according to the field definition.
func ParseValue(f models.Field, raw string) (models.SpecValue, error) {
	switch f.Type {
	case models.FieldNumber, models.FieldRating, models.FieldDimension:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return models.SpecValue{}, fmt.Errorf("field %q: %q is not a number", f.ID, raw)
		}
		return models.Number(n), nil
	case models.FieldBoolean:
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return models.SpecValue{}, fmt.Errorf("field %q: %q is not a boolean", f.ID, raw)
		}
		return models.Bool(b), nil
	case models.FieldRange:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return models.Number(n), nil
		}
	}
	return models.String(raw), nil
}

// Merge overlays incoming items on existing ones by id, keeping the existing
// order and appending new ids (or id-less rows) at the end.
func Merge(existing, incoming []models.Item) []models.Item {
	pos := make(map[string]int, len(existing))
	out := make([]models.Item, len(existing), len(existing)+len(incoming))
	copy(out, existing)
	for i, it := range out {
		pos[it.ID] = i
	}
	for _, it := range incoming {
		if i, ok := pos[it.ID]; ok && it.ID != "" {
			out[i] = it
			continue
		}
		if it.ID != "" {
			pos[it.ID] = len(out)
		}
		out = append(out, it)
	}
	return out
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, listSep) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
