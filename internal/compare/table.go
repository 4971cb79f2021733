package compare

import "tvcompare/pkg/models"

type TableCell struct {
	ItemID     string `json:"item_id"`
	Cell       Cell   `json:"cell"`
	Best       bool   `json:"best"`
	ManualBest bool   `json:"manual_best"`
}

type Row struct {
	Field   models.Field `json:"field"`
	BestID  string       `json:"best_item_id,omitempty"`
	Differs bool         `json:"differs"`
	Cells   []TableCell  `json:"cells"`
}

type Table struct {
	Items []models.Item `json:"items"`
	Rows  []Row         `json:"rows"`
}

// Build lays out the comparison of items across fields, one row per field in
// display order.
func Build(fields []models.Field, items []models.Item) Table {
	t := Table{Items: items, Rows: make([]Row, 0, len(fields))}
	for _, f := range models.SortFields(fields) {
		bestID, hasBest := BestItem(f, items)
		row := Row{
			Field:   f,
			Differs: FieldDiffers(f.ID, items),
			Cells:   make([]TableCell, 0, len(items)),
		}
		if hasBest {
			row.BestID = bestID
		}
		for _, it := range items {
			v, ok := it.Specs.Get(f.ID)
			row.Cells = append(row.Cells, TableCell{
				ItemID:     it.ID,
				Cell:       Classify(v, ok, f),
				Best:       hasBest && it.ID == bestID,
				ManualBest: it.IsManualBest(f.ID),
			})
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
