package sync

import "time"

const (
	EventFieldsUpdated = "catalog.fields.updated"
	EventItemsUpdated  = "catalog.items.updated"
	EventCloudState    = "cloud.state"
	EventCloudSynced   = "cloud.synced"
)

// CatalogEvent tells listeners to refetch; it carries counts, not data.
type CatalogEvent struct {
	Type       string    `json:"type"`
	FieldCount int       `json:"field_count,omitempty"`
	ItemCount  int       `json:"item_count,omitempty"`
	State      string    `json:"state,omitempty"`
	Message    string    `json:"message,omitempty"`
	At         time.Time `json:"at"`
}
