package models

import (
	"encoding/json"
	"time"
)

// SyncDocument is the single consolidated record mirrored to the remote store.
// Fields or Items are nil when the stored payload does not carry them.
type SyncDocument struct {
	Fields      []Field   `json:"fields"`
	Items       []Item    `json:"items"`
	LastUpdated time.Time `json:"last_updated"`
}

// UnmarshalJSON also accepts "models" for items, the key older payloads used.
func (d *SyncDocument) UnmarshalJSON(data []byte) error {
	var raw struct {
		Fields      []Field   `json:"fields"`
		Items       []Item    `json:"items"`
		Models      []Item    `json:"models"`
		LastUpdated time.Time `json:"last_updated"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Fields = raw.Fields
	d.Items = raw.Items
	if d.Items == nil {
		d.Items = raw.Models
	}
	d.LastUpdated = raw.LastUpdated
	return nil
}

// EmptyDocument is what gets inserted when a remote store is bootstrapped.
func EmptyDocument(now time.Time) SyncDocument {
	return SyncDocument{Fields: []Field{}, Items: []Item{}, LastUpdated: now.UTC()}
}

type RemoteConfig struct {
	Endpoint   string `json:"endpoint"`
	Credential string `json:"credential"`
}
