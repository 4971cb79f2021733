// Package cloudtest provides an in-memory remote store for tests.
package cloudtest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"tvcompare/internal/cloud"
	"tvcompare/pkg/models"
)

const Scheme = "mem"

// Memory is a Backend holding the document as encoded JSON, so callers never
// share slices with the store.
type Memory struct {
	mu      sync.Mutex
	payload []byte

	// Set to simulate failures.
	SchemaMissing bool
	FetchErr      error
	UpsertErr     error

	Upserts int
	Inserts int
	Dials   int
}

func New() *Memory { return &Memory{} }

// Dialer returns a dialer for the "mem" scheme that always yields m.
func (m *Memory) Dialer() cloud.Dialer {
	return func(endpoint, credential string) (cloud.Backend, error) {
		m.mu.Lock()
		m.Dials++
		m.mu.Unlock()
		return m, nil
	}
}

// Option registers m with a cloud.Client.
func (m *Memory) Option() cloud.Option { return cloud.WithDialer(Scheme, m.Dialer()) }

// Seed stores doc as if another writer had pushed it.
func (m *Memory) Seed(doc models.SyncDocument) {
	b, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	m.mu.Lock()
	m.payload = b
	m.mu.Unlock()
}

// Doc returns a decoded copy of the stored document, or nil.
func (m *Memory) Doc() *models.SyncDocument {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.payload == nil {
		return nil
	}
	var doc models.SyncDocument
	if err := json.Unmarshal(m.payload, &doc); err != nil {
		panic(err)
	}
	return &doc
}

func (m *Memory) Probe(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SchemaMissing {
		return false, fmt.Errorf("%w: relation \"app_data\" does not exist", cloud.ErrSchemaMissing)
	}
	return m.payload != nil, nil
}

func (m *Memory) Fetch(ctx context.Context) (*models.SyncDocument, error) {
	m.mu.Lock()
	fetchErr, missing, empty := m.FetchErr, m.SchemaMissing, m.payload == nil
	m.mu.Unlock()

	switch {
	case missing:
		return nil, cloud.ErrSchemaMissing
	case fetchErr != nil:
		return nil, fetchErr
	case empty:
		return nil, cloud.ErrNoDocument
	}
	return m.Doc(), nil
}

func (m *Memory) Upsert(ctx context.Context, doc models.SyncDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.payload = b
	m.Upserts++
	return nil
}

func (m *Memory) Insert(ctx context.Context, doc models.SyncDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	if m.payload != nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.payload = b
	m.Inserts++
	return nil
}

func (m *Memory) Close() error { return nil }
