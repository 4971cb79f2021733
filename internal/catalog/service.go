// Package catalog is the single entry point the transports use to read and
// write the catalog. It resolves every read through remote, local cache and
// built-in seed, and mirrors every write to the remote store when connected.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tvcompare/internal/cloud"
	"tvcompare/internal/compare"
	livesync "tvcompare/internal/sync"
	"tvcompare/pkg/models"
)

var ErrNotFound = errors.New("not found")

// Local is the process-local cache.
type Local interface {
	Fields(ctx context.Context) ([]models.Field, bool)
	Items(ctx context.Context) ([]models.Item, bool)
	SaveFields(ctx context.Context, fields []models.Field) error
	SaveItems(ctx context.Context, items []models.Item) error
	LastSyncTime(ctx context.Context) (time.Time, bool)
	SetLastSyncTime(ctx context.Context, t time.Time) error
}

// Remote is the cloud connection; *cloud.Client implements it.
type Remote interface {
	State() cloud.State
	Connected() bool
	Endpoint() string
	Configure(ctx context.Context, endpoint, credential string) error
	Disconnect(ctx context.Context) error
	TestConnectivity(ctx context.Context) cloud.Diagnostic
	Pull(ctx context.Context) *models.SyncDocument
	Push(ctx context.Context, doc models.SyncDocument) error
}

type Notifier interface {
	BroadcastJSON(v any)
}

type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceSeed   Source = "seed"
)

type Snapshot struct {
	Fields       []models.Field `json:"fields"`
	Items        []models.Item  `json:"items"`
	FieldsSource Source         `json:"fields_source"`
	ItemsSource  Source         `json:"items_source"`
}

// Update carries the collections a push replaces. A nil collection is taken
// from the current remote document, or from the local cache if there is none.
type Update struct {
	Fields []models.Field
	Items  []models.Item
}

type CloudStatus struct {
	State    cloud.State `json:"state"`
	Endpoint string      `json:"endpoint,omitempty"`
	LastSync *time.Time  `json:"last_sync,omitempty"`
}

type Service struct {
	// mu serialises the read-modify-write helpers (Upsert*/Delete*).
	mu     sync.Mutex
	local  Local
	remote Remote
	notify Notifier
	log    *zap.Logger
	now    func() time.Time
}

func NewService(local Local, remote Remote, notify Notifier, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		local:  local,
		remote: remote,
		notify: notify,
		log:    log.Named("catalog"),
		now:    time.Now,
	}
}

// SetClock replaces the time source used for last_updated stamps.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

func (s *Service) emit(ev livesync.CatalogEvent) {
	if s.notify == nil {
		return
	}
	ev.At = s.now().UTC()
	s.notify.BroadcastJSON(ev)
}

// LoadAll never fails: each collection comes from the remote document when
// connected and present (refreshing the local cache), else from the local
// cache, else from the seed.
func (s *Service) LoadAll(ctx context.Context) Snapshot {
	var doc *models.SyncDocument
	if s.remote.Connected() {
		doc = s.remote.Pull(ctx)
	}

	var snap Snapshot
	if doc != nil && doc.Fields != nil {
		snap.Fields, snap.FieldsSource = doc.Fields, SourceRemote
		if err := s.local.SaveFields(ctx, doc.Fields); err != nil {
			s.log.Warn("cache remote fields", zap.Error(err))
		}
	} else {
		fields, seeded := s.local.Fields(ctx)
		snap.Fields, snap.FieldsSource = fields, sourceOf(seeded)
	}

	if doc != nil && doc.Items != nil {
		snap.Items, snap.ItemsSource = doc.Items, SourceRemote
		if err := s.local.SaveItems(ctx, doc.Items); err != nil {
			s.log.Warn("cache remote items", zap.Error(err))
		}
	} else {
		items, seeded := s.local.Items(ctx)
		snap.Items, snap.ItemsSource = items, sourceOf(seeded)
	}
	return snap
}

func sourceOf(seeded bool) Source {
	if seeded {
		return SourceSeed
	}
	return SourceLocal
}

func (s *Service) Fields(ctx context.Context) []models.Field {
	return s.LoadAll(ctx).Fields
}

// Items lists items whose name or brand contains query, case-insensitively.
// An empty query lists everything.
func (s *Service) Items(ctx context.Context, query string) []models.Item {
	items := s.LoadAll(ctx).Items
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) || strings.Contains(strings.ToLower(it.Brand), q) {
			out = append(out, it)
		}
	}
	return out
}

// Item finds an item by id or slug.
func (s *Service) Item(ctx context.Context, idOrSlug string) (*models.Item, error) {
	for _, it := range s.LoadAll(ctx).Items {
		if it.ID == idOrSlug || (it.Slug != "" && it.Slug == idOrSlug) {
			return &it, nil
		}
	}
	return nil, fmt.Errorf("item %q: %w", idOrSlug, ErrNotFound)
}

// Compare lays out up to compare.MaxSelection items side by side, in the
// order given.
func (s *Service) Compare(ctx context.Context, ids []string) (compare.Table, error) {
	sel, err := compare.NewSelection(ids...)
	if err != nil {
		return compare.Table{}, err
	}
	snap := s.LoadAll(ctx)
	items, err := pick(snap.Items, sel.IDs())
	if err != nil {
		return compare.Table{}, err
	}
	return compare.Build(snap.Fields, items), nil
}

// Selected resolves ids to items and returns them with the current fields.
func (s *Service) Selected(ctx context.Context, ids []string) ([]models.Field, []models.Item, error) {
	sel, err := compare.NewSelection(ids...)
	if err != nil {
		return nil, nil, err
	}
	snap := s.LoadAll(ctx)
	items, err := pick(snap.Items, sel.IDs())
	if err != nil {
		return nil, nil, err
	}
	return snap.Fields, items, nil
}

func pick(all []models.Item, ids []string) ([]models.Item, error) {
	byID := make(map[string]models.Item, len(all))
	for _, it := range all {
		byID[it.ID] = it
	}
	out := make([]models.Item, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("item %q: %w", id, ErrNotFound)
		}
		out = append(out, it)
	}
	return out, nil
}

// SaveFields replaces the field collection. The local write is authoritative:
// if it fails nothing else happens; if the remote push fails afterwards the
// local write stands and the error wraps cloud.ErrWriteFailure.
func (s *Service) SaveFields(ctx context.Context, fields []models.Field) error {
	fields = normalizeFields(fields)
	if err := models.ValidateFields(fields); err != nil {
		return err
	}
	if err := s.local.SaveFields(ctx, fields); err != nil {
		return fmt.Errorf("save local fields: %w", err)
	}
	s.emit(livesync.CatalogEvent{Type: livesync.EventFieldsUpdated, FieldCount: len(fields)})

	if !s.remote.Connected() {
		return nil
	}
	return s.PushMerged(ctx, Update{Fields: fields})
}

// SaveItems replaces the item collection; see SaveFields for failure handling.
func (s *Service) SaveItems(ctx context.Context, items []models.Item) error {
	items = normalizeItems(items)
	fields, _ := s.local.Fields(ctx)
	if err := models.ValidateItems(fields, items); err != nil {
		return err
	}
	if err := s.local.SaveItems(ctx, items); err != nil {
		return fmt.Errorf("save local items: %w", err)
	}
	s.emit(livesync.CatalogEvent{Type: livesync.EventItemsUpdated, ItemCount: len(items)})

	if !s.remote.Connected() {
		return nil
	}
	return s.PushMerged(ctx, Update{Items: items})
}

// PushMerged writes one consolidated document to the remote store. The
// read-merge-upsert is not atomic: two writers pushing different collections
// at once can lose one update.
func (s *Service) PushMerged(ctx context.Context, u Update) error {
	current := s.remote.Pull(ctx)

	doc := models.SyncDocument{Fields: u.Fields, Items: u.Items}
	if doc.Fields == nil {
		if current != nil && current.Fields != nil {
			doc.Fields = current.Fields
		} else {
			doc.Fields, _ = s.local.Fields(ctx)
		}
	}
	if doc.Items == nil {
		if current != nil && current.Items != nil {
			doc.Items = current.Items
		} else {
			doc.Items, _ = s.local.Items(ctx)
		}
	}
	doc.LastUpdated = s.now().UTC()

	if err := s.remote.Push(ctx, doc); err != nil {
		return err
	}
	if err := s.local.SetLastSyncTime(ctx, doc.LastUpdated); err != nil {
		s.log.Warn("record last sync time", zap.Error(err))
	}
	s.log.Info("catalog pushed", zap.Int("fields", len(doc.Fields)), zap.Int("items", len(doc.Items)))
	s.emit(livesync.CatalogEvent{Type: livesync.EventCloudSynced, FieldCount: len(doc.Fields), ItemCount: len(doc.Items)})
	return nil
}

// SyncNow pushes both local collections.
func (s *Service) SyncNow(ctx context.Context) error {
	fields, _ := s.local.Fields(ctx)
	items, _ := s.local.Items(ctx)
	return s.PushMerged(ctx, Update{Fields: fields, Items: items})
}

// Connect configures the remote store, tests it and performs the initial
// sync: a remote that was just created (or never written) receives the local
// catalog, otherwise the local cache is refreshed from it. A failed test
// disconnects again.
func (s *Service) Connect(ctx context.Context, endpoint, credential string) (cloud.Diagnostic, error) {
	if err := s.remote.Configure(ctx, endpoint, credential); err != nil {
		return cloud.Diagnostic{Outcome: cloud.OutcomeFailed, Message: err.Error(), Err: err}, err
	}

	d := s.remote.TestConnectivity(ctx)
	if !d.OK() {
		if err := s.remote.Disconnect(ctx); err != nil {
			s.log.Warn("disconnect after failed test", zap.Error(err))
		}
		s.emitState(d.Message)
		return d, d.Err
	}
	s.emitState(d.Message)

	doc := s.remote.Pull(ctx)
	if d.Outcome == cloud.OutcomeBootstrapped || doc == nil || doc.LastUpdated.IsZero() {
		if err := s.SyncNow(ctx); err != nil {
			return d, err
		}
		return d, nil
	}

	snap := s.LoadAll(ctx)
	s.emit(livesync.CatalogEvent{Type: livesync.EventFieldsUpdated, FieldCount: len(snap.Fields)})
	s.emit(livesync.CatalogEvent{Type: livesync.EventItemsUpdated, ItemCount: len(snap.Items)})
	return d, nil
}

func (s *Service) TestConnectivity(ctx context.Context) cloud.Diagnostic {
	return s.remote.TestConnectivity(ctx)
}

func (s *Service) Disconnect(ctx context.Context) error {
	if err := s.remote.Disconnect(ctx); err != nil {
		return err
	}
	s.emitState("disconnected")
	return nil
}

func (s *Service) emitState(msg string) {
	s.emit(livesync.CatalogEvent{Type: livesync.EventCloudState, State: string(s.remote.State()), Message: msg})
}

func (s *Service) CloudStatus(ctx context.Context) CloudStatus {
	st := CloudStatus{State: s.remote.State(), Endpoint: s.remote.Endpoint()}
	if t, ok := s.local.LastSyncTime(ctx); ok {
		st.LastSync = &t
	}
	return st
}

// UpsertField adds f or replaces the field with the same id.
func (s *Service) UpsertField(ctx context.Context, f models.Field) (models.Field, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := s.LoadAll(ctx).Fields
	f = fillField(f, len(fields))

	out := make([]models.Field, 0, len(fields)+1)
	replaced := false
	for _, cur := range fields {
		if cur.ID == f.ID {
			out = append(out, f)
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, f)
	}
	return f, s.SaveFields(ctx, out)
}

// DeleteField removes a field. Item specs keyed by it are left in place.
func (s *Service) DeleteField(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields := s.LoadAll(ctx).Fields
	out := make([]models.Field, 0, len(fields))
	for _, f := range fields {
		if f.ID != id {
			out = append(out, f)
		}
	}
	if len(out) == len(fields) {
		return fmt.Errorf("field %q: %w", id, ErrNotFound)
	}
	return s.SaveFields(ctx, out)
}

func (s *Service) UpsertItem(ctx context.Context, it models.Item) (models.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.LoadAll(ctx).Items
	it = fillItem(it)

	out := make([]models.Item, 0, len(items)+1)
	replaced := false
	for _, cur := range items {
		if cur.ID == it.ID {
			out = append(out, it)
			replaced = true
			continue
		}
		out = append(out, cur)
	}
	if !replaced {
		out = append(out, it)
	}
	return it, s.SaveItems(ctx, out)
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.LoadAll(ctx).Items
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	if len(out) == len(items) {
		return fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return s.SaveItems(ctx, out)
}
