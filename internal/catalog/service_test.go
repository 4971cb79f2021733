package catalog

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvcompare/internal/cloud"
	"tvcompare/internal/cloud/cloudtest"
	"tvcompare/internal/compare"
	"tvcompare/internal/localstore"
	livesync "tvcompare/internal/sync"
	"tvcompare/pkg/database"
	"tvcompare/pkg/models"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []livesync.CatalogEvent
}

func (r *recorder) BroadcastJSON(v any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := v.(livesync.CatalogEvent); ok {
		r.events = append(r.events, ev)
	}
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

type env struct {
	db     *sql.DB
	local  *localstore.Store
	client *cloud.Client
	mem    *cloudtest.Memory
	events *recorder
	svc    *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWith(t, openDB(t), cloudtest.New())
}

// newEnvOn starts a fresh session against an existing local database.
func newEnvOn(t *testing.T, db *sql.DB) *env {
	t.Helper()
	return newEnvWith(t, db, cloudtest.New())
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "data.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newEnvWith(t *testing.T, db *sql.DB, mem *cloudtest.Memory) *env {
	t.Helper()
	local := localstore.New(db, nil)
	client := cloud.New(local, nil, mem.Option(), cloud.WithClock(func() time.Time { return fixedNow }))
	rec := &recorder{}
	svc := NewService(local, client, rec, nil)
	svc.SetClock(func() time.Time { return fixedNow })
	return &env{db: db, local: local, client: client, mem: mem, events: rec, svc: svc}
}

func (e *env) connect(t *testing.T) {
	t.Helper()
	require.NoError(t, e.client.Configure(context.Background(), "mem://remote", "key"))
}

var hz = models.Field{ID: "hz", Label: "Refresh", Type: models.FieldNumber, Unit: "Hz", Order: 1, ComparisonRule: models.RuleHigherIsBetter}

func TestLoadAllFallsBackToSeed(t *testing.T) {
	e := newEnv(t)
	snap := e.svc.LoadAll(context.Background())
	assert.Equal(t, SourceSeed, snap.FieldsSource)
	assert.Equal(t, SourceSeed, snap.ItemsSource)
	assert.Len(t, snap.Fields, 7)
	assert.Len(t, snap.Items, 4)

	snap = e.svc.LoadAll(context.Background())
	assert.Equal(t, SourceLocal, snap.FieldsSource, "seed is written to the cache")
}

func TestSaveFieldsRoundTripWithoutRemote(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	require.NoError(t, e.svc.SaveFields(ctx, []models.Field{hz}))
	snap := e.svc.LoadAll(ctx)
	assert.Equal(t, SourceLocal, snap.FieldsSource)
	assert.Empty(t, cmp.Diff([]models.Field{hz}, snap.Fields))
	assert.Equal(t, []string{livesync.EventFieldsUpdated}, e.events.types())
	assert.Zero(t, e.mem.Upserts, "no remote traffic while disconnected")

	// a second session over the same local database sees the saved fields
	next := newEnvOn(t, e.db)
	assert.Empty(t, cmp.Diff([]models.Field{hz}, next.svc.Fields(ctx)))
}

func TestSavedFieldsReachAnotherDeviceThroughRemote(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t)
	require.NoError(t, e.svc.SaveFields(ctx, []models.Field{hz}))

	// a second device: empty local database, same remote store
	other := newEnvWith(t, openDB(t), e.mem)
	other.connect(t)
	_, err := other.local.ReadFields(ctx)
	require.ErrorIs(t, err, localstore.ErrMissing)

	snap := other.svc.LoadAll(ctx)
	assert.Equal(t, SourceRemote, snap.FieldsSource)
	assert.Empty(t, cmp.Diff([]models.Field{hz}, snap.Fields))

	cached, err := other.local.ReadFields(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]models.Field{hz}, cached), "remote fields are cached locally")
}

func TestSaveFieldsValidates(t *testing.T) {
	e := newEnv(t)
	bad := models.Field{ID: "x", Label: "X", Type: models.FieldSelect, ComparisonRule: models.RuleNone}
	err := e.svc.SaveFields(context.Background(), []models.Field{bad})
	assert.ErrorIs(t, err, models.ErrInvalid)

	_, err = e.local.ReadFields(context.Background())
	assert.ErrorIs(t, err, localstore.ErrMissing, "nothing written")
}

func TestSaveFieldsMergePreservesRemoteItems(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	remoteItems := []models.Item{{ID: "x", Name: "Remote X", Images: []string{}, Specs: models.Specs{"hz": models.Number(100)}}}
	e.mem.Seed(models.SyncDocument{Fields: []models.Field{}, Items: remoteItems, LastUpdated: fixedNow.Add(-time.Hour)})
	e.connect(t)

	require.NoError(t, e.svc.SaveFields(ctx, []models.Field{hz}))

	doc := e.mem.Doc()
	require.NotNil(t, doc)
	assert.Empty(t, cmp.Diff([]models.Field{hz}, doc.Fields))
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "x", doc.Items[0].ID)
	assert.True(t, fixedNow.Equal(doc.LastUpdated))

	last, ok := e.local.LastSyncTime(ctx)
	require.True(t, ok)
	assert.True(t, fixedNow.Equal(last))
}

func TestPushMergedFallsBackToLocalWhenRemoteEmpty(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t)

	require.NoError(t, e.svc.PushMerged(ctx, Update{Fields: []models.Field{hz}}))
	doc := e.mem.Doc()
	require.NotNil(t, doc)
	assert.Len(t, doc.Items, 4, "items come from the local cache (seeded)")
}

func TestPushFailureKeepsLocalWrite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.connect(t)
	e.mem.UpsertErr = errors.New("row level security")

	err := e.svc.SaveFields(ctx, []models.Field{hz})
	require.Error(t, err)
	assert.ErrorIs(t, err, cloud.ErrWriteFailure)

	fields, err := e.local.ReadFields(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]models.Field{hz}, fields))

	_, ok := e.local.LastSyncTime(ctx)
	assert.False(t, ok)
}

func TestLoadAllPrefersRemoteAndRefreshesCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mem.Seed(models.SyncDocument{Fields: []models.Field{hz}, LastUpdated: fixedNow})
	e.connect(t)

	snap := e.svc.LoadAll(ctx)
	assert.Equal(t, SourceRemote, snap.FieldsSource)
	assert.Equal(t, SourceSeed, snap.ItemsSource, "document without items falls through")

	cached, err := e.local.ReadFields(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff([]models.Field{hz}, cached))

	e.mem.FetchErr = errors.New("timeout")
	snap = e.svc.LoadAll(ctx)
	assert.Equal(t, SourceLocal, snap.FieldsSource, "pull failure is silent")
	assert.Empty(t, cmp.Diff([]models.Field{hz}, snap.Fields))
}

func TestConnectRejectsMalformedEndpoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	d, err := e.svc.Connect(ctx, "not a url", "key")
	assert.ErrorIs(t, err, cloud.ErrConfigurationInvalid)
	assert.Equal(t, cloud.OutcomeFailed, d.Outcome)
	assert.Equal(t, cloud.StateDisconnected, e.client.State())

	cfg, err := e.local.LoadRemoteConfig(ctx)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestConnectBootstrapsAndPushesLocal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.svc.SaveFields(ctx, []models.Field{hz}))

	d, err := e.svc.Connect(ctx, "mem://remote", "key")
	require.NoError(t, err)
	assert.Equal(t, cloud.OutcomeBootstrapped, d.Outcome)
	assert.True(t, e.client.Connected())

	doc := e.mem.Doc()
	require.NotNil(t, doc)
	assert.Empty(t, cmp.Diff([]models.Field{hz}, doc.Fields))
	assert.Len(t, doc.Items, 4)

	st := e.svc.CloudStatus(ctx)
	assert.Equal(t, cloud.StateConnected, st.State)
	require.NotNil(t, st.LastSync)
}

func TestConnectReloadsFromExistingRemote(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mem.Seed(models.SyncDocument{Fields: []models.Field{hz}, Items: []models.Item{}, LastUpdated: fixedNow})

	d, err := e.svc.Connect(ctx, "mem://remote", "key")
	require.NoError(t, err)
	assert.Equal(t, cloud.OutcomeOK, d.Outcome)
	assert.Zero(t, e.mem.Upserts, "existing remote is not overwritten")

	items, err := e.local.ReadItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items, "local cache refreshed from the remote")
}

func TestConnectSchemaMissingDisconnects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mem.SchemaMissing = true

	d, err := e.svc.Connect(ctx, "mem://remote", "key")
	assert.ErrorIs(t, err, cloud.ErrSchemaMissing)
	assert.Equal(t, cloud.OutcomeFailed, d.Outcome)
	assert.Equal(t, cloud.StateDisconnected, e.client.State())

	cfg, _ := e.local.LoadRemoteConfig(ctx)
	assert.Nil(t, cfg)
}

func TestItemsQueryAndLookup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Len(t, e.svc.Items(ctx, ""), 4)
	oled := e.svc.Items(ctx, "oled")
	require.Len(t, oled, 2)
	assert.Equal(t, "lg-c3", oled[0].ID)
	assert.Len(t, e.svc.Items(ctx, "SONY"), 1)

	it, err := e.svc.Item(ctx, "lg-oled-c3")
	require.NoError(t, err)
	assert.Equal(t, "lg-c3", it.ID)

	_, err = e.svc.Item(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompareUsesSeedCatalog(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	table, err := e.svc.Compare(ctx, []string{"lg-c3", "samsung-s95c"})
	require.NoError(t, err)
	require.Len(t, table.Rows, 7)

	var refresh compare.Row
	for _, r := range table.Rows {
		if r.Field.ID == "refresh_rate" {
			refresh = r
		}
	}
	assert.Equal(t, "samsung-s95c", refresh.BestID)
	assert.True(t, refresh.Differs)

	_, err = e.svc.Compare(ctx, []string{"lg-c3", "samsung-s95c", "sony-a80l", "tcl-c845", "lg-c3x"})
	assert.ErrorIs(t, err, compare.ErrSelectionFull)

	_, err = e.svc.Compare(ctx, []string{"lg-c3", "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertAndDeleteItem(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	saved, err := e.svc.UpsertItem(ctx, models.Item{Name: "Hisense U8 Mini LED", Specs: models.Specs{"refresh_rate": models.Number(144)}})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, "hisense-u8-mini-led", saved.Slug)
	assert.Equal(t, "Unknown", saved.Brand)
	assert.Len(t, e.svc.Items(ctx, ""), 5)

	saved.Brand = "Hisense"
	_, err = e.svc.UpsertItem(ctx, saved)
	require.NoError(t, err)
	assert.Len(t, e.svc.Items(ctx, "hisense"), 1)

	require.NoError(t, e.svc.DeleteItem(ctx, saved.ID))
	assert.Len(t, e.svc.Items(ctx, ""), 4)
	assert.ErrorIs(t, e.svc.DeleteItem(ctx, saved.ID), ErrNotFound)

	_, err = e.svc.UpsertItem(ctx, models.Item{Name: "Bad", Specs: models.Specs{"refresh_rate": models.String("fast")}})
	assert.ErrorIs(t, err, models.ErrInvalid)
}

func TestUpsertAndDeleteField(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	f, err := e.svc.UpsertField(ctx, models.Field{Label: "Input lag", Type: models.FieldNumber, Unit: "ms", ComparisonRule: models.RuleLowerIsBetter})
	require.NoError(t, err)
	assert.Regexp(t, `^f_[0-9a-f]{6}$`, f.ID)
	assert.Equal(t, 8, f.Order)
	assert.Len(t, e.svc.Fields(ctx), 8)

	require.NoError(t, e.svc.DeleteField(ctx, f.ID))
	assert.Len(t, e.svc.Fields(ctx), 7)
	assert.ErrorIs(t, e.svc.DeleteField(ctx, f.ID), ErrNotFound)
}

func TestDisconnectClearsConfig(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.Connect(ctx, "mem://remote", "key")
	require.NoError(t, err)

	require.NoError(t, e.svc.Disconnect(ctx))
	assert.Equal(t, cloud.StateDisconnected, e.svc.CloudStatus(ctx).State)
	cfg, _ := e.local.LoadRemoteConfig(ctx)
	assert.Nil(t, cfg)
	assert.Contains(t, e.events.types(), livesync.EventCloudState)

	err = e.svc.SyncNow(ctx)
	assert.ErrorIs(t, err, cloud.ErrDisconnected)
}
