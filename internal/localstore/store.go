package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"tvcompare/pkg/models"
)

const (
	KeyFields            = "fields"
	KeyItems             = "items"
	KeyRemoteConfig      = "remote_config"
	KeyAdminCredential   = "admin_credential"
	KeyAdminTokenVersion = "admin_token_version"
	KeyLastSyncTime      = "last_sync_time"
)

var (
	// ErrMissing means the key has never been written (or was cleared).
	ErrMissing = errors.New("local key missing")
	// ErrMalformed means the stored value could not be decoded. Callers treat it
	// like a miss.
	ErrMalformed = errors.New("local value malformed")
)

// kv is the subset of Repo the store reads and writes through.
type kv interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store is the typed view over the key/value table. Every write replaces the
// whole value for its key; there are no partial updates.
type Store struct {
	repo kv
	log  *zap.Logger
}

func New(db *sql.DB, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{repo: NewRepo(db), log: log.Named("localstore")}
}

func (s *Store) readJSON(ctx context.Context, key string, dst any) error {
	raw, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrMissing
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
	}
	return nil
}

func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.repo.Put(ctx, key, string(b))
}

// ReadFields returns the cached field collection, ErrMissing or ErrMalformed.
func (s *Store) ReadFields(ctx context.Context) ([]models.Field, error) {
	var fields []models.Field
	if err := s.readJSON(ctx, KeyFields, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: %s is null", ErrMalformed, KeyFields)
	}
	return fields, nil
}

func (s *Store) ReadItems(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	if err := s.readJSON(ctx, KeyItems, &items); err != nil {
		return nil, err
	}
	if items == nil {
		return nil, fmt.Errorf("%w: %s is null", ErrMalformed, KeyItems)
	}
	return items, nil
}

// Fields returns the cached fields, falling back to the seed when the cache
// is missing or unreadable. Only a missing or malformed value is overwritten
// with the seed; any other read error leaves the stored value alone.
// seeded reports the fallback.
func (s *Store) Fields(ctx context.Context) (fields []models.Field, seeded bool) {
	fields, err := s.ReadFields(ctx)
	if err == nil {
		return fields, false
	}
	fields = Seed().Fields
	if s.shouldReseed(KeyFields, err) {
		if err := s.SaveFields(ctx, fields); err != nil {
			s.log.Warn("write seed fields", zap.Error(err))
		}
	}
	return fields, true
}

func (s *Store) Items(ctx context.Context) (items []models.Item, seeded bool) {
	items, err := s.ReadItems(ctx)
	if err == nil {
		return items, false
	}
	items = Seed().Items
	if s.shouldReseed(KeyItems, err) {
		if err := s.SaveItems(ctx, items); err != nil {
			s.log.Warn("write seed items", zap.Error(err))
		}
	}
	return items, true
}

func (s *Store) shouldReseed(key string, err error) bool {
	switch {
	case errors.Is(err, ErrMissing):
		return true
	case errors.Is(err, ErrMalformed):
		s.log.Warn("local value malformed, reseeding", zap.String("key", key), zap.Error(err))
		return true
	default:
		s.log.Warn("local read failed, serving seed", zap.String("key", key), zap.Error(err))
		return false
	}
}

func (s *Store) SaveFields(ctx context.Context, fields []models.Field) error {
	if fields == nil {
		fields = []models.Field{}
	}
	return s.writeJSON(ctx, KeyFields, fields)
}

func (s *Store) SaveItems(ctx context.Context, items []models.Item) error {
	if items == nil {
		items = []models.Item{}
	}
	return s.writeJSON(ctx, KeyItems, items)
}

// LoadRemoteConfig returns (nil, nil) when nothing is configured.
func (s *Store) LoadRemoteConfig(ctx context.Context) (*models.RemoteConfig, error) {
	var cfg models.RemoteConfig
	err := s.readJSON(ctx, KeyRemoteConfig, &cfg)
	if errors.Is(err, ErrMissing) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (s *Store) SaveRemoteConfig(ctx context.Context, cfg models.RemoteConfig) error {
	return s.writeJSON(ctx, KeyRemoteConfig, cfg)
}

func (s *Store) ClearRemoteConfig(ctx context.Context) error {
	return s.repo.Delete(ctx, KeyRemoteConfig)
}

// AdminCredentialHash returns ErrMissing until a hash has been stored.
func (s *Store) AdminCredentialHash(ctx context.Context) (string, error) {
	v, ok, err := s.repo.Get(ctx, KeyAdminCredential)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrMissing
	}
	return v, nil
}

func (s *Store) SetAdminCredentialHash(ctx context.Context, hash string) error {
	return s.repo.Put(ctx, KeyAdminCredential, hash)
}

// TokenVersion is 0 until the first logout or password change.
func (s *Store) TokenVersion(ctx context.Context) (int, error) {
	v, ok, err := s.repo.Get(ctx, KeyAdminTokenVersion)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformed, KeyAdminTokenVersion, err)
	}
	return n, nil
}

// BumpTokenVersion invalidates every token issued so far.
func (s *Store) BumpTokenVersion(ctx context.Context) (int, error) {
	cur, err := s.TokenVersion(ctx)
	if err != nil && !errors.Is(err, ErrMalformed) {
		return 0, err
	}
	next := cur + 1
	if err := s.repo.Put(ctx, KeyAdminTokenVersion, strconv.Itoa(next)); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) LastSyncTime(ctx context.Context) (time.Time, bool) {
	v, ok, err := s.repo.Get(ctx, KeyLastSyncTime)
	if err != nil || !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (s *Store) SetLastSyncTime(ctx context.Context, t time.Time) error {
	return s.repo.Put(ctx, KeyLastSyncTime, t.UTC().Format(time.RFC3339Nano))
}
