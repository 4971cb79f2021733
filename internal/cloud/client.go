package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tvcompare/pkg/models"
)

// ConfigStore persists the remote configuration between runs.
type ConfigStore interface {
	LoadRemoteConfig(ctx context.Context) (*models.RemoteConfig, error)
	SaveRemoteConfig(ctx context.Context, cfg models.RemoteConfig) error
	ClearRemoteConfig(ctx context.Context) error
}

type Outcome string

const (
	OutcomeOK           Outcome = "ok"
	OutcomeBootstrapped Outcome = "bootstrapped"
	OutcomeFailed       Outcome = "failed"
)

// Diagnostic is the result of a connectivity test, phrased for an operator.
type Diagnostic struct {
	Outcome Outcome `json:"outcome"`
	Message string  `json:"message"`
	Err     error   `json:"-"`
}

func (d Diagnostic) OK() bool { return d.Outcome != OutcomeFailed }

type Option func(*Client)

// WithDialer registers (or replaces) the backend used for an endpoint scheme.
func WithDialer(scheme string, d Dialer) Option {
	return func(c *Client) { c.dialers[strings.ToLower(scheme)] = d }
}

// WithTimeout bounds every remote call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// Client owns the connection lifecycle to the remote store:
// disconnected -> configuring -> connected -> disconnected.
// Nothing retries on its own.
type Client struct {
	mu       sync.Mutex
	store    ConfigStore
	dialers  map[string]Dialer
	log      *zap.Logger
	timeout  time.Duration
	now      func() time.Time
	state    State
	backend  Backend
	endpoint string
}

func New(store ConfigStore, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Client{
		store:   store,
		dialers: defaultDialers(),
		log:     log.Named("cloud"),
		timeout: 15 * time.Second,
		now:     time.Now,
		state:   StateDisconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Connected() bool { return c.State() == StateConnected }

// Endpoint is the configured endpoint, empty while disconnected.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// Configure validates the endpoint, persists it and becomes connected
// optimistically. No network traffic happens here; use TestConnectivity.
// An invalid configuration leaves state and persisted config untouched.
func (c *Client) Configure(ctx context.Context, endpoint, credential string) error {
	endpoint = strings.TrimSpace(endpoint)
	credential = strings.TrimSpace(credential)

	dial, err := c.dialerFor(endpoint, credential)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, dial, models.RemoteConfig{Endpoint: endpoint, Credential: credential}, true)
}

// Restore reconnects from the persisted configuration, if any. A stored
// configuration that no longer validates is cleared.
func (c *Client) Restore(ctx context.Context) error {
	cfg, err := c.store.LoadRemoteConfig(ctx)
	if err != nil {
		c.log.Warn("stored remote config unreadable, clearing", zap.Error(err))
		return c.store.ClearRemoteConfig(ctx)
	}
	if cfg == nil {
		return nil
	}

	dial, err := c.dialerFor(cfg.Endpoint, cfg.Credential)
	if err != nil {
		c.log.Warn("stored remote config invalid, clearing", zap.Error(err))
		return c.store.ClearRemoteConfig(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(ctx, dial, *cfg, false); err != nil {
		c.log.Warn("restore remote connection", zap.Error(err))
		return c.store.ClearRemoteConfig(ctx)
	}
	c.log.Info("remote connection restored", zap.String("endpoint", cfg.Endpoint))
	return nil
}

// connectLocked dials and persists the new configuration before touching
// the current connection, so any failure leaves state, backend and stored
// config as they were.
func (c *Client) connectLocked(ctx context.Context, dial Dialer, cfg models.RemoteConfig, persist bool) error {
	backend, err := dial(cfg.Endpoint, cfg.Credential)
	if err != nil {
		if !errors.Is(err, ErrConfigurationInvalid) {
			err = fmt.Errorf("%w: %w", ErrConfigurationInvalid, err)
		}
		return err
	}

	if persist {
		if err := c.store.SaveRemoteConfig(ctx, cfg); err != nil {
			_ = backend.Close()
			return fmt.Errorf("save remote config: %w", err)
		}
	}

	c.closeLocked()
	c.backend = backend
	c.endpoint = cfg.Endpoint
	c.state = StateConnected
	return nil
}

// Disconnect drops the handle and forgets the persisted configuration.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.closeLocked()
	c.mu.Unlock()

	if err := c.store.ClearRemoteConfig(ctx); err != nil {
		return fmt.Errorf("clear remote config: %w", err)
	}
	return nil
}

// Close releases the backend handle but keeps the persisted configuration,
// so the next Restore reconnects.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.backend != nil {
		if err := c.backend.Close(); err != nil {
			c.log.Debug("close backend", zap.Error(err))
		}
	}
	c.backend = nil
	c.endpoint = ""
	c.state = StateDisconnected
}

func (c *Client) dialerFor(endpoint, credential string) (Dialer, error) {
	if credential == "" {
		return nil, fmt.Errorf("%w: credential is required", ErrConfigurationInvalid)
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint must be an absolute URL", ErrConfigurationInvalid)
	}
	d, ok := c.dialers[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrConfigurationInvalid, u.Scheme)
	}
	return d, nil
}

func (c *Client) current() Backend {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.backend
}

// TestConnectivity probes the remote record. A reachable store without the
// record is bootstrapped once with an empty document.
func (c *Client) TestConnectivity(ctx context.Context) Diagnostic {
	b := c.current()
	if b == nil {
		return Diagnostic{Outcome: OutcomeFailed, Message: "not connected to a remote store", Err: ErrDisconnected}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	exists, err := b.Probe(ctx)
	if err != nil {
		return failed(err)
	}
	if exists {
		return Diagnostic{Outcome: OutcomeOK, Message: "connection successful"}
	}

	if err := b.Insert(ctx, models.EmptyDocument(c.now())); err != nil {
		return failed(err)
	}
	c.log.Info("remote document bootstrapped")
	return Diagnostic{Outcome: OutcomeBootstrapped, Message: "connection successful, remote document created"}
}

func failed(err error) Diagnostic {
	msg := err.Error()
	if errors.Is(err, ErrSchemaMissing) {
		msg = ErrSchemaMissing.Error()
	}
	return Diagnostic{Outcome: OutcomeFailed, Message: msg, Err: err}
}

// Pull returns the remote document, or nil when disconnected, when the record
// is missing, or on any failure. Failures are logged, never returned.
func (c *Client) Pull(ctx context.Context) *models.SyncDocument {
	b := c.current()
	if b == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	doc, err := b.Fetch(ctx)
	switch {
	case errors.Is(err, ErrNoDocument):
		c.log.Debug("remote document missing")
		return nil
	case err != nil:
		c.log.Warn("pull remote document, using local cache", zap.Error(err))
		return nil
	}
	return doc
}

// Push overwrites the remote record. Errors wrap ErrWriteFailure.
func (c *Client) Push(ctx context.Context, doc models.SyncDocument) error {
	b := c.current()
	if b == nil {
		return fmt.Errorf("%w: %w", ErrWriteFailure, ErrDisconnected)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := b.Upsert(ctx, doc); err != nil {
		c.log.Error("push remote document", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	return nil
}
