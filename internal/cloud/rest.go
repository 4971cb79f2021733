package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tvcompare/pkg/models"
)

// restBackend speaks the PostgREST dialect served by Supabase under /rest/v1.
type restBackend struct {
	base   string
	apiKey string
	http   *http.Client
}

func DialREST(endpoint, credential string) (Backend, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: endpoint has no host", ErrConfigurationInvalid)
	}
	base := strings.TrimRight(u.String(), "/")
	if !strings.HasSuffix(base, "/rest/v1") {
		base += "/rest/v1"
	}
	return &restBackend{
		base:   base,
		apiKey: credential,
		http:   &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type restError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type restRow struct {
	ID      int                  `json:"id"`
	Payload *models.SyncDocument `json:"payload,omitempty"`
}

func (b *restBackend) Probe(ctx context.Context) (bool, error) {
	var rows []restRow
	if err := b.do(ctx, http.MethodGet, fmt.Sprintf("select=id&id=eq.%d", DocumentID), nil, "", &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (b *restBackend) Fetch(ctx context.Context) (*models.SyncDocument, error) {
	var rows []restRow
	if err := b.do(ctx, http.MethodGet, fmt.Sprintf("select=id,payload&id=eq.%d", DocumentID), nil, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 || rows[0].Payload == nil {
		return nil, ErrNoDocument
	}
	return rows[0].Payload, nil
}

func (b *restBackend) Upsert(ctx context.Context, doc models.SyncDocument) error {
	body := []restRow{{ID: DocumentID, Payload: &doc}}
	return b.do(ctx, http.MethodPost, "on_conflict=id", body, "resolution=merge-duplicates,return=minimal", nil)
}

func (b *restBackend) Insert(ctx context.Context, doc models.SyncDocument) error {
	body := []restRow{{ID: DocumentID, Payload: &doc}}
	return b.do(ctx, http.MethodPost, "on_conflict=id", body, "resolution=ignore-duplicates,return=minimal", nil)
}

func (b *restBackend) Close() error {
	b.http.CloseIdleConnections()
	return nil
}

func (b *restBackend) do(ctx context.Context, method, query string, body any, prefer string, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.base+"/app_data?"+query, rd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	req.Header.Set("apikey", b.apiKey)
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrConnectivity, err)
	}

	if resp.StatusCode >= 300 {
		return classifyREST(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func classifyREST(status int, raw []byte) error {
	var re restError
	_ = json.Unmarshal(raw, &re)

	msg := re.Message
	if msg == "" {
		msg = strings.TrimSpace(string(raw))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case re.Code == pgUndefinedTable || re.Code == "PGRST205":
		return fmt.Errorf("%w: %s", ErrSchemaMissing, msg)
	case strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"):
		return fmt.Errorf("%w: %s", ErrSchemaMissing, msg)
	}
	return fmt.Errorf("%w: %d %s", ErrConnectivity, status, msg)
}
