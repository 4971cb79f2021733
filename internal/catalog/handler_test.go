package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvcompare/internal/ai"
	"tvcompare/pkg/models"
)

type stubSummarizer struct {
	got []models.Item
}

func (s *stubSummarizer) Summarize(ctx context.Context, fields []models.Field, items []models.Item) (*ai.Comparison, error) {
	s.got = items
	return &ai.Comparison{Summary: "ok", Verdict: "tcl"}, nil
}

func newRouter(e *env, summarizer Summarizer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(e.svc, summarizer, nil)
	h.RegisterRoutes(r.Group(""))
	h.RegisterAdminRoutes(r.Group("/admin"))
	return r
}

func serve(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerReadRoutes(t *testing.T) {
	r := newRouter(newEnv(t), nil)

	w := serve(r, http.MethodGet, "/items?q=tcl", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total int           `json:"total"`
		Items []models.Item `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, "tcl-c845", list.Items[0].ID)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/items/sony-a80l", nil).Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/items/ghost", nil).Code)

	w = serve(r, http.MethodPost, "/compare", gin.H{"item_ids": []string{"lg-c3", "tcl-c845"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"best_item_id":"tcl-c845"`)

	w = serve(r, http.MethodPost, "/compare", gin.H{"item_ids": []string{"a", "b", "c", "d", "e"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerSummary(t *testing.T) {
	e := newEnv(t)
	ids := gin.H{"item_ids": []string{"lg-c3", "tcl-c845"}}

	w := serve(newRouter(e, nil), http.MethodPost, "/compare/summary", ids)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	stub := &stubSummarizer{}
	w = serve(newRouter(e, stub), http.MethodPost, "/compare/summary", ids)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summary":"ok","verdict":"tcl"}`, w.Body.String())
	require.Len(t, stub.got, 2)
	assert.Equal(t, "lg-c3", stub.got[0].ID)
}

func TestHandlerAdminWrites(t *testing.T) {
	e := newEnv(t)
	r := newRouter(e, nil)

	w := serve(r, http.MethodPut, "/admin/fields", []models.Field{hz})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, http.MethodPut, "/admin/fields", []models.Field{{ID: "x"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	e.connect(t)
	e.mem.UpsertErr = errors.New("denied")
	w = serve(r, http.MethodPost, "/admin/items", models.Item{Name: "New TV"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"saved_locally":true`)

	items, err := e.local.ReadItems(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 5)

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodDelete, "/admin/items/ghost", nil).Code)
}

func TestHandlerCloudRoutes(t *testing.T) {
	e := newEnv(t)
	r := newRouter(e, nil)

	w := serve(r, http.MethodPost, "/admin/cloud/connect", gin.H{"endpoint": "ftp://x", "credential": "k"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodPost, "/admin/cloud/push", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"saved_locally":true`)

	w = serve(r, http.MethodPost, "/admin/cloud/connect", gin.H{"endpoint": "mem://remote", "credential": "k"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"outcome":"bootstrapped"`)

	w = serve(r, http.MethodGet, "/admin/cloud", nil)
	assert.Contains(t, w.Body.String(), `"state":"connected"`)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/admin/cloud/test", nil).Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/admin/cloud/push", nil).Code)

	w = serve(r, http.MethodGet, "/admin/cloud/setup-sql", nil)
	assert.Contains(t, w.Body.String(), "app_data")

	assert.Equal(t, http.StatusOK, serve(r, http.MethodDelete, "/admin/cloud", nil).Code)
	assert.False(t, e.client.Connected())
}
