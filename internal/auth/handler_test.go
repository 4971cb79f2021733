package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"tvcompare/internal/localstore"
	"tvcompare/pkg/database"
)

type fixture struct {
	repo   *Repo
	router *gin.Engine
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "data.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := NewRepo(localstore.New(db, nil), "admin")
	repo.Cost = bcrypt.MinCost
	tokens := TokenService{Secret: []byte("test"), Issuer: "tvcompare", Duration: time.Hour}
	h := NewHandler(repo, tokens, nil)

	r := gin.New()
	h.RegisterRoutes(r.Group("/auth"))
	r.GET("/admin/ping", h.Middleware(), func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return fixture{repo: repo, router: r}
}

func (f fixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f fixture) login(t *testing.T, password string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/auth/login", "", gin.H{"password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestLoginWithDefaultPassword(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/auth/login", "", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := f.login(t, "admin")
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/admin/ping", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/admin/ping", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/admin/ping", "garbage", nil).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "admin")

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/admin/ping", token, nil).Code)
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	token := f.login(t, "admin")

	cases := []struct {
		name string
		body gin.H
		code int
	}{
		{"wrong current", gin.H{"current_password": "nope", "new_password": "abcd", "confirm_password": "abcd"}, http.StatusUnauthorized},
		{"too short", gin.H{"current_password": "admin", "new_password": "abc", "confirm_password": "abc"}, http.StatusBadRequest},
		{"mismatch", gin.H{"current_password": "admin", "new_password": "abcd", "confirm_password": "abce"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/auth/change-password", token, tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())
		})
	}

	w := f.do(t, http.MethodPost, "/auth/change-password", token,
		gin.H{"current_password": "admin", "new_password": "s3cret", "confirm_password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/admin/ping", token, nil).Code, "old token revoked")
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/auth/login", "", gin.H{"password": "admin"}).Code)
	f.login(t, "s3cret")
}

func TestTokenServiceRejectsForeignIssuer(t *testing.T) {
	a := TokenService{Secret: []byte("k"), Issuer: "a", Duration: time.Minute}
	b := TokenService{Secret: []byte("k"), Issuer: "b", Duration: time.Minute}
	tok, _, err := a.Sign(0)
	require.NoError(t, err)
	_, err = b.Parse(tok)
	assert.Error(t, err)

	claims, err := a.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, 0, claims.TokenVersion)
}

func TestVerifyStoresDefaultHashOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.repo.Verify(ctx, "admin")
	require.NoError(t, err)
	h1, err := f.repo.Store.AdminCredentialHash(ctx)
	require.NoError(t, err)

	_, err = f.repo.Verify(ctx, "admin")
	require.NoError(t, err)
	h2, _ := f.repo.Store.AdminCredentialHash(ctx)
	assert.Equal(t, h1, h2)
}
