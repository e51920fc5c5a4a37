package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PancyStudios/PancyGuardGo/pkg/database/sqlite"
	"github.com/PancyStudios/PancyGuardGo/pkg/models"
	"github.com/PancyStudios/PancyGuardGo/pkg/ratelimit"
	"github.com/PancyStudios/PancyGuardGo/pkg/security"
)

const testToken = "s3cret"

type fakeBot struct{ ready bool }

func (b fakeBot) IsReady() bool   { return b.ready }
func (b fakeBot) GuildCount() int { return 7 }

func newTestServer(t *testing.T, opts Options) (*Server, API) {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	s, err := NewServer(opts)
	require.NoError(t, err)
	api := API{
		Admin:   security.NewAdmin(store, store),
		Limiter: ratelimit.NewLimiter(ratelimit.NewMemStore(), 4),
		Store:   store,
		Bot:     fakeBot{ready: true},
		Stream:  NewHub(),
	}
	SetupAPIRoutes(s, api)
	return s, api
}

func do(s *Server, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestPublicRoutes(t *testing.T) {
	s, _ := newTestServer(t, Options{AdminToken: testToken})

	w := do(s, http.MethodGet, "/api/health", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/api/status", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	var status struct {
		Database struct {
			Status   string `json:"status"`
			IsOnline bool   `json:"isOnline"`
		} `json:"database"`
		StreamClients int `json:"streamClients"`
	}
	decode(t, w, &status)
	assert.Equal(t, "Conectada", status.Database.Status)
	assert.True(t, status.Database.IsOnline)
	assert.Zero(t, status.StreamClients)

	w = do(s, http.MethodGet, "/api/bot", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"guilds":7`)

	w = do(s, http.MethodGet, "/metrics", "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/nope", "", false)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodPost, "/api/health", "", false)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestBotOffline(t *testing.T) {
	s, err := NewServer(Options{})
	require.NoError(t, err)
	SetupAPIRoutes(s, API{Bot: fakeBot{ready: false}})

	w := do(s, http.MethodGet, "/api/bot", "", false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(s, http.MethodGet, "/api/status", "", false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Sin configurar")
}

func TestAdminAuth(t *testing.T) {
	s, _ := newTestServer(t, Options{AdminToken: testToken})

	w := do(s, http.MethodGet, "/api/guilds/g1/security", "", false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/guilds/g1/security", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	w = do(s, http.MethodGet, "/api/guilds/g1/security?token="+testToken, "", false)
	assert.Equal(t, http.StatusOK, w.Code)

	disabled, _ := newTestServer(t, Options{})
	w = do(disabled, http.MethodGet, "/api/guilds/g1/security", "", true)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHostFilter(t *testing.T) {
	s, err := NewServer(Options{AllowedHosts: `^guard\.example\.org$`})
	require.NoError(t, err)
	SetupAPIRoutes(s, API{})

	w := do(s, http.MethodGet, "/api/health", "", false)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Host = "guard.example.org"
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err = NewServer(Options{AllowedHosts: "("})
	assert.Error(t, err)
}

func TestRateLimit(t *testing.T) {
	s, err := NewServer(Options{RequestsPerMinute: 2})
	require.NoError(t, err)
	SetupAPIRoutes(s, API{})

	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/health", "", false).Code)
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/api/health", "", false).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(s, http.MethodGet, "/api/health", "", false).Code)
}

func TestIPLimiterEvictsIdleVisitors(t *testing.T) {
	l := newIPLimiter(1)
	now := time.Now()
	require.True(t, l.allow("1.1.1.1", now))
	require.False(t, l.allow("1.1.1.1", now))

	later := now.Add(visitorIdle + 2*time.Minute)
	assert.True(t, l.allow("2.2.2.2", later))
	assert.NotContains(t, l.visitors, "1.1.1.1")
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "{}", redactToken(""))
	assert.Equal(t, "guild=1&token=***", redactToken("guild=1&token=abc"))
}

func TestSecurityConfigFlow(t *testing.T) {
	s, _ := newTestServer(t, Options{AdminToken: testToken})

	w := do(s, http.MethodGet, "/api/guilds/g1/security/ban", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(s, http.MethodPost, "/api/guilds/g1/security/setup", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Configs []models.SecurityConfig `json:"configs"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Configs, len(models.Categories))

	w = do(s, http.MethodPatch, "/api/guilds/g1/security/ban",
		`{"enabled":true,"punishment":"ban","max_violations":5,"add_members":["u1"]}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	var cfg models.SecurityConfig
	decode(t, w, &cfg)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, models.PunishmentBan, cfg.Punishment)
	assert.Equal(t, 5, cfg.MaxViolations)
	assert.Equal(t, []string{"u1"}, cfg.WhitelistedMembers)

	w = do(s, http.MethodPut, "/api/guilds/g1/security/logsink", `{"channel_id":"c9"}`, true)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(s, http.MethodGet, "/api/guilds/g1/security/kick", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &cfg)
	assert.Equal(t, "c9", cfg.LogSink)
}

func TestSecurityConfigValidation(t *testing.T) {
	s, _ := newTestServer(t, Options{AdminToken: testToken})
	require.Equal(t, http.StatusOK, do(s, http.MethodPost, "/api/guilds/g1/security/setup", "", true).Code)

	cases := map[string]struct {
		path string
		body string
	}{
		"unknown category": {"/api/guilds/g1/security/nuke", `{"enabled":true}`},
		"bad punishment":   {"/api/guilds/g1/security/ban", `{"punishment":"jail"}`},
		"max too high":     {"/api/guilds/g1/security/ban", `{"max_violations":101}`},
		"max zero":         {"/api/guilds/g1/security/ban", `{"max_violations":0}`},
		"empty id":         {"/api/guilds/g1/security/ban", `{"add_roles":[""]}`},
		"malformed":        {"/api/guilds/g1/security/ban", `{"enabled":`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(s, http.MethodPatch, tc.path, tc.body, true)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	// rejected patches leave the row untouched
	w := do(s, http.MethodGet, "/api/guilds/g1/security/ban", "", true)
	var cfg models.SecurityConfig
	decode(t, w, &cfg)
	assert.Equal(t, models.DefaultMaxViolations, cfg.MaxViolations)
	assert.Equal(t, models.DefaultPunishment, cfg.Punishment)

	w = do(s, http.MethodPut, "/api/guilds/g1/security/logsink", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestViolationRoutes(t *testing.T) {
	s, api := newTestServer(t, Options{AdminToken: testToken})
	ctx := context.Background()

	w := do(s, http.MethodGet, "/api/guilds/g1/violations/u1/ban", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)

	ledger := api.Store.(*sqlite.Store)
	_, err := ledger.RecordViolation(ctx, "g1", "u1", models.CategoryBan)
	require.NoError(t, err)
	_, err = ledger.RecordViolation(ctx, "g1", "u1", models.CategoryBan)
	require.NoError(t, err)

	w = do(s, http.MethodGet, "/api/guilds/g1/violations/u1/ban", "", true)
	assert.Contains(t, w.Body.String(), `"count":2`)

	w = do(s, http.MethodDelete, "/api/guilds/g1/violations/u1/ban", "", true)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(s, http.MethodGet, "/api/guilds/g1/violations/u1/ban", "", true)
	assert.Contains(t, w.Body.String(), `"count":0`)

	w = do(s, http.MethodGet, "/api/guilds/g1/violations/u1/nuke", "", true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuotaRoute(t *testing.T) {
	s, api := newTestServer(t, Options{AdminToken: testToken})
	_, err := api.Limiter.TryConsume(context.Background(), "g1", "mod", "ban")
	require.NoError(t, err)

	w := do(s, http.MethodGet, "/api/guilds/g1/quota/mod/ban", "", true)
	require.Equal(t, http.StatusOK, w.Code)
	var res ratelimit.Result
	decode(t, w, &res)
	assert.Equal(t, 1, res.Used)
	assert.Equal(t, 3, res.Remaining)

	noQuota, err := NewServer(Options{AdminToken: testToken})
	require.NoError(t, err)
	SetupAPIRoutes(noQuota, API{Admin: api.Admin})
	w = do(noQuota, http.MethodGet, "/api/guilds/g1/quota/mod/ban", "", true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSecurityStream(t *testing.T) {
	s, api := newTestServer(t, Options{AdminToken: testToken})
	ts := httptest.NewServer(s.Engine())
	defer ts.Close()
	defer api.Stream.Shutdown()

	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/security/stream"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"?guild=g1&token="+testToken, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return api.Stream.Count() == 1 }, time.Second, 10*time.Millisecond)

	ctx := context.Background()
	require.NoError(t, api.Stream.Emit(ctx, security.LogRecord{TenantID: "other", Category: models.CategoryBan}))
	require.NoError(t, api.Stream.Emit(ctx, security.LogRecord{
		TenantID:  "g1",
		Category:  models.CategoryKick,
		SubjectID: "u1",
		Count:     3,
		Max:       3,
		Outcome:   "punished",
		Success:   true,
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev StreamEvent
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "security", ev.Type)
	assert.Equal(t, "g1", ev.Record.TenantID)
	assert.Equal(t, models.CategoryKick, ev.Record.Category)

	conn.Close()
	assert.Eventually(t, func() bool { return api.Stream.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}
