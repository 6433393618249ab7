package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/stretchr/testify/require"

	"rocktheauction/internal/config"
	"rocktheauction/internal/domain"
	"rocktheauction/internal/http/handlers"
	applog "rocktheauction/internal/log"
	"rocktheauction/internal/repos"
)

const (
	adminEmail    = "admin@rocktheauction.test"
	adminPassword = "Passw0rd!"
)

// newTestApp wires the real routes against an in-memory database.
func newTestApp(t *testing.T) (*fiber.App, *handlers.Deps) {
	t.Helper()
	cfg := config.Default()
	cfg.DBDSN = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.CacheSize = 16
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	deps := handlers.NewDeps(db, cfg, nil, nil)
	require.NoError(t, deps.Auth.EnsureAdmin(t.Context(), adminEmail, adminPassword))

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler, BodyLimit: 1 << 20})
	app.Use(requestid.New())
	handlers.Register(app, deps)
	return app, deps
}

func adminToken(t *testing.T, app *fiber.App) string {
	t.Helper()
	status, body := call(t, app, "POST", "/auth/login", map[string]any{"email": adminEmail, "password": adminPassword}, "")
	require.Equal(t, fiber.StatusOK, status, body)
	tok, _ := body["token"].(string)
	require.NotEmpty(t, tok)
	return tok
}

func userToken(t *testing.T, deps *handlers.Deps) string {
	t.Helper()
	tok, err := deps.Auth.IssueToken(&domain.User{ID: "u-alice", Email: "alice@example.com", Role: domain.RoleUser})
	require.NoError(t, err)
	return tok
}

// call sends a JSON request and decodes the JSON response envelope.
func call(t *testing.T, app *fiber.App, method, path string, body any, token string) (int, map[string]any) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out := map[string]any{}
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	Kind   string         `json:"kind"`
	Fields map[string]any `json:"fields"`
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// captureLogs redirects the process logger while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	lw := &lockedWriter{w: &bytes.Buffer{}}
	applog.SetOutput(lw)
	defer applog.SetOutput(os.Stdout)

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(lw.w.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

func hasAction(entries []logEntry, action string) bool {
	for _, e := range entries {
		if e.Action == action {
			return true
		}
	}
	return false
}
