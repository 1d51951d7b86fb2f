package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"bakery/internal/config"
	"bakery/internal/http/handlers"
	"bakery/internal/repos"
	"bakery/internal/services"
)

// recordingDeliverer stands in for the notification dispatcher.
type recordingDeliverer struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (d *recordingDeliverer) Deliver(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
	return d.err
}

func (d *recordingDeliverer) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ids)
}

type testApp struct {
	app   *fiber.App
	db    *sqlx.DB
	users *repos.UserRepo
	auth  *services.AuthService
	mail  *recordingDeliverer
}

func newTestApp(t *testing.T, loginMax int) *testApp {
	t.Helper()
	return newTestAppWith(t, func(cfg *config.Config) { cfg.LoginLimit = loginMax })
}

// newTestAppWith builds the production app over an in-memory database;
// tune adjusts the test defaults before wiring.
func newTestAppWith(t *testing.T, tune func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Defaults()
	cfg.DBDSN = ":memory:"
	cfg.TemplatesDir = "../../web/templates"
	cfg.StaticDir = "../../web/static"
	cfg.CurrencySymbol = "Rs."
	cfg.RateLimit = 0
	cfg.LoginLimit = 0
	cfg.LoginWindow = time.Minute
	if tune != nil {
		tune(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	userRepo := repos.NewUserRepo(db)
	authSvc := services.NewAuthService(userRepo, "test-secret", time.Hour, bcrypt.MinCost)
	mail := &recordingDeliverer{}
	deps := handlers.NewDeps(db, cfg, authSvc, mail)

	app := handlers.NewApp(cfg, deps)

	return &testApp{app: app, db: db, users: userRepo, auth: authSvc, mail: mail}
}

func cookieValue(resp *http.Response, name string) string {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func (ta *testApp) csrfToken(t *testing.T) string {
	t.Helper()
	resp, err := ta.app.Test(httptest.NewRequest("GET", "/login", nil))
	if err != nil {
		t.Fatal(err)
	}
	tok := cookieValue(resp, "csrf_")
	if tok == "" {
		t.Fatal("csrf token missing")
	}
	return tok
}

// session binds a fresh sid to userID; an empty userID yields an anonymous sid.
func (ta *testApp) session(t *testing.T, sid, userID string) string {
	t.Helper()
	if userID != "" {
		if err := ta.users.BindSession(context.Background(), sid, userID); err != nil {
			t.Fatalf("bind session: %v", err)
		}
	}
	return sid
}

// post sends a CSRF-protected form with the given session.
func (ta *testApp) post(t *testing.T, path, sid string, form url.Values) *http.Response {
	t.Helper()
	tok := ta.csrfToken(t)
	if form == nil {
		form = url.Values{}
	}
	form.Set("csrf", tok)
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: "csrf_", Value: tok})
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (ta *testApp) get(t *testing.T, path, sid string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

type logEntry struct {
	Level  string         `json:"level"`
	Action string         `json:"action"`
	UserID string         `json:"user_id"`
	Fields map[string]any `json:"fields"`
}

// captureLogs swaps the standard logger output while fn runs.
func captureLogs(t *testing.T, fn func()) []logEntry {
	t.Helper()
	var buf bytes.Buffer
	var mu sync.Mutex
	oldW := log.Writer()
	oldFlags := log.Flags()
	log.SetOutput(&lockedWriter{w: &buf, mu: &mu})
	log.SetFlags(0)
	defer func() {
		log.SetOutput(oldW)
		log.SetFlags(oldFlags)
	}()

	fn()

	var entries []logEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var e logEntry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &e); err == nil {
			entries = append(entries, e)
		}
	}
	return entries
}

type lockedWriter struct {
	w  *bytes.Buffer
	mu *sync.Mutex
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

func hasAction(entries []logEntry, action string) bool {
	for _, e := range entries {
		if e.Action == action {
			return true
		}
	}
	return false
}
