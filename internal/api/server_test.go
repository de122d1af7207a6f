package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/talgya/hexgrid/internal/hex"
	"github.com/talgya/hexgrid/internal/persistence"
	"github.com/talgya/hexgrid/internal/world"
)

type foot struct{}

func (foot) Name() string                                       { return "foot" }
func (foot) Speed() int                                         { return 2 }
func (foot) VisionRange() int                                   { return 1 }
func (foot) IsValidDestination(c *world.Cell) bool              { return !c.IsUnderwater() }
func (foot) MoveCost(from, to *world.Cell, d hex.Direction) int { return 1 }

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	g := world.NewGrid(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := g.CreateMap(5, 5, false); err != nil {
		t.Fatalf("CreateMap: %v", err)
	}
	s := &Server{
		Grid:     g,
		MapName:  "test",
		AdminKey: "secret",
		UnitTypes: func(name string) world.UnitType {
			if name == "foot" {
				return foot{}
			}
			return nil
		},
	}
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestStatus(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/v1/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	m := decode(t, rec)
	if m["cells_x"] != 5.0 || m["cells_z"] != 5.0 || m["name"] != "test" {
		t.Errorf("status = %v", m)
	}
}

func TestCellDetail(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/cell/2/2", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body)
	}
	m := decode(t, rec)
	if n := len(m["neighbors"].([]any)); n != 6 {
		t.Errorf("interior cell has %d neighbors, want 6", n)
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/cell/9/0", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("out of range cell code = %d, want 404", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/cell/a/0", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad coordinate code = %d, want 400", rec.Code)
	}
}

func TestPath(t *testing.T) {
	_, h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/v1/path?from=0,0&to=4,0&unit=foot", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body)
	}
	m := decode(t, rec)
	if m["found"] != true {
		t.Fatalf("path not found: %v", m)
	}
	if n := len(m["path"].([]any)); n != 5 {
		t.Errorf("path length = %d, want 5", n)
	}
	if m["turns"] != 2.0 {
		t.Errorf("turns = %v, want 2", m["turns"])
	}

	if rec := do(t, h, http.MethodGet, "/api/v1/path?from=0,0&to=4,0&unit=ghost", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown unit code = %d, want 400", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/api/v1/path?from=00&to=4,0&unit=foot", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad from code = %d, want 400", rec.Code)
	}
}

func TestPathBlocked(t *testing.T) {
	s, h := newTestServer(t)
	for row := 0; row < 5; row++ {
		c, _ := s.Grid.CellByOffset(2, row)
		c.SetWaterLevel(1)
	}

	rec := do(t, h, http.MethodGet, "/api/v1/path?from=0,0&to=4,0&unit=foot", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if m := decode(t, rec); m["found"] != false {
		t.Errorf("found = %v, want false", m["found"])
	}
}

func TestVisibilityRequiresToken(t *testing.T) {
	s, h := newTestServer(t)
	body := `{"col":2,"row":2,"range":1,"delta":1}`

	if rec := do(t, h, http.MethodPost, "/api/v1/visibility", body, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token code = %d, want 401", rec.Code)
	}
	if rec := do(t, h, http.MethodPost, "/api/v1/visibility", body, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token code = %d, want 401", rec.Code)
	}

	rec := do(t, h, http.MethodPost, "/api/v1/visibility", body, "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d: %s", rec.Code, rec.Body)
	}
	if m := decode(t, rec); m["visible_cells"] != 7.0 {
		t.Errorf("visible_cells = %v, want 7", m["visible_cells"])
	}

	rec = do(t, h, http.MethodPost, "/api/v1/reset-visibility", "", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset code = %d", rec.Code)
	}
	c, _ := s.Grid.CellByOffset(2, 2)
	if c.IsVisible() {
		t.Error("cell still visible after reset")
	}
	if !c.IsExplored() {
		t.Error("reset cleared explored flag")
	}
}

func TestVisibilityRejectsBadDelta(t *testing.T) {
	_, h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/v1/visibility", `{"col":2,"row":2,"range":1,"delta":3}`, "secret")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", rec.Code)
	}
}

func TestAdminDisabledWithoutKey(t *testing.T) {
	s, _ := newTestServer(t)
	s.AdminKey = ""
	rec := do(t, s.Handler(), http.MethodPost, "/api/v1/reset-visibility", "", "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %d, want 403", rec.Code)
	}
}

func TestSave(t *testing.T) {
	s, h := newTestServer(t)

	if rec := do(t, h, http.MethodPost, "/api/v1/save", "", "secret"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("no db code = %d, want 503", rec.Code)
	}

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()
	s.DB = db

	rec := do(t, h, http.MethodPost, "/api/v1/save", "", "secret")
	if rec.Code != http.StatusOK {
		t.Fatalf("save code = %d: %s", rec.Code, rec.Body)
	}
	id := decode(t, rec)["id"].(string)
	if id == "" || s.MapID != id {
		t.Errorf("id = %q, server MapID = %q", id, s.MapID)
	}
	maps, err := db.ListMaps()
	if err != nil || len(maps) != 1 {
		t.Fatalf("ListMaps = %v, %v", maps, err)
	}
}

func TestRateLimit(t *testing.T) {
	s, _ := newTestServer(t)
	s.RequestsPerMinute = 2
	h := s.Handler()

	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodGet, "/api/v1/status", "", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d code = %d", i, rec.Code)
		}
	}
	rec := do(t, h, http.MethodGet, "/api/v1/status", "", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("code = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestRateLimiterWindow(t *testing.T) {
	now := time.Unix(1000, 0)
	rl := NewRateLimiter(1, time.Minute)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") {
		t.Fatal("first request denied")
	}
	if rl.Allow("a") {
		t.Fatal("second request allowed")
	}
	if !rl.Allow("b") {
		t.Fatal("other client denied")
	}
	if got := rl.RetryAfter("a"); got != 61 {
		t.Errorf("RetryAfter = %d, want 61", got)
	}
	now = now.Add(time.Minute)
	if !rl.Allow("a") {
		t.Error("request after window denied")
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Errorf("clientIP = %q", got)
	}
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	if got := clientIP(req); got != "1.2.3.4" {
		t.Errorf("clientIP with XFF = %q", got)
	}
}
