// Package api serves a hex grid over HTTP.
// GET endpoints are public and read-only.
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/talgya/hexgrid/internal/hex"
	"github.com/talgya/hexgrid/internal/persistence"
	"github.com/talgya/hexgrid/internal/world"
)

// Server serves the grid over HTTP. The grid is not safe for concurrent
// use, so every handler holds mu while it touches it.
type Server struct {
	Grid      *world.Grid
	DB        *persistence.DB
	UnitTypes func(name string) world.UnitType
	MapID     string
	MapName   string
	Seed      int64
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = POST disabled.

	// RequestsPerMinute limits each client IP. Zero disables limiting.
	RequestsPerMinute int

	mu      sync.Mutex
	started time.Time
}

// Handler builds the routed, rate-limited handler.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}
	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/map", s.handleBulkMap)
	mux.HandleFunc("GET /api/v1/cell/{x}/{z}", s.handleCell)
	mux.HandleFunc("GET /api/v1/units", s.handleUnits)
	mux.HandleFunc("GET /api/v1/path", s.handlePath)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("POST /api/v1/visibility", s.adminOnly(s.handleVisibility))
	mux.HandleFunc("POST /api/v1/reset-visibility", s.adminOnly(s.handleResetVisibility))
	mux.HandleFunc("POST /api/v1/save", s.adminOnly(s.handleSave))

	limiter := NewRateLimiter(s.RequestsPerMinute, time.Minute)
	return corsMiddleware(RateLimitMiddleware(limiter, mux))
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "", "rpm", s.RequestsPerMinute)

	handler := s.Handler()
	go func() {
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no HEXMAP_ADMIN_KEY set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.Grid
	writeJSON(w, map[string]any{
		"map_id":     s.MapID,
		"name":       s.MapName,
		"seed":       s.Seed,
		"cells_x":    g.CellCountX(),
		"cells_z":    g.CellCountZ(),
		"chunks_x":   g.ChunkCountX(),
		"chunks_z":   g.ChunkCountZ(),
		"wrapping":   g.Wrapping(),
		"units":      len(g.Units()),
		"has_path":   g.HasPath(),
		"path_turns": g.PathTurns(),
		"underflows": g.UnderflowCount(),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
	})
}

type cellSummary struct {
	Col        int    `json:"col"`
	Row        int    `json:"row"`
	Elevation  int    `json:"elevation"`
	WaterLevel int    `json:"water_level"`
	Terrain    string `json:"terrain"`
	Explorable bool   `json:"explorable"`
	Explored   bool   `json:"explored"`
	Visibility int    `json:"visibility,omitempty"`
	Roads      bool   `json:"roads,omitempty"`
}

func summarize(c *world.Cell) cellSummary {
	col, row := c.Coordinates().Offset()
	return cellSummary{
		Col:        col,
		Row:        row,
		Elevation:  c.Elevation(),
		WaterLevel: c.WaterLevel(),
		Terrain:    world.TerrainName(c.TerrainTypeIndex()),
		Explorable: c.Explorable(),
		Explored:   c.IsExplored(),
		Visibility: c.Visibility(),
		Roads:      c.HasRoads(),
	}
}

// handleBulkMap returns every cell in index order for map renderers.
func (s *Server) handleBulkMap(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells := make([]cellSummary, 0, s.Grid.CellCount())
	s.Grid.Cells(func(c *world.Cell) {
		cells = append(cells, summarize(c))
	})
	writeJSON(w, map[string]any{
		"cells_x": s.Grid.CellCountX(),
		"cells_z": s.Grid.CellCountZ(),
		"cells":   cells,
	})
}

func (s *Server) handleCell(w http.ResponseWriter, r *http.Request) {
	col, err1 := strconv.Atoi(r.PathValue("x"))
	row, err2 := strconv.Atoi(r.PathValue("z"))
	if err1 != nil || err2 != nil {
		http.Error(w, "invalid coordinates", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Grid.CellByOffset(col, row)
	if err != nil {
		http.Error(w, "cell not found", http.StatusNotFound)
		return
	}

	type neighborInfo struct {
		Direction string `json:"direction"`
		Col       int    `json:"col"`
		Row       int    `json:"row"`
		Edge      string `json:"edge"`
		Road      bool   `json:"road,omitempty"`
	}
	var neighbors []neighborInfo
	for _, d := range hex.Directions {
		n := c.Neighbor(d)
		if n == nil {
			continue
		}
		nc, nr := n.Coordinates().Offset()
		neighbors = append(neighbors, neighborInfo{
			Direction: d.String(),
			Col:       nc,
			Row:       nr,
			Edge:      c.EdgeType(d).String(),
			Road:      c.HasRoadThroughEdge(d),
		})
	}

	var unit *map[string]any
	if u := c.Unit(); u != nil {
		m := map[string]any{
			"id":          u.ID(),
			"name":        u.Name,
			"type":        u.Type.Name(),
			"orientation": u.Orientation(),
		}
		unit = &m
	}

	coord := c.Coordinates()
	writeJSON(w, map[string]any{
		"cell":           summarize(c),
		"index":          c.Index(),
		"chunk":          c.ChunkIndex(),
		"cube":           []int{coord.X, coord.Y(), coord.Z},
		"view_elevation": c.ViewElevation(),
		"underwater":     c.IsUnderwater(),
		"unit":           unit,
		"neighbors":      neighbors,
	})
}

func (s *Server) handleUnits(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type unitInfo struct {
		ID          int     `json:"id"`
		Name        string  `json:"name"`
		Type        string  `json:"type"`
		Col         int     `json:"col"`
		Row         int     `json:"row"`
		Orientation float64 `json:"orientation"`
	}
	units := []unitInfo{}
	for _, u := range s.Grid.Units() {
		col, row := u.Location().Coordinates().Offset()
		units = append(units, unitInfo{
			ID: u.ID(), Name: u.Name, Type: u.Type.Name(),
			Col: col, Row: row, Orientation: u.Orientation(),
		})
	}
	writeJSON(w, units)
}

// parseOffset parses "col,row".
func parseOffset(v string) (int, int, error) {
	a, b, ok := strings.Cut(v, ",")
	if !ok {
		return 0, 0, fmt.Errorf("want col,row, got %q", v)
	}
	col, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil {
		return 0, 0, err
	}
	row, err := strconv.Atoi(strings.TrimSpace(b))
	if err != nil {
		return 0, 0, err
	}
	return col, row, nil
}

// resolveUnit finds a placed unit by name, or makes an unplaced unit of the
// named type. Caller holds mu.
func (s *Server) resolveUnit(name string) *world.Unit {
	for _, u := range s.Grid.Units() {
		if u.Name == name {
			return u
		}
	}
	if s.UnitTypes == nil {
		return nil
	}
	if t := s.UnitTypes(name); t != nil {
		return world.NewUnit(t, "")
	}
	return nil
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	fc, fr, err := parseOffset(q.Get("from"))
	if err != nil {
		http.Error(w, "invalid from: "+err.Error(), http.StatusBadRequest)
		return
	}
	tc, tr, err := parseOffset(q.Get("to"))
	if err != nil {
		http.Error(w, "invalid to: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	unit := s.resolveUnit(q.Get("unit"))
	if unit == nil {
		http.Error(w, "unknown unit or unit type", http.StatusBadRequest)
		return
	}
	from, err1 := s.Grid.CellByOffset(fc, fr)
	to, err2 := s.Grid.CellByOffset(tc, tr)
	if err := errors.Join(err1, err2); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	path, err := s.Grid.FindPath(from, to, unit)
	if errors.Is(err, world.ErrNoPathFound) {
		writeJSON(w, map[string]any{"found": false, "path": []any{}})
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type step struct {
		Col      int `json:"col"`
		Row      int `json:"row"`
		Distance int `json:"distance"`
		Turn     int `json:"turn"`
	}
	steps := make([]step, len(path))
	for i, c := range path {
		col, row := c.Coordinates().Offset()
		steps[i] = step{Col: col, Row: row, Distance: c.Distance(), Turn: s.Grid.Turns(c)}
	}
	writeJSON(w, map[string]any{
		"found": true,
		"unit":  unit.Type.Name(),
		"turns": s.Grid.PathTurns(),
		"path":  steps,
	})
}

type visibilityRequest struct {
	Col   int `json:"col"`
	Row   int `json:"row"`
	Range int `json:"range"`
	Delta int `json:"delta"`
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Delta != 1 && req.Delta != -1 {
		http.Error(w, "delta must be 1 or -1", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.Grid.CellByOffset(req.Col, req.Row)
	if err != nil {
		http.Error(w, "cell not found", http.StatusNotFound)
		return
	}
	if req.Delta > 0 {
		s.Grid.IncreaseVisibility(c, req.Range)
	} else {
		s.Grid.DecreaseVisibility(c, req.Range)
	}
	chunks := s.Grid.Refresh()

	visible := 0
	s.Grid.Cells(func(c *world.Cell) {
		if c.IsVisible() {
			visible++
		}
	})
	writeJSON(w, map[string]any{
		"visible_cells": visible,
		"dirty_chunks":  len(chunks),
		"underflows":    s.Grid.UnderflowCount(),
	})
}

func (s *Server) handleResetVisibility(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Grid.ResetVisibility()
	s.Grid.Refresh()
	writeJSON(w, map[string]any{"message": "visibility reset"})
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "database not available", http.StatusServiceUnavailable)
		return
	}

	id, err := s.Save()
	if err != nil {
		slog.Error("map save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"id":      id,
		"message": "map saved",
	})
}

// Save stores the served map and remembers its ID for later saves.
func (s *Server) Save() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.DB.SaveMap(s.MapID, s.MapName, s.Grid, s.Seed)
	if err != nil {
		return "", err
	}
	s.MapID = id
	return id, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
