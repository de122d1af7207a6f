// Package persistence provides SQLite-based map storage. Each stored map
// keeps the binary cell stream written by world.Grid.Save next to its
// dimensions, so it can be recreated without outside knowledge.
package persistence

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexgrid/internal/world"
)

// ErrMapNotFound is returned for unknown map IDs.
var ErrMapNotFound = errors.New("persistence: map not found")

// DB wraps a SQLite connection for map persistence.
type DB struct {
	conn *sqlx.DB
}

// MapRecord describes a stored map. Data is only filled by LoadMap.
type MapRecord struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	CellsX    int    `db:"cells_x" json:"cells_x"`
	CellsZ    int    `db:"cells_z" json:"cells_z"`
	Wrapping  bool   `db:"wrapping" json:"wrapping"`
	Seed      int64  `db:"seed" json:"seed"`
	Version   int    `db:"version" json:"version"`
	Size      int64  `db:"size" json:"size"`
	CreatedAt int64  `db:"created_at" json:"created_at"`
	UpdatedAt int64  `db:"updated_at" json:"updated_at"`
	Data      []byte `db:"data" json:"-"`
}

// UnitRecord is a unit as stored with its map.
type UnitRecord struct {
	MapID       string  `db:"map_id"`
	Slot        int     `db:"slot"`
	Name        string  `db:"name"`
	Type        string  `db:"type"`
	Col         int     `db:"col"`
	Row         int     `db:"row"`
	Orientation float64 `db:"orientation"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; keeps the per-connection pragmas in force.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := runMigrations(conn.DB); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveMap stores the grid's cells and units under id, replacing any earlier
// version. An empty id stores a new map; the ID used is returned.
func (db *DB) SaveMap(id, name string, g *world.Grid, seed int64) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	var buf bytes.Buffer
	if err := g.Save(&buf); err != nil {
		return "", fmt.Errorf("encode map: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	_, err = tx.Exec(`INSERT INTO maps
		(id, name, cells_x, cells_z, wrapping, seed, version, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, cells_x = excluded.cells_x, cells_z = excluded.cells_z,
			wrapping = excluded.wrapping, seed = excluded.seed, version = excluded.version,
			data = excluded.data, updated_at = excluded.updated_at`,
		id, name, g.CellCountX(), g.CellCountZ(), g.Wrapping(), seed,
		world.MapFormatVersion, buf.Bytes(), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("upsert map %s: %w", id, err)
	}

	if err := saveUnits(tx, id, g); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}

	slog.Info("map saved", "id", id, "name", name,
		"cells", humanize.Comma(int64(g.CellCount())),
		"size", humanize.Bytes(uint64(buf.Len())))
	return id, nil
}

// saveUnits writes all units of the map (full replace).
func saveUnits(tx *sqlx.Tx, mapID string, g *world.Grid) error {
	if _, err := tx.Exec("DELETE FROM units WHERE map_id = ?", mapID); err != nil {
		return err
	}

	stmt, err := tx.Preparex(`INSERT INTO units
		(map_id, slot, name, type, col, row, orientation)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for slot, u := range g.Units() {
		col, row := u.Location().Coordinates().Offset()
		if _, err := stmt.Exec(mapID, slot, u.Name, u.Type.Name(), col, row, u.Orientation()); err != nil {
			return fmt.Errorf("insert unit %q: %w", u.Name, err)
		}
	}
	return nil
}

// LoadMap recreates the stored map on g. Units are not placed; see
// LoadUnits and RestoreUnits. On error g keeps its previous map.
func (db *DB) LoadMap(id string, g *world.Grid) (*MapRecord, error) {
	var rec MapRecord
	err := db.conn.Get(&rec, `SELECT id, name, cells_x, cells_z, wrapping, seed, version,
		length(data) AS size, created_at, updated_at, data
		FROM maps WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select map %s: %w", id, err)
	}

	// Decode into a scratch grid first so a bad blob leaves g untouched.
	scratch := world.NewGrid(nil, slog.New(slog.DiscardHandler))
	if err := scratch.CreateMap(rec.CellsX, rec.CellsZ, rec.Wrapping); err != nil {
		return nil, fmt.Errorf("create map %s: %w", id, err)
	}
	if err := scratch.Load(bytes.NewReader(rec.Data)); err != nil {
		return nil, fmt.Errorf("decode map %s: %w", id, err)
	}

	if err := g.CreateMap(rec.CellsX, rec.CellsZ, rec.Wrapping); err != nil {
		return nil, fmt.Errorf("create map %s: %w", id, err)
	}
	if err := g.Load(bytes.NewReader(rec.Data)); err != nil {
		return nil, fmt.Errorf("decode map %s: %w", id, err)
	}

	slog.Info("map restored", "id", id, "name", rec.Name, "size", humanize.Bytes(uint64(rec.Size)))
	return &rec, nil
}

// GetMap returns a stored map's record without its cell data.
func (db *DB) GetMap(id string) (*MapRecord, error) {
	var rec MapRecord
	err := db.conn.Get(&rec, `SELECT id, name, cells_x, cells_z, wrapping, seed, version,
		length(data) AS size, created_at, updated_at
		FROM maps WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrMapNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("select map %s: %w", id, err)
	}
	return &rec, nil
}

// LoadUnits returns the units stored with a map, in slot order.
func (db *DB) LoadUnits(mapID string) ([]UnitRecord, error) {
	var units []UnitRecord
	err := db.conn.Select(&units,
		"SELECT map_id, slot, name, type, col, row, orientation FROM units WHERE map_id = ? ORDER BY slot",
		mapID,
	)
	return units, err
}

// RestoreUnits places stored units on g. lookup resolves type names; units
// whose type is unknown are skipped and reported.
func RestoreUnits(g *world.Grid, units []UnitRecord, lookup func(name string) world.UnitType) error {
	var errs []error
	for _, r := range units {
		t := lookup(r.Type)
		if t == nil {
			errs = append(errs, fmt.Errorf("unit %q: unknown type %q", r.Name, r.Type))
			continue
		}
		cell, err := g.CellByOffset(r.Col, r.Row)
		if err != nil {
			errs = append(errs, fmt.Errorf("unit %q: %w", r.Name, err))
			continue
		}
		if err := g.AddUnit(world.NewUnit(t, r.Name), cell, r.Orientation); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListMaps returns all stored maps without their cell data, newest first.
func (db *DB) ListMaps() ([]MapRecord, error) {
	var maps []MapRecord
	err := db.conn.Select(&maps, `SELECT id, name, cells_x, cells_z, wrapping, seed, version,
		length(data) AS size, created_at, updated_at
		FROM maps ORDER BY updated_at DESC, id`)
	return maps, err
}

// DeleteMap removes a map and its units.
func (db *DB) DeleteMap(id string) error {
	res, err := db.conn.Exec("DELETE FROM maps WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrMapNotFound, id)
	}
	return nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
