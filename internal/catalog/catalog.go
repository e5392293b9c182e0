// Package catalog tracks the zones this server manages in a SQLite
// registry: where each zone came from, whether it is enabled, and the
// serial observed at the last successful load. The DNS data itself
// lives in memory with the resolvers; the catalog is bookkeeping that
// survives restarts and feeds the management API.
package catalog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/bastiondns/bastiondns/internal/dns"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrZoneNotFound is returned for origins the catalog does not know.
var ErrZoneNotFound = errors.New("zone not found in catalog")

// Zone is one catalog row describing a managed zone.
type Zone struct {
	Origin   string // zone apex, lower-case, no trailing dot
	Source   string // path of the master file or descriptor it loads from
	Format   string // "master" or "descriptor"
	Enabled  bool
	Serial   uint32    // SOA serial observed at the last load
	LoadedAt time.Time // zero if the zone has never loaded
}

// Catalog is a SQLite-backed zone registry.
type Catalog struct {
	db *sql.DB
}

// Open opens or creates the catalog database at the given path and
// brings the schema up to date from the embedded migrations.
func Open(path string) (*Catalog, error) {
	// Use WAL mode for better concurrency
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// Set reasonable connection pool limits
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := migrateSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Catalog{db: db}, nil
}

// migrateSchema runs the embedded schema migrations.
func migrateSchema(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("failed to prepare migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to build migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Health checks database connectivity.
func (c *Catalog) Health() error {
	return c.db.Ping()
}

// Upsert registers a zone or updates its source, format, and enabled
// state. Serial and load time are owned by MarkLoaded.
func (c *Catalog) Upsert(z Zone) error {
	query := `
		INSERT INTO zones (origin, source, format, enabled, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(origin) DO UPDATE SET
			source = excluded.source,
			format = excluded.format,
			enabled = excluded.enabled,
			updated_at = CURRENT_TIMESTAMP
	`
	_, err := c.db.Exec(query, normalizeOrigin(z.Origin), z.Source, z.Format, boolToInt(z.Enabled))
	if err != nil {
		return fmt.Errorf("failed to upsert zone %s: %w", z.Origin, err)
	}
	return nil
}

// MarkLoaded records a successful load of the zone with the serial the
// loaded SOA carried.
func (c *Catalog) MarkLoaded(origin string, serial uint32) error {
	res, err := c.db.Exec(
		`UPDATE zones SET serial = ?, loaded_at = ?, updated_at = CURRENT_TIMESTAMP WHERE origin = ?`,
		serial, time.Now().Unix(), normalizeOrigin(origin),
	)
	if err != nil {
		return fmt.Errorf("failed to mark zone %s loaded: %w", origin, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, origin)
	}
	return nil
}

// Get returns one zone by origin.
func (c *Catalog) Get(origin string) (Zone, error) {
	row := c.db.QueryRow(
		`SELECT origin, source, format, enabled, serial, loaded_at FROM zones WHERE origin = ?`,
		normalizeOrigin(origin),
	)
	z, err := scanZone(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Zone{}, fmt.Errorf("%w: %s", ErrZoneNotFound, origin)
	}
	if err != nil {
		return Zone{}, fmt.Errorf("failed to get zone %s: %w", origin, err)
	}
	return z, nil
}

// List returns every zone, ordered by origin.
func (c *Catalog) List() ([]Zone, error) {
	return c.list(`SELECT origin, source, format, enabled, serial, loaded_at FROM zones ORDER BY origin`)
}

// ListEnabled returns the zones the server should load, ordered by origin.
func (c *Catalog) ListEnabled() ([]Zone, error) {
	return c.list(`SELECT origin, source, format, enabled, serial, loaded_at FROM zones WHERE enabled = 1 ORDER BY origin`)
}

func (c *Catalog) list(query string) ([]Zone, error) {
	rows, err := c.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query zones: %w", err)
	}
	defer rows.Close()

	var zones []Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan zone: %w", err)
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// Delete removes a zone from the catalog.
func (c *Catalog) Delete(origin string) error {
	res, err := c.db.Exec(`DELETE FROM zones WHERE origin = ?`, normalizeOrigin(origin))
	if err != nil {
		return fmt.Errorf("failed to delete zone %s: %w", origin, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrZoneNotFound, origin)
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanZone(s scanner) (Zone, error) {
	var (
		z        Zone
		enabled  int
		loadedAt sql.NullInt64
	)
	if err := s.Scan(&z.Origin, &z.Source, &z.Format, &enabled, &z.Serial, &loadedAt); err != nil {
		return Zone{}, err
	}
	z.Enabled = enabled != 0
	if loadedAt.Valid {
		z.LoadedAt = time.Unix(loadedAt.Int64, 0)
	}
	return z, nil
}

// normalizeOrigin keys zones the way lookups key names: lower-case,
// no trailing dot.
func normalizeOrigin(origin string) string {
	return dns.NormalizeName(origin)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
