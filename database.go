package bindb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// metadataFileName is the database-level sidecar listing registered tables.
const metadataFileName = "db_metadata.json"

// dbMetadata is the on-disk shape of db_metadata.json. Extra holds any
// fields beyond database/tables untouched, so a foreign writer's additions
// round-trip through a read-modify-write cycle instead of being dropped.
type dbMetadata struct {
	Database string
	Tables   []string
	Extra    map[string]json.RawMessage
}

func (m dbMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m.Extra)+2)
	for k, v := range m.Extra {
		out[k] = v
	}
	database, err := json.Marshal(m.Database)
	if err != nil {
		return nil, err
	}
	tables, err := json.Marshal(m.Tables)
	if err != nil {
		return nil, err
	}
	out["database"] = database
	out["tables"] = tables
	return json.Marshal(out)
}

func (m *dbMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["database"]; ok {
		if err := json.Unmarshal(v, &m.Database); err != nil {
			return err
		}
		delete(raw, "database")
	}
	if v, ok := raw["tables"]; ok {
		if err := json.Unmarshal(v, &m.Tables); err != nil {
			return err
		}
		delete(raw, "tables")
	}
	m.Extra = raw
	return nil
}

// Options configures a Database: its directory and the default per-table
// tunables new tables are created with.
type Options struct {
	// Dir is the directory the database owns. It is created if missing.
	Dir string
	// DefaultTableOptions seeds CreateTable calls that don't specify their
	// own TableOptions.
	DefaultTableOptions TableOptions
	// Logger receives structured logs for schema loads, rebuild warnings,
	// and table lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger
}

// Database owns a directory and the set of Tables within it, per §4.9.
// Tables are opened concurrently at Open and are independently lockable;
// Database itself serializes only its own table registry.
type Database struct {
	dir    string
	name   string
	opts   TableOptions
	logger *slog.Logger

	mu         sync.Mutex
	tables     map[string]*Table
	tableOrder []string
	metaExtra  map[string]json.RawMessage
	closed     bool
}

// Open opens (creating if necessary) the database directory at opts.Dir,
// reading db_metadata.json and opening every registered table concurrently
// via an errgroup, per the §4.9 "initDatabase" behavior. If the directory
// is new, an empty database is returned.
func Open(ctx context.Context, name string, opts Options) (*Database, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: mkdir %s: %v", ErrIO, opts.Dir, err)
	}

	db := &Database{
		dir:    opts.Dir,
		name:   name,
		opts:   opts.DefaultTableOptions,
		logger: opts.Logger.With("database", name),
		tables: make(map[string]*Table),
	}

	meta, err := db.readMetadata()
	if err != nil {
		return nil, err
	}
	db.tableOrder = append([]string(nil), meta.Tables...)
	db.metaExtra = meta.Extra

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	for _, tableName := range meta.Tables {
		tableName := tableName
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			t, err := openTable(db.dir, tableName, db.opts, db.logger)
			if err != nil {
				return fmt.Errorf("open table %q: %w", tableName, err)
			}
			mu.Lock()
			db.tables[tableName] = t
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, t := range db.tables {
			_ = t.Close(ctx)
		}
		return nil, err
	}
	return db, nil
}

func (db *Database) metadataPath() string {
	return filepath.Join(db.dir, metadataFileName)
}

func (db *Database) readMetadata() (dbMetadata, error) {
	raw, err := os.ReadFile(db.metadataPath())
	if os.IsNotExist(err) {
		return dbMetadata{Database: db.name}, nil
	}
	if err != nil {
		return dbMetadata{}, fmt.Errorf("%w: read metadata: %v", ErrIO, err)
	}
	var meta dbMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return dbMetadata{}, fmt.Errorf("%w: invalid metadata json: %v", ErrSchema, err)
	}
	return meta, nil
}

// writeMetadataLocked persists the current table registry. Callers must
// hold db.mu.
func (db *Database) writeMetadataLocked() error {
	meta := dbMetadata{
		Database: db.name,
		Tables:   append([]string(nil), db.tableOrder...),
		Extra:    db.metaExtra,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(db.metadataPath(), data, 0o644); err != nil {
		return fmt.Errorf("%w: write metadata: %v", ErrIO, err)
	}
	return nil
}

// CreateTable registers and opens a new table with the given schema,
// failing with ErrTableExists if the name is already registered.
func (db *Database) CreateTable(schema *Schema, opts TableOptions) (*Table, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}
	if _, exists := db.tables[schema.Table]; exists {
		return nil, fmt.Errorf("%w: %w: %q", ErrSchema, ErrTableExists, schema.Table)
	}
	if opts == (TableOptions{}) {
		opts = db.opts
	}
	schema.Database = db.name
	t, err := createTable(db.dir, schema, opts, db.logger)
	if err != nil {
		return nil, err
	}
	db.tables[schema.Table] = t
	db.tableOrder = append(db.tableOrder, schema.Table)
	if err := db.writeMetadataLocked(); err != nil {
		delete(db.tables, schema.Table)
		db.tableOrder = db.tableOrder[:len(db.tableOrder)-1]
		return nil, err
	}
	return t, nil
}

// Table returns the named table, if registered.
func (db *Database) Table(name string) (*Table, bool) {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tables[name]
	return t, ok
}

// DropTable closes and removes the named table, deleting its data and
// schema files from disk.
func (db *Database) DropTable(ctx context.Context, name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	t, ok := db.tables[name]
	if !ok {
		return nil
	}
	if err := t.Close(ctx); err != nil {
		return err
	}
	delete(db.tables, name)
	for i, n := range db.tableOrder {
		if n == name {
			db.tableOrder = append(db.tableOrder[:i], db.tableOrder[i+1:]...)
			break
		}
	}
	if err := db.writeMetadataLocked(); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(db.dir, name+".data")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove data file: %v", ErrIO, err)
	}
	if err := os.Remove(filepath.Join(db.dir, name+".schema.json")); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove schema file: %v", ErrIO, err)
	}
	return nil
}

// Tables returns the names of every registered table.
func (db *Database) Tables() []string {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]string(nil), db.tableOrder...)
}

// DatabaseStats aggregates per-table stats for the whole database.
type DatabaseStats struct {
	Tables map[string]TableStats
}

// Stats returns a snapshot of every table's internal state.
func (db *Database) Stats() DatabaseStats {
	db.mu.Lock()
	tables := make([]*Table, 0, len(db.tables))
	names := make([]string, 0, len(db.tables))
	for name, t := range db.tables {
		tables = append(tables, t)
		names = append(names, name)
	}
	db.mu.Unlock()

	out := DatabaseStats{Tables: make(map[string]TableStats, len(tables))}
	for i, t := range tables {
		out.Tables[names[i]] = t.Stats()
	}
	return out
}

// Close flushes and closes every table, concurrently.
func (db *Database) Close(ctx context.Context) error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	tables := make([]*Table, 0, len(db.tables))
	for _, t := range db.tables {
		tables = append(tables, t)
	}
	db.closed = true
	db.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, t := range tables {
		t := t
		g.Go(func() error { return t.Close(ctx) })
	}
	return g.Wait()
}
