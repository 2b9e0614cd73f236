package bindb

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/reajuria/bindb/internal/filemanager"
	"github.com/reajuria/bindb/internal/lru"
	"github.com/reajuria/bindb/internal/slotmgr"
	"github.com/reajuria/bindb/internal/writebuffer"
)

// TableOptions configures the tunables of a single Table: cache size and
// write-buffer auto-flush thresholds, per §4.6/§4.7.
type TableOptions struct {
	// CacheSize is the maximum number of decoded rows kept in the
	// read-through LRU cache. Zero disables caching.
	CacheSize int
	// MaxPendingRecords auto-flushes the write buffer once this many
	// distinct slots are pending. Zero disables the count threshold.
	MaxPendingRecords int
	// MaxPendingBytes auto-flushes the write buffer once this many bytes
	// are pending. Zero disables the byte threshold.
	MaxPendingBytes int
}

// DefaultTableOptions returns the package defaults: a 1,000-row cache and
// an auto-flush threshold of 200 records or 1MiB of pending writes.
func DefaultTableOptions() TableOptions {
	return TableOptions{
		CacheSize:         1000,
		MaxPendingRecords: 200,
		MaxPendingBytes:   1 << 20,
	}
}

// Table is a single fixed-schema table: a slot-addressed data file fronted
// by a write-behind buffer and a read-through LRU cache. Every exported
// method holds Table's single mutex for its full duration (pessimistic
// locking, matching the teacher's jsonldb.Table.Modify tradeoff): an
// operation always succeeds on its first attempt, at the cost of
// serializing concurrent callers on the same table. Different tables
// progress independently.
type Table struct {
	schema *Schema
	layout *BufferLayout

	dataPath   string
	schemaPath string

	fm     *filemanager.Manager
	slots  *slotmgr.Manager
	cache  *lru.Cache[RecordID, Row]
	wb     *writebuffer.Buffer
	idgen  *idGenerator
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// createTable builds a new table under dir (its schema must not already
// exist on disk) and writes the schema sidecar immediately.
func createTable(dir string, schema *Schema, opts TableOptions, logger *slog.Logger) (*Table, error) {
	layout, err := Compile(schema)
	if err != nil {
		return nil, err
	}
	t := newTable(dir, schema, layout, opts, logger)
	data, err := schema.toJSON()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(t.schemaPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: write schema %s: %v", ErrIO, t.schemaPath, err)
	}
	return t, nil
}

// openTable loads an existing table's schema sidecar from dir and rebuilds
// its slot index by scanning the data file, per §4.5 ("rebuild-on-open").
func openTable(dir, name string, opts TableOptions, logger *slog.Logger) (*Table, error) {
	schemaPath := filepath.Join(dir, name+".schema.json")
	raw, err := os.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read schema %s: %v", ErrIO, schemaPath, err)
	}
	schema, err := loadSchema(raw)
	if err != nil {
		return nil, err
	}
	layout, err := Compile(schema)
	if err != nil {
		return nil, err
	}
	t := newTable(dir, schema, layout, opts, logger)
	if err := t.rebuild(); err != nil {
		return nil, err
	}
	return t, nil
}

func newTable(dir string, schema *Schema, layout *BufferLayout, opts TableOptions, logger *slog.Logger) *Table {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("table", schema.Table)
	dataPath := filepath.Join(dir, schema.Table+".data")
	t := &Table{
		schema:     schema,
		layout:     layout,
		dataPath:   dataPath,
		schemaPath: filepath.Join(dir, schema.Table+".schema.json"),
		fm:         filemanager.New(dataPath, logger),
		slots:      slotmgr.New(),
		cache:      lru.New[RecordID, Row](opts.CacheSize),
		idgen:      newIDGenerator(schema.Database + "/" + schema.Table),
		logger:     logger,
	}
	t.wb = writebuffer.New(writebuffer.Options{
		MaxRecords: opts.MaxPendingRecords,
		MaxBytes:   opts.MaxPendingBytes,
	}, t.flushEntries)
	return t
}

// rebuild scans the data file linearly and repopulates the slot index,
// per §4.5. A block with a corrupt status byte or unreadable row is logged
// and treated as free rather than failing the open, matching "crash-
// tolerant file I/O": a torn write from a prior crash must not prevent the
// rest of the table from being usable.
func (t *Table) rebuild() error {
	size, err := t.fm.Size()
	if err != nil {
		return err
	}
	rowSize := int64(t.layout.TotalSize())
	if rowSize == 0 || size%rowSize != 0 {
		t.logger.Warn("data file size is not a multiple of row size; truncated tail will be ignored", "size", size, "rowSize", rowSize)
	}
	count := size / rowSize
	for slot := int64(0); slot < count; slot++ {
		buf, err := t.fm.ReadAt(slot*rowSize, int(rowSize))
		if err != nil {
			return err
		}
		row, active, decodeErr := decodeRow(t.layout, buf)
		switch {
		case decodeErr != nil:
			t.logger.Warn("corrupt row during rebuild, treating slot as free", "slot", slot, "error", decodeErr)
			t.slots.MarkFree(slot)
		case active:
			t.slots.Track(string(row.ID()), slot)
		case rowStatus(buf[0]) == statusDeleted:
			t.slots.MarkFree(slot)
		default:
			t.slots.MarkFree(slot)
		}
	}
	return nil
}

func (t *Table) checkOpen() error {
	if t.closed {
		return ErrClosed
	}
	return nil
}

// applyDefaults fills in any column missing from row using its default
// value or, for a missing id, a freshly minted one; it never mutates the
// caller's row.
func (t *Table) applyDefaults(row Row) (Row, error) {
	out := row.Clone()
	if _, ok := out[idColumnName]; !ok {
		out[idColumnName] = ID(t.idgen.next())
	}
	now := time.Now().UTC()
	for _, col := range t.schema.Columns {
		if col.Type == KindUpdatedAt {
			out[col.Name] = UpdatedAt(now)
			continue
		}
		if _, ok := out[col.Name]; ok {
			continue
		}
		if col.Default != nil {
			out[col.Name] = *col.Default
			continue
		}
		if col.Nullable {
			out[col.Name] = Null(col.Type)
			continue
		}
		return nil, fmt.Errorf("%w: column %q is required", ErrSchema, col.Name)
	}
	return out, nil
}

// Insert adds row, generating an id if none is supplied, and returns the
// id assigned. The write is staged in the write buffer and may not be
// durable until Flush or an auto-flush occurs.
func (t *Table) Insert(row Row) (RecordID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return "", err
	}
	return t.insertLocked(row)
}

func (t *Table) insertLocked(row Row) (RecordID, error) {
	full, err := t.applyDefaults(row)
	if err != nil {
		return "", err
	}
	id := full.ID()
	if _, exists := t.slots.SlotOf(string(id)); exists {
		return "", fmt.Errorf("%w: id %s already exists", ErrSchema, id)
	}
	buf, err := encodeRow(t.layout, full, statusActive)
	if err != nil {
		return "", err
	}
	slot := t.slots.Allocate(string(id))
	if err := t.wb.Add(slot, slot*int64(t.layout.TotalSize()), buf); err != nil {
		t.slots.Deallocate(string(id))
		return "", err
	}
	t.cache.Set(id, full)
	return id, nil
}

// BulkInsert inserts every row in rows, in order, returning the assigned
// ids. If any row fails validation, no row is inserted and the error names
// its index.
func (t *Table) BulkInsert(rows []Row) ([]RecordID, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	fulls := make([]Row, len(rows))
	seen := make(map[RecordID]bool, len(rows))
	for i, row := range rows {
		full, err := t.applyDefaults(row)
		if err == nil {
			_, err = encodeRow(t.layout, full, statusActive)
		}
		if _, exists := t.slots.SlotOf(string(full.ID())); err == nil && (exists || seen[full.ID()]) {
			err = fmt.Errorf("%w: id %s already exists", ErrSchema, full.ID())
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		seen[full.ID()] = true
		fulls[i] = full
	}
	ids := make([]RecordID, 0, len(rows))
	for i, full := range fulls {
		id, err := t.insertLocked(full)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Get returns the row for id. The second result reports whether the row
// exists (and is not deleted); it is never an error condition.
func (t *Table) Get(id RecordID) (Row, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, false, err
	}
	return t.getLocked(id)
}

func (t *Table) getLocked(id RecordID) (Row, bool, error) {
	if !isValidIDFormat(string(id)) {
		return nil, false, nil
	}
	if row, ok := t.cache.Get(id); ok {
		return row.Clone(), true, nil
	}
	slot, ok := t.slots.SlotOf(string(id))
	if !ok {
		return nil, false, nil
	}
	rowSize := int64(t.layout.TotalSize())
	if pending, ok := t.wb.Get(slot); ok {
		row, active, err := decodeRow(t.layout, pending.Data)
		if err != nil {
			return nil, false, err
		}
		if !active {
			return nil, false, nil
		}
		t.cache.Set(id, row)
		return row.Clone(), true, nil
	}
	buf, err := t.fm.ReadAt(slot*rowSize, int(rowSize))
	if err != nil {
		return nil, false, err
	}
	row, active, err := decodeRow(t.layout, buf)
	if err != nil {
		return nil, false, err
	}
	if !active {
		return nil, false, nil
	}
	t.cache.Set(id, row)
	return row.Clone(), true, nil
}

// Update applies patch on top of the existing row for id (patch values
// override, columns absent from patch keep their stored value) and returns
// the merged row. The second result reports whether id existed.
func (t *Table) Update(id RecordID, patch Row) (Row, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return nil, false, err
	}
	existing, ok, err := t.getLocked(id)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	merged := existing.Clone()
	for k, v := range patch {
		merged[k] = v
	}
	merged[idColumnName] = ID(id)
	for _, col := range t.schema.Columns {
		if col.Type == KindUpdatedAt {
			merged[col.Name] = UpdatedAt(time.Now().UTC())
		}
	}
	buf, err := encodeRow(t.layout, merged, statusActive)
	if err != nil {
		return nil, false, err
	}
	slot, _ := t.slots.SlotOf(string(id))
	if err := t.wb.Add(slot, slot*int64(t.layout.TotalSize()), buf); err != nil {
		return nil, false, err
	}
	t.cache.Set(id, merged)
	return merged.Clone(), true, nil
}

// Delete tombstones id's row and frees its slot for reuse. The result
// reports whether id existed.
func (t *Table) Delete(id RecordID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return false, err
	}
	slot, ok := t.slots.SlotOf(string(id))
	if !ok {
		return false, nil
	}
	tomb := make([]byte, t.layout.TotalSize())
	tomb[0] = byte(statusDeleted)
	rowSize := int64(t.layout.TotalSize())
	if err := t.wb.Add(slot, slot*rowSize, tomb); err != nil {
		return false, err
	}
	t.slots.Deallocate(string(id))
	t.cache.Delete(id)
	return true, nil
}

// Scan calls fn for every active row in the table, in unspecified order,
// stopping early if fn returns false. Rows staged in the write buffer but
// not yet flushed are included.
func (t *Table) Scan(fn func(Row) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	for _, id := range t.slots.ActiveIDs() {
		row, ok, err := t.getLocked(RecordID(id))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if !fn(row) {
			break
		}
	}
	return nil
}

// GetAll returns every active row in the table. For large tables prefer
// Scan to avoid materializing the whole result set.
func (t *Table) GetAll() ([]Row, error) {
	var rows []Row
	err := t.Scan(func(r Row) bool {
		rows = append(rows, r)
		return true
	})
	return rows, err
}

// Count returns the number of active rows.
func (t *Table) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots.Len()
}

// Flush durably writes every pending buffered write to the data file.
func (t *Table) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.checkOpen(); err != nil {
		return err
	}
	return t.wb.Flush()
}

func (t *Table) flushEntries(entries []writebuffer.Entry) error {
	ops := make([]filemanager.WriteOp, len(entries))
	for i, e := range entries {
		ops[i] = filemanager.WriteOp{Offset: e.Offset, Data: e.Data}
	}
	return t.fm.WriteMultiple(ops)
}

// ClearCache empties the read-through cache without affecting stored data.
func (t *Table) ClearCache() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Clear()
}

// Close flushes pending writes and releases the table's file handle.
func (t *Table) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	if err := t.wb.Flush(); err != nil {
		return err
	}
	if err := t.fm.Close(); err != nil {
		return err
	}
	t.closed = true
	return nil
}

// Name returns the table's name.
func (t *Table) Name() string { return t.schema.Table }

// Schema returns the table's schema. Callers must not mutate it.
func (t *Table) Schema() *Schema { return t.schema }

// TableStats summarizes a table's slot, cache, and write-buffer occupancy.
type TableStats struct {
	ActiveRows     int
	FreeSlots      int
	TotalSlots     int64
	CachedRows     int
	CacheCapacity  int
	PendingWrites  int
	PendingBytes   int
	RowSize        int
}

// Stats returns a snapshot of the table's internal state.
func (t *Table) Stats() TableStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	ss := t.slots.Stats()
	cs := t.cache.Stats()
	bs := t.wb.Stats()
	return TableStats{
		ActiveRows:    ss.ActiveSlots,
		FreeSlots:     ss.FreeSlots,
		TotalSlots:    ss.TotalSlots,
		CachedRows:    cs.Len,
		CacheCapacity: cs.Capacity,
		PendingWrites: bs.PendingRecords,
		PendingBytes:  bs.PendingBytes,
		RowSize:       t.layout.TotalSize(),
	}
}

// isValidIDFormat reports whether s is a well-formed 24-character hex id,
// used to fail fast on malformed ids supplied by callers rather than
// surfacing a confusing decode error deeper in the stack.
func isValidIDFormat(s string) bool {
	if len(s) != 24 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
