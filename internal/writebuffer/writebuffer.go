// Package writebuffer coalesces pending slot writes in memory and flushes
// them as one batch once a size or count threshold is crossed, per §4.7.
package writebuffer

import (
	"fmt"
	"sync"
)

// Entry is one pending write: the bytes to write and the file offset to
// write them at.
type Entry struct {
	Offset int64
	Data   []byte
}

// Flusher durably applies a batch of entries, e.g. filemanager.WriteMultiple.
type Flusher func(entries []Entry) error

// Options configures a Buffer's auto-flush thresholds.
type Options struct {
	// MaxRecords auto-flushes once this many distinct slots are pending.
	// Zero disables the count threshold.
	MaxRecords int
	// MaxBytes auto-flushes once the pending byte total reaches this many
	// bytes. Zero disables the byte threshold.
	MaxBytes int
}

// Buffer stages writes keyed by slot, coalescing repeated writes to the
// same slot (the latest write wins) until flushed. A Buffer is safe for
// concurrent use, though Table serializes access to it anyway via its own
// lock.
type Buffer struct {
	opts    Options
	flush   Flusher
	mu      sync.Mutex
	pending map[int64]Entry
	order   []int64 // slots in first-write order, for a deterministic Flush

	flushInProgress bool
}

// New returns an empty Buffer that calls flush to durably apply a batch.
func New(opts Options, flush Flusher) *Buffer {
	return &Buffer{opts: opts, flush: flush, pending: make(map[int64]Entry)}
}

// Add stages a write to slot, replacing any not-yet-flushed write to the
// same slot, and auto-flushes once a threshold is reached.
func (b *Buffer) Add(slot int64, offset int64, data []byte) error {
	b.mu.Lock()
	if _, staged := b.pending[slot]; !staged {
		b.order = append(b.order, slot)
	}
	b.pending[slot] = Entry{Offset: offset, Data: data}
	exceeded := b.thresholdExceededLocked()
	b.mu.Unlock()

	if exceeded {
		return b.Flush()
	}
	return nil
}

func (b *Buffer) thresholdExceededLocked() bool {
	if b.opts.MaxRecords > 0 && len(b.pending) >= b.opts.MaxRecords {
		return true
	}
	if b.opts.MaxBytes > 0 {
		total := 0
		for _, e := range b.pending {
			total += len(e.Data)
		}
		if total >= b.opts.MaxBytes {
			return true
		}
	}
	return false
}

// Flush durably applies every pending write and clears the buffer. If the
// underlying Flusher fails, the pending entries are restored (merged with
// anything staged since) so no write is silently lost, and the error is
// returned to the caller.
func (b *Buffer) Flush() error {
	b.mu.Lock()
	if b.flushInProgress {
		b.mu.Unlock()
		return nil
	}
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return nil
	}
	b.flushInProgress = true
	batch := b.pending
	batchOrder := b.order
	b.pending = make(map[int64]Entry)
	b.order = nil
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.flushInProgress = false
		b.mu.Unlock()
	}()

	entries := make([]Entry, 0, len(batchOrder))
	for _, slot := range batchOrder {
		entries = append(entries, batch[slot])
	}
	if err := b.flush(entries); err != nil {
		b.mu.Lock()
		for _, slot := range batchOrder {
			if _, staged := b.pending[slot]; !staged {
				b.pending[slot] = batch[slot]
				b.order = append(b.order, slot)
			}
		}
		b.mu.Unlock()
		return fmt.Errorf("writebuffer: flush: %w", err)
	}
	return nil
}

// Get returns the pending write for slot, if any, without flushing. Used by
// Table.Get to serve reads of not-yet-flushed writes.
func (b *Buffer) Get(slot int64) (Entry, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.pending[slot]
	return e, ok
}

// Discard removes slot from the pending set without flushing it.
func (b *Buffer) Discard(slot int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pending[slot]; !ok {
		return
	}
	delete(b.pending, slot)
	for i, s := range b.order {
		if s == slot {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// IsEmpty reports whether there are no pending writes.
func (b *Buffer) IsEmpty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending) == 0
}

// Stats summarizes the buffer's current occupancy for Table.Stats.
type Stats struct {
	PendingRecords int
	PendingBytes   int
}

// Stats returns a snapshot of b's current state.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := Stats{PendingRecords: len(b.pending)}
	for _, e := range b.pending {
		s.PendingBytes += len(e.Data)
	}
	return s
}
