package writebuffer

import (
	"errors"
	"testing"
)

func collectingFlusher(applied *[]Entry) Flusher {
	return func(entries []Entry) error {
		*applied = append(*applied, entries...)
		return nil
	}
}

func TestAddCoalescesRepeatedWritesToSameSlot(t *testing.T) {
	b := New(Options{}, func(entries []Entry) error { return nil })
	if err := b.Add(1, 100, []byte("first")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := b.Add(1, 100, []byte("second")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	stats := b.Stats()
	if stats.PendingRecords != 1 {
		t.Fatalf("PendingRecords = %d, want 1 (coalesced)", stats.PendingRecords)
	}
	e, ok := b.Get(1)
	if !ok || string(e.Data) != "second" {
		t.Fatalf("Get(1) = %v, %v, want \"second\", true", e, ok)
	}
}

func TestAutoFlushOnMaxRecords(t *testing.T) {
	var applied []Entry
	b := New(Options{MaxRecords: 2}, collectingFlusher(&applied))
	b.Add(1, 0, []byte("a"))
	b.Add(2, 1, []byte("b"))
	if !b.IsEmpty() {
		t.Fatal("expected buffer to auto-flush once MaxRecords was reached")
	}
	if len(applied) != 2 {
		t.Fatalf("flusher received %d entries, want 2", len(applied))
	}
}

func TestAutoFlushOnMaxBytes(t *testing.T) {
	var applied []Entry
	b := New(Options{MaxBytes: 4}, collectingFlusher(&applied))
	b.Add(1, 0, []byte("abcd"))
	if !b.IsEmpty() {
		t.Fatal("expected buffer to auto-flush once MaxBytes was reached")
	}
}

func TestFlushRestoresPendingOnFailure(t *testing.T) {
	boom := errors.New("disk full")
	b := New(Options{}, func(entries []Entry) error { return boom })
	b.Add(1, 0, []byte("a"))
	if err := b.Flush(); err == nil {
		t.Fatal("expected Flush to propagate the flusher's error")
	}
	if _, ok := b.Get(1); !ok {
		t.Fatal("expected the pending entry to be restored after a failed flush")
	}
}

func TestDiscardRemovesWithoutFlushing(t *testing.T) {
	var applied []Entry
	b := New(Options{}, collectingFlusher(&applied))
	b.Add(1, 0, []byte("a"))
	b.Discard(1)
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("flusher received %d entries, want 0 after Discard", len(applied))
	}
}

func TestFlushDeliversEntriesInInsertionOrder(t *testing.T) {
	var applied []Entry
	b := New(Options{}, collectingFlusher(&applied))
	for slot := int64(5); slot >= 1; slot-- {
		if err := b.Add(slot, slot*10, []byte("x")); err != nil {
			t.Fatalf("Add(%d): %v", slot, err)
		}
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []int64{5, 4, 3, 2, 1}
	if len(applied) != len(want) {
		t.Fatalf("flusher received %d entries, want %d", len(applied), len(want))
	}
	for i, slot := range want {
		if applied[i].Offset != slot*10 {
			t.Fatalf("entry %d offset = %d, want %d (insertion order)", i, applied[i].Offset, slot*10)
		}
	}
}

func TestFlushOnEmptyBufferIsNoop(t *testing.T) {
	called := false
	b := New(Options{}, func(entries []Entry) error { called = true; return nil })
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if called {
		t.Fatal("expected Flush on an empty buffer not to call the flusher")
	}
}
