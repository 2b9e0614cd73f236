// Package slotmgr tracks which slot (block index) in a table's data file
// holds which record id, and hands out free slots for reuse, per §4.5.
package slotmgr

// Manager maps record ids to slot indices and recycles slots freed by
// deletes via a LIFO free list, so the most recently deleted slot is reused
// first (best locality for write-heavy workloads with churn). A Manager is
// not safe for concurrent use; callers serialize access (Table holds its
// own lock around every call).
type Manager struct {
	idToSlot  map[string]int64
	freeSlots []int64
	nextSlot  int64
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{idToSlot: make(map[string]int64)}
}

// Allocate returns a slot for id: the top of the free list if non-empty,
// otherwise the next never-used slot. The caller must write id's row into
// that slot before calling Allocate again.
func (m *Manager) Allocate(id string) int64 {
	var slot int64
	if n := len(m.freeSlots); n > 0 {
		slot = m.freeSlots[n-1]
		m.freeSlots = m.freeSlots[:n-1]
	} else {
		slot = m.nextSlot
		m.nextSlot++
	}
	m.idToSlot[id] = slot
	return slot
}

// Deallocate removes id from the index and returns its slot to the free
// list. It is a no-op if id is not tracked.
func (m *Manager) Deallocate(id string) {
	slot, ok := m.idToSlot[id]
	if !ok {
		return
	}
	delete(m.idToSlot, id)
	m.freeSlots = append(m.freeSlots, slot)
}

// SlotOf reports the slot holding id, if any.
func (m *Manager) SlotOf(id string) (int64, bool) {
	slot, ok := m.idToSlot[id]
	return slot, ok
}

// Track records that id already occupies slot, without consulting or
// mutating the free list. Used while rebuilding the index from an existing
// data file at open time.
func (m *Manager) Track(id string, slot int64) {
	m.idToSlot[id] = slot
	if slot >= m.nextSlot {
		m.nextSlot = slot + 1
	}
}

// MarkFree records slot as available for reuse without an associated id.
// Used while rebuilding from a data file that contains Empty or Deleted
// blocks.
func (m *Manager) MarkFree(slot int64) {
	m.freeSlots = append(m.freeSlots, slot)
	if slot >= m.nextSlot {
		m.nextSlot = slot + 1
	}
}

// ActiveIDs returns every tracked record id, in no particular order.
func (m *Manager) ActiveIDs() []string {
	ids := make([]string, 0, len(m.idToSlot))
	for id := range m.idToSlot {
		ids = append(ids, id)
	}
	return ids
}

// Len reports the number of active (non-free) slots.
func (m *Manager) Len() int { return len(m.idToSlot) }

// NextSlot reports the slot index one past the highest slot ever allocated.
func (m *Manager) NextSlot() int64 { return m.nextSlot }

// Stats summarizes the slot manager's state for Table.Stats/Database.Stats.
type Stats struct {
	ActiveSlots int
	FreeSlots   int
	TotalSlots  int64
}

// Stats returns a snapshot of m's current state.
func (m *Manager) Stats() Stats {
	return Stats{
		ActiveSlots: len(m.idToSlot),
		FreeSlots:   len(m.freeSlots),
		TotalSlots:  m.nextSlot,
	}
}
