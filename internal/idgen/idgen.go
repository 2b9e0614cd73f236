// Package idgen generates time-sortable record identifiers.
//
// An id is 24 lowercase hex characters in three 8-character parts:
// a big-endian Unix-seconds timestamp, a hash of the generator's seed
// (so that ids minted by different tables/processes rarely collide even
// within the same second), and a monotonic counter mixed with a random
// byte (so that ids minted within the same process in the same second
// still sort and never collide). The layout is grounded on the teacher's
// id.go (time-prefixed, monotonic-counter-under-mutex), adapted to the
// spec's fixed three-part hex format instead of a base64 sortable
// alphabet.
package idgen

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Generator mints RecordID strings. The zero value is not usable; construct
// with NewGenerator. A Generator is safe for concurrent use.
type Generator struct {
	prefix [4]byte // hash of the seed, shared by every id this generator mints

	mu      sync.Mutex
	counter uint32 // low 24 bits used, incremented per call
}

// NewGenerator returns a Generator whose ids carry a hash of seed as their
// middle 8 hex characters. Passing the table's database+name as seed keeps
// ids minted by different tables distinguishable even if their clocks and
// counters coincide.
func NewGenerator(seed string) *Generator {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	g := &Generator{}
	binary.BigEndian.PutUint32(g.prefix[:], h.Sum32())
	return g
}

// Next returns a new 24-character lowercase-hex id. Ids minted by the same
// Generator within the same process are strictly increasing.
func (g *Generator) Next() string {
	g.mu.Lock()
	g.counter = (g.counter + 1) & 0x00FFFFFF
	counter := g.counter
	g.mu.Unlock()

	var randByte [1]byte
	_, _ = rand.Read(randByte[:])

	var buf [12]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(time.Now().Unix()))
	copy(buf[4:8], g.prefix[:])
	buf[8] = byte(counter >> 16)
	buf[9] = byte(counter >> 8)
	buf[10] = byte(counter)
	buf[11] = randByte[0]

	return hex.EncodeToString(buf[:])
}

// Timestamp recovers the second-granularity creation time encoded in an
// id's first 8 hex characters. It returns false if id is not 24 hex
// characters.
func Timestamp(id string) (time.Time, bool) {
	if len(id) != 24 {
		return time.Time{}, false
	}
	raw, err := hex.DecodeString(id[:8])
	if err != nil {
		return time.Time{}, false
	}
	sec := binary.BigEndian.Uint32(raw)
	return time.Unix(int64(sec), 0).UTC(), true
}

// Validate reports whether id has the well-formed 24-character hex shape.
func Validate(id string) error {
	if len(id) != 24 {
		return fmt.Errorf("idgen: id %q has length %d, want 24", id, len(id))
	}
	if _, err := hex.DecodeString(id); err != nil {
		return fmt.Errorf("idgen: id %q is not hex: %w", id, err)
	}
	return nil
}
