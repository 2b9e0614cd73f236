package bindb

import (
	"time"

	"github.com/reajuria/bindb/internal/idgen"
)

// RecordID is a 24-character lowercase-hex identifier: an 8-char timestamp,
// an 8-char hashed prefix, and an 8-char monotonic-plus-random suffix, per
// §4.4. RecordID is comparable and sorts lexicographically in timestamp
// order.
type RecordID string

// String returns id as a plain string.
func (id RecordID) String() string { return string(id) }

// Timestamp recovers the second-granularity creation time encoded in id's
// first 8 characters. It returns false if id is not a well-formed RecordID.
func (id RecordID) Timestamp() (time.Time, bool) {
	return idgen.Timestamp(string(id))
}

// idGenerator wraps a monotonic id generator, per §4.4
// ("uniqueId(prefixSeed)"). Each Table owns one, seeded with its
// database and table name.
type idGenerator struct {
	gen *idgen.Generator
}

func newIDGenerator(prefixSeed string) *idGenerator {
	return &idGenerator{gen: idgen.NewGenerator(prefixSeed)}
}

func (g *idGenerator) next() RecordID {
	return RecordID(g.gen.Next())
}
