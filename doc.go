// Package bindb is an embedded, single-node binary storage engine for
// fixed-schema tables.
//
// # Overview
//
// A [Database] owns a directory and a set of [Table]s. Each table is backed
// by one fixed-record-size data file (<table>.data) plus a JSON schema
// sidecar (<table>.schema.json); the database itself keeps a metadata JSON
// file listing its tables. Rows are addressed by a 24-character, time-
// sortable [RecordID] and stored as fixed-size blocks ("slots") so that any
// record can be located with a single multiplication (slot index × row
// size) and no secondary index.
//
// # Concurrency: Pessimistic Locking
//
// Table uses pessimistic locking: every public operation holds the table's
// write lock for its full duration, the same tradeoff the teacher's jsonldb
// package documents for its Modify method — an operation always succeeds on
// the first attempt, at the cost of serializing concurrent callers on one
// table. Different tables progress independently.
//
// # Write-Behind Buffering and the Read-Through Cache
//
// Writes are staged in a [Table]'s write buffer and coalesced (only the
// latest write to a given slot survives) until an auto-flush threshold
// fires; a bounded LRU cache of decoded rows sits in front of the data
// file so that repeated reads of hot records never touch disk. Deletes are
// tombstoned in place (status byte flips to Deleted) and the slot is
// returned to a free list for reuse by a later insert.
//
// # File Format
//
// Each data file is a contiguous sequence of rowSize-byte blocks with no
// file header; the schema JSON is authoritative for layout. Block k spans
// bytes [k*rowSize, (k+1)*rowSize) and corresponds to slot k. The first byte
// of every block is a status byte (Empty/Active/Deleted); the remaining
// bytes hold columns packed in declaration order per the compiled buffer
// layout.
package bindb
