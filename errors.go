package bindb

import "errors"

// Sentinel and typed errors surfaced by the core engine. NotFound conditions
// are never returned as errors — operations that can miss return a zero
// value and an ok/found bool instead, per Go idiom.
var (
	// ErrSchema is returned for invalid column definitions, duplicate column
	// or table names, and non-nullable columns missing a value with no
	// default at insert time.
	ErrSchema = errors.New("bindb: schema error")

	// ErrCorruptRow is returned when a decoded block's status byte is
	// unrecognized, its length does not match the compiled row size, or a
	// Text field's stored bytes are not valid UTF-8.
	ErrCorruptRow = errors.New("bindb: corrupt row")

	// ErrIO wraps failures creating the database directory and reading or
	// writing its metadata and schema sidecar files. Errors from reading or
	// writing a table's data file are returned as the file manager reports
	// them and are not wrapped with ErrIO.
	ErrIO = errors.New("bindb: io error")

	// ErrBufferOverflow is returned when a Buffer value exceeds its column
	// capacity. Text values that exceed their capacity are truncated at a
	// UTF-8 rune boundary instead.
	ErrBufferOverflow = errors.New("bindb: value exceeds column capacity")

	// ErrTableExists is returned by Database.CreateTable when the table
	// name is already registered.
	ErrTableExists = errors.New("bindb: table already exists")

	// ErrClosed is returned by operations attempted after Close.
	ErrClosed = errors.New("bindb: table or database is closed")
)
