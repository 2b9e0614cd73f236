package bindb

import "time"

// Kind tags the variant held by a Value, one per entry in Types (§3).
type Kind uint8

const (
	KindUniqueIdentifier Kind = iota
	KindText
	KindBuffer
	KindNumber
	KindBoolean
	KindDate
	KindUpdatedAt
	KindCoordinates
)

// String returns the Kind's schema type name, as persisted in schema JSON.
func (k Kind) String() string {
	switch k {
	case KindUniqueIdentifier:
		return "UniqueIdentifier"
	case KindText:
		return "Text"
	case KindBuffer:
		return "Buffer"
	case KindNumber:
		return "Number"
	case KindBoolean:
		return "Boolean"
	case KindDate:
		return "Date"
	case KindUpdatedAt:
		return "UpdatedAt"
	case KindCoordinates:
		return "Coordinates"
	default:
		return "Unknown"
	}
}

// ParseKind parses a schema type name back into a Kind.
func ParseKind(name string) (Kind, bool) {
	switch name {
	case "UniqueIdentifier":
		return KindUniqueIdentifier, true
	case "Text":
		return KindText, true
	case "Buffer":
		return KindBuffer, true
	case "Number":
		return KindNumber, true
	case "Boolean":
		return KindBoolean, true
	case "Date":
		return KindDate, true
	case "UpdatedAt":
		return KindUpdatedAt, true
	case "Coordinates":
		return KindCoordinates, true
	default:
		return 0, false
	}
}

// Coordinates is a pair of IEEE-754 doubles (lat, lng) with no range
// enforcement, per §3.
type Coordinates struct {
	Lat float64
	Lng float64
}

// Value is a tagged-variant row value: one field is meaningful, selected by
// Kind, per the design note preferring a compiled tag dispatch over an open
// map. A zero Value with Null set represents an explicit null for a
// nullable column.
type Value struct {
	kind Kind
	null bool

	text  string
	buf   []byte
	num   float64
	flag  bool
	t     time.Time
	coord Coordinates
}

// Text constructs a Text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Buf constructs a Buffer value. The byte slice is not copied.
func Buf(b []byte) Value { return Value{kind: KindBuffer, buf: b} }

// Number constructs a Number value. NaN and ±Inf round-trip exactly.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Bool constructs a Boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, flag: b} }

// Date constructs a Date value.
func Date(t time.Time) Value { return Value{kind: KindDate, t: t} }

// UpdatedAt constructs an UpdatedAt value; Table.Insert/Update overwrite it
// with the current time unconditionally regardless of what is passed.
func UpdatedAt(t time.Time) Value { return Value{kind: KindUpdatedAt, t: t} }

// Coord constructs a Coordinates value.
func Coord(lat, lng float64) Value {
	return Value{kind: KindCoordinates, coord: Coordinates{Lat: lat, Lng: lng}}
}

// ID constructs a UniqueIdentifier value from an already-generated RecordID.
func ID(id RecordID) Value { return Value{kind: KindUniqueIdentifier, text: string(id)} }

// Null returns a null value for a nullable column of the given kind.
func Null(kind Kind) Value { return Value{kind: kind, null: true} }

// Kind reports the variant tag of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is an explicit null.
func (v Value) IsNull() bool { return v.null }

// AsText returns v's string payload. Null Text values decode as "", per §3/§4.2.
func (v Value) AsText() string {
	if v.null {
		return ""
	}
	return v.text
}

// AsBuffer returns v's byte payload.
func (v Value) AsBuffer() []byte {
	if v.null {
		return nil
	}
	return v.buf
}

// AsNumber returns v's float payload. Null Number values decode as 0.
func (v Value) AsNumber() float64 {
	if v.null {
		return 0
	}
	return v.num
}

// AsBool returns v's boolean payload. Null Boolean values decode as false.
func (v Value) AsBool() bool {
	if v.null {
		return false
	}
	return v.flag
}

// AsTime returns v's time payload. Null Date/UpdatedAt values decode as the
// zero time.
func (v Value) AsTime() time.Time {
	if v.null {
		return time.Time{}
	}
	return v.t
}

// AsCoordinates returns v's coordinate payload. Null Coordinates values
// decode as the zero value.
func (v Value) AsCoordinates() Coordinates {
	if v.null {
		return Coordinates{}
	}
	return v.coord
}

// AsID returns v's identifier payload.
func (v Value) AsID() RecordID { return RecordID(v.text) }

// Row is a decoded table row: column name to typed value. All Row values
// handed back to callers (from Get, GetAll, Scan, Update) are detached
// copies safe to retain and mutate.
type Row map[string]Value

// Clone returns a shallow copy of r; Value itself is immutable value data
// (Buffer payloads excepted, which callers must not mutate in place).
func (r Row) Clone() Row {
	c := make(Row, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// ID returns the row's id column value, or "" if absent.
func (r Row) ID() RecordID {
	if v, ok := r[idColumnName]; ok {
		return v.AsID()
	}
	return ""
}
