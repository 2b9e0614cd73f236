package bindb

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func testLayout(t *testing.T) *BufferLayout {
	t.Helper()
	s := mustSchema(t,
		ColumnDefinition{Name: "name", Type: KindText, Length: 8, Nullable: true},
		ColumnDefinition{Name: "data", Type: KindBuffer, Length: 4},
		ColumnDefinition{Name: "score", Type: KindNumber},
		ColumnDefinition{Name: "active", Type: KindBoolean},
		ColumnDefinition{Name: "created", Type: KindDate},
		ColumnDefinition{Name: "pos", Type: KindCoordinates, Nullable: true},
	)
	layout, err := Compile(s)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return layout
}

func TestEncodeDecodeRowRoundTrip(t *testing.T) {
	layout := testLayout(t)
	now := time.Unix(1700000000, 0).UTC()
	row := Row{
		idColumnName: ID(RecordID("0123456789abcdef01234567")),
		"name":       Text("hi"),
		"data":       Buf([]byte{1, 2, 3}),
		"score":      Number(42.5),
		"active":     Bool(true),
		"created":    Date(now),
		"pos":        Coord(12.5, -7.25),
	}

	buf, err := encodeRow(layout, row, statusActive)
	if err != nil {
		t.Fatalf("encodeRow: %v", err)
	}
	if len(buf) != layout.totalSize {
		t.Fatalf("encoded block length = %d, want %d", len(buf), layout.totalSize)
	}

	decoded, active, err := decodeRow(layout, buf)
	if err != nil {
		t.Fatalf("decodeRow: %v", err)
	}
	if !active {
		t.Fatal("expected active row")
	}
	if decoded.ID() != row.ID() {
		t.Fatalf("decoded id = %q, want %q", decoded.ID(), row.ID())
	}
	if decoded["name"].AsText() != "hi" {
		t.Fatalf("decoded name = %q, want %q", decoded["name"].AsText(), "hi")
	}
	if string(decoded["data"].AsBuffer()) != "\x01\x02\x03" {
		t.Fatalf("decoded data = %v, want %v", decoded["data"].AsBuffer(), []byte{1, 2, 3})
	}
	if decoded["score"].AsNumber() != 42.5 {
		t.Fatalf("decoded score = %v, want 42.5", decoded["score"].AsNumber())
	}
	if !decoded["active"].AsBool() {
		t.Fatal("decoded active should be true")
	}
	if !decoded["created"].AsTime().Equal(now) {
		t.Fatalf("decoded created = %v, want %v", decoded["created"].AsTime(), now)
	}
	if decoded["pos"].AsCoordinates() != (Coordinates{Lat: 12.5, Lng: -7.25}) {
		t.Fatalf("decoded pos = %v, want (12.5,-7.25)", decoded["pos"].AsCoordinates())
	}
}

func TestEncodeDecodeNullColumn(t *testing.T) {
	layout := testLayout(t)
	row := Row{
		idColumnName: ID(RecordID("0123456789abcdef01234567")),
		"name":       Null(KindText),
		"data":       Buf(nil),
		"score":      Number(1),
		"active":     Bool(false),
		"created":    Date(time.Unix(0, 0)),
		"pos":        Null(KindCoordinates),
	}
	buf, err := encodeRow(layout, row, statusActive)
	if err != nil {
		t.Fatalf("encodeRow: %v", err)
	}
	decoded, _, err := decodeRow(layout, buf)
	if err != nil {
		t.Fatalf("decodeRow: %v", err)
	}
	if !decoded["name"].IsNull() {
		t.Fatal("expected name to decode as null")
	}
	if !decoded["pos"].IsNull() {
		t.Fatal("expected pos to decode as null")
	}
}

func TestEncodeRejectsNullForNonNullableColumn(t *testing.T) {
	layout := testLayout(t)
	row := Row{
		idColumnName: ID(RecordID("0123456789abcdef01234567")),
		"name":       Null(KindText),
		"data":       Buf(nil),
		"score":      Null(KindNumber),
		"active":     Bool(false),
		"created":    Date(time.Unix(0, 0)),
	}
	if _, err := encodeRow(layout, row, statusActive); err == nil {
		t.Fatal("expected an error for a null value on a non-nullable column")
	}
}

func TestEncodeTextTruncatesAtRuneBoundary(t *testing.T) {
	layout := testLayout(t)
	// "abcdefg" is 7 bytes, followed by 'é' (2 bytes in UTF-8): a naive
	// byte-8 truncation of this 9-byte string would cut right through
	// 'é's first byte, producing invalid UTF-8.
	s := "abcdefgé"
	row := Row{
		idColumnName: ID(RecordID("0123456789abcdef01234567")),
		"name":       Text(s),
		"data":       Buf(nil),
		"score":      Number(1),
		"active":     Bool(false),
		"created":    Date(time.Unix(0, 0)),
	}
	buf, err := encodeRow(layout, row, statusActive)
	if err != nil {
		t.Fatalf("encodeRow: %v", err)
	}
	decoded, _, err := decodeRow(layout, buf)
	if err != nil {
		t.Fatalf("decodeRow: %v", err)
	}
	got := decoded["name"].AsText()
	if !strings.HasPrefix(s, got) {
		t.Fatalf("truncated text %q is not a prefix of %q", got, s)
	}
	if len([]byte(got)) > 8 {
		t.Fatalf("truncated text is %d bytes, want <= 8", len([]byte(got)))
	}
	if !utf8.ValidString(got) {
		t.Fatalf("truncated text %q is not valid UTF-8", got)
	}
}

func TestEncodeBufferRejectsOversized(t *testing.T) {
	layout := testLayout(t)
	row := Row{
		idColumnName: ID(RecordID("0123456789abcdef01234567")),
		"name":       Text("ok"),
		"data":       Buf([]byte{1, 2, 3, 4, 5}),
		"score":      Number(1),
		"active":     Bool(false),
		"created":    Date(time.Unix(0, 0)),
	}
	if _, err := encodeRow(layout, row, statusActive); err == nil {
		t.Fatal("expected ErrBufferOverflow for an oversized buffer column")
	}
}

func TestDecodeRowReportsEmptyAndDeleted(t *testing.T) {
	layout := testLayout(t)
	empty := make([]byte, layout.totalSize)
	row, active, err := decodeRow(layout, empty)
	if err != nil || active || row != nil {
		t.Fatalf("empty block should decode as (nil, false, nil), got (%v, %v, %v)", row, active, err)
	}

	deleted := make([]byte, layout.totalSize)
	deleted[0] = byte(statusDeleted)
	row, active, err = decodeRow(layout, deleted)
	if err != nil || active || row != nil {
		t.Fatalf("deleted block should decode as (nil, false, nil), got (%v, %v, %v)", row, active, err)
	}
}

func TestDecodeBufferRejectsCorruptLengthPrefix(t *testing.T) {
	span := make([]byte, 6)       // 2-byte length prefix + 4 bytes of capacity
	span[0], span[1] = 0xff, 0xff // absurd length, far past the span
	if _, err := decodeBuffer(span, "data"); err == nil {
		t.Fatal("expected ErrCorruptRow for a buffer length prefix exceeding the span")
	}
}

func TestDecodeRowRejectsCorruptStatus(t *testing.T) {
	layout := testLayout(t)
	buf := make([]byte, layout.totalSize)
	buf[0] = 0x7f
	if _, _, err := decodeRow(layout, buf); err == nil {
		t.Fatal("expected ErrCorruptRow for an unrecognized status byte")
	}
}
