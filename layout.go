package bindb

import "fmt"

// compiledColumn is one entry of a BufferLayout: a dense, declaration-order
// record of where a column lives in the encoded block and how its null flag
// is addressed. Replaces string-keyed column lookup on the hot path with an
// index built once at Compile time, per the design notes.
type compiledColumn struct {
	def ColumnDefinition

	offset int // byte offset of the column's own span within the block
	size   int // byte width of the column's own span

	nullable     bool
	nullByte     int  // offset of the bitmap byte holding this column's null flag
	nullBitMask  byte // power-of-two bit within that byte
}

// BufferLayout is a compiled schema: per-column offsets/sizes/null-flag
// bits plus the total block size, per §3/§4.3. A BufferLayout is immutable
// and safe to share read-only once compiled.
type BufferLayout struct {
	schema *Schema

	columns []compiledColumn
	byName  map[string]int

	// nullBitmapOffset/nullBitmapSize describe the reserved null-flag area
	// appended after the last column's span. Placing it after the columns
	// (rather than stealing bits from the status byte, which only has 6
	// free bits) lets every column after id be nullable without capping
	// the schema at 6 nullable columns; see DESIGN.md for the rationale.
	nullBitmapOffset int
	nullBitmapSize   int

	totalSize int
}

// Compile computes offsets greedily in declaration order starting at byte
// offset 1 (immediately after the status byte), assigns a null-flag bit to
// every nullable column, and returns the resulting BufferLayout, per §4.3.
func Compile(schema *Schema) (*BufferLayout, error) {
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("%w: schema has no columns", ErrSchema)
	}

	layout := &BufferLayout{
		schema:  schema,
		columns: make([]compiledColumn, len(schema.Columns)),
		byName:  make(map[string]int, len(schema.Columns)),
	}

	offset := 1 // byte 0 is the row status byte
	nullableOrdinal := 0
	for i, def := range schema.Columns {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrSchema, i)
		}
		if _, dup := layout.byName[def.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrSchema, def.Name)
		}
		if def.Type.String() == "Unknown" {
			return nil, fmt.Errorf("%w: column %q has unknown type", ErrSchema, def.Name)
		}
		if (def.Type == KindText || def.Type == KindBuffer) && def.Length < 0 {
			return nil, fmt.Errorf("%w: column %q has negative length", ErrSchema, def.Name)
		}

		width := def.width()
		cc := compiledColumn{def: def, offset: offset, size: width}

		nullable := def.Nullable && def.Name != idColumnName
		if nullable {
			cc.nullable = true
			cc.nullByte = nullableOrdinal / 8
			cc.nullBitMask = 1 << (uint(nullableOrdinal) % 8)
			nullableOrdinal++
		}

		layout.columns[i] = cc
		layout.byName[def.Name] = i
		offset += width
	}

	layout.nullBitmapOffset = offset
	layout.nullBitmapSize = (nullableOrdinal + 7) / 8
	// Null flags addressed relative to nullBitmapOffset; rebase now that
	// the bitmap's own position is known.
	for i := range layout.columns {
		if layout.columns[i].nullable {
			layout.columns[i].nullByte += layout.nullBitmapOffset
		}
	}

	layout.totalSize = layout.nullBitmapOffset + layout.nullBitmapSize
	if err := layout.validate(); err != nil {
		return nil, err
	}
	return layout, nil
}

// validate checks the layout invariants from §4.3: at least one column,
// totalSize > 0, no negative offsets/sizes, no overlapping spans, last span
// within totalSize.
func (l *BufferLayout) validate() error {
	if len(l.columns) == 0 {
		return fmt.Errorf("%w: layout has no columns", ErrSchema)
	}
	if l.totalSize <= 0 {
		return fmt.Errorf("%w: layout total size must be positive", ErrSchema)
	}
	spans := make([][2]int, 0, len(l.columns)+1)
	for _, c := range l.columns {
		if c.offset < 0 || c.size < 0 {
			return fmt.Errorf("%w: column %q has a negative offset or size", ErrSchema, c.def.Name)
		}
		spans = append(spans, [2]int{c.offset, c.offset + c.size})
	}
	if l.nullBitmapSize > 0 {
		spans = append(spans, [2]int{l.nullBitmapOffset, l.nullBitmapOffset + l.nullBitmapSize})
	}
	for i := 0; i < len(spans); i++ {
		if spans[i][1] > l.totalSize {
			return fmt.Errorf("%w: span %v exceeds total size %d", ErrSchema, spans[i], l.totalSize)
		}
		for j := i + 1; j < len(spans); j++ {
			if spans[i][0] < spans[j][1] && spans[j][0] < spans[i][1] {
				return fmt.Errorf("%w: overlapping column spans %v and %v", ErrSchema, spans[i], spans[j])
			}
		}
	}
	return nil
}

// TotalSize returns the fixed block size (row size) for this layout.
func (l *BufferLayout) TotalSize() int { return l.totalSize }

// Schema returns the schema this layout was compiled from.
func (l *BufferLayout) Schema() *Schema { return l.schema }

func (l *BufferLayout) column(name string) (compiledColumn, bool) {
	i, ok := l.byName[name]
	if !ok {
		return compiledColumn{}, false
	}
	return l.columns[i], true
}
