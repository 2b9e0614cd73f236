package bindb

import (
	"encoding/json"
	"fmt"
)

// idColumnName is the name of the implicit/explicit id column, always the
// first column of every table, per §3.
const idColumnName = "id"

// defaultTextLength is used for Text/Buffer columns that omit Length, per §3.
const defaultTextLength = 255

// ColumnDefinition describes one column of a table schema, grounded on the
// Property/Column shape used throughout the reference stack (e.g. the
// teacher's Column/Property types), adapted to the fixed-width binary model.
type ColumnDefinition struct {
	Name     string `json:"name"`
	Type     Kind   `json:"-"`
	TypeName string `json:"type"`
	// Length is required for Text/Buffer columns; ignored otherwise.
	Length int `json:"length,omitempty"`
	// Nullable marks the column as accepting an explicit null. The id
	// column is never nullable.
	Nullable bool `json:"nullable,omitempty"`
	// Default supplies a value used at insert time when the column is
	// omitted from the inserted row. Not persisted, per §6.
	Default *Value `json:"-"`
}

// MarshalJSON keeps TypeName in sync with Type before encoding.
func (c ColumnDefinition) MarshalJSON() ([]byte, error) {
	type alias ColumnDefinition
	a := alias(c)
	a.TypeName = c.Type.String()
	return json.Marshal(a)
}

// UnmarshalJSON populates Type from TypeName after decoding.
func (c *ColumnDefinition) UnmarshalJSON(data []byte) error {
	type alias ColumnDefinition
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	kind, ok := ParseKind(a.TypeName)
	if !ok {
		return fmt.Errorf("%w: unknown column type %q", ErrSchema, a.TypeName)
	}
	a.Type = kind
	*c = ColumnDefinition(a)
	return nil
}

// effectiveLength returns the on-disk capacity for Text/Buffer columns,
// applying the §3 default when Length is unset.
func (c ColumnDefinition) effectiveLength() int {
	if c.Length > 0 {
		return c.Length
	}
	return defaultTextLength
}

// width returns the on-disk byte width of one instance of c's type, per the
// §3 widths table.
func (c ColumnDefinition) width() int {
	switch c.Type {
	case KindUniqueIdentifier:
		return 12
	case KindText, KindBuffer:
		return c.effectiveLength() + 2
	case KindNumber:
		return 8
	case KindBoolean:
		return 1
	case KindDate, KindUpdatedAt:
		return 8
	case KindCoordinates:
		return 16
	default:
		return 0
	}
}

// Schema is the immutable tuple (database, table, columns) of §3. Schema is
// safe to share read-only across goroutines once compiled.
type Schema struct {
	Database string             `json:"database"`
	Table    string             `json:"table"`
	Columns  []ColumnDefinition `json:"columns"`
}

// NewSchema builds a Schema for database/table from user-supplied columns,
// injecting the id column at position 0 if the caller omitted one. It does
// not compile or validate the layout — call Compile for that.
func NewSchema(database, table string, columns []ColumnDefinition) (*Schema, error) {
	cols := make([]ColumnDefinition, 0, len(columns)+1)
	hasID := len(columns) > 0 && columns[0].Name == idColumnName
	if !hasID {
		cols = append(cols, ColumnDefinition{Name: idColumnName, Type: KindUniqueIdentifier})
	}
	cols = append(cols, columns...)

	seen := make(map[string]bool, len(cols))
	for i, col := range cols {
		if col.Name == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrSchema, i)
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("%w: duplicate column name %q", ErrSchema, col.Name)
		}
		seen[col.Name] = true
		if col.Name == idColumnName {
			cols[i].Type = KindUniqueIdentifier
			cols[i].Nullable = false
		}
		cols[i].TypeName = cols[i].Type.String()
	}
	if cols[0].Name != idColumnName {
		return nil, fmt.Errorf("%w: first column must be %q", ErrSchema, idColumnName)
	}
	return &Schema{Database: database, Table: table, Columns: cols}, nil
}

// addColumn appends a validated column, failing SchemaError on duplicate
// name or unknown type, per §4.3. Nothing in the package calls it; Schema
// itself is immutable once a Table has compiled it.
func (s *Schema) addColumn(def ColumnDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("%w: column has no name", ErrSchema)
	}
	for _, c := range s.Columns {
		if c.Name == def.Name {
			return fmt.Errorf("%w: duplicate column name %q", ErrSchema, def.Name)
		}
	}
	if def.Type.String() == "Unknown" {
		return fmt.Errorf("%w: unknown column type for %q", ErrSchema, def.Name)
	}
	s.Columns = append(s.Columns, def)
	return nil
}

// loadSchema reads and parses a schema JSON sidecar file.
func loadSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: invalid schema json: %v", ErrSchema, err)
	}
	if len(s.Columns) == 0 || s.Columns[0].Name != idColumnName {
		return nil, fmt.Errorf("%w: schema missing id column", ErrSchema)
	}
	return &s, nil
}

// toJSON serializes the schema; round-trips identically through loadSchema,
// per §4.3 ("fromJSON must round-trip toJSON identically").
func (s *Schema) toJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
