package bindb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewSchemaInjectsIDColumn(t *testing.T) {
	s, err := NewSchema("db", "widgets", []ColumnDefinition{
		{Name: "name", Type: KindText, Length: 64},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	if len(s.Columns) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(s.Columns))
	}
	if s.Columns[0].Name != idColumnName || s.Columns[0].Type != KindUniqueIdentifier {
		t.Fatalf("first column = %+v, want injected id column", s.Columns[0])
	}
}

func TestNewSchemaRejectsDuplicateNames(t *testing.T) {
	_, err := NewSchema("db", "widgets", []ColumnDefinition{
		{Name: "name", Type: KindText},
		{Name: "name", Type: KindNumber},
	})
	if err == nil {
		t.Fatal("expected an error for duplicate column names")
	}
}

func TestNewSchemaForcesIDColumnShape(t *testing.T) {
	s, err := NewSchema("db", "widgets", []ColumnDefinition{
		{Name: idColumnName, Type: KindText, Nullable: true},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	if s.Columns[0].Type != KindUniqueIdentifier {
		t.Fatalf("id column type = %v, want KindUniqueIdentifier", s.Columns[0].Type)
	}
	if s.Columns[0].Nullable {
		t.Fatal("id column must never be nullable")
	}
}

func TestSchemaJSONRoundTrip(t *testing.T) {
	s, err := NewSchema("db", "widgets", []ColumnDefinition{
		{Name: "name", Type: KindText, Length: 64, Nullable: true},
		{Name: "score", Type: KindNumber},
	})
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	data, err := s.toJSON()
	if err != nil {
		t.Fatalf("toJSON: %v", err)
	}
	loaded, err := loadSchema(data)
	if err != nil {
		t.Fatalf("loadSchema: %v", err)
	}
	if diff := cmp.Diff(s, loaded); diff != "" {
		t.Fatalf("schema did not round-trip (-want +got):\n%s", diff)
	}
}

func TestLoadSchemaRejectsMissingIDColumn(t *testing.T) {
	_, err := loadSchema([]byte(`{"database":"d","table":"t","columns":[]}`))
	if err == nil {
		t.Fatal("expected an error for a schema with no id column")
	}
}

func TestColumnWidths(t *testing.T) {
	cases := []struct {
		col  ColumnDefinition
		want int
	}{
		{ColumnDefinition{Type: KindUniqueIdentifier}, 12},
		{ColumnDefinition{Type: KindText, Length: 10}, 12},
		{ColumnDefinition{Type: KindText}, defaultTextLength + 2},
		{ColumnDefinition{Type: KindBuffer, Length: 4}, 6},
		{ColumnDefinition{Type: KindNumber}, 8},
		{ColumnDefinition{Type: KindBoolean}, 1},
		{ColumnDefinition{Type: KindDate}, 8},
		{ColumnDefinition{Type: KindUpdatedAt}, 8},
		{ColumnDefinition{Type: KindCoordinates}, 16},
	}
	for _, tc := range cases {
		if got := tc.col.width(); got != tc.want {
			t.Errorf("width(%v) = %d, want %d", tc.col.Type, got, tc.want)
		}
	}
}
