// Command bindb is a thin demo/inspection CLI over package bindb. It is not
// part of the storage engine itself (out of scope per the spec's
// Non-goals) and exists to exercise the library end to end: create a
// database, create a table, insert/get/scan rows, and print stats.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"

	"github.com/reajuria/bindb"
	"github.com/reajuria/bindb/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "bindb:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	logger := newLogger(os.Stderr)
	slog.SetDefault(logger)

	if len(args) == 0 {
		return fmt.Errorf("usage: bindb <init|create-table|insert|get|scan|stats|schema> ...")
	}

	switch args[0] {
	case "schema":
		return runSchemaDescribe(args[1:])
	case "init":
		return runInit(args[1:])
	case "create-table":
		return runCreateTable(args[1:])
	case "insert":
		return runInsert(args[1:])
	case "get":
		return runGet(args[1:])
	case "scan":
		return runScan(args[1:])
	case "stats":
		return runStats(args[1:])
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// newLogger builds a colorized console logger when stderr is a terminal
// (grounded on the teacher stack's tint+go-isatty+go-colorable trio), and a
// plain text logger otherwise.
func newLogger(w *os.File) *slog.Logger {
	var out io.Writer = w
	opts := &tint.Options{Level: slog.LevelInfo}
	if isatty.IsTerminal(w.Fd()) {
		out = colorable.NewColorable(w)
	} else {
		opts.NoColor = true
	}
	return slog.New(tint.NewHandler(out, opts))
}

func openDatabase(ctx context.Context, dir, name string) (*bindb.Database, error) {
	return bindb.Open(ctx, name, bindb.Options{
		Dir:                 dir,
		DefaultTableOptions: bindb.DefaultTableOptions(),
	})
}

// commonFlags are the -dir/-name/-config flags shared by every subcommand.
type commonFlags struct {
	dir    *string
	name   *string
	config *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		dir:    fs.String("dir", "", "database directory (default: the -config file's dir, $BINDB_STORAGE_PATH, or ./data)"),
		name:   fs.String("name", "", "database name (default: the -config file's database, or \"bindb\")"),
		config: fs.String("config", "", "path to a YAML config file (see package config)"),
	}
}

// resolve applies -dir/-name precedence: an explicit flag wins, then the
// -config file, then $BINDB_STORAGE_PATH for the directory, then the
// hardcoded fallbacks "./data"/"bindb".
func (c *commonFlags) resolve() (dir, name string, cfg *config.Config, err error) {
	if *c.config != "" {
		cfg, err = config.Load(*c.config)
		if err != nil {
			return "", "", nil, err
		}
	}
	dir = *c.dir
	if dir == "" && cfg != nil {
		dir = cfg.Dir
	}
	if dir == "" {
		dir = os.Getenv("BINDB_STORAGE_PATH")
	}
	if dir == "" {
		dir = "./data"
	}
	name = *c.name
	if name == "" && cfg != nil {
		name = cfg.Database
	}
	if name == "" {
		name = "bindb"
	}
	return dir, name, cfg, nil
}

// tableOptionsFor returns the TableEntry-derived options for table, if cfg
// declares one, else a zero TableOptions (CreateTable then falls back to
// the database's own defaults).
func tableOptionsFor(cfg *config.Config, table string) bindb.TableOptions {
	if cfg == nil {
		return bindb.TableOptions{}
	}
	for _, e := range cfg.Tables {
		if e.Name == table {
			return e.TableOptions()
		}
	}
	return bindb.TableOptions{}
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, name, _, err := common.resolve()
	if err != nil {
		return err
	}
	ctx := context.Background()
	db, err := openDatabase(ctx, dir, name)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	slog.Info("database initialized", "dir", dir, "tables", db.Tables())
	return nil
}

func runCreateTable(args []string) error {
	fs := flag.NewFlagSet("create-table", flag.ExitOnError)
	common := addCommonFlags(fs)
	table := fs.String("table", "", "table name")
	schemaPath := fs.String("schema", "", "path to a JSON column-list file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *table == "" || *schemaPath == "" {
		return fmt.Errorf("create-table: -table and -schema are required")
	}
	dir, name, cfg, err := common.resolve()
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(*schemaPath)
	if err != nil {
		return err
	}
	var columns []bindb.ColumnDefinition
	if err := json.Unmarshal(raw, &columns); err != nil {
		return fmt.Errorf("parse schema file: %w", err)
	}
	schema, err := bindb.NewSchema(name, *table, columns)
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, dir, name)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	if _, err := db.CreateTable(schema, tableOptionsFor(cfg, *table)); err != nil {
		return err
	}
	slog.Info("table created", "table", *table)
	return nil
}

func runInsert(args []string) error {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	common := addCommonFlags(fs)
	table := fs.String("table", "", "table name")
	rowPath := fs.String("row", "", "path to a JSON object of column:value")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *table == "" || *rowPath == "" {
		return fmt.Errorf("insert: -table and -row are required")
	}
	dir, name, _, err := common.resolve()
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(*rowPath)
	if err != nil {
		return err
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("parse row file: %w", err)
	}

	ctx := context.Background()
	db, err := openDatabase(ctx, dir, name)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	t, ok := db.Table(*table)
	if !ok {
		return fmt.Errorf("no such table %q", *table)
	}

	row := make(bindb.Row, len(fields))
	for k, v := range fields {
		row[k] = bindb.Text(v)
	}
	id, err := t.Insert(row)
	if err != nil {
		return err
	}
	if err := t.Flush(); err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func runGet(args []string) error {
	fs := flag.NewFlagSet("get", flag.ExitOnError)
	common := addCommonFlags(fs)
	table := fs.String("table", "", "table name")
	id := fs.String("id", "", "record id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, name, _, err := common.resolve()
	if err != nil {
		return err
	}
	ctx := context.Background()
	db, err := openDatabase(ctx, dir, name)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	t, ok := db.Table(*table)
	if !ok {
		return fmt.Errorf("no such table %q", *table)
	}
	row, found, err := t.Get(bindb.RecordID(*id))
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no such row %q", *id)
	}
	return printRow(row)
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	common := addCommonFlags(fs)
	table := fs.String("table", "", "table name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, name, _, err := common.resolve()
	if err != nil {
		return err
	}
	ctx := context.Background()
	db, err := openDatabase(ctx, dir, name)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	t, ok := db.Table(*table)
	if !ok {
		return fmt.Errorf("no such table %q", *table)
	}
	return t.Scan(func(row bindb.Row) bool {
		printRow(row)
		return true
	})
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	common := addCommonFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	dir, name, _, err := common.resolve()
	if err != nil {
		return err
	}
	ctx := context.Background()
	db, err := openDatabase(ctx, dir, name)
	if err != nil {
		return err
	}
	defer db.Close(ctx)
	stats := db.Stats()
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

// runSchemaDescribe prints a JSON Schema describing bindb.Schema itself,
// the shape every <table>.schema.json sidecar follows, so external tooling
// can validate a schema file without importing the Go package.
func runSchemaDescribe(args []string) error {
	r := new(jsonschema.Reflector)
	doc := r.Reflect(&bindb.Schema{})
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

func printRow(row bindb.Row) error {
	out := make(map[string]any, len(row))
	for name, v := range row {
		if v.IsNull() {
			out[name] = nil
			continue
		}
		switch v.Kind() {
		case bindb.KindUniqueIdentifier:
			out[name] = string(v.AsID())
		case bindb.KindText:
			out[name] = v.AsText()
		case bindb.KindBuffer:
			out[name] = v.AsBuffer()
		case bindb.KindNumber:
			out[name] = v.AsNumber()
		case bindb.KindBoolean:
			out[name] = v.AsBool()
		case bindb.KindDate, bindb.KindUpdatedAt:
			out[name] = v.AsTime()
		case bindb.KindCoordinates:
			out[name] = v.AsCoordinates()
		}
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
