// Package datarecording stores flat records into SQLite tables.
package datarecording

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strings"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// ErrExists is returned by Open when the database file is already there.
var ErrExists = errors.New("recording file already exists")

const defaultBatchSize = 100000

// DataRecorder is a backend that can record and store data
type DataRecorder interface {
	// CreateTable creates a new table with the columns of the sample entry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables, sorted by creation order.
	ListTables() []string

	// Flush writes all the buffered entries into database
	Flush()

	// Close flushes and closes the database.
	Close() error
}

// Open creates a DataRecorder that writes to path + ".sqlite3". An empty path
// generates a unique name. An existing file is never overwritten. The
// buffered entries are flushed at exit.
func Open(path string) (DataRecorder, error) {
	if path == "" {
		path = "hybridpolicy_recording_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	_, err := os.Stat(filename)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%s: %w", filename, ErrExists)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("checking %s: %w", filename, err)
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	fmt.Fprintf(os.Stderr, "Database created for recording: %s\n", filename)

	return NewWithDB(db), nil
}

// New is like Open but panics on error.
func New(path string) DataRecorder {
	w, err := Open(path)
	if err != nil {
		panic(err)
	}

	return w
}

// NewWithDB creates a new DataRecorder with a given database.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: defaultBatchSize,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

var columnKinds = map[reflect.Kind]bool{
	reflect.Bool:    true,
	reflect.Int:     true,
	reflect.Int8:    true,
	reflect.Int16:   true,
	reflect.Int32:   true,
	reflect.Int64:   true,
	reflect.Uint:    true,
	reflect.Uint8:   true,
	reflect.Uint16:  true,
	reflect.Uint32:  true,
	reflect.Uint64:  true,
	reflect.Float32: true,
	reflect.Float64: true,
	reflect.String:  true,
}

// checkColumns makes sure every field of the entry maps to one column.
func checkColumns(entry any) error {
	typ := reflect.TypeOf(entry)
	if typ == nil || typ.Kind() != reflect.Struct {
		return errors.New("entry must be a struct")
	}

	for _, field := range reflect.VisibleFields(typ) {
		switch {
		case !field.IsExported():
			return fmt.Errorf("field %s is not exported", field.Name)
		case !columnKinds[field.Type.Kind()]:
			return fmt.Errorf("field %s has unsupported type %s",
				field.Name, field.Type)
		}
	}

	return nil
}

type table struct {
	name       string
	structType reflect.Type
	insertSQL  string
	entries    []any
}

func newTable(name string, sampleEntry any) *table {
	columns := structs.Names(sampleEntry)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")

	return &table{
		name:       name,
		structType: reflect.TypeOf(sampleEntry),
		insertSQL:  "INSERT INTO " + name + " VALUES (" + placeholders + ")",
	}
}

// sqliteWriter is the writer that writes data into SQLite database
type sqliteWriter struct {
	*sql.DB

	tables     map[string]*table
	order      []*table
	batchSize  int
	entryCount int
	closed     bool
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	if err := checkColumns(sampleEntry); err != nil {
		panic(fmt.Errorf("table %s: %w", tableName, err))
	}

	if _, exists := w.tables[tableName]; exists {
		panic(fmt.Sprintf("table %s already exists", tableName))
	}

	columns := strings.Join(structs.Names(sampleEntry), ", ")
	w.mustExecute("CREATE TABLE " + tableName + " (" + columns + ")")

	t := newTable(tableName, sampleEntry)
	w.tables[tableName] = t
	w.order = append(w.order, t)
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	t, exists := w.tables[tableName]
	if !exists {
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("entry of type %T does not match table %s",
			entry, tableName))
	}

	t.entries = append(t.entries, entry)

	w.entryCount++
	if w.entryCount >= w.batchSize {
		w.Flush()
	}
}

func (w *sqliteWriter) ListTables() []string {
	names := make([]string, len(w.order))
	for i, t := range w.order {
		names[i] = t.name
	}

	return names
}

func (w *sqliteWriter) Flush() {
	if w.entryCount == 0 || w.closed {
		return
	}

	tx, err := w.Begin()
	if err != nil {
		panic(err)
	}

	for _, t := range w.order {
		if err := t.flushInto(tx); err != nil {
			_ = tx.Rollback()
			panic(fmt.Errorf("flushing table %s: %w", t.name, err))
		}
	}

	if err := tx.Commit(); err != nil {
		panic(err)
	}

	w.entryCount = 0
}

func (t *table) flushInto(tx *sql.Tx) error {
	if len(t.entries) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(t.insertSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range t.entries {
		if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
			return err
		}
	}

	t.entries = nil

	return nil
}

func (w *sqliteWriter) Close() error {
	if w.closed {
		return nil
	}

	w.Flush()
	w.closed = true

	return w.DB.Close()
}

func (w *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := w.Exec(query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute: %s\n", query)
		panic(err)
	}

	return res
}
