// Package recordstore is the collector's append-only local artifact: one
// sqlite file per object class, written with a single serialized
// appender per file.
package recordstore

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"
)

// Appender is the write side of a Store: anything that can persist one
// record under a class name. Enumerators and collectors depend on this
// interface rather than *Store so a counting/metrics wrapper can sit in
// front of the real store without the callers knowing.
type Appender interface {
	Append(class string, record any) error
}

const schema = `CREATE TABLE IF NOT EXISTS results (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	result BLOB
)`

// Store owns one sqlite file per class under dir and serializes writes to
// each file through that file's classWriter mutex.
type Store struct {
	dir string

	mu      sync.Mutex
	writers map[string]*classWriter
}

// New returns a Store that writes this run's per-class files under dir.
// It does not create dir; the directory must already exist.
func New(dir string) *Store {
	return &Store{dir: dir, writers: make(map[string]*classWriter)}
}

// Append msgpack-encodes record and appends it to class.sqlite, opening
// and initializing the file on first use.
func (s *Store) Append(class string, record any) error {
	w, err := s.writerFor(class)
	if err != nil {
		return err
	}
	return w.append(record)
}

// Classes returns the names of every class written to so far.
func (s *Store) Classes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.writers))
	for name := range s.writers {
		names = append(names, name)
	}
	return names
}

// Close flushes and closes every opened per-class file.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	for _, w := range s.writers {
		if err := w.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Store) writerFor(class string) (*classWriter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.writers[class]; ok {
		return w, nil
	}

	path := filepath.Join(s.dir, strings.ToLower(class)+".sqlite")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening record store %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing record store %s: %w", path, err)
	}

	w := &classWriter{db: db}
	s.writers[class] = w
	return w, nil
}

// classWriter serializes appends to one class's sqlite file. A mutex is
// sufficient here (rather than a channel+goroutine) since sqlite itself
// serializes writers on a single *sql.DB; this still guarantees exactly
// one appender is active on the file at a time, per the spec's "writes
// are serialized per file" requirement.
type classWriter struct {
	mu sync.Mutex
	db *sql.DB
}

func (w *classWriter) append(record any) error {
	encoded, err := msgpack.Marshal(record)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err = w.db.Exec("INSERT INTO results(result) VALUES (?)", encoded)
	if err != nil {
		return fmt.Errorf("appending record: %w", err)
	}
	return nil
}
