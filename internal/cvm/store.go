package cvm

import (
	"os"
	"path/filepath"
	"strconv"
)

// DefaultDataDir is the default root of the local archive store.
const DefaultDataDir = "data/raw_cvm_files"

// Store is the filesystem cache of extracted archives, laid out as
// <root>/<DOC_TYPE>/<year>/. A year directory that exists is taken as proof
// of a previous extraction; contents are never re-validated or evicted.
type Store struct {
	root string
}

// NewStore creates a store rooted at root.
func NewStore(root string) *Store {
	if root == "" {
		root = DefaultDataDir
	}
	return &Store{root: root}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

// Dir returns the extraction directory for a document type and year label.
func (s *Store) Dir(doc DocType, year string) string {
	return filepath.Join(s.root, string(doc), year)
}

// Has reports whether the extraction directory for doc and year exists.
func (s *Store) Has(doc DocType, year int) bool {
	info, err := os.Stat(s.Dir(doc, strconv.Itoa(year)))
	return err == nil && info.IsDir()
}

// StatementPath returns the expected local path of a statement CSV.
func (s *Store) StatementPath(doc DocType, year int, st Statement) string {
	return filepath.Join(s.Dir(doc, strconv.Itoa(year)), st.FileName(doc, year))
}
