package geodb

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/9seconds/geoipd/mmdb"
)

// Store owns the currently opened database file. Open can be called
// again at any time to pick up a replaced file: readers which started
// before the swap keep using the old immutable instance.
type Store struct {
	fs   afero.Fs
	path string

	readerLock sync.RWMutex
	reader     *mmdb.Reader
}

func NewStore(fs afero.Fs, path string) *Store {
	return &Store{
		fs:   fs,
		path: filepath.Clean(path),
	}
}

// Path returns a path to the database file within the store filesystem.
func (s *Store) Path() string {
	return s.path
}

// Open reads the database file and swaps it in.
func (s *Store) Open() error {
	content, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("cannot read a database file: %w", err)
	}

	reader, err := mmdb.FromBytes(content)
	if err != nil {
		return fmt.Errorf("cannot open a database file: %w", err)
	}

	s.readerLock.Lock()
	s.reader = reader
	s.readerLock.Unlock()

	return nil
}

func (s *Store) Ready() bool {
	s.readerLock.RLock()
	defer s.readerLock.RUnlock()

	return s.reader != nil
}

func (s *Store) Metadata() (mmdb.Metadata, error) {
	s.readerLock.RLock()
	defer s.readerLock.RUnlock()

	if s.reader == nil {
		return mmdb.Metadata{}, ErrDatabaseIsNotReadyYet
	}

	return s.reader.Metadata, nil
}

func (s *Store) Lookup(ctx context.Context, ip net.IP) (mmdb.Value, error) {
	s.readerLock.RLock()
	reader := s.reader
	s.readerLock.RUnlock()

	if reader == nil {
		return nil, ErrDatabaseIsNotReadyYet
	}

	return reader.Lookup(ip)
}
