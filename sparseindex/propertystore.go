package sparseindex

import (
	"fmt"
	"os"
	"path/filepath"
)

// PropertyStore is a minimal stand-in for a buffer-manager-factory and
// property-file collaborator. The core never reads or writes through it and
// emits no on-disk format of its own — that belongs to a separate
// persistence layer. It exists only so construction exercises the same
// fatal-on-failure path a real on-disk index would hit when it fails to
// open its property file.
type PropertyStore struct {
	root     string
	property *os.File
}

// OpenPropertyStore opens (creating if necessary) root/propertyFile for
// read/write. Failure is fatal to index construction (ErrStorageUnavailable).
func OpenPropertyStore(root, propertyFile string) (*PropertyStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create root dir %s: %v", ErrStorageUnavailable, root, err)
	}
	f, err := os.OpenFile(filepath.Join(root, propertyFile), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open property file: %v", ErrStorageUnavailable, err)
	}
	return &PropertyStore{root: root, property: f}, nil
}

// IndexFilePath returns the path a buffer-manager factory would open for a
// given version. The core never opens this file itself.
func (s *PropertyStore) IndexFilePath(version uint64) string {
	return filepath.Join(s.root, fmt.Sprintf("%d.index", version))
}

// Close releases the property file handle.
func (s *PropertyStore) Close() error {
	if s.property == nil {
		return nil
	}
	return s.property.Close()
}
