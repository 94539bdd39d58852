// Package fs implements a filesystem-backed bundle metadata source. Each
// bundle version lives in a directory named "<uuid>.<version>" under the root,
// one JSON file per metadata document.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bundleindex/internal/source/core"
)

// Store implements core.Store over a local directory tree.
type Store struct {
	root string
}

// New returns a filesystem-backed source rooted at path, creating it if needed.
func New(root string) (*Store, error) {
	if root == "" {
		root = "./bundledata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &Store{root: root}, nil
}

// Driver returns the source driver identifier.
func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// Fetch reads every .json document of the bundle directory.
func (s *Store) Fetch(_ context.Context, uuid, version string) (map[string]json.RawMessage, error) {
	if strings.ContainsAny(uuid, "/\\") || strings.ContainsAny(version, "/\\") {
		return nil, fmt.Errorf("invalid bundle identity %s.%s", uuid, version)
	}
	dir := filepath.Join(s.root, uuid+"."+version)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, core.NotFoundError{UUID: uuid, Version: version}
		}
		return nil, fmt.Errorf("read bundle dir: %w", err)
	}
	docs := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", name, err)
		}
		docs[name] = data
	}
	if len(docs) == 0 {
		return nil, core.NotFoundError{UUID: uuid, Version: version}
	}
	return docs, nil
}
