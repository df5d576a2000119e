// Package file provides file-based persistence for workflows, executions and
// wait states. Intended for development and tests; conditional transitions
// are serialized with an in-process lock, so it is single-process only.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/leadfuse/leadfuse/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. Nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) dir(collection string) string {
	return filepath.Join(fp.root, collection)
}

func (fp *Persistence) path(collection, id string) string {
	return filepath.Join(fp.root, collection, id+".json")
}

// writeRecord persists one record as a JSON file. Caller holds the lock.
func (fp *Persistence) writeRecord(collection, id string, record any) error {
	if err := os.MkdirAll(fp.dir(collection), 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	raw, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s record: %w", collection, err)
	}

	if err := os.WriteFile(fp.path(collection, id), raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s record: %w", collection, err)
	}

	return nil
}

// readRecord loads one record. Caller holds the lock. Returns os.ErrNotExist
// when the record is missing.
func (fp *Persistence) readRecord(collection, id string, record any) error {
	raw, err := os.ReadFile(fp.path(collection, id))
	if err != nil {
		return err
	}

	if err := json.Unmarshal(raw, record); err != nil {
		return fmt.Errorf("failed to unmarshal %s record %s: %w", collection, id, err)
	}

	return nil
}

// listIDs returns the record ids in a collection. Caller holds the lock.
func (fp *Persistence) listIDs(collection string) ([]string, error) {
	entries, err := os.ReadDir(fp.dir(collection))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to list %s records: %w", collection, err)
	}

	ids := make([]string, 0, len(entries))

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".json") {
			ids = append(ids, strings.TrimSuffix(name, ".json"))
		}
	}

	return ids, nil
}

var _ persistence.Persistence = (*Persistence)(nil)
