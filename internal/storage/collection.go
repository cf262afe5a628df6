// Package storage keeps record collections as JSON array files on local disk.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

var (
	locksMu sync.Mutex
	locks   = map[string]*sync.Mutex{}
)

// lockFor returns the process-wide mutex for a file path so that every
// Collection opened on the same file shares it.
func lockFor(path string) *sync.Mutex {
	locksMu.Lock()
	defer locksMu.Unlock()

	mu, ok := locks[path]
	if !ok {
		mu = &sync.Mutex{}
		locks[path] = mu
	}
	return mu
}

// Collection is a JSON array file of T.
//
// Update holds a per-file mutex across read-modify-write, so concurrent
// updates inside one process never lose writes. Separate processes sharing
// the directory still race at file granularity.
type Collection[T any] struct {
	path string
	mu   *sync.Mutex
}

func NewCollection[T any](dir, name string) (*Collection[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("resolve collection path: %w", err)
	}

	return &Collection[T]{path: path, mu: lockFor(path)}, nil
}

func (c *Collection[T]) Path() string {
	return c.path
}

// Load returns every record. A missing, unreadable or malformed file reads
// as an empty collection.
func (c *Collection[T]) Load() []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.read()
}

// Update loads the collection, passes it to fn and persists the result.
// Nothing is written when fn returns an error.
func (c *Collection[T]) Update(fn func(items []T) ([]T, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fn(c.read())
	if err != nil {
		return err
	}

	return c.write(next)
}

func (c *Collection[T]) read() []T {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		return []T{}
	}
	return items
}

func (c *Collection[T]) write(items []T) error {
	if items == nil {
		items = []T{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(c.path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", filepath.Base(c.path), err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", filepath.Base(c.path), err)
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", filepath.Base(c.path), err)
	}

	return nil
}

// ErrStop can be returned from an Update callback to abort without writing
// and without surfacing an error to the caller.
var ErrStop = errors.New("storage: stop")

// UpdateIfChanged is Update that treats ErrStop as success.
func (c *Collection[T]) UpdateIfChanged(fn func(items []T) ([]T, error)) error {
	err := c.Update(fn)
	if errors.Is(err, ErrStop) {
		return nil
	}
	return err
}
