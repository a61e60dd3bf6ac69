package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/grant/pkg/diagnostics"
	granterrors "github.com/go-drift/grant/pkg/errors"
)

// fileDocument is the on-disk layout of a File store.
type fileDocument struct {
	Version int               `yaml:"version"`
	State   map[string]string `yaml:"state"`
}

const fileVersion = 1

// File is a Store persisted as a YAML document. Every write rewrites the file
// through a temporary file and rename, so a crash never leaves it half
// written.
type File struct {
	path string
	sink diagnostics.Sink

	mu     sync.Mutex
	values map[string]string
}

// OpenFile loads the store at path, creating an empty one if the file does not
// exist. A nil sink discards write failures.
func OpenFile(path string, sink diagnostics.Sink) (*File, error) {
	f := &File{
		path:   path,
		sink:   diagnostics.OrNop(sink),
		values: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if doc.Version > fileVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", doc.Version, fileVersion)
	}
	for k, v := range doc.State {
		f.values[k] = v
	}
	return f, nil
}

// Path returns the file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) SaveState(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if old, ok := f.values[key]; ok && old == value {
		return
	}
	f.values[key] = value
	f.flushLocked("store.file.save", key)
}

func (f *File) RestoreState(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *File) Clear(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	f.flushLocked("store.file.clear", key)
}

func (f *File) flushLocked(op, key string) {
	if err := f.writeLocked(); err != nil {
		granterrors.Report(f.sink, &granterrors.GrantError{
			Op:   op,
			Kind: granterrors.KindStore,
			Err:  fmt.Errorf("key %q: %w", key, err),
		})
	}
}

func (f *File) writeLocked() error {
	data, err := yaml.Marshal(fileDocument{Version: fileVersion, State: f.values})
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".grant-state-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
