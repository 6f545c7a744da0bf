package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// ErrCorrupt marks stored data that exists but cannot be decoded.
var ErrCorrupt = errors.New("store data corrupt")

// File is a Store backed by a single JSON object on disk.
type File struct {
	mu   sync.Mutex
	path string
}

// NewFile returns a File store at path. The file and its directory are
// created on the first Set.
func NewFile(path string) *File {
	return &File{path: path}
}

// Get reads the value for key. A missing file is an absent key; an
// unparseable file is an ErrCorrupt error.
func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readAll()
	if err != nil {
		return "", false, err
	}
	v, ok := data[key]
	return v, ok, nil
}

// Set writes key and rewrites the file. A corrupt file is replaced.
func (f *File) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := f.readAll()
	if err != nil {
		if !errors.Is(err, ErrCorrupt) {
			return err
		}
		data = make(map[string]string)
	}
	data[key] = value

	return f.writeAll(data)
}

func (f *File) readAll() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	// If the file doesn't exist, it's not an error; nothing is stored yet.
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading store file: %w", err)
	}
	if len(raw) == 0 {
		return make(map[string]string), nil
	}

	data := make(map[string]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrCorrupt, f.path, err)
	}
	return data, nil
}

func (f *File) writeAll(data map[string]string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating store directory: %w", err)
	}

	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding store: %w", err)
	}

	// Write to a sibling temp file and rename so a crash never leaves a
	// half-written store.
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("error opening store file for writing: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error writing store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error closing store file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error replacing store file: %w", err)
	}
	return nil
}
