package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// record is the persisted shape.
type record struct {
	UserID       string `cbor:"user_id,omitempty"`
	LogUserID    string `cbor:"log_user_id,omitempty"`
	ClientConfig []byte `cbor:"client_config,omitempty"`
}

var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("store: CBOR encoder initialization failed: " + err.Error())
	}
}

// File is a Store backed by one CBOR file. Every write rewrites the file
// atomically (temp file + rename).
type File struct {
	mu     sync.Mutex
	path   string
	record record
}

// OpenFile opens the store at path, loading existing values. A missing
// file is an empty store; the directory is created on first write.
func OpenFile(path string) (*File, error) {
	f := &File{path: path}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := cbor.Unmarshal(data, &f.record); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", path, err)
	}
	return f, nil
}

// Path returns the backing file path.
func (f *File) Path() string { return f.path }

// UserID implements Store.
func (f *File) UserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record.UserID
}

// SetUserID implements Store.
func (f *File) SetUserID(id string) error {
	return f.update(func(r *record) { r.UserID = id })
}

// LogUserID implements Store.
func (f *File) LogUserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.record.LogUserID
}

// SetLogUserID implements Store.
func (f *File) SetLogUserID(id string) error {
	return f.update(func(r *record) { r.LogUserID = id })
}

// ClientConfig implements Store.
func (f *File) ClientConfig() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.record.ClientConfig...)
}

// SetClientConfig implements Store.
func (f *File) SetClientConfig(blob []byte) error {
	blob = append([]byte(nil), blob...)
	return f.update(func(r *record) { r.ClientConfig = blob })
}

// update applies fn in memory, then persists. The in-memory value is kept
// even when the write fails.
func (f *File) update(fn func(*record)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	fn(&f.record)
	data, err := encMode.Marshal(f.record)
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	return writeAtomic(f.path, data)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: rename: %w", err)
	}
	return nil
}
