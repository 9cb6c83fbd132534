package store

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func exercise(t *testing.T, s Store) {
	t.Helper()
	if s.UserID() != "" || s.LogUserID() != "" || s.ClientConfig() != nil {
		t.Fatalf("new store not empty")
	}
	if err := s.SetUserID("foo"); err != nil {
		t.Fatalf("SetUserID: %v", err)
	}
	if err := s.SetLogUserID("lu-1"); err != nil {
		t.Fatalf("SetLogUserID: %v", err)
	}
	blob := []byte{1, 2, 3}
	if err := s.SetClientConfig(blob); err != nil {
		t.Fatalf("SetClientConfig: %v", err)
	}
	blob[0] = 9

	if s.UserID() != "foo" {
		t.Errorf("UserID() = %q, want foo", s.UserID())
	}
	if s.LogUserID() != "lu-1" {
		t.Errorf("LogUserID() = %q, want lu-1", s.LogUserID())
	}
	if got := s.ClientConfig(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("ClientConfig() = %v, want [1 2 3]", got)
	}

	// last write wins
	_ = s.SetUserID("bar")
	if s.UserID() != "bar" {
		t.Errorf("UserID() = %q, want bar", s.UserID())
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "beacon.cbor")

	f, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	exercise(t, f)

	reopened, err := OpenFile(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.UserID() != "bar" || reopened.LogUserID() != "lu-1" {
		t.Errorf("reopened = %q/%q, want bar/lu-1", reopened.UserID(), reopened.LogUserID())
	}
	if !bytes.Equal(reopened.ClientConfig(), []byte{1, 2, 3}) {
		t.Errorf("reopened ClientConfig() = %v", reopened.ClientConfig())
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1 (no leftover temp files)", len(entries))
	}
}

func TestOpenFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "beacon.cbor")
	if err := os.WriteFile(path, []byte{0xff, 0xff}, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenFile(path); err == nil {
		t.Error("OpenFile(corrupt) error = nil")
	}
}
