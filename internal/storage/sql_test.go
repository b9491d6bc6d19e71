package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func openTestSQLite(t *testing.T) Store {
	t.Helper()
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreTests(t, openTestSQLite)
}

func TestOpenSQLiteCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "chat.db")
	s, err := Open(context.Background(), Options{Driver: DriverSQLite, DSN: path})
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("database file not created: %v", err)
	}
}

func TestSQLiteReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "chat.db")

	s, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	id, err := s.AddConversation(ctx, &Conversation{Title: "persisted", Timestamp: 5})
	if err != nil {
		t.Fatalf("AddConversation() error: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer s.Close()

	got, err := s.GetConversation(ctx, id)
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if got.Title != "persisted" {
		t.Errorf("Title = %q, want persisted", got.Title)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		dialect string
		in      string
		want    string
	}{
		{dialectSQLite, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{dialectPostgres, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = $1 AND b = $2"},
		{dialectPostgres, "UPDATE t SET a = ?", "UPDATE t SET a = $1"},
	}
	for _, tt := range tests {
		s := &SQLStore{dialect: tt.dialect}
		if got := s.rebind(tt.in); got != tt.want {
			t.Errorf("rebind(%q) [%s] = %q, want %q", tt.in, tt.dialect, got, tt.want)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Options{Driver: "mongo"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}
