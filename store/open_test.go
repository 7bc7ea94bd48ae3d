package store

import (
	"context"
	"path/filepath"
	"testing"

	"todo-api/config"
)

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, config.StoreConfig{Driver: config.DriverMemory})
	if err != nil {
		t.Fatalf("Open memory: %v", err)
	}
	if _, ok := st.(*Memory); !ok {
		t.Fatalf("got %T", st)
	}

	st, err = Open(ctx, config.StoreConfig{
		Driver:     config.DriverSQLite,
		TableName:  "todos",
		SQLitePath: filepath.Join(t.TempDir(), "todos.db"),
	})
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer st.Close()
	if _, ok := st.(Sweeper); !ok {
		t.Fatalf("sqlite store %T should sweep", st)
	}

	if _, err := Open(ctx, config.StoreConfig{Driver: "cassandra"}); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestOpenSQLiteConnectionLimit(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenSQLite(ctx, ":memory:", "tasks")
	if err != nil {
		t.Fatalf("OpenSQLite memory: %v", err)
	}
	defer mem.Close()
	if got := mem.db.Stats().MaxOpenConnections; got != 1 {
		t.Fatalf(":memory: max open conns=%d, want 1", got)
	}

	file, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "tasks.db"), "tasks")
	if err != nil {
		t.Fatalf("OpenSQLite file: %v", err)
	}
	defer file.Close()
	if got := file.db.Stats().MaxOpenConnections; got != 0 {
		t.Fatalf("file max open conns=%d, want unlimited", got)
	}
}
