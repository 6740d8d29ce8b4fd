package dbopen

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func TestOpenMemory(t *testing.T) {
	// WHAT: In-memory DB opens, accepts DDL and DML on one connection.
	db := OpenMemory(t)

	if _, err := db.Exec(`CREATE TABLE t (id TEXT PRIMARY KEY, v INTEGER)`); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO t (id, v) VALUES ('a', 1)`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var v int
	if err := db.QueryRow(`SELECT v FROM t WHERE id = 'a'`).Scan(&v); err != nil || v != 1 {
		t.Fatalf("select: v=%d err=%v", v, err)
	}
}

func TestOpen_Pragmas(t *testing.T) {
	// WHAT: Foreign keys are enforced after Open.
	db := OpenMemory(t)

	if _, err := db.Exec(`
		CREATE TABLE parent (id TEXT PRIMARY KEY);
		CREATE TABLE child (pid TEXT REFERENCES parent(id));`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO child (pid) VALUES ('missing')`); err == nil {
		t.Fatal("expected foreign key violation")
	}
}

func TestOpen_WithSchema(t *testing.T) {
	db := OpenMemory(t, WithSchema(`CREATE TABLE docs (id TEXT PRIMARY KEY)`))
	if _, err := db.Exec(`INSERT INTO docs (id) VALUES ('doc_1')`); err != nil {
		t.Fatalf("schema not applied: %v", err)
	}
}

func TestOpen_MkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.db")
	db, err := Open(path, WithMkdirAll())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("SQLITE_BUSY: locked"), true},
		{errors.New("syntax error"), false},
	}
	for _, tt := range tests {
		if got := IsBusy(tt.err); got != tt.want {
			t.Errorf("IsBusy(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRunTx(t *testing.T) {
	// WHAT: Committed work is visible; a returned error rolls back.
	db := OpenMemory(t, WithSchema(`CREATE TABLE t (id TEXT PRIMARY KEY)`))
	ctx := context.Background()

	if err := RunTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO t (id) VALUES ('keep')`)
		return err
	}); err != nil {
		t.Fatalf("RunTx: %v", err)
	}

	wantErr := errors.New("abort")
	err := RunTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO t (id) VALUES ('drop')`); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected abort error, got %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM t`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected rollback, rows = %d", n)
	}
}
