package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"spreadsim/internal/infra/persistence/postgres/testutil"
	"spreadsim/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreCreatesTableAndLoadsRuns(t *testing.T) {
	db, conn := testutil.NewStubDB()
	payload, err := json.Marshal(domain.Run{ID: "seeded", Name: "from-db", Ticks: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	conn.Tables["runs"] = []map[string]any{{"id": "seeded", "payload": payload}}

	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore("postgres://example/spreadsim")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	run, ok := store.GetRun("seeded")
	if !ok || run.Name != "from-db" || run.Ticks != 3 {
		t.Fatalf("expected seeded run, got %+v", run)
	}
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS RUNS") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected runs table DDL, got %v", conn.Execs)
	}
}

func TestSaveAndDeleteRun(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)
	run := domain.Run{ID: "r1", Name: "demo", StartedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save: %v", err)
	}
	run.Name = "renamed"
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rows := conn.Tables["runs"]; len(rows) != 1 {
		t.Fatalf("expected single row after upsert, got %d", len(rows))
	}
	if got, _ := store.GetRun("r1"); got.Name != "renamed" {
		t.Fatalf("expected index updated, got %+v", got)
	}
	if err := store.DeleteRun(ctx, "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(conn.Tables["runs"]) != 0 || store.Has("r1") {
		t.Fatalf("expected run removed from table and index")
	}
	if err := store.DeleteRun(ctx, "r1"); !errors.Is(err, domain.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSaveRunFailuresLeaveIndexUntouched(t *testing.T) {
	ctx := context.Background()
	store, conn := openStub(t)

	conn.FailExec["INSERT"] = true
	if err := store.SaveRun(ctx, domain.Run{ID: "x"}); err == nil {
		t.Fatalf("expected insert failure")
	}
	conn.FailExec["INSERT"] = false
	conn.FailCommit = true
	if err := store.SaveRun(ctx, domain.Run{ID: "x"}); err == nil {
		t.Fatalf("expected commit failure")
	}
	if store.Has("x") {
		t.Fatalf("expected failed saves to skip the index")
	}
	if err := store.SaveRun(ctx, domain.Run{}); err == nil {
		t.Fatalf("expected error for missing id")
	}
}

func TestNewStoreErrors(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.FailPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()
	if _, err := NewStore(""); err == nil || !strings.Contains(err.Error(), "ping") {
		t.Fatalf("expected ping error, got %v", err)
	}

	db2, conn2 := testutil.NewStubDB()
	conn2.Tables["runs"] = []map[string]any{{"id": "bad", "payload": []byte("{not json")}}
	restore2 := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db2, nil })
	defer restore2()
	if _, err := NewStore(""); err == nil || !strings.Contains(err.Error(), "decode run bad") {
		t.Fatalf("expected decode error, got %v", err)
	}

	restore3 := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return nil, errors.New("no driver") })
	defer restore3()
	if _, err := NewStore(""); err == nil {
		t.Fatalf("expected open error")
	}
}
