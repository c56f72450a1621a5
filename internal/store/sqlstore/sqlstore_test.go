package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/store"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), SQLite, filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertList(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	base := time.Date(2025, 9, 1, 8, 0, 0, 123456789, time.UTC)

	older := model.Task{ID: "a", Title: "older", CreatedAt: base}
	newer := model.Task{ID: "b", Title: "newer", Notes: "n", Priority: model.PriorityHigh, CreatedAt: base.Add(time.Hour)}
	other := model.Task{ID: "c", Title: "someone else", CreatedAt: base}
	for _, x := range []struct {
		uid string
		t   model.Task
	}{{"u1", older}, {"u1", newer}, {"u2", other}} {
		if _, err := s.Insert(ctx, x.uid, x.t); err != nil {
			t.Fatal(err)
		}
	}

	got, err := s.List(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	older.CreatedAt = model.Timestamp(older.CreatedAt)
	newer.CreatedAt = model.Timestamp(newer.CreatedAt)
	want := []model.Task{newer, older}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List:\n got %+v\nwant %+v", got, want)
	}

	empty, err := s.List(ctx, "nobody")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("List(nobody) = %#v, %v", empty, err)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	created := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	if _, err := s.Insert(ctx, "u1", model.Task{ID: "a", Title: "a", Notes: "keep", CreatedAt: created}); err != nil {
		t.Fatal(err)
	}

	done := true
	title := "renamed"
	prio := model.PriorityLow
	if err := s.Update(ctx, "a", model.Patch{IsCompleted: &done, Title: &title, Priority: &prio}); err != nil {
		t.Fatal(err)
	}
	got, _ := s.List(ctx, "u1")
	want := model.Task{ID: "a", Title: "renamed", Notes: "keep", Priority: model.PriorityLow, IsCompleted: true, CreatedAt: created}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("after update = %+v", got)
	}

	// same values again still match the row
	if err := s.Update(ctx, "a", model.Patch{IsCompleted: &done}); err != nil {
		t.Errorf("idempotent update: %v", err)
	}

	blank := ""
	none := model.PriorityNone
	if err := s.Update(ctx, "a", model.Patch{Notes: &blank, Priority: &none}); err != nil {
		t.Fatal(err)
	}
	got, _ = s.List(ctx, "u1")
	if got[0].Notes != "" || got[0].Priority != model.PriorityNone {
		t.Errorf("cleared fields = %+v", got[0])
	}
}

func TestMissingRow(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	done := true
	if err := s.Update(ctx, "ghost", model.Patch{IsCompleted: &done}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Update(ghost) = %v", err)
	}
	if err := s.Delete(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Delete(ghost) = %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	if _, err := s.Insert(ctx, "u1", model.Task{ID: "a", Title: "a", CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.List(ctx, "u1"); len(got) != 0 {
		t.Errorf("left = %+v", got)
	}
}

func TestDuplicateInsertFails(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	task := model.Task{ID: "a", Title: "a", CreatedAt: time.Now()}
	if _, err := s.Insert(ctx, "u1", task); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, "u1", task); err == nil {
		t.Error("duplicate id accepted")
	}
}

func TestOpenRejectsUnknownDialect(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x"); err == nil {
		t.Error("unknown dialect accepted")
	}
}

func TestOpenMySQLBadDSN(t *testing.T) {
	if _, err := Open(context.Background(), MySQL, "not a dsn"); err == nil {
		t.Error("bad dsn accepted")
	}
}
