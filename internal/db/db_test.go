package db

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestAppendAndList(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	req, err := s.Append(ctx, "Alice", "555-0100", "screen won't turn on", SourceChat)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if req.ID == 0 {
		t.Fatal("expected non-zero ID after append")
	}
	if req.CreatedAt.IsZero() {
		t.Fatal("expected created_at to be set by the store")
	}

	requests, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(requests))
	}
	got := requests[0]
	if got.ID != req.ID || got.Name != "Alice" || got.Phone != "555-0100" {
		t.Errorf("unexpected request %+v", got)
	}
	if got.Problem != "screen won't turn on" {
		t.Errorf("expected problem to round-trip, got %q", got.Problem)
	}
	if got.Source != SourceChat {
		t.Errorf("expected source chat, got %q", got.Source)
	}
}

func TestAppendRejectsMissingFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	cases := []struct{ name, phone string }{
		{"", "555-0200"},
		{"Bob", ""},
		{"   ", "555-0200"},
		{"Bob", "\t"},
	}
	for _, c := range cases {
		_, err := s.Append(ctx, c.name, c.phone, "", SourceSite)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("Append(%q, %q): expected ErrValidation, got %v", c.name, c.phone, err)
		}
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no rows after rejected appends, got %d", n)
	}
}

func TestAppendNormalizesSource(t *testing.T) {
	s := setupTestStore(t)

	req, err := s.Append(context.Background(), "Carol", "555-0300", "", Source("fax"))
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if req.Source != SourceUnknown {
		t.Errorf("expected unknown source, got %q", req.Source)
	}
}

func TestListOrderedNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"first", "second", "third"} {
		if _, err := s.Append(ctx, name, "555", "", SourceChat); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	requests, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(requests) != 3 {
		t.Fatalf("expected 3 requests, got %d", len(requests))
	}
	if requests[0].Name != "third" {
		t.Errorf("expected newest first, got %q", requests[0].Name)
	}
	for i := 1; i < len(requests); i++ {
		if requests[i-1].ID <= requests[i].ID {
			t.Errorf("ids not descending: %d then %d", requests[i-1].ID, requests[i].ID)
		}
		if requests[i-1].CreatedAt.Before(requests[i].CreatedAt) {
			t.Errorf("created_at decreases with id at %d", i)
		}
	}

	ascending, err := s.ListAll(ctx, Order{Column: "id", Ascending: true})
	if err != nil {
		t.Fatalf("ListAll ascending failed: %v", err)
	}
	if ascending[0].Name != "first" {
		t.Errorf("expected oldest first, got %q", ascending[0].Name)
	}

	if _, err := s.ListAll(ctx, Order{Column: "phone; DROP TABLE requests"}); err == nil {
		t.Error("expected unsupported order column to fail")
	}
}

func TestListEmptyStore(t *testing.T) {
	s := setupTestStore(t)

	requests, err := s.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if requests == nil || len(requests) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", requests)
	}
}

func TestSearchByName(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "Alice Zyxwv", "555-0100", "", SourceChat)
	s.Append(ctx, "Bob", "555-0200", "", SourceSite)
	s.Append(ctx, "Алексей", "555-0300", "", SourceChat)

	found, err := s.SearchByName(ctx, "zyXW")
	if err != nil {
		t.Fatalf("SearchByName failed: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Alice Zyxwv" {
		t.Errorf("expected Alice, got %+v", found)
	}

	found, err = s.SearchByName(ctx, "АЛЕК")
	if err != nil {
		t.Fatalf("SearchByName failed: %v", err)
	}
	if len(found) != 1 || found[0].Name != "Алексей" {
		t.Errorf("expected case-insensitive Cyrillic match, got %+v", found)
	}

	found, err = s.SearchByName(ctx, "nobody")
	if err != nil {
		t.Fatalf("SearchByName failed: %v", err)
	}
	if found == nil || len(found) != 0 {
		t.Errorf("expected empty result, got %#v", found)
	}
}

func TestClearAll(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	s.Append(ctx, "a", "1", "", SourceChat)
	s.Append(ctx, "b", "2", "", SourceSite)
	last, err := s.Append(ctx, "c", "3", "", SourceSite)
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	removed, err := s.ClearAll(ctx)
	if err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}

	requests, _ := s.ListAll(ctx)
	if len(requests) != 0 {
		t.Errorf("expected empty store after clear, got %d", len(requests))
	}

	// Clearing an empty store is a no-op.
	removed, err = s.ClearAll(ctx)
	if err != nil {
		t.Fatalf("second ClearAll failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("expected 0 removed, got %d", removed)
	}

	next, err := s.Append(ctx, "d", "4", "", SourceChat)
	if err != nil {
		t.Fatalf("Append after clear failed: %v", err)
	}
	if next.ID <= last.ID {
		t.Errorf("expected id %d to be greater than pre-clear id %d", next.ID, last.ID)
	}
}

func TestConcurrentAppend(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	const workers, perWorker = 4, 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			source := SourceChat
			if w%2 == 1 {
				source = SourceSite
			}
			for i := 0; i < perWorker; i++ {
				if _, err := s.Append(ctx, fmt.Sprintf("w%d-%d", w, i), "555", "", source); err != nil {
					t.Errorf("append w%d-%d failed: %v", w, i, err)
				}
			}
		}(w)
	}
	wg.Wait()

	requests, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(requests) != workers*perWorker {
		t.Fatalf("expected %d requests, got %d", workers*perWorker, len(requests))
	}
	seen := make(map[uint]bool, len(requests))
	for _, r := range requests {
		if seen[r.ID] {
			t.Errorf("duplicate id %d", r.ID)
		}
		seen[r.ID] = true
		if r.Name == "" || r.Phone == "" {
			t.Errorf("partially written row %+v", r)
		}
	}
}

func TestConcurrentAppendKeepsCreatedAtOrdered(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	const workers, perWorker = 32, 25
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Append(ctx, fmt.Sprintf("w%d-%d", w, i), "555", "", SourceSite); err != nil {
					t.Errorf("append w%d-%d failed: %v", w, i, err)
				}
			}
		}(w)
	}
	wg.Wait()

	rows, err := s.ListAll(ctx, Order{Column: "id", Ascending: true})
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(rows) != workers*perWorker {
		t.Fatalf("expected %d requests, got %d", workers*perWorker, len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].CreatedAt.Before(rows[i-1].CreatedAt) {
			t.Fatalf("id %d has created_at %v before id %d at %v",
				rows[i].ID, rows[i].CreatedAt, rows[i-1].ID, rows[i-1].CreatedAt)
		}
	}
}

func TestOpenSQLiteFileIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "requests.db")

	s, err := Open(ctx, Options{Path: path})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := s.Append(ctx, "Dana", "555-0400", "fan noise", SourceSite); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := Open(ctx, Options{Path: path})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	if err := reopened.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}
	n, err := reopened.Count(ctx)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected the row to survive reopen, got %d", n)
	}
}

func TestInitializeToleratesLegacyDateColumn(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.db.Exec("DROP TABLE requests").Error; err != nil {
		t.Fatalf("drop failed: %v", err)
	}
	legacy := `CREATE TABLE requests (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, phone TEXT, problem TEXT, date TEXT)`
	if err := s.db.Exec(legacy).Error; err != nil {
		t.Fatalf("create legacy table failed: %v", err)
	}
	insert := `INSERT INTO requests (name, phone, problem, date) VALUES (?, ?, ?, ?)`
	if err := s.db.Exec(insert, "Old", "555-0001", "", "2024-03-05 14:30").Error; err != nil {
		t.Fatalf("insert legacy row failed: %v", err)
	}
	if err := s.db.Exec(insert, "Odd", "555-0002", "", "вчера").Error; err != nil {
		t.Fatalf("insert legacy row failed: %v", err)
	}

	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("Initialize on legacy table failed: %v", err)
	}
	if !s.db.Migrator().HasColumn(&Request{}, "source") || !s.db.Migrator().HasColumn(&Request{}, "created_at") {
		t.Fatal("expected canonical columns to be added")
	}

	rows, err := s.ListAll(ctx, Order{Column: "id", Ascending: true})
	if err != nil {
		t.Fatalf("ListAll on migrated table failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 legacy rows, got %d", len(rows))
	}
	if want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC); !rows[0].CreatedAt.Equal(want) {
		t.Errorf("expected created_at backfilled to %v, got %v", want, rows[0].CreatedAt)
	}
	if !rows[1].CreatedAt.IsZero() {
		t.Errorf("unparseable legacy date must be left alone, got %v", rows[1].CreatedAt)
	}

	// A second start does not touch rows again.
	if err := s.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize failed: %v", err)
	}

	if _, err := s.Append(ctx, "Eve", "555-0500", "", SourceChat); err != nil {
		t.Fatalf("Append on migrated table failed: %v", err)
	}
}

func TestOpenRequiresPathWithoutURL(t *testing.T) {
	if _, err := Open(context.Background(), Options{}); err == nil {
		t.Fatal("expected error without DATABASE_URL or path")
	}
}
