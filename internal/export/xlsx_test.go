package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okservice/repairdesk/internal/db"
)

func TestWorkbookRows(t *testing.T) {
	created := time.Date(2026, 5, 6, 7, 8, 0, 0, time.UTC)
	rows := []db.Request{
		{ID: 3, Name: "Carol", Phone: "333", Problem: "no sound", CreatedAt: created},
		{ID: 2, Name: "Bob", Phone: "222", CreatedAt: created},
		{ID: 1, Name: "Alice", Phone: "111", Problem: "screen", CreatedAt: created},
	}

	data, err := Workbook(rows, nil)
	if err != nil {
		t.Fatalf("Workbook failed: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to read workbook back: %v", err)
	}
	defer f.Close()

	got, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(got) != len(rows)+1 {
		t.Fatalf("expected %d rows, got %d", len(rows)+1, len(got))
	}

	header := got[0]
	for i, want := range []string{"ID", "Name", "Phone", "Problem", "Date"} {
		if header[i] != want {
			t.Errorf("header[%d] = %q, want %q", i, header[i], want)
		}
	}

	for i, id := range []string{"3", "2", "1"} {
		if got[i+1][0] != id {
			t.Errorf("row %d: expected id %s, got %s", i+1, id, got[i+1][0])
		}
	}
	if got[1][1] != "Carol" || got[1][3] != "no sound" || got[1][4] != "2026-05-06 07:08" {
		t.Errorf("unexpected first data row %v", got[1])
	}
}

func TestWorkbookEmpty(t *testing.T) {
	data, err := Workbook(nil, nil)
	if err != nil {
		t.Fatalf("Workbook failed: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to read workbook back: %v", err)
	}
	defer f.Close()

	got, _ := f.GetRows(SheetName)
	if len(got) != 1 {
		t.Errorf("expected only the header row, got %d rows", len(got))
	}
}

func TestWorkbookLocation(t *testing.T) {
	rows := []db.Request{{ID: 1, Name: "A", Phone: "1", CreatedAt: time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)}}
	data, err := Workbook(rows, time.FixedZone("UTC+5", 5*3600))
	if err != nil {
		t.Fatalf("Workbook failed: %v", err)
	}
	f, _ := excelize.OpenReader(bytes.NewReader(data))
	defer f.Close()
	got, _ := f.GetRows(SheetName)
	if got[1][4] != "2026-01-02 03:00" {
		t.Errorf("expected date in the given zone, got %q", got[1][4])
	}
}
