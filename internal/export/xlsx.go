// Package export renders stored requests as an Excel workbook.
package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okservice/repairdesk/internal/db"
)

const (
	SheetName = "Requests"
	FileName  = "requests.xlsx"
	// ContentType is the MIME type of the generated workbook.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var Header = []interface{}{"ID", "Name", "Phone", "Problem", "Date"}

const dateLayout = "2006-01-02 15:04"

// Workbook writes a header row and one row per request, in the order given.
// Dates are rendered in loc; nil means UTC.
func Workbook(rows []db.Request, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(SheetName, "A1", &Header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{r.ID, r.Name, r.Phone, r.Problem, r.CreatedAt.In(loc).Format(dateLayout)}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r.ID, err)
		}
	}

	if err := f.SetColWidth(SheetName, "B", "D", 24); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
