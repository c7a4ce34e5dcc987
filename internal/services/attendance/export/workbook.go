// Package export renders month timesheets as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/shiftproof/shiftproof/internal/services/attendance/domain/timesheet"
)

// ContentType is the media type of the written workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const maxSheetNameLength = 31

var header = []any{"Day", "Date", "First start", "Last end", "Minutes"}

// WriteWorkbook writes one sheet per timesheet, one row per calendar day of
// the month and a closing total row.
func WriteWorkbook(w io.Writer, sheets []timesheet.MonthTimesheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("at least one timesheet is required")
	}

	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	used := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		name := uniqueSheetName(sheet.EmployeeID, used)
		if i == 0 {
			if err := file.SetSheetName(file.GetSheetName(0), name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := file.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
		if err := writeSheet(file, name, sheet); err != nil {
			return err
		}
	}
	file.SetActiveSheet(0)

	if err := file.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(file *excelize.File, name string, sheet timesheet.MonthTimesheet) error {
	loc := sheet.Location
	if loc == nil {
		loc = time.UTC
	}
	if err := file.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := 2
	for _, day := range sheet.Days {
		if !day.InMonth {
			continue
		}
		date := time.Date(sheet.Month.Year, sheet.Month.Month, day.Day, 0, 0, 0, 0, loc)
		values := []any{day.Day, date.Format(time.DateOnly), clock(day.FirstStart, loc), clock(day.LastEnd, loc), roundMinutes(day.Minutes())}
		if err := setRow(file, name, row, values); err != nil {
			return err
		}
		row++
	}
	total := []any{"Total", sheet.Month.String(), "", "", roundMinutes(sheet.TotalMinutes())}
	if err := setRow(file, name, row, total); err != nil {
		return err
	}
	if err := file.SetColWidth(name, "B", "D", 12); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	return nil
}

func setRow(file *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d: %w", row, err)
	}
	return nil
}

func clock(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04")
}

func roundMinutes(minutes float64) float64 {
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(minutes, 'f', 2, 64), 64)
	return rounded
}

// uniqueSheetName strips characters Excel forbids in sheet names and
// disambiguates names that collide after truncation.
func uniqueSheetName(employeeID string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(employeeID))
	if base == "" {
		base = "employee"
	}
	base = truncate(base, maxSheetNameLength)

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		name = truncate(base, maxSheetNameLength-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
