package exporter

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/The-culture-connection/businessesgrabber/internal/scraper"
)

const (
	allSheet     = "All Businesses"
	contactSheet = "With Contact Info"

	maxColumnWidth = 60
	maxSheetName   = 31
)

// WriteExcel writes the workbook: every record on the first sheet, the
// records with at least one contact field on the second, and optionally
// one sheet per category
func (e *FileExporter) WriteExcel(path string, records []scraper.BusinessRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), allSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := writeSheet(f, allSheet, records); err != nil {
		return err
	}

	var withContact []scraper.BusinessRecord
	for _, r := range records {
		if r.HasContactInfo() {
			withContact = append(withContact, r)
		}
	}
	if len(withContact) > 0 {
		if _, err := f.NewSheet(contactSheet); err != nil {
			return fmt.Errorf("failed to add sheet: %w", err)
		}
		if err := writeSheet(f, contactSheet, withContact); err != nil {
			return err
		}
	}

	if e.CategorySheets {
		if err := writeCategorySheets(f, records); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, records []scraper.BusinessRecord) error {
	widths := make([]int, len(columns))

	for i, h := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		widths[i] = len(h)
	}

	for r, record := range records {
		for c, value := range row(record) {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write cell: %w", err)
			}
			if len(value) > widths[c] {
				widths[c] = len(value)
			}
		}
	}

	// Fit column widths to content, capped
	for i := range columns {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := widths[i] + 2
		if width > maxColumnWidth {
			width = maxColumnWidth
		}
		if err := f.SetColWidth(sheet, col, col, float64(width)); err != nil {
			return fmt.Errorf("failed to set column width: %w", err)
		}
	}
	return nil
}

func writeCategorySheets(f *excelize.File, records []scraper.BusinessRecord) error {
	grouped := make(map[string][]scraper.BusinessRecord)
	var order []string
	for _, r := range records {
		for _, cat := range r.Categories() {
			if _, ok := grouped[cat]; !ok {
				order = append(order, cat)
			}
			grouped[cat] = append(grouped[cat], r)
		}
	}

	used := map[string]struct{}{allSheet: {}, contactSheet: {}}
	for _, cat := range order {
		name := sheetName(cat, used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, grouped[cat]); err != nil {
			return err
		}
	}
	return nil
}

// sheetName sanitizes a category value into a unique, legal worksheet
// name
func sheetName(category string, used map[string]struct{}) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return ' '
		}
		return r
	}, category)
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Category"
	}
	if len(name) > maxSheetName {
		name = name[:maxSheetName]
	}

	base := name
	for i := 2; ; i++ {
		if _, ok := used[name]; !ok {
			break
		}
		suffix := fmt.Sprintf(" %d", i)
		if len(base)+len(suffix) > maxSheetName {
			name = base[:maxSheetName-len(suffix)] + suffix
		} else {
			name = base + suffix
		}
	}
	used[name] = struct{}{}
	return name
}
