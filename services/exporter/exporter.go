package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"github.com/The-culture-connection/businessesgrabber/internal/scraper"
)

// Column order of all tabular outputs
var columns = []string{
	"Name", "Category", "Description", "Address", "Phone", "Email",
	"Website", "City", "State", "Zip", "Source_URL",
}

// FileExporter writes record sets to XLSX, CSV and JSON files.
// All three formats share the same schema; the JSON form doubles as the
// checkpoint format.
type FileExporter struct {
	// CategorySheets adds one worksheet per category to XLSX output
	CategorySheets bool
}

func row(r scraper.BusinessRecord) []string {
	return []string{
		r.Name, r.Category, r.Description, r.Address, r.Phone, r.Email,
		r.Website, r.City, r.State, r.Zip, r.SourceURL,
	}
}

// WriteJSON writes the records as an indented JSON array, overwriting
// any previous file
func (e *FileExporter) WriteJSON(path string, records []scraper.BusinessRecord) error {
	if records == nil {
		records = []scraper.BusinessRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteCSV writes the records as a CSV table with a header row
func (e *FileExporter) WriteCSV(path string, records []scraper.BusinessRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
