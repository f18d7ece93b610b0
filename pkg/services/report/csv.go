package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

const missingValue = "N/A"

// Columns is the fixed layout of the finding report. Other fields of a
// finding are dropped.
var Columns = []string{"control_id", "status", "resource", "description"}

// RenderCSV writes one row per finding. Nothing is written, not even the
// header, when there are no findings.
func RenderCSV(w io.Writer, findings []map[string]any) error {
	if len(findings) == 0 {
		return nil
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, f := range findings {
		row := make([]string, 0, len(Columns))
		for _, col := range Columns {
			row = append(row, cell(f, col))
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// RenderScanCSV renders the findings blob stored on a scan.
func RenderScanCSV(w io.Writer, blob []byte) error {
	if len(blob) == 0 {
		return nil
	}

	var findings []map[string]any
	if err := json.Unmarshal(blob, &findings); err != nil {
		return fmt.Errorf("decode findings: %w", err)
	}
	return RenderCSV(w, findings)
}

func cell(f map[string]any, col string) string {
	v, ok := f[col]
	if !ok || v == nil {
		return missingValue
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
