package core

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// FailureReport writes the failed rows of each table to
// "<dir>/<table> - failed.csv" with a leading Status column.
type FailureReport struct {
	Dir string
}

// Write writes the failed rows of result. It returns the written path,
// or "" if the table had no failures.
func (r *FailureReport) Write(result TableResult) (string, error) {
	if len(result.FailedRows) == 0 {
		return "", nil
	}

	safeName := filepath.Base(result.Table)
	if safeName != result.Table {
		return "", fmt.Errorf("invalid table name for report: %q", result.Table)
	}

	if err := os.MkdirAll(r.Dir, 0755); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}

	records := make([][]string, 0, len(result.FailedRows)+1)
	header := append([]string{"Status"}, result.FailedRows[0].Row.Columns...)
	records = append(records, header)
	for _, f := range result.FailedRows {
		status := fmt.Sprintf("line %d: [%s] %s", f.LineNumber, f.Code, f.Reason)
		records = append(records, append([]string{status}, f.Row.Values...))
	}

	path := filepath.Join(r.Dir, fmt.Sprintf("%s - failed.csv", safeName))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(records); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}
