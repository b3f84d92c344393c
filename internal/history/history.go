package history

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"eslintinsights/internal/insights"
)

// WriteCSV writes header and rows to dir/filename, creating dir if needed.
func WriteCSV(dir, filename string, header []string, data [][]string) (string, error) {
	if dir == "" {
		return "", fmt.Errorf("log directory not specified")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	filePath := filepath.Join(dir, filename)
	file, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to create CSV file %s: %w", filePath, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(header); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range data {
		if err := writer.Write(row); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV file %s: %w", filePath, err)
	}
	return filePath, nil
}

// WriteReportCSV logs the report metrics and, for failed reports, the
// annotations. Files are named after the report's created date.
func WriteReportCSV(dir string, outcome *insights.Outcome) ([]string, error) {
	stamp := time.UnixMilli(outcome.Report.CreatedDate).UTC().Format("20060102_150405")

	rows := [][]string{{"Result", string(outcome.Report.Result)}}
	for _, item := range outcome.Report.Data {
		rows = append(rows, []string{item.Title, strconv.Itoa(item.Value)})
	}

	reportFile, err := WriteCSV(dir, fmt.Sprintf("insights_report_%s.csv", stamp), []string{"Metric", "Value"}, rows)
	if err != nil {
		return nil, err
	}
	written := []string{reportFile}

	if len(outcome.Annotations) == 0 {
		return written, nil
	}

	data := make([][]string, len(outcome.Annotations))
	for i, annotation := range outcome.Annotations {
		data[i] = []string{
			annotation.Path,
			strconv.Itoa(annotation.Line),
			string(annotation.Severity),
			annotation.ExternalID,
			annotation.Message,
		}
	}

	annotationsFile, err := WriteCSV(dir, fmt.Sprintf("insights_annotations_%s.csv", stamp),
		[]string{"Path", "Line", "Severity", "ExternalID", "Message"}, data)
	if err != nil {
		return written, err
	}
	return append(written, annotationsFile), nil
}
