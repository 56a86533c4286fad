package ingestion

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/datagov/internal/domain"
	"github.com/rpattn/datagov/internal/schema"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	dateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006/01/02",
		"01/02/2006",
		"02/01/2006",
	}
)

// ValidateOptions bounds the validator's stored output. All rows are still
// counted; the bounds only cap what is retained for operator review.
type ValidateOptions struct {
	MaxRows    int
	MaxPreview int
	MaxErrors  int
}

const (
	defaultMaxRows    = 50000
	defaultMaxPreview = 20
	defaultMaxErrors  = 50
)

func (o ValidateOptions) withDefaults() ValidateOptions {
	if o.MaxRows <= 0 {
		o.MaxRows = defaultMaxRows
	}
	if o.MaxPreview <= 0 {
		o.MaxPreview = defaultMaxPreview
	}
	if o.MaxErrors <= 0 {
		o.MaxErrors = defaultMaxErrors
	}
	return o
}

// Result is the full validator output. ValidatedRows holds every valid row
// (the promotion payload); Preview is the bounded subset shown to operators.
type Result struct {
	Status         domain.IngestionStatus `json:"status"`
	RowsParsed     int                    `json:"rows_parsed"`
	ValidRows      int                    `json:"valid_rows"`
	Errors         []domain.RowError      `json:"errors"`
	ErrorCount     int                    `json:"error_count"`
	Warnings       []string               `json:"warnings"`
	Preview        []map[string]string    `json:"preview"`
	ValidatedRows  []map[string]any       `json:"validated_rows"`
	MissingColumns []string               `json:"missing_columns"`
	ExtraColumns   []string               `json:"extra_columns"`
}

// tableRow keeps each data row together with its original 0-based record
// index, so reported row numbers survive blank rows in the source file.
type tableRow struct {
	index int
	cells []string
}

type tableData struct {
	headers []string
	rows    []tableRow
}

// Validate checks tabular content against a dataset contract. It performs no
// I/O, has no side effects, and returns the same result for the same input.
//
// Missing required columns fail immediately with no row-level validation.
// Extra columns are a warning. Each row is checked independently; a
// required-but-empty cell or a type mismatch marks the row invalid.
func Validate(fileName string, content []byte, ds schema.Dataset, opts ValidateOptions) (Result, error) {
	opts = opts.withDefaults()

	result := Result{
		Errors:         []domain.RowError{},
		Warnings:       []string{},
		Preview:        []map[string]string{},
		ValidatedRows:  []map[string]any{},
		MissingColumns: []string{},
		ExtraColumns:   []string{},
	}

	if len(content) == 0 {
		return result, errors.New("file is empty")
	}

	table, err := parseTable(fileName, content)
	if err != nil {
		return result, err
	}
	if len(table.headers) == 0 {
		return result, errors.New("no header row detected")
	}

	headerSet := make(map[string]int, len(table.headers))
	for idx, header := range table.headers {
		headerSet[header] = idx
	}

	for _, col := range ds.Columns {
		if _, ok := headerSet[col.Name]; !ok && col.Required {
			result.MissingColumns = append(result.MissingColumns, col.Name)
		}
	}
	if len(result.MissingColumns) > 0 {
		result.Status = domain.IngestionStatusFail
		return result, nil
	}

	for _, header := range table.headers {
		if _, ok := ds.Column(header); !ok {
			result.ExtraColumns = append(result.ExtraColumns, header)
			result.Warnings = append(result.Warnings, fmt.Sprintf("column %q is not part of the %s schema and will be ignored", header, ds.Name))
		}
	}

	rows := table.rows
	if len(rows) > opts.MaxRows {
		result.Warnings = append(result.Warnings, fmt.Sprintf("row count %d exceeds limit %d; extra rows skipped", len(rows), opts.MaxRows))
		rows = rows[:opts.MaxRows]
	}

	for _, tr := range rows {
		row := tr.cells
		rowNumber := tr.index + 1 // 1-based spreadsheet row
		result.RowsParsed++

		validated := make(map[string]any, len(ds.Columns))
		rowValid := true

		for _, col := range ds.Columns {
			colIdx, declared := headerSet[col.Name]
			if !declared {
				continue // optional column absent from the upload
			}

			raw := ""
			if colIdx < len(row) {
				raw = strings.TrimSpace(row[colIdx])
			}

			if raw == "" {
				if col.Required {
					rowValid = false
					result.recordError(rowNumber, col.Name, "Missing required value", opts.MaxErrors)
				}
				continue
			}

			value, coerceErr := coerceValue(col.Type, raw)
			if coerceErr != nil {
				rowValid = false
				result.recordError(rowNumber, col.Name, coerceErr.Error(), opts.MaxErrors)
				continue
			}
			validated[col.Name] = value
		}

		if !rowValid {
			continue
		}

		result.ValidRows++
		result.ValidatedRows = append(result.ValidatedRows, validated)

		if len(result.Preview) < opts.MaxPreview {
			preview := make(map[string]string, len(table.headers))
			for colIdx, header := range table.headers {
				if colIdx < len(row) {
					preview[header] = strings.TrimSpace(row[colIdx])
				} else {
					preview[header] = ""
				}
			}
			result.Preview = append(result.Preview, preview)
		}
	}

	switch {
	case result.ValidRows == 0:
		result.Status = domain.IngestionStatusFail
	case result.ErrorCount > 0 || len(result.Warnings) > 0:
		result.Status = domain.IngestionStatusWarn
	default:
		result.Status = domain.IngestionStatusPass
	}

	return result, nil
}

func (r *Result) recordError(row int, column, message string, maxErrors int) {
	r.ErrorCount++
	if len(r.Errors) < maxErrors {
		r.Errors = append(r.Errors, domain.RowError{Row: row, Column: column, Message: message})
	}
}

func coerceValue(colType schema.ColumnType, raw string) (any, error) {
	switch colType {
	case schema.ColumnTypeString:
		return raw, nil
	case schema.ColumnTypeNumber:
		cleaned := strings.ReplaceAll(raw, ",", "")
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, fmt.Errorf("value %q is not a number", raw)
		}
		return f, nil
	case schema.ColumnTypeDate:
		for _, layout := range dateLayouts {
			if ts, err := time.Parse(layout, raw); err == nil {
				return ts.Format("2006-01-02"), nil
			}
		}
		return nil, fmt.Errorf("value %q is not a recognized date", raw)
	case schema.ColumnTypeBoolean:
		switch strings.ToLower(raw) {
		case "1", "yes", "y":
			return true, nil
		case "0", "no", "n":
			return false, nil
		}
		b, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return nil, fmt.Errorf("value %q is not a boolean", raw)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown column type %q", colType)
	}
}

func parseTable(fileName string, payload []byte) (tableData, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read csv: %w", err)
	}

	return normalizeTable(records)
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}

	return normalizeTable(rows)
}

func normalizeTable(records [][]string) (tableData, error) {
	if len(records) == 0 {
		return tableData{}, errors.New("no rows found in file")
	}

	var headerRow []string
	var dataRows []tableRow

	for idx, row := range records {
		if rowEmpty(row) {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, tableRow{index: idx, cells: row})
	}

	if headerRow == nil {
		return tableData{}, errors.New("header row could not be detected")
	}

	headers := sanitizeHeaders(headerRow)

	return tableData{
		headers: headers,
		rows:    dataRows,
	}, nil
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int)

	for idx, value := range raw {
		name := strings.TrimSpace(value)
		name = strings.ToLower(name)
		name = strings.ReplaceAll(name, " ", "_")
		name = strings.ReplaceAll(name, ".", "_")
		name = strings.ReplaceAll(name, "-", "_")
		name = strings.Trim(name, "_")
		if name == "" {
			name = fmt.Sprintf("column_%d", idx+1)
		}

		base := name
		count := seen[base]
		if count > 0 {
			name = fmt.Sprintf("%s_%d", base, count+1)
		}
		seen[base] = count + 1

		headers[idx] = name
	}

	return headers
}
