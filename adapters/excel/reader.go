package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"linklens/domain/core"
	"linklens/domain/dataset"
)

// Column names treated as response/offset rather than rating factors
const (
	targetColumn   = "target"
	exposureColumn = "exposure"
)

// DataReader loads observation frames from Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
}

// NewDataReader creates a reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType}
}

// ReadFrame reads the file into a validated observation frame. The header row
// supplies feature keys; columns named "target" and "exposure" become the
// response and offset.
func (r *DataReader) ReadFrame() (*dataset.Frame, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("data file must have a header row and at least one data row")
	}
	return r.buildFrame(rows)
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		return nil, fmt.Errorf("failed to read Sheet1: %w", err)
	}
	log.Printf("[DataReader] read %d rows from %s", len(rows), r.filePath)
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	f, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	log.Printf("[DataReader] read %d rows from %s", len(rows), r.filePath)
	return rows, nil
}

func (r *DataReader) buildFrame(rows [][]string) (*dataset.Frame, error) {
	header := rows[0]
	targetIdx, exposureIdx := -1, -1
	var keys []core.FeatureKey
	var featureIdx []int
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case targetColumn:
			targetIdx = i
		case exposureColumn:
			exposureIdx = i
		default:
			keys = append(keys, core.FeatureKey(strings.TrimSpace(name)))
			featureIdx = append(featureIdx, i)
		}
	}
	if len(keys) == 0 {
		return nil, core.ErrEmptyMatrix
	}

	n := len(rows) - 1
	data := make([][]float64, 0, n)
	var target, exposure []float64
	if targetIdx >= 0 {
		target = make([]float64, 0, n)
	}
	if exposureIdx >= 0 {
		exposure = make([]float64, 0, n)
	}

	for lineNo, row := range rows[1:] {
		out := make([]float64, len(featureIdx))
		for k, idx := range featureIdx {
			v, err := parseCell(row, idx)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", lineNo+2, header[idx], err)
			}
			out[k] = v
		}
		data = append(data, out)

		if targetIdx >= 0 {
			v, err := parseCell(row, targetIdx)
			if err != nil {
				return nil, fmt.Errorf("row %d target: %w", lineNo+2, err)
			}
			target = append(target, v)
		}
		if exposureIdx >= 0 {
			v, err := parseCell(row, exposureIdx)
			if err != nil {
				return nil, fmt.Errorf("row %d exposure: %w", lineNo+2, err)
			}
			exposure = append(exposure, v)
		}
	}

	frame := dataset.NewFrame(data, keys)
	frame.Target = target
	frame.Exposure = exposure
	if err := frame.Validate(); err != nil {
		return nil, err
	}
	return frame, nil
}

func parseCell(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return 0, fmt.Errorf("missing cell")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[idx]), 64)
	if err != nil {
		return 0, fmt.Errorf("non-numeric cell %q", row[idx])
	}
	return v, nil
}
