package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"linklens/adapters/stats/reconstruct"
	"linklens/domain/attribution"
)

// ReportWriter exports contribution tables and reconstruction reports to xlsx
type ReportWriter struct {
	filePath string
}

// NewReportWriter creates a writer targeting the given path
func NewReportWriter(filePath string) *ReportWriter {
	return &ReportWriter{filePath: filePath}
}

// WriteReport renders both methods' contribution tables plus a summary sheet
func (w *ReportWriter) WriteReport(report *reconstruct.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := w.writeSummary(f, report); err != nil {
		return err
	}
	if err := w.writeContributions(f, "Exact", report.ExactContributions); err != nil {
		return err
	}
	if err := w.writeContributions(f, "FirstOrder", report.FirstOrderContributions); err != nil {
		return err
	}
	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func (w *ReportWriter) writeSummary(f *excelize.File, report *reconstruct.Report) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	rows := [][]interface{}{
		{"rows", report.Rows},
		{"features", report.Features},
		{"baseline_link", report.BaselineLink},
		{"baseline_natural", report.BaselineNatural},
		{"exact_max_abs_discrepancy", report.Exact.MaxAbsDiscrepancy},
		{"exact_mean_abs_discrepancy", report.Exact.MeanAbsDiscrepancy},
		{"first_order_max_abs_discrepancy", report.FirstOrder.MaxAbsDiscrepancy},
		{"first_order_mean_abs_discrepancy", report.FirstOrder.MeanAbsDiscrepancy},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return nil
}

func (w *ReportWriter) writeContributions(f *excelize.File, sheet string, contribs *attribution.Contributions) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheet, err)
	}

	header := []interface{}{"row"}
	for _, key := range contribs.FeatureKeys {
		header = append(header, key.String())
	}
	header = append(header, "reconstructed", "discrepancy")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, values := range contribs.Values {
		row := []interface{}{i + 1}
		for _, v := range values {
			row = append(row, v)
		}
		row = append(row, contribs.Reconstructed[i])
		if contribs.Discrepancy != nil {
			row = append(row, contribs.Discrepancy[i])
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	return nil
}
