package excel

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"linklens/adapters/stats/reconstruct"
	"linklens/domain/attribution"
	"linklens/domain/core"
)

func TestReadFrame_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.csv")
	content := "driver_age,vehicle_power,exposure,target\n" +
		"0.5,-0.2,0.8,1\n" +
		"-0.1,0.4,1.0,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	frame, err := NewDataReader(path).ReadFrame()
	require.NoError(t, err)

	assert.Equal(t, 2, frame.RowCount())
	assert.Equal(t, []core.FeatureKey{"driver_age", "vehicle_power"}, frame.FeatureKeys)
	assert.Equal(t, []float64{1, 0}, frame.Target)
	assert.Equal(t, []float64{0.8, 1.0}, frame.Exposure)
	assert.Equal(t, 0.4, frame.Data[1][1])
}

func TestReadFrame_RejectsNonNumeric(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	content := "a,b\n1.0,oops\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := NewDataReader(path).ReadFrame()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-numeric")
}

func TestReadFrame_XLSXRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claims.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"density", "target"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{1.25, 3.0}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{-0.5, 0.0}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	frame, err := NewDataReader(path).ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, 2, frame.RowCount())
	assert.Equal(t, 1.25, frame.Data[0][0])
	assert.Equal(t, []float64{3, 0}, frame.Target)
	assert.Nil(t, frame.Exposure)
}

func TestWriteReport(t *testing.T) {
	set := &attribution.Set{
		Values:      [][]float64{{0.1, -0.05}},
		Baseline:    math.Log(100),
		FeatureKeys: []core.FeatureKey{"driver_age", "density"},
	}
	report, err := reconstruct.NewComparison(reconstruct.DefaultTolerance).Run(set)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, NewReportWriter(path).WriteReport(report))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	for _, sheet := range []string{"Summary", "Exact", "FirstOrder"} {
		idx, err := f.GetSheetIndex(sheet)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, idx, 0, "missing sheet %s", sheet)
	}

	cell, err := f.GetCellValue("Exact", "B1")
	require.NoError(t, err)
	assert.Equal(t, "driver_age", cell)
}
