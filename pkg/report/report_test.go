package report

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"ab-retention/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func matrix() *models.RetentionMatrix {
	return &models.RetentionMatrix{
		Meta: models.RetentionMeta{
			Start:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:     time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			Unit:    models.UnitWeek,
			Mode:    models.ModeClassic,
			Periods: 1,
		},
		Rows: []models.CohortRow{
			{Label: "All entities", Size: 10, Retention: []float64{1, 0.5}, Summary: true},
			{Label: "01 Jan 24", Size: 10, Retention: []float64{1, 0.5}},
		},
	}
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Week cohorts classic retention for period: 01 Jan 24 - 02 Jan 24.", Title(matrix().Meta))
}

func TestRenderRetention(t *testing.T) {
	var buf bytes.Buffer
	RenderRetention(&buf, matrix())
	out := buf.String()

	assert.Contains(t, out, "Week cohorts classic retention")
	assert.Contains(t, out, "All entities")
	assert.Contains(t, out, "01 Jan 24")
	assert.Contains(t, out, "100.00%")
	assert.Contains(t, out, "50.00%")
}

func TestRenderIntervals(t *testing.T) {
	var buf bytes.Buffer
	RenderIntervals(&buf, 0.05, []models.IntervalResult{
		{Metric: models.MetricARPU, Mean: 0.01, Lower: -1.2, Upper: 1.3, Reject: false},
		{Metric: models.MetricCR, Mean: 0.2, Lower: 0.1, Upper: 0.3, Reject: true, Dropped: 4},
	})
	out := buf.String()

	assert.Contains(t, out, "ARPU difference")
	assert.Contains(t, out, "-1.200")
	assert.Contains(t, out, "ARPU: 0 belongs to the 95.0% confidence interval. There is no basis to reject H0.")
	assert.Contains(t, out, "CR: 0 does not belong to the 95.0% confidence interval. Rejecting H0.")
}

func TestWriteRetentionXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retention.xlsx")
	require.NoError(t, WriteRetentionXLSX(path, matrix()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(RetentionSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Week cohorts classic retention for period: 01 Jan 24 - 02 Jan 24.", rows[0][0])
	assert.Equal(t, []string{"Cohort", "Entities", "0", "1"}, rows[1])
	assert.Equal(t, []string{"All entities", "10", "1", "0.5"}, rows[2])
	assert.Equal(t, []string{"01 Jan 24", "10", "1", "0.5"}, rows[3])
}

func TestWriteSamplesXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.xlsx")
	tbl := &models.SampleTable{Rows: []models.SampleRow{
		{RevenueA: 10, CountEntitiesA: 4, CountPositiveA: 2, RevenueB: 20, CountEntitiesB: 4, CountPositiveB: 4,
			ARPUDifference: 2.5, ARPPUDifference: 0, CRDifference: 0.5},
		{RevenueA: 0, CountEntitiesA: 0, CountPositiveA: 0, RevenueB: 5, CountEntitiesB: 1, CountPositiveB: 1,
			ARPUDifference: math.NaN(), ARPPUDifference: math.NaN(), CRDifference: math.NaN()},
	}}
	require.NoError(t, WriteSamplesXLSX(path, tbl))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SamplesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.SampleColumns, rows[0])
	assert.Equal(t, []string{"10", "4", "2", "20", "4", "4", "2.5", "0", "0.5"}, rows[1])
	// cellules NaN laissées vides
	assert.Equal(t, []string{"0", "0", "0", "5", "1", "1"}, trimEmpty(rows[2]))
}

func trimEmpty(row []string) []string {
	for len(row) > 0 && row[len(row)-1] == "" {
		row = row[:len(row)-1]
	}
	return row
}
