package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" arppu ")
	require.NoError(t, err)
	assert.Equal(t, MetricARPPU, m)

	_, err = ParseMetric("LTV")
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParseCohortUnit(t *testing.T) {
	for _, s := range []string{"day", "Week", "MONTH", "quarter", " year"} {
		_, err := ParseCohortUnit(s)
		require.NoError(t, err, s)
	}
	_, err := ParseCohortUnit("fortnight")
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestParseRetentionMode(t *testing.T) {
	m, err := ParseRetentionMode("rolling")
	require.NoError(t, err)
	assert.Equal(t, ModeCumulative, m)

	m, err = ParseRetentionMode("Classic")
	require.NoError(t, err)
	assert.Equal(t, ModeClassic, m)

	_, err = ParseRetentionMode("weekly")
	require.ErrorIs(t, err, ErrInvalidParameter)
}

func TestSampleTable_Column(t *testing.T) {
	tbl := SampleTable{Rows: []SampleRow{
		{ARPUDifference: 1, ARPPUDifference: 2, CRDifference: 3},
		{ARPUDifference: 4, ARPPUDifference: 5, CRDifference: 6},
	}}
	assert.Equal(t, []float64{1, 4}, tbl.Column(MetricARPU))
	assert.Equal(t, []float64{2, 5}, tbl.Column(MetricARPPU))
	assert.Equal(t, []float64{3, 6}, tbl.Column(MetricCR))
	assert.Len(t, tbl.Rows[0].Values(), len(SampleColumns))
}
