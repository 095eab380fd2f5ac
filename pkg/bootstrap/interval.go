package bootstrap

import (
	"fmt"
	"math"
	"sort"

	"ab-retention/pkg/models"

	"github.com/montanaflynn/stats"
)

// Evaluate vérifie si 0 appartient à l'intervalle central [alpha/2, 1-alpha/2]
// de la série bootstrap. Reject = true si 0 est hors de l'intervalle.
func Evaluate(series []float64, alpha float64) (models.IntervalResult, error) {
	if !(alpha > 0 && alpha < 1) {
		return models.IntervalResult{}, fmt.Errorf("%w: alpha=%v, want 0 < alpha < 1", models.ErrInvalidParameter, alpha)
	}
	if len(series) < 2 {
		return models.IntervalResult{}, fmt.Errorf("%w: %d values, need at least 2", models.ErrInsufficientData, len(series))
	}
	for i, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return models.IntervalResult{}, fmt.Errorf("%w: value %v at index %d", models.ErrNonFiniteData, v, i)
		}
	}

	sorted := make([]float64, len(series))
	copy(sorted, series)
	sort.Float64s(sorted)

	mean, err := stats.Mean(series)
	if err != nil {
		return models.IntervalResult{}, fmt.Errorf("mean: %w", err)
	}
	sd, err := stats.StandardDeviationSample(series)
	if err != nil {
		return models.IntervalResult{}, fmt.Errorf("stddev: %w", err)
	}

	lower := quantile(sorted, alpha/2)
	upper := quantile(sorted, 1-alpha/2)
	return models.IntervalResult{
		Mean:       mean,
		StdDev:     sd,
		Lower:      lower,
		Upper:      upper,
		Confidence: 1 - alpha,
		Reject:     !(lower <= 0 && 0 <= upper),
	}, nil
}

// EvaluateMetric extrait la colonne de différence de la table, écarte les
// valeurs non finies puis évalue l'intervalle.
func EvaluateMetric(t *models.SampleTable, m models.Metric, alpha float64) (models.IntervalResult, error) {
	finite, dropped := DropNonFinite(t.Column(m))
	res, err := Evaluate(finite, alpha)
	if err != nil {
		return models.IntervalResult{}, fmt.Errorf("%s: %w", m, err)
	}
	res.Metric = m
	res.Dropped = dropped
	return res, nil
}

// DropNonFinite renvoie les valeurs finies de la série et le nombre de valeurs écartées.
func DropNonFinite(series []float64) ([]float64, int) {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out, len(series) - len(out)
}

// quantile : interpolation linéaire entre statistiques d'ordre, h = (n-1)q.
// gonum stat.Quantile ne propose pas cette définition.
func quantile(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
