package cohort

import (
	"ab-retention/pkg/models"

	"gonum.org/v1/gonum/floats"
)

// SummaryLabel est le libellé de la ligne de synthèse.
const SummaryLabel = "All entities"

// Summarize calcule la ligne "All entities" : pour chaque période, moyenne des
// rétentions pondérée par la taille des cohortes. Les cohortes dont la rétention
// vaut exactement 0 à cette période sont exclues du dénominateur.
func Summarize(rows []models.CohortRow, periods int) models.CohortRow {
	sizes := make([]float64, len(rows))
	total := 0
	for i, r := range rows {
		sizes[i] = float64(r.Size)
		total += r.Size
	}

	col := make([]float64, len(rows))
	counted := make([]float64, len(rows))
	ret := make([]float64, periods+1)
	for p := 0; p <= periods; p++ {
		for i, r := range rows {
			col[i] = r.Retention[p]
			counted[i] = 0
			if col[i] != 0 {
				counted[i] = sizes[i]
			}
		}
		if den := floats.Sum(counted); den != 0 {
			ret[p] = floats.Dot(sizes, col) / den
		}
	}
	return models.CohortRow{
		Label:     SummaryLabel,
		Size:      total,
		Retention: ret,
		Summary:   true,
	}
}
