package models

import (
	"fmt"
	"strings"
	"time"
)

/*
LOAD → types simples pour les lignes brutes fournies par la couche de chargement.
*/

// EntityRow représente une mesure par entité pour un test A/B (groupe + revenu).
type EntityRow struct {
	Group string  `db:"testgroup"`
	Value float64 `db:"revenue"`
}

// RegistrationRow représente l'inscription d'une entité, utilisée pour l'associer à une cohorte.
type RegistrationRow struct {
	EntityID   uint64    `db:"uid"`
	Registered time.Time `db:"reg_ts"`
}

// ActivityRow représente un événement d'activité (authentification, visite...) d'une entité.
type ActivityRow struct {
	EntityID uint64    `db:"uid"`
	At       time.Time `db:"auth_ts"`
}

/*
COMPUTE → bootstrap
*/

// Metric identifie une métrique de différence entre les groupes.
type Metric string

const (
	MetricARPU  Metric = "ARPU"
	MetricARPPU Metric = "ARPPU"
	MetricCR    Metric = "CR"
)

// Metrics liste les métriques dans l'ordre des colonnes de SampleTable.
var Metrics = []Metric{MetricARPU, MetricARPPU, MetricCR}

// ParseMetric accepte "arpu", "ARPPU", "cr"...
func ParseMetric(s string) (Metric, error) {
	for _, m := range Metrics {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: metric %q", ErrInvalidParameter, s)
}

// SampleColumns est l'ordre des colonnes d'une table de bootstrap.
var SampleColumns = []string{
	"revenue_a", "count_entities_a", "count_positive_a",
	"revenue_b", "count_entities_b", "count_positive_b",
	"ARPU_difference", "ARPPU_difference", "CR_difference",
}

// SampleRow contient les agrégats d'un échantillon bootstrap.
type SampleRow struct {
	RevenueA       float64
	CountEntitiesA float64
	CountPositiveA float64
	RevenueB       float64
	CountEntitiesB float64
	CountPositiveB float64

	ARPUDifference  float64
	ARPPUDifference float64
	CRDifference    float64
}

// Values renvoie la ligne dans l'ordre de SampleColumns.
func (r SampleRow) Values() []float64 {
	return []float64{
		r.RevenueA, r.CountEntitiesA, r.CountPositiveA,
		r.RevenueB, r.CountEntitiesB, r.CountPositiveB,
		r.ARPUDifference, r.ARPPUDifference, r.CRDifference,
	}
}

// SampleTable est le résultat du Resampler : exactement B lignes.
type SampleTable struct {
	Rows []SampleRow
}

// Column extrait la série de différences d'une métrique.
func (t *SampleTable) Column(m Metric) []float64 {
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		switch m {
		case MetricARPU:
			out[i] = r.ARPUDifference
		case MetricARPPU:
			out[i] = r.ARPPUDifference
		case MetricCR:
			out[i] = r.CRDifference
		}
	}
	return out
}

// IntervalResult est la décision de l'évaluateur d'intervalle.
type IntervalResult struct {
	Metric     Metric
	Mean       float64
	StdDev     float64
	Lower      float64
	Upper      float64
	Confidence float64 // 1 - alpha
	Reject     bool    // true si 0 n'appartient pas à [Lower, Upper]
	Dropped    int     // valeurs non finies écartées avant l'évaluation
}

// BootstrapResult regroupe la table rééchantillonnée et les intervalles évalués.
type BootstrapResult struct {
	Alpha     float64
	Samples   *SampleTable
	Intervals []IntervalResult
}

/*
COMPUTE → rétention par cohorte
*/

// CohortUnit est le pas calendaire d'une cohorte.
type CohortUnit string

const (
	UnitDay     CohortUnit = "day"
	UnitWeek    CohortUnit = "week"
	UnitMonth   CohortUnit = "month"
	UnitQuarter CohortUnit = "quarter"
	UnitYear    CohortUnit = "year"
)

// RetentionMode choisit la fenêtre d'activité d'une période.
type RetentionMode string

const (
	ModeClassic    RetentionMode = "classic"
	ModeCumulative RetentionMode = "cumulative"
)

// ParseCohortUnit valide une unité de cohorte.
func ParseCohortUnit(s string) (CohortUnit, error) {
	switch u := CohortUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case UnitDay, UnitWeek, UnitMonth, UnitQuarter, UnitYear:
		return u, nil
	}
	return "", fmt.Errorf("%w: cohort unit %q", ErrInvalidParameter, s)
}

// ParseRetentionMode valide un mode de rétention. "rolling" est accepté comme alias de cumulative.
func ParseRetentionMode(s string) (RetentionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeClassic):
		return ModeClassic, nil
	case string(ModeCumulative), "rolling":
		return ModeCumulative, nil
	}
	return "", fmt.Errorf("%w: retention mode %q", ErrInvalidParameter, s)
}

// CohortParams regroupe les paramètres scalaires du calcul de rétention.
type CohortParams struct {
	Start   time.Time
	End     time.Time
	Unit    CohortUnit
	Periods int
	Mode    RetentionMode
}

// CohortRow est une ligne de la matrice : une cohorte ou la ligne de synthèse.
type CohortRow struct {
	Label     string
	Start     time.Time // zéro pour la ligne de synthèse
	Size      int
	Retention []float64 // index = période 0..Periods
	Summary   bool
}

// RetentionMeta est attachée à la matrice pour le rendu (titres, axes).
type RetentionMeta struct {
	Start   time.Time
	End     time.Time
	Unit    CohortUnit
	Mode    RetentionMode
	Periods int
}

// RetentionMatrix : ligne de synthèse en premier, puis les cohortes de la plus récente à la plus ancienne.
type RetentionMatrix struct {
	Meta RetentionMeta
	Rows []CohortRow
}

// Cohorts renvoie les lignes hors synthèse.
func (m *RetentionMatrix) Cohorts() []CohortRow {
	out := make([]CohortRow, 0, len(m.Rows))
	for _, r := range m.Rows {
		if !r.Summary {
			out = append(out, r)
		}
	}
	return out
}

// Summary renvoie la ligne "All entities".
func (m *RetentionMatrix) Summary() (CohortRow, bool) {
	for _, r := range m.Rows {
		if r.Summary {
			return r, true
		}
	}
	return CohortRow{}, false
}

/*
CONFIG → paramètres globaux
*/

// BootstrapConfig contient les paramètres passés au calcul bootstrap.
type BootstrapConfig struct {
	Table        string
	Samples      int
	Alpha        float64
	Seed         *uint64 // nil → graine aléatoire
	Workers      int
	StrictGroups bool
	Metrics      []Metric
	Verbose      bool
}

// RetentionConfig contient les paramètres passés au calcul de rétention.
type RetentionConfig struct {
	RegistrationsTable string
	ActivityTable      string
	StartDate          string // "YYYY-MM-DD"
	EndDate            string // "YYYY-MM-DD"
	Unit               string
	Periods            int
	Mode               string
	Workers            int
	Verbose            bool
}
