package cohort

import (
	"slices"
	"sort"
	"time"

	"ab-retention/pkg/models"

	"golang.org/x/sync/errgroup"
)

// LabelLayout est le format des libellés de cohorte ("01 Jan 24").
const LabelLayout = "02 Jan 06"

// Options paramètre Retention.
type Options struct {
	// Workers borne le nombre de cohortes calculées en parallèle (défaut 1).
	// Le résultat ne dépend pas de Workers.
	Workers int
	// OnCohort est appelé après chaque cohorte calculée. Doit être thread-safe.
	OnCohort func(models.CohortRow)
}

// activityIndex : dates d'activité triées par entité.
type activityIndex map[uint64][]time.Time

// Retention calcule la matrice de rétention par cohorte : ligne "All entities"
// en tête, puis les cohortes de la plus récente à la plus ancienne.
func Retention(regs []models.RegistrationRow, acts []models.ActivityRow, p models.CohortParams, opts Options) (*models.RetentionMatrix, error) {
	s, err := validate(p)
	if err != nil {
		return nil, err
	}
	n := cohortCount(p.Start, p.End, s)

	// Registrations utiles, triées par date pour découper les cohortes par recherche binaire.
	lastEnd := s.add(p.Start, n)
	sorted := make([]models.RegistrationRow, 0, len(regs))
	registered := make(map[uint64]struct{})
	for _, r := range regs {
		if r.Registered.Before(p.Start) || !r.Registered.Before(lastEnd) {
			continue
		}
		sorted = append(sorted, r)
		registered[r.EntityID] = struct{}{}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Registered.Before(sorted[j].Registered) })

	idx := make(activityIndex, len(registered))
	for _, a := range acts {
		if _, ok := registered[a.EntityID]; ok {
			idx[a.EntityID] = append(idx[a.EntityID], a.At)
		}
	}
	for id := range idx {
		slices.SortFunc(idx[id], func(a, b time.Time) int { return a.Compare(b) })
	}

	rows := make([]models.CohortRow, n)
	var g errgroup.Group
	g.SetLimit(max(opts.Workers, 1))
	for k := 0; k < n; k++ {
		g.Go(func() error {
			rows[k] = computeCohort(sorted, idx, s, s.add(p.Start, k), s.add(p.Start, k+1), p)
			if opts.OnCohort != nil {
				opts.OnCohort(rows[k])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.CohortRow, 0, n+1)
	out = append(out, Summarize(rows, p.Periods))
	for k := n - 1; k >= 0; k-- {
		out = append(out, rows[k])
	}
	return &models.RetentionMatrix{
		Meta: models.RetentionMeta{
			Start:   p.Start,
			End:     p.End,
			Unit:    p.Unit,
			Mode:    p.Mode,
			Periods: p.Periods,
		},
		Rows: out,
	}, nil
}

// computeCohort calcule la ligne d'une cohorte [start, end).
func computeCohort(regs []models.RegistrationRow, idx activityIndex, s step, start, end time.Time, p models.CohortParams) models.CohortRow {
	lo := sort.Search(len(regs), func(i int) bool { return !regs[i].Registered.Before(start) })
	hi := sort.Search(len(regs), func(i int) bool { return !regs[i].Registered.Before(end) })

	members := make(map[uint64]struct{}, hi-lo)
	for _, r := range regs[lo:hi] {
		members[r.EntityID] = struct{}{}
	}
	size := len(members)

	// bounds[i] = début de la période i, calculé depuis le début de cohorte.
	bounds := make([]time.Time, p.Periods+2)
	for i := range bounds {
		bounds[i] = s.add(start, i)
	}
	// period renvoie le plus grand i tel que bounds[i] <= t, -1 si t < bounds[0].
	period := func(t time.Time) int {
		return sort.Search(len(bounds), func(i int) bool { return bounds[i].After(t) }) - 1
	}

	retained := make([]int, p.Periods+1)
	for id := range members {
		times := idx[id]
		if len(times) == 0 {
			continue
		}
		switch p.Mode {
		case models.ModeClassic:
			// times triés → périodes croissantes ; on compte chaque période une fois.
			prev := 0
			for _, t := range times {
				if q := period(t); q > prev && q <= p.Periods {
					retained[q]++
					prev = q
				}
			}
		case models.ModeCumulative:
			q := min(period(times[len(times)-1]), p.Periods)
			for i := 1; i <= q; i++ {
				retained[i]++
			}
		}
	}

	ret := make([]float64, p.Periods+1)
	ret[0] = float64(size) / float64(max(size, 1))
	if size > 0 {
		for i := 1; i <= p.Periods; i++ {
			ret[i] = float64(retained[i]) / float64(size)
		}
	}
	return models.CohortRow{
		Label:     start.Format(LabelLayout),
		Start:     start,
		Size:      size,
		Retention: ret,
	}
}
