package cohort

import (
	"fmt"
	"time"

	"ab-retention/pkg/models"
)

// step est le pas d'une unité de cohorte : soit des jours, soit des mois calendaires.
type step struct {
	days   int
	months int
}

func stepOf(u models.CohortUnit) (step, error) {
	switch u {
	case models.UnitDay:
		return step{days: 1}, nil
	case models.UnitWeek:
		return step{days: 7}, nil
	case models.UnitMonth:
		return step{months: 1}, nil
	case models.UnitQuarter:
		return step{months: 3}, nil
	case models.UnitYear:
		return step{months: 12}, nil
	}
	return step{}, fmt.Errorf("%w: cohort unit %q", models.ErrInvalidParameter, u)
}

// add renvoie base + n pas, toujours calculé depuis base (jamais par pas successifs).
func (s step) add(base time.Time, n int) time.Time {
	if s.months > 0 {
		return addMonths(base, n*s.months)
	}
	return base.AddDate(0, 0, n*s.days)
}

// addMonths décale de n mois calendaires en ramenant le jour au dernier jour
// du mois cible si besoin (31 janv. + 1 mois = 28/29 févr.).
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return first.AddDate(0, 0, d-1)
}

func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// cohortCount renvoie le nombre de cohortes k >= 0 telles que start + k pas < end.
func cohortCount(start, end time.Time, s step) int {
	if !start.Before(end) {
		return 0
	}
	var n int
	if s.months > 0 {
		months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
		n = max(months/s.months, 0)
	} else {
		n = int(end.Sub(start).Hours()/24) / s.days
	}
	for s.add(start, n).Before(end) {
		n++
	}
	for n > 0 && !s.add(start, n-1).Before(end) {
		n--
	}
	return n
}

// Offset renvoie base + n unités de cohorte.
func Offset(base time.Time, u models.CohortUnit, n int) (time.Time, error) {
	s, err := stepOf(u)
	if err != nil {
		return time.Time{}, err
	}
	return s.add(base, n), nil
}

// Window délimite les lignes utiles à un calcul de rétention, pour que la
// couche de chargement ne lise que ce qui sera compté.
type Window struct {
	RegFrom time.Time
	RegTo   time.Time // exclu
	ActFrom time.Time
	ActTo   time.Time // exclu ; zéro si non borné (mode cumulative)
	Cohorts int
}

// Bounded indique si la fenêtre d'activité a une borne haute.
func (w Window) Bounded() bool { return !w.ActTo.IsZero() }

// LoadWindow calcule les fenêtres de registrations et d'activité couvertes par params.
func LoadWindow(p models.CohortParams) (Window, error) {
	s, err := validate(p)
	if err != nil {
		return Window{}, err
	}
	n := cohortCount(p.Start, p.End, s)
	w := Window{
		RegFrom: p.Start,
		RegTo:   s.add(p.Start, n),
		ActFrom: p.Start,
		Cohorts: n,
	}
	if p.Mode == models.ModeClassic {
		w.ActTo = p.Start
		if n > 0 {
			w.ActTo = s.add(s.add(p.Start, n-1), p.Periods+1)
		}
	}
	return w, nil
}

func validate(p models.CohortParams) (step, error) {
	s, err := stepOf(p.Unit)
	if err != nil {
		return step{}, err
	}
	if p.Mode != models.ModeClassic && p.Mode != models.ModeCumulative {
		return step{}, fmt.Errorf("%w: retention mode %q", models.ErrInvalidParameter, p.Mode)
	}
	if p.Periods < 0 {
		return step{}, fmt.Errorf("%w: periods=%d, must be >= 0", models.ErrInvalidParameter, p.Periods)
	}
	if p.End.Before(p.Start) {
		return step{}, fmt.Errorf("%w: end date %s before start date %s", models.ErrInvalidParameter,
			p.End.Format(time.DateOnly), p.Start.Format(time.DateOnly))
	}
	return s, nil
}
