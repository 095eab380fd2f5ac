package calculator

import (
	"context"
	"fmt"
	"log"
	"time"

	"ab-retention/pkg/bootstrap"
	"ab-retention/pkg/cohort"
	"ab-retention/pkg/models"

	"github.com/schollz/progressbar/v3"
)

// Loader fournit les lignes brutes. *database.Store l'implémente.
type Loader interface {
	EntityRows(ctx context.Context, table string) ([]models.EntityRow, error)
	Registrations(ctx context.Context, table string, from, to time.Time) ([]models.RegistrationRow, error)
	// Activity : to zéro → pas de borne haute.
	Activity(ctx context.Context, table string, from, to time.Time) ([]models.ActivityRow, error)
}

// RunBootstrap charge les lignes du test A/B, rééchantillonne puis évalue
// l'intervalle de chaque métrique demandée.
func RunBootstrap(ctx context.Context, src Loader, cfg models.BootstrapConfig) (*models.BootstrapResult, error) {
	// paramètres vérifiés avant tout chargement
	if cfg.Samples < 1 {
		return nil, fmt.Errorf("samples: %w: %d, must be >= 1", models.ErrInvalidParameter, cfg.Samples)
	}
	if !(cfg.Alpha > 0 && cfg.Alpha < 1) {
		return nil, fmt.Errorf("alpha: %w: %v, want 0 < alpha < 1", models.ErrInvalidParameter, cfg.Alpha)
	}
	metrics := cfg.Metrics
	if len(metrics) == 0 {
		metrics = models.Metrics
	}

	rows, err := src.EntityRows(ctx, cfg.Table)
	if err != nil {
		return nil, fmt.Errorf("load entities: %w", err)
	}
	if cfg.Verbose {
		log.Printf("[INFO] %d entity rows loaded from %s", len(rows), cfg.Table)
	}

	bar := newBar(bootstrap.Chunks(len(rows)), cfg.Verbose, "resampling")
	samples, err := bootstrap.Resample(rows, cfg.Samples, bootstrap.Options{
		Seed:         cfg.Seed,
		Workers:      cfg.Workers,
		StrictGroups: cfg.StrictGroups,
		OnChunk:      func() { _ = bar.Add(1) },
	})
	_ = bar.Finish()
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	out := &models.BootstrapResult{Alpha: cfg.Alpha, Samples: samples}
	for _, m := range metrics {
		res, err := bootstrap.EvaluateMetric(samples, m, cfg.Alpha)
		if err != nil {
			return nil, fmt.Errorf("evaluate: %w", err)
		}
		if res.Dropped > 0 {
			log.Printf("[WARN] %s: %d/%d samples non finis écartés (dénominateur nul)", m, res.Dropped, len(samples.Rows))
		}
		if cfg.Verbose {
			log.Printf("[INFO] %s -> mean=%.6f CI=[%.6f ; %.6f] reject=%t", m, res.Mean, res.Lower, res.Upper, res.Reject)
		}
		out.Intervals = append(out.Intervals, res)
	}
	return out, nil
}

// RunRetention charge registrations et activité sur la fenêtre utile puis
// calcule la matrice de rétention.
func RunRetention(ctx context.Context, src Loader, cfg models.RetentionConfig) (*models.RetentionMatrix, error) {
	start, err := parseDate(cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("start_date: %w", err)
	}
	end, err := parseDate(cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("end_date: %w", err)
	}
	unit, err := models.ParseCohortUnit(cfg.Unit)
	if err != nil {
		return nil, err
	}
	mode, err := models.ParseRetentionMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	params := models.CohortParams{Start: start, End: end, Unit: unit, Periods: cfg.Periods, Mode: mode}

	w, err := cohort.LoadWindow(params)
	if err != nil {
		return nil, err
	}

	regs, err := src.Registrations(ctx, cfg.RegistrationsTable, w.RegFrom, w.RegTo)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	acts, err := src.Activity(ctx, cfg.ActivityTable, w.ActFrom, w.ActTo)
	if err != nil {
		return nil, fmt.Errorf("load activity: %w", err)
	}
	if cfg.Verbose {
		log.Printf("[INFO] %d cohorts, %d registrations, %d activity rows", w.Cohorts, len(regs), len(acts))
	}

	bar := newBar(w.Cohorts, cfg.Verbose, "cohorts")
	m, err := cohort.Retention(regs, acts, params, cohort.Options{
		Workers: cfg.Workers,
		OnCohort: func(r models.CohortRow) {
			_ = bar.Add(1)
			if cfg.Verbose && len(r.Retention) > 1 {
				log.Printf("[INFO] %s -> size=%d p1=%.4f", r.Label, r.Size, r.Retention[1])
			}
		},
	})
	_ = bar.Finish()
	if err != nil {
		return nil, fmt.Errorf("retention: %w", err)
	}
	return m, nil
}

func newBar(n int, verbose bool, description string) *progressbar.ProgressBar {
	if verbose {
		return progressbar.Default(int64(n), description)
	}
	return progressbar.DefaultSilent(int64(n), description)
}

// parseDate("YYYY-MM-DD") -> minuit UTC
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: format attendu YYYY-MM-DD (ex: 2024-01-31): %q", models.ErrInvalidParameter, s)
	}
	return t, nil
}
