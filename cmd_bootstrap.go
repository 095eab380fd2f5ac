package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"ab-retention/pkg/calculator"
	"ab-retention/pkg/database"
	"ab-retention/pkg/models"
	"ab-retention/pkg/report"

	"github.com/spf13/cobra"
)

var bootstrapFlags struct {
	table   string
	samples int
	alpha   float64
	seed    uint64
	strict  bool
	metrics []string
}

func newBootstrapCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Poisson bootstrap test of ARPU, ARPPU and CR differences",
		Long: `Resample the (testgroup, revenue) rows of an A/B test with Poisson(1)
weights and report, for each metric, the mean difference (b - a), the
(1 - alpha) confidence interval and whether 0 falls outside it.`,
		RunE: bootstrapE,
	}

	f := cmd.Flags()
	f.StringVar(&bootstrapFlags.table, "table", "ab_test", "Table (testgroup, revenue)")
	f.IntVarP(&bootstrapFlags.samples, "samples", "B", 1000, "Nombre d'échantillons bootstrap")
	f.Float64Var(&bootstrapFlags.alpha, "alpha", 0.05, "Seuil de significativité")
	f.Uint64Var(&bootstrapFlags.seed, "seed", 0, "Graine (aléatoire si absente)")
	f.BoolVar(&bootstrapFlags.strict, "strict-groups", false, "Refuser les groupes autres que a/b (sinon tout ce qui n'est pas a est b)")
	f.StringSliceVar(&bootstrapFlags.metrics, "metric", []string{"ARPU", "ARPPU", "CR"}, "Métriques évaluées")

	return cmd
}

func bootstrapE(cmd *cobra.Command, _ []string) error {
	cfg := models.BootstrapConfig{
		Table:        bootstrapFlags.table,
		Samples:      bootstrapFlags.samples,
		Alpha:        bootstrapFlags.alpha,
		Workers:      workers,
		StrictGroups: bootstrapFlags.strict,
		Verbose:      verbose,
	}
	if cmd.Flags().Changed("seed") {
		s := bootstrapFlags.seed
		cfg.Seed = &s
	}
	for _, name := range bootstrapFlags.metrics {
		m, err := models.ParseMetric(name)
		if err != nil {
			return err
		}
		cfg.Metrics = append(cfg.Metrics, m)
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := calculator.RunBootstrap(context.Background(), store, cfg)
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}

	report.RenderIntervals(os.Stdout, res.Alpha, res.Intervals)
	if xlsx != "" {
		if err := report.WriteSamplesXLSX(xlsx, res.Samples); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		log.Printf("[INFO] samples written to %s", xlsx)
	}
	return nil
}

func openStore() (*database.Store, error) {
	d := resolveDSN()
	if d == "" {
		return nil, fmt.Errorf("missing DSN: use --dsn or %s", dsnEnv)
	}
	store, dsnUsed, err := database.Open(d)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if verbose {
		log.Printf("[INFO] connected dsn=%s", dsnUsed)
	}
	return store, nil
}
