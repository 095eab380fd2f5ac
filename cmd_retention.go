package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"ab-retention/pkg/calculator"
	"ab-retention/pkg/models"
	"ab-retention/pkg/report"

	"github.com/spf13/cobra"
)

var retentionFlags struct {
	registrations string
	activity      string
	start         string
	end           string
	unit          string
	periods       int
	mode          string
}

func newRetentionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retention",
		Short: "Cohort retention matrix",
		Long: `Group entities into cohorts by registration date and compute, for each
cohort and period, the share of the cohort active in that period (classic)
or at any time from that period on (cumulative).

The end date only bounds which cohorts are created; period windows of the
last cohort may extend past it.`,
		RunE: retentionE,
	}

	f := cmd.Flags()
	f.StringVar(&retentionFlags.registrations, "registrations", "reg_data", "Table (uid, reg_ts)")
	f.StringVar(&retentionFlags.activity, "activity", "auth_data", "Table (uid, auth_ts)")
	f.StringVar(&retentionFlags.start, "start", "", "Date de début (YYYY-MM-DD)")
	f.StringVar(&retentionFlags.end, "end", "", "Date de fin, exclue (YYYY-MM-DD)")
	f.StringVar(&retentionFlags.unit, "cohort", "week", "Unité : day, week, month, quarter, year")
	f.IntVar(&retentionFlags.periods, "periods", 7, "Nombre de périodes après l'inscription")
	f.StringVar(&retentionFlags.mode, "mode", "classic", "classic ou cumulative")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")

	return cmd
}

func retentionE(_ *cobra.Command, _ []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := calculator.RunRetention(context.Background(), store, models.RetentionConfig{
		RegistrationsTable: retentionFlags.registrations,
		ActivityTable:      retentionFlags.activity,
		StartDate:          retentionFlags.start,
		EndDate:            retentionFlags.end,
		Unit:               retentionFlags.unit,
		Periods:            retentionFlags.periods,
		Mode:               retentionFlags.mode,
		Workers:            workers,
		Verbose:            verbose,
	})
	if err != nil {
		return fmt.Errorf("compute: %w", err)
	}

	report.RenderRetention(os.Stdout, m)
	if xlsx != "" {
		if err := report.WriteRetentionXLSX(xlsx, m); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		log.Printf("[INFO] matrix written to %s", xlsx)
	}
	return nil
}
