package report

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"ab-retention/pkg/cohort"
	"ab-retention/pkg/models"

	"github.com/olekukonko/tablewriter"
)

// Title renvoie le titre d'une matrice de rétention, ex.
// "Week cohorts classic retention for period: 01 Jan 24 - 02 Jan 24."
func Title(meta models.RetentionMeta) string {
	unit := string(meta.Unit)
	if unit != "" {
		unit = strings.ToUpper(unit[:1]) + unit[1:]
	}
	return fmt.Sprintf("%s cohorts %s retention for period: %s - %s.",
		unit, meta.Mode, meta.Start.Format(cohort.LabelLayout), meta.End.Format(cohort.LabelLayout))
}

// Header renvoie l'en-tête de la matrice : Cohort, Entities, 0..Periods.
func Header(meta models.RetentionMeta) []string {
	h := []string{"Cohort", "Entities"}
	for p := 0; p <= meta.Periods; p++ {
		h = append(h, strconv.Itoa(p))
	}
	return h
}

// RenderRetention écrit la matrice sous forme de tableau texte.
func RenderRetention(w io.Writer, m *models.RetentionMatrix) {
	output(w, "%s\n", Title(m.Meta))

	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader(Header(m.Meta))
	tbl.SetBorder(true)
	tbl.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range m.Rows {
		row := []string{r.Label, strconv.Itoa(r.Size)}
		for _, v := range r.Retention {
			row = append(row, percent(v))
		}
		tbl.Append(row)
	}
	tbl.Render()
}

// RenderIntervals écrit moyenne, intervalle et verdict de chaque métrique.
func RenderIntervals(w io.Writer, alpha float64, results []models.IntervalResult) {
	tbl := tablewriter.NewWriter(w)
	tbl.SetHeader([]string{"Metric", "Mean", "Std dev", "Lower", "Upper", "Dropped", "Verdict"})
	tbl.SetBorder(true)
	for _, r := range results {
		tbl.Append([]string{
			string(r.Metric) + " difference",
			fmt.Sprintf("%.3f", r.Mean),
			fmt.Sprintf("%.3f", r.StdDev),
			fmt.Sprintf("%.3f", r.Lower),
			fmt.Sprintf("%.3f", r.Upper),
			strconv.Itoa(r.Dropped),
			verdict(r),
		})
	}
	tbl.Render()

	for _, r := range results {
		if r.Reject {
			output(w, "%s: 0 does not belong to the %.1f%% confidence interval. Rejecting H0.\n", r.Metric, 100*(1-alpha))
		} else {
			output(w, "%s: 0 belongs to the %.1f%% confidence interval. There is no basis to reject H0.\n", r.Metric, 100*(1-alpha))
		}
	}
}

func verdict(r models.IntervalResult) string {
	if r.Reject {
		return "reject H0"
	}
	return "keep H0"
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", 100*v)
}

// output the given message with formatting.
func output(w io.Writer, format string, a ...any) {
	if _, err := fmt.Fprintf(w, format, a...); err != nil {
		log.Println("output error", err.Error())
	}
}
