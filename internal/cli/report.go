package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"discipline-journal/internal/models"
	"discipline-journal/internal/report"
)

const dateLayout = "2006-01-02"

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Discipline reports",
	}

	weeklyCmd := &cobra.Command{
		Use:   "weekly",
		Short: "Show the weekly discipline report",
		Long: `Show the six-metric discipline report for a user.

Without --week-start the week in progress is reported. Dates are read in the
configured report timezone; --week-end is exclusive and defaults to seven days
after --week-start.`,
		Example: `  journal report weekly --user u1
  journal report weekly --user u1 --week-start 2024-03-04`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, _ := cmd.Flags().GetString("user")
			start, _ := cmd.Flags().GetString("week-start")
			end, _ := cmd.Flags().GetString("week-end")

			_, reports, closeFn, err := app.openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			var rep *models.WeeklyReport
			if start == "" && end == "" {
				rep, err = reports.Weekly(cmd.Context(), user)
			} else {
				var w report.Window
				w, err = parseDateWindow(start, end, app.location())
				if err != nil {
					return err
				}
				rep, err = reports.WeeklyFor(cmd.Context(), user, w)
			}
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(rep)
			}
			showWeeklyReport(output, rep, app.location())
			return nil
		},
	}
	weeklyCmd.Flags().String("user", "", "user ID to report on")
	weeklyCmd.Flags().String("week-start", "", "first day of the window (YYYY-MM-DD)")
	weeklyCmd.Flags().String("week-end", "", "day after the window ends (YYYY-MM-DD)")
	weeklyCmd.MarkFlagRequired("user")
	cmd.AddCommand(weeklyCmd)

	return cmd
}

func parseDateWindow(start, end string, loc *time.Location) (report.Window, error) {
	if start == "" {
		return report.Window{}, fmt.Errorf("--week-end requires --week-start")
	}
	s, err := time.ParseInLocation(dateLayout, start, loc)
	if err != nil {
		return report.Window{}, fmt.Errorf("invalid --week-start %q: %w", start, err)
	}
	w := report.Window{Start: s, End: s.AddDate(0, 0, 7)}
	if end != "" {
		e, err := time.ParseInLocation(dateLayout, end, loc)
		if err != nil {
			return report.Window{}, fmt.Errorf("invalid --week-end %q: %w", end, err)
		}
		w.End = e
	}
	return w, w.Validate()
}

func showWeeklyReport(output *Output, rep *models.WeeklyReport, loc *time.Location) {
	output.Bold("Weekly Discipline Report")
	output.Dim("%s  %s to %s", rep.UserID, FormatDateTime(rep.WeekStart, loc), FormatDateTime(rep.WeekEnd, loc))
	output.Println()

	output.Printf("  Closed trades:   %d\n", rep.Summary.TotalClosed)
	if rep.Summary.DominantLabel != "" {
		output.Printf("  Dominant issue:  %s\n", output.ColoredString(ColorYellow, rep.Summary.DominantLabel))
	}
	output.Printf("  Conclusion:      %s\n", rep.Summary.ConclusionText)
	output.Println()

	table := NewTable(output, "Metric", "Name", "Status", "Score", "Deviation", "Cost", "Delay")
	for _, m := range rep.Metrics {
		delay := m.Metrics.DelayLevel
		if delay == "" {
			delay = "-"
		}
		table.AddRow(
			string(m.Key),
			m.Name,
			output.StatusColor(string(m.Status)),
			FormatScore(m.Score),
			FormatFraction(m.Metrics.DeviationPct),
			FormatFraction(m.Metrics.CostPct),
			delay,
		)
	}
	table.Render()

	for _, m := range rep.Metrics {
		if !m.Triggered() {
			continue
		}
		output.Println()
		output.Bold("%s: %s", m.Key, m.SummaryLine)
		for _, ev := range m.Evidence {
			output.Printf("  - [%s] %s", ev.Type, ev.Title)
			if ev.Detail != "" {
				output.Printf(": %s", TruncateString(ev.Detail, 60))
			}
			output.Println()
		}
	}
}
