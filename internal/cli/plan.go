package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"discipline-journal/internal/models"
)

func newPlanCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Inspect trade plans",
		Long:  "List and show a user's trade plans straight from the local database.",
	}
	cmd.PersistentFlags().String("user", "", "user ID owning the plans")
	cmd.MarkPersistentFlagRequired("user")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List plans",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, _ := cmd.Flags().GetString("user")
			status, _ := cmd.Flags().GetString("status")
			archived, _ := cmd.Flags().GetBool("archived")

			j, _, closeFn, err := app.openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			list := j.ListPlans
			if archived {
				list = j.ListArchived
			}
			plans, err := list(cmd.Context(), user, status)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(plans)
			}
			if len(plans) == 0 {
				output.Dim("No plans found")
				return nil
			}

			loc := app.location()
			table := NewTable(output, "ID", "Symbol", "Dir", "Status", "Planned", "Actual", "Target", "Updated")
			for _, p := range plans {
				target := p.SellTarget()
				table.AddRow(
					TruncateString(p.ID, 12),
					p.Symbol,
					string(p.Direction),
					output.StatusColor(string(p.Status)),
					FormatPrice(p.PlannedEntryPrice),
					FormatPrice(p.ActualEntryPrice),
					FormatPrice(&target),
					FormatDateTime(p.UpdatedAt, loc),
				)
			}
			table.Render()
			output.Dim("%d plan(s)", len(plans))
			return nil
		},
	}
	listCmd.Flags().String("status", "", "filter by status (draft, armed, holding, closed)")
	listCmd.Flags().Bool("archived", false, "list archived plans instead")
	cmd.AddCommand(listCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a plan with its events, result and revisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			user, _ := cmd.Flags().GetString("user")

			j, _, closeFn, err := app.openServices()
			if err != nil {
				return err
			}
			defer closeFn()

			detail, err := j.GetPlan(cmd.Context(), user, args[0])
			if err != nil {
				return err
			}
			review, err := j.GetSelfReview(cmd.Context(), user, args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"plan":   detail.Plan,
					"events": detail.Events,
					"result": detail.Result,
					"edits":  detail.Edits,
					"review": review,
				})
			}
			showPlan(output, app, detail, review)
			return nil
		},
	})

	return cmd
}

func showPlan(output *Output, app *App, d *models.PlanDetail, review *models.SelfReview) {
	loc := app.location()
	p := d.Plan

	archived := ""
	if p.Archived {
		archived = " (archived)"
	}
	output.Bold("%s %s  %s%s", p.Symbol, p.Direction, output.StatusColor(string(p.Status)), archived)
	output.Dim("%s", p.ID)
	output.Println()

	output.Printf("  Buy reasons:     %s\n", JoinTags(p.BuyReasonTypes))
	if p.BuyReasonText != "" {
		output.Printf("  Buy thesis:      %s\n", p.BuyReasonText)
	}
	output.Printf("  Target:          %s - %s (%s)\n", FormatPrice(&p.TargetLow), FormatPrice(&p.TargetHigh), p.TargetType)
	output.Printf("  Stop:            %s %s\n", p.StopType, FormatPrice(p.StopValue))
	output.Printf("  Sell conditions: %s\n", JoinTags(p.SellConditions))
	output.Printf("  Planned entry:   %s\n", FormatPrice(p.PlannedEntryPrice))
	output.Printf("  Actual entry:    %s\n", FormatPrice(p.ActualEntryPrice))
	output.Printf("  Created:         %s\n", FormatDateTime(p.CreatedAt, loc))
	output.Printf("  Updated:         %s\n", FormatDateTime(p.UpdatedAt, loc))

	if len(d.Events) > 0 {
		output.Println()
		output.Bold("Events")
		table := NewTable(output, "Time", "Type", "Stage", "Exit", "Summary")
		for _, e := range d.Events {
			exit := ""
			if e.TriggeredExit {
				exit = "yes"
			}
			table.AddRow(FormatDateTime(e.CreatedAt, loc), string(e.EventType), e.EventStage, exit, e.Summary)
		}
		table.Render()
	}

	if r := d.Result; r != nil {
		output.Println()
		output.Bold("Result")
		output.Printf("  Sold at:         %s (%s)\n", FormatPrice(&r.SellPrice), r.SellReason)
		output.Printf("  Judgement:       %s\n", r.Judgement)
		output.Printf("  Conclusion:      %s\n", r.ConclusionText)
		output.Printf("  EPC:             %s\n", FormatFraction(r.EPCOpportunity))
	}

	if len(d.Edits) > 0 {
		output.Println()
		output.Bold("Revisions")
		for _, e := range d.Edits {
			output.Printf("  %s  %s: %s -> %s\n", FormatDateTime(e.EditedAt, loc), e.Field, optional(e.OldValue), optional(e.NewValue))
		}
	}

	if review != nil {
		output.Println()
		output.Bold("Self review")
		output.Printf("  Submitted:       %s\n", FormatDateTime(review.CreatedAt, loc))
		for _, dim := range models.ReviewDimensions {
			var score *int
			if v, ok := review.Scores[dim]; ok {
				score = &v
			}
			output.Printf("  %-16s %s\n", dim+":", FormatScore(score))
		}
	}
}

func optional(s *string) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%q", *s)
}
