package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptlearn/internal/store"
	"github.com/abhisek/adaptlearn/internal/ui/theme"
)

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Rank learning modules for a learner",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := caller(cmd, e)
		if err != nil {
			return err
		}
		userID := targetUser(cmd, id)
		ctx := cmd.Context()

		var recs []store.Recommendation
		if n, _ := cmd.Flags().GetInt("history"); n > 0 {
			recs, err = e.RecommendationHistory(ctx, id, userID, n)
		} else {
			privacyLevel, _ := cmd.Flags().GetFloat64("privacy")
			recs, err = e.GenerateRecommendations(ctx, id, userID, privacyLevel)
		}
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, recs); done {
			return err
		}

		out := cmd.OutOrStdout()
		if len(recs) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("No modules in the catalog."))
			return nil
		}

		tbl := theme.NewTable("Rank", "Module", "Difficulty", "Minutes", "Confidence", "Gain", "Reason")
		for i, r := range recs {
			title := r.Title
			if title == "" {
				title = r.ModuleID
			}
			tbl.Row(fmt.Sprint(i+1), title, fmt.Sprint(r.Difficulty), fmt.Sprint(r.EstimatedTime),
				theme.Level(r.Confidence).Render(fmt.Sprintf("%.2f", r.Confidence)),
				fmt.Sprintf("%.2f", r.MasteryGain), r.Reason)
		}
		fmt.Fprintln(out, theme.Title.Render("Recommendations for "+userID))
		fmt.Fprintln(out, tbl.String())

		budget, err := e.PrivacyBudget(ctx, id, userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, theme.Subtitle.Render(fmt.Sprintf(
			"privacy budget: %.2f of %.2f epsilon used", budget.Used, budget.Total)))
		return nil
	},
}

func init() {
	recommendCmd.Flags().String("user", "", "Learner id (defaults to the caller)")
	recommendCmd.Flags().Float64("privacy", 3.0, "Privacy level (epsilon); below the noise threshold the context is perturbed")
	recommendCmd.Flags().Int("history", 0, "Show the N most recent stored recommendations instead of generating")
}
