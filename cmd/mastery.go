package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptlearn/internal/mastery"
	"github.com/abhisek/adaptlearn/internal/recommend"
	"github.com/abhisek/adaptlearn/internal/ui/theme"
)

var masteryCmd = &cobra.Command{
	Use:   "mastery",
	Short: "Inspect knowledge-component mastery",
}

var masteryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a learner's mastery, breakdown and risk",
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

		report, err := e.Mastery(cmd.Context(), id, userID)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, report); done {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render("Mastery for "+userID))
		if len(report.States) == 0 {
			fmt.Fprintln(out, theme.Hint.Render("No attempts recorded yet."))
			return nil
		}

		tbl := theme.NewTable("Knowledge component", "Mastery", "Level", "Attempts")
		for _, st := range report.States {
			tbl.Row(st.KnowledgeComponent, theme.Bar(st.Mastery, 20), string(mastery.LevelOf(st.Mastery)), fmt.Sprint(st.Attempts))
		}
		fmt.Fprintln(out, tbl.String())
		fmt.Fprintln(out)

		s := report.Summary
		fmt.Fprintln(out, theme.Card.Render(strings.Join([]string{
			fmt.Sprintf("Average mastery  %s", theme.Bar(s.AverageMastery, 20)),
			fmt.Sprintf("Total attempts   %d", s.TotalAttempts),
			"Strong           " + list(s.Strong),
			"Developing       " + list(s.Developing),
			"Needs work       " + list(s.NeedsWork),
		}, "\n")))

		st := report.Streak
		fmt.Fprintf(out, "\nStreak: %s days (best %d, next milestone %d)\n",
			theme.Warn.Render(fmt.Sprint(st.Current)), st.Longest, st.NextMilestone)

		risk := report.Risk
		style := theme.Good
		switch risk.Level {
		case recommend.RiskHigh:
			style = theme.Bad
		case recommend.RiskMedium:
			style = theme.Warn
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Risk: "+style.Render(string(risk.Level)))
		for _, f := range risk.Factors {
			fmt.Fprintln(out, "  - "+f)
		}
		for _, i := range risk.Interventions {
			fmt.Fprintln(out, theme.Hint.Render("  > "+i))
		}
		return nil
	},
}

func list(items []string) string {
	if len(items) == 0 {
		return theme.Hint.Render("none")
	}
	return strings.Join(items, ", ")
}

func init() {
	masteryShowCmd.Flags().String("user", "", "Learner id (defaults to the caller)")

	masteryCmd.AddCommand(masteryShowCmd)
}
