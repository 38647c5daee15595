package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptlearn/internal/attemptio"
	"github.com/abhisek/adaptlearn/internal/ui/theme"
)

var attemptCmd = &cobra.Command{
	Use:   "attempt",
	Short: "Record quiz attempts",
}

var attemptSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate a graded attempt, store it and update mastery",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		in, err := openInput(path)
		if err != nil {
			return err
		}
		attempt, err := attemptio.DecodeAttempt(in)
		in.Close()
		if err != nil {
			return err
		}

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		id, err := caller(cmd, e)
		if err != nil {
			return err
		}

		states, err := e.SubmitAttempt(cmd.Context(), id, attempt)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, states); done {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s scored %s (%d/%d)\n\n",
			theme.Title.Render("Attempt "+attempt.ID),
			attempt.UserID,
			theme.Level(attempt.Score).Render(fmt.Sprintf("%.0f%%", attempt.Score*100)),
			attempt.CorrectAnswers, attempt.TotalQuestions)

		tbl := theme.NewTable("Knowledge component", "Mastery", "Attempts", "Last")
		for _, st := range states {
			last := theme.Bad.Render("wrong")
			if st.LastCorrect {
				last = theme.Good.Render("right")
			}
			tbl.Row(st.KnowledgeComponent, theme.Bar(st.Mastery, 20), fmt.Sprint(st.Attempts), last)
		}
		if tbl.Len() == 0 {
			fmt.Fprintln(out, theme.Hint.Render("No tagged questions; mastery unchanged."))
			return nil
		}
		fmt.Fprintln(out, tbl.String())
		return nil
	},
}

func init() {
	attemptSubmitCmd.Flags().StringP("file", "f", "", "Attempt JSON file, or - for stdin")

	attemptCmd.AddCommand(attemptSubmitCmd)
}
