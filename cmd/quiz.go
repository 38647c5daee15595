package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptlearn/internal/quiz"
	"github.com/abhisek/adaptlearn/internal/ui/theme"
)

var quizCmd = &cobra.Command{
	Use:   "quiz",
	Short: "Work with quizzes",
}

var quizGenerateCmd = &cobra.Command{
	Use:   "generate <quiz-id>",
	Short: "Select an adaptive question set for the caller",
	Args:  cobra.ExactArgs(1),
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

		var difficulty *int
		if cmd.Flags().Changed("difficulty") {
			d, _ := cmd.Flags().GetInt("difficulty")
			if d < quiz.MinDifficulty || d > quiz.MaxDifficulty {
				return fmt.Errorf("--difficulty must be between %d and %d", quiz.MinDifficulty, quiz.MaxDifficulty)
			}
			difficulty = &d
		}

		aq, err := e.GenerateAdaptiveQuiz(cmd.Context(), id, args[0], difficulty)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, aq); done {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, theme.Title.Render(aq.Title))
		fmt.Fprintln(out, theme.Subtitle.Render(fmt.Sprintf(
			"ability %.2f  target difficulty %d  %s",
			aq.AdaptiveData.EstimatedAbility, aq.AdaptiveData.InitialDifficulty, aq.AdaptiveData.AdaptationStrategy)))
		fmt.Fprintln(out)

		tbl := theme.NewTable("#", "ID", "Difficulty", "Tags", "Question")
		for i, q := range aq.Questions {
			tbl.Row(fmt.Sprint(i+1), q.ID, fmt.Sprintf("%.1f", q.Difficulty), fmt.Sprint(q.Tags), q.Stem)
		}
		fmt.Fprintln(out, tbl.String())

		if show, _ := cmd.Flags().GetBool("answers"); show {
			fmt.Fprintln(out)
			for i, q := range aq.Questions {
				fmt.Fprintf(out, "%d. %s\n", i+1, theme.Hint.Render(quiz.Explain(q, q.CorrectIndex)))
			}
		}
		return nil
	},
}

func init() {
	quizGenerateCmd.Flags().Int("difficulty", 0, "Override the ability-derived target difficulty (1-5)")
	quizGenerateCmd.Flags().Bool("answers", false, "Also print the answer explanation for each question")

	quizCmd.AddCommand(quizGenerateCmd)
}
