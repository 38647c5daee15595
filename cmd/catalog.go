package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptlearn/internal/attemptio"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage modules, quizzes and question banks",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate and import a catalog JSON document",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		in, err := openInput(path)
		if err != nil {
			return err
		}
		cat, err := attemptio.DecodeCatalog(in)
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

		stats, err := e.ImportCatalog(cmd.Context(), id, cat)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, stats); done {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d modules, %d quizzes, %d questions\n",
			stats.Modules, stats.Quizzes, stats.Questions)
		return nil
	},
}

func init() {
	catalogImportCmd.Flags().StringP("file", "f", "", "Catalog JSON file, or - for stdin")

	catalogCmd.AddCommand(catalogImportCmd)
}
