package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptlearn/internal/auth"
	"github.com/abhisek/adaptlearn/internal/config"
	"github.com/abhisek/adaptlearn/internal/engine"
	"github.com/abhisek/adaptlearn/internal/logging"
	"github.com/abhisek/adaptlearn/internal/store"
)

// cfg is loaded once per invocation by the root pre-run hook.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "adaptlearn",
	Short:         "Adaptive learning engine",
	Long:          "adaptlearn tracks learner mastery, builds adaptive quizzes, recommends modules and simulates federated training rounds.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		if p, _ := cmd.Flags().GetString("db"); p != "" {
			if err := store.EnsureDir(p); err != nil {
				return fmt.Errorf("resolve DB path: %w", err)
			}
			loaded.Store.Driver = string(store.DriverSQLite)
			loaded.Store.DSN = p
		}
		if v, _ := cmd.Flags().GetBool("verbose"); v {
			loaded.Log.Level = "debug"
		}
		logging.Init(logging.Config{Level: loaded.Log.Level, Format: loaded.Log.Format})
		cfg = loaded
		return nil
	},
}

// Execute runs the root command, cancelling on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides ADAPTLEARN_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides store settings)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token identifying the caller (overrides ADAPTLEARN_TOKEN env var)")
	rootCmd.PersistentFlags().Bool("json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(quizCmd)
	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(masteryCmd)
	rootCmd.AddCommand(recommendCmd)
	rootCmd.AddCommand(flCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(serveMetricsCmd)
	rootCmd.AddCommand(versionCmd)
}

// openEngine builds the engine from the loaded config. Callers must Close it.
func openEngine(cmd *cobra.Command) (*engine.Engine, error) {
	return engine.New(cmd.Context(), cfg, engine.Options{})
}

// caller authenticates the --token flag, falling back to ADAPTLEARN_TOKEN.
func caller(cmd *cobra.Command, e *engine.Engine) (auth.Identity, error) {
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = os.Getenv("ADAPTLEARN_TOKEN")
	}
	return e.Authenticate(token)
}

// targetUser returns --user, defaulting to the caller.
func targetUser(cmd *cobra.Command, id auth.Identity) string {
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		return u
	}
	return id.UserID
}

// printJSON writes v when --json is set and reports whether it did.
func printJSON(cmd *cobra.Command, v any) (bool, error) {
	if on, _ := cmd.Flags().GetBool("json"); !on {
		return false, nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
