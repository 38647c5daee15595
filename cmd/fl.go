package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptlearn/internal/auth"
	"github.com/abhisek/adaptlearn/internal/engine"
	"github.com/abhisek/adaptlearn/internal/federated"
	"github.com/abhisek/adaptlearn/internal/logging"
	"github.com/abhisek/adaptlearn/internal/notify"
	"github.com/abhisek/adaptlearn/internal/store"
	"github.com/abhisek/adaptlearn/internal/ui/theme"
)

var flCmd = &cobra.Command{
	Use:   "fl",
	Short: "Run and inspect federated training rounds (admin)",
}

var flStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a simulated training round",
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
		if err := applyInjections(cmd, e, id); err != nil {
			return err
		}

		clients, _ := cmd.Flags().GetInt("clients")
		var rate *float64
		if cmd.Flags().Changed("rate") {
			r, _ := cmd.Flags().GetFloat64("rate")
			rate = &r
		}
		var epsilon *float64
		if cmd.Flags().Changed("epsilon") {
			eps, _ := cmd.Flags().GetFloat64("epsilon")
			epsilon = &eps
		}

		rd, err := e.StartTrainingRound(cmd.Context(), id, clients, epsilon, rate)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if wait, _ := cmd.Flags().GetBool("wait"); !wait {
			if done, err := printJSON(cmd, rd); done {
				return err
			}
			fmt.Fprintf(out, "Round %d (%s) %s: %d of %d clients participating\n",
				rd.RoundNum, rd.ID, rd.Status, rd.ParticipatingClients, rd.ClientCount)
			return nil
		}

		fmt.Fprintf(out, "Round %d started, waiting for completion...\n", rd.RoundNum)
		e.WaitRounds()

		summaries, err := e.GetFLMetrics(cmd.Context(), id, 1)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, summaries); done {
			return err
		}
		printRounds(cmd, summaries)
		return nil
	},
}

var flMetricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show the most recent rounds",
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
		limit, _ := cmd.Flags().GetInt("limit")
		summaries, err := e.GetFLMetrics(cmd.Context(), id, limit)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, summaries); done {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), theme.Hint.Render("No rounds yet."))
			return nil
		}
		printRounds(cmd, summaries)
		return nil
	},
}

var flClientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List the simulated client regions",
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
		if err := applyInjections(cmd, e, id); err != nil {
			return err
		}
		clients, err := e.Clients(id)
		if err != nil {
			return err
		}
		if done, err := printJSON(cmd, clients); done {
			return err
		}

		tbl := theme.NewTable("Region", "Status", "Latency")
		for _, c := range clients {
			status := theme.Good.Render(c.Status)
			switch c.Status {
			case federated.ClientSlow:
				status = theme.Warn.Render(c.Status)
			case federated.ClientDropout:
				status = theme.Bad.Render(c.Status)
			}
			tbl.Row(c.Region, status, c.Latency.String())
		}
		fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
		return nil
	},
}

var flWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream round events from Redis until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Notify.RedisAddr == "" {
			return fmt.Errorf("notify.redis_addr is not configured")
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
		if id.Role != auth.RoleAdmin {
			return fmt.Errorf("watch rounds: %w", engine.ErrForbidden)
		}

		ctx := cmd.Context()
		r, err := notify.NewRedis(ctx, cfg.Notify.RedisAddr, cfg.Notify.Channel, logging.Logger())
		if err != nil {
			return err
		}
		defer r.Close()

		out := cmd.OutOrStdout()
		err = r.Subscribe(ctx, func(ev notify.Event) {
			line := fmt.Sprintf("%s  round %d  %s", ev.At.Format(time.TimeOnly), ev.RoundNum, ev.Type)
			switch {
			case ev.Metrics != nil:
				line += fmt.Sprintf("  accuracy %.3f  loss %.3f", ev.Metrics.Accuracy, ev.Metrics.Loss)
			case ev.Error != "":
				line += "  " + theme.Bad.Render(ev.Error)
			}
			fmt.Fprintln(out, line)
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(out, theme.Hint.Render("Watching "+cfg.Notify.Channel+", Ctrl+C to stop."))
		<-ctx.Done()
		return nil
	},
}

// applyInjections applies --dropout and --latency before a command runs.
// Client profiles live in process, so injections last for one invocation.
func applyInjections(cmd *cobra.Command, e *engine.Engine, id auth.Identity) error {
	dropouts, _ := cmd.Flags().GetStringSlice("dropout")
	for _, region := range dropouts {
		if err := e.InjectDropout(id, region); err != nil {
			return err
		}
	}
	latencies, _ := cmd.Flags().GetStringToString("latency")
	for region, raw := range latencies {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("--latency %s: %w", region, err)
		}
		if err := e.InjectLatency(id, region, d); err != nil {
			return err
		}
	}
	return nil
}

func printRounds(cmd *cobra.Command, summaries []federated.RoundSummary) {
	tbl := theme.NewTable("Round", "Status", "Accuracy", "Epsilon used", "Clients", "Time")
	for _, s := range summaries {
		status := s.Status
		switch s.Status {
		case store.RoundCompleted:
			status = theme.Good.Render(status)
		case store.RoundFailed:
			status = theme.Bad.Render(status)
		default:
			status = theme.Warn.Render(status)
		}
		tbl.Row(fmt.Sprint(s.RoundNum), status, fmt.Sprintf("%.3f", s.Accuracy),
			fmt.Sprintf("%.3f", s.PrivacyBudgetUsed), fmt.Sprint(s.ClientsParticipated),
			s.Timestamp.Local().Format(time.DateTime))
	}
	fmt.Fprintln(cmd.OutOrStdout(), tbl.String())
}

func addInjectionFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("dropout", nil, "Regions to mark as dropped out (e.g. us-east-1)")
	cmd.Flags().StringToString("latency", nil, "Per-region latency, e.g. eu-west-1=300ms")
}

func init() {
	flStartCmd.Flags().Int("clients", 10, "Number of clients in the round")
	flStartCmd.Flags().Float64("epsilon", 0, "Differential-privacy epsilon for the round")
	flStartCmd.Flags().Float64("rate", 0, "Participation rate in [0, 1] (defaults to federated.participation_rate)")
	flStartCmd.Flags().Bool("wait", true, "Wait for the round to finish; rounds still running at exit are marked failed")
	addInjectionFlags(flStartCmd)

	flMetricsCmd.Flags().Int("limit", federated.DefaultMetricsLimit, "Number of rounds to show")

	addInjectionFlags(flClientsCmd)

	flCmd.AddCommand(flStartCmd)
	flCmd.AddCommand(flMetricsCmd)
	flCmd.AddCommand(flClientsCmd)
	flCmd.AddCommand(flWatchCmd)
}
