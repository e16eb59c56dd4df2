package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/focusrank/focusrank/internal/daemon"
	"github.com/focusrank/focusrank/internal/models"
	"github.com/focusrank/focusrank/internal/reporter"
)

type apiFlags struct {
	host string
	port int
	json bool
}

func (f *apiFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.host, "host", "", "daemon web host (defaults to the config)")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "daemon web port (defaults to the config)")
	cmd.Flags().BoolVar(&f.json, "json", false, "print JSON")
}

func newTopCmd(a *app) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Show the recommended windows",
		Long: `Show the windows the running daemon currently recommends, best first.

Requires a daemon started with 'focusrank serve'.

Examples:
  focusrank top
  focusrank top --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			var report models.RankingReport
			client := newAPIClient(cfg, flags.host, flags.port)
			if err := client.get(cmd.Context(), "/api/top", &report); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.json {
				s, err := reporter.FormatJSON(&report)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}
			fmt.Fprint(out, reporter.FormatRankingText(&report))
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	flags := &apiFlags{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			running, pid, err := daemon.New(cfg.Daemon.PIDFile).IsRunning()
			if err != nil {
				return errors.Wrap(err, "failed to check daemon status")
			}
			fmt.Fprintf(out, "Status: %s\n", pidString(running, pid))

			if !running {
				fmt.Fprintln(out, cfg.String())
				return nil
			}

			var status map[string]any
			if err := newAPIClient(cfg, flags.host, flags.port).get(cmd.Context(), "/api/status", &status); err != nil {
				fmt.Fprintln(out, "Web API: not available")
				fmt.Fprintln(out, cfg.String())
				return nil
			}

			if flags.json {
				s, err := reporter.FormatJSON(status)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}

			fmt.Fprintf(out, "Uptime: %v\n", status["uptime"])
			fmt.Fprintf(out, "Tracked Windows: %v\n", status["tracked_windows"])
			fmt.Fprintf(out, "Number Of Windows: %v\n", status["number_of_windows"])
			if latest, ok := status["latest_event"].(map[string]any); ok {
				fmt.Fprintf(out, "\nLatest Event:\n")
				fmt.Fprintf(out, "  Event: %v\n", latest["event"])
				fmt.Fprintf(out, "  App: %v\n", latest["app_name"])
				fmt.Fprintf(out, "  Title: %v\n", latest["title"])
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "history [period]",
		Short: "Summarize the window journal",
		Long: `Summarize how often each window was focused during a period.

Period is one of day, today, week or month and defaults to day.

Examples:
  focusrank history
  focusrank history week --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := "day"
			if len(args) > 0 {
				period = args[0]
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			report, err := reporter.New(repo).GenerateHistory(period)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				s, err := reporter.FormatJSON(report)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, s)
				return nil
			}
			fmt.Fprint(out, reporter.FormatHistoryText(report))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	return cmd
}

func newClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the window journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprint(out, "This will delete all journal data. Are you sure? (yes/no): ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.ToLower(strings.TrimSpace(response))
				if response != "yes" && response != "y" {
					fmt.Fprintln(out, "Operation cancelled")
					return nil
				}
			}

			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			repo, closeDB, err := openRepository(cfg)
			if err != nil {
				return err
			}
			defer closeDB()

			if err := repo.Clear(); err != nil {
				return err
			}

			fmt.Fprintln(out, "Database cleared successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "focusrank version %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
