// Package cli implements the focusrank command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/focusrank/focusrank/internal/config"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

// app carries the persistent flags shared by every command
type app struct {
	configPath string
}

func (a *app) loadConfig() (*config.Config, error) {
	return config.New(a.configPath)
}

// NewRootCmd builds the focusrank command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "focusrank",
		Short: "Recommends the windows you are most likely to switch to next",
		Long: `focusrank - window switching recommendations
  - watches the windows of your desktop session
  - ranks them by time spent, focus frequency, recency and title similarity`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "path to the TOML config file")

	root.AddCommand(
		newStartCmd(a),
		newServeCmd(a),
		newStopCmd(a),
		newStatusCmd(a),
		newTopCmd(a),
		newHistoryCmd(a),
		newClearCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}
