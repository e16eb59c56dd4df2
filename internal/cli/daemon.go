package cli

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/focusrank/focusrank/internal/config"
	"github.com/focusrank/focusrank/internal/daemon"
	"github.com/focusrank/focusrank/internal/database"
	"github.com/focusrank/focusrank/internal/journal"
	"github.com/focusrank/focusrank/internal/logging"
	"github.com/focusrank/focusrank/internal/metrics"
	"github.com/focusrank/focusrank/internal/tracker"
	"github.com/focusrank/focusrank/internal/web"
	"github.com/focusrank/focusrank/pkg/detector"
)

const shutdownTimeout = 10 * time.Second

type daemonOptions struct {
	web        bool
	port       int
	foreground bool
}

func newStartCmd(a *app) *cobra.Command {
	opts := &daemonOptions{}
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the recommendation daemon",
		Long: `Start the recommendation daemon in the background.

The daemon watches the window session, keeps the rankings up to date and
records window events in the journal.

Examples:
  focusrank start
  focusrank start --foreground`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.startDaemon(cmd, opts, []string{"start"})
		},
	}
	cmd.Flags().BoolVarP(&opts.foreground, "foreground", "f", false, "run in the foreground and log to stderr")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	opts := &daemonOptions{web: true}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon with the web API",
		Long: `Start the recommendation daemon together with the HTTP and WebSocket API.

Examples:
  focusrank serve
  focusrank serve --port 8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			childArgs := []string{"serve"}
			if opts.port > 0 {
				childArgs = append(childArgs, "--port", fmt.Sprint(opts.port))
			}
			return a.startDaemon(cmd, opts, childArgs)
		},
	}
	cmd.Flags().IntVarP(&opts.port, "port", "p", 0, "web server port (overrides the config)")
	cmd.Flags().BoolVarP(&opts.foreground, "foreground", "f", false, "run in the foreground and log to stderr")
	return cmd
}

func (a *app) startDaemon(cmd *cobra.Command, opts *daemonOptions, childArgs []string) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	dm := daemon.New(cfg.Daemon.PIDFile)
	running, pid, err := dm.IsRunning()
	if err != nil {
		return errors.Wrap(err, "failed to check daemon status")
	}
	if running {
		return errors.Errorf("daemon is already running (PID: %d)", pid)
	}

	if opts.foreground || daemon.IsChild() {
		return runDaemon(cfg, dm, opts)
	}

	// parent process: detach and exit
	childArgs = append(childArgs, "--config", a.configPath)
	pid, err = daemon.Spawn(childArgs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Daemon started successfully (PID: %d)\n", pid)
	if opts.web {
		port := cfg.Web.Port
		if opts.port > 0 {
			port = opts.port
		}
		fmt.Fprintf(out, "Web API available at: http://%s:%d\n", cfg.Web.Host, port)
	}
	fmt.Fprintf(out, "Logs: %s\n", cfg.Daemon.LogFile)
	return nil
}

func runDaemon(cfg *config.Config, dm *daemon.Daemon, opts *daemonOptions) error {
	output := cfg.Daemon.LogFile
	if opts.foreground {
		output = "stderr"
	}
	logger, err := logging.New(cfg.LoggerConfig(output))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to connect to database", zap.Error(err))
		return err
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		logger.Error("failed to initialize database", zap.Error(err))
		return err
	}

	source, err := detector.New(logger)
	if err != nil {
		logger.Error("failed to initialize window source", zap.Error(err))
		return err
	}
	defer source.Close()

	logger.Info("window source initialized", zap.String("display_server", source.GetDisplayServer()))

	if err := dm.WritePID(); err != nil {
		return err
	}
	defer func() { _ = dm.RemovePID() }()

	repo := database.NewRepository(db)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serviceOpts := []tracker.Option{
		tracker.WithLogger(logger),
		tracker.WithMetrics(m),
		tracker.WithErrorSink(repo),
	}

	// the journal outlives the engine so it can flush what the engine queued last
	journalCtx, stopJournal := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	if cfg.Journal.Enabled {
		recorder := journal.NewRecorder(repo, cfg.Journal.QueueSize,
			journal.WithLogger(logger),
			journal.WithMetrics(m),
			journal.WithRetention(cfg.Retention()),
		)
		serviceOpts = append(serviceOpts, tracker.WithJournal(recorder))

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := recorder.Run(journalCtx); err != nil {
				logger.Error("journal stopped", zap.Error(err))
			}
		}()
	}

	svc, err := tracker.NewService(cfg, source, serviceOpts...)
	if err != nil {
		stopJournal()
		wg.Wait()
		return err
	}

	var server *web.Server
	if opts.web {
		server = web.NewServer(cfg, svc, repo, opts.port, web.WithLogger(logger), web.WithMetrics(m))
		svc.Core().OnWindowsChanged(server.Broadcaster().NotifyWindowsChanged)

		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Error("web server error", zap.Error(err))
				stop()
			}
		}()
	}

	logger.Info("starting focusrank daemon", zap.String("config", cfg.String()))

	err = svc.Start(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		logger.Error("tracker error", zap.Error(err))
	}

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if serr := server.Shutdown(shutdownCtx); serr != nil {
			logger.Warn("error shutting down web server", zap.Error(serr))
		}
		cancel()
	}

	stopJournal()
	wg.Wait()

	logger.Info("daemon stopped")
	return err
}

func newStopCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the recommendation daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			dm := daemon.New(cfg.Daemon.PIDFile)
			if err := dm.Stop(); err != nil {
				if errors.Is(err, daemon.ErrNotRunning) {
					fmt.Fprintln(out, "Daemon is not running")
					return nil
				}
				return err
			}

			fmt.Fprintln(out, "Daemon stopped successfully")
			return nil
		},
	}
}

// openRepository opens the configured database for the one-shot commands
func openRepository(cfg *config.Config) (*database.Repository, func(), error) {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(); err != nil {
		db.Close()
		return nil, nil, err
	}
	return database.NewRepository(db), func() { _ = db.Close() }, nil
}

// pidString renders the daemon state for status output
func pidString(running bool, pid int) string {
	if !running {
		return "not running"
	}
	return fmt.Sprintf("running (PID: %d)", pid)
}
