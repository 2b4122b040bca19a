package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"handoff/pkg/config"
	"handoff/pkg/handoff"
	"handoff/pkg/logger"
	"handoff/pkg/metrics"
	"handoff/pkg/workspace"

	"github.com/spf13/cobra"
)

const (
	processedLine = "Message processed successfully"
	idleLine      = "No messages to process"
)

var (
	checkOnce       bool
	intervalSeconds int
	workspacePath   string
	metricsAddr     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "handoff",
	Short: "Poll the shared directory for handoff messages",
	Long: "Watches <workspace>/shared/claude-to-jules-message.md, answers each message in " +
		"shared/jules-to-cc.md, and archives the consumed input as shared/processed-<timestamp>.md.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.root")

		recorder := metrics.NewRecorder()
		poller, err := handoff.New(cfg, handoff.WithLogger(appLogger), handoff.WithMetrics(recorder))
		if err != nil {
			if workspace.IsCategory(err, workspace.ErrorPathNotFound) {
				return fmt.Errorf("workspace not found: %s", cfg.Workspace)
			}
			return fmt.Errorf("initialize poller: %w", err)
		}

		if checkOnce {
			return runCheckOnce(cmd.Context(), poller, cmd.OutOrStdout())
		}

		runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if addr := cfg.Metrics.Address; addr != "" {
			go func() {
				if err := metrics.NewServer(recorder, appLogger).Serve(runCtx, addr); err != nil {
					log.Error("Status server failed", "error", err)
				}
			}()
		}

		interval := time.Duration(cfg.PollIntervalSeconds) * time.Second
		if err := poller.Run(runCtx, interval); err != nil {
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolVar(&checkOnce, "check-once", false, "run a single poll cycle and exit")
	rootCmd.Flags().IntVar(&intervalSeconds, "interval", config.DefaultPollInterval, "seconds to sleep between poll cycles")
	rootCmd.Flags().StringVar(&workspacePath, "workspace", "", "workspace root (defaults to $ASSISTANT_PROJECT_ROOT)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for /healthz and /metrics")
}

// resolveConfig layers explicitly set flags over the loaded configuration.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("interval") {
		cfg.PollIntervalSeconds = intervalSeconds
	}
	if flags.Changed("workspace") {
		cfg.Workspace = workspacePath
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Address = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runCheckOnce(ctx context.Context, poller *handoff.Poller, out io.Writer) error {
	processed, err := poller.PollOnce(ctx)
	if err != nil {
		return err
	}

	if processed {
		fmt.Fprintln(out, processedLine)
	} else {
		fmt.Fprintln(out, idleLine)
	}
	return nil
}
