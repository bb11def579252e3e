package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ppiankov/riskfeed/internal/metrics"
	"github.com/ppiankov/riskfeed/internal/model"
	"github.com/ppiankov/riskfeed/internal/monitor"
	"github.com/ppiankov/riskfeed/internal/pipeline"
	"github.com/ppiankov/riskfeed/internal/worker"
)

var (
	monitorUsersFile   string
	monitorUsersList   string
	monitorInterval    time.Duration
	monitorWatch       bool
	monitorMetricsAddr string
	monitorNATSURL     string
)

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch flagged users for new high-risk posts",
	Long: `Monitor re-checks the riskiest users of a feed for new posts and
raises an alert for every recent post scoring at or above the alert
threshold. With --users-list a plain list of usernames is monitored
instead of the feed.

Alerts are saved as JSON under <data-dir>/alerts and, when a NATS URL is
configured, published on the alerts subject. The user feed is re-read
before every pass so a fresh collection is picked up.

Example:
  riskfeed monitor
  riskfeed monitor --users-list watchlist.txt
  riskfeed monitor --watch --metrics-addr :9090
  riskfeed monitor --interval 6h
  riskfeed monitor --nats-url nats://localhost:4222`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().StringVar(&monitorUsersFile, "users-file", "", "user feed CSV (defaults to <data-dir>/"+pipeline.UsersRiskFile+")")
	monitorCmd.Flags().StringVar(&monitorUsersList, "users-list", "", "file with one username per line, monitored instead of the feed")
	monitorCmd.Flags().BoolVar(&monitorWatch, "watch", false, "keep running, one pass every monitor.interval")
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 0, "keep running with this time between passes (implies --watch)")
	monitorCmd.Flags().StringVar(&monitorMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides monitor.metrics_addr)")
	monitorCmd.Flags().StringVar(&monitorNATSURL, "nats-url", "", "publish alerts to this NATS server (overrides monitor.nats_url)")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	applyMonitorFlags(cfg)

	usersFile := monitorUsersFile
	if usersFile == "" {
		usersFile = filepath.Join(cfg.Output.DataDir, pipeline.UsersRiskFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := pipeline.Build(cfg, logger)
	if err != nil {
		return err
	}

	sinks := []monitor.Sink{monitor.NewFileSink(filepath.Join(cfg.Output.DataDir, "alerts"), logger)}
	if cfg.Monitor.NATSURL != "" {
		natsSink, err := monitor.NewNATSSink(cfg.Monitor.NATSURL, cfg.Monitor.NATSSubject, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := natsSink.Close(); err != nil {
				logger.WithError(err).Warn("nats drain failed")
			}
		}()
		sinks = append(sinks, natsSink)
	}

	if cfg.Monitor.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.Monitor.MetricsAddr, logger)
		defer shutdown()
	}

	m := monitor.New(cfg.Monitor, components.Collector, components.Scorer, components.Classifier, logger, sinks...)
	load := func() ([]string, error) {
		return monitor.LoadFlaggedUsers(usersFile, cfg.Monitor.MinUserScore, cfg.Monitor.MaxUsers, cfg.Users.ExcludedAuthors)
	}
	if monitorUsersList != "" {
		usersFile = monitorUsersList
		load = func() ([]string, error) {
			return worker.ReadLinesFromFile(monitorUsersList)
		}
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  riskfeed monitor\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Users file:   %s\n", usersFile)
	fmt.Fprintf(os.Stderr, "  Min score:    %.2f\n", cfg.Monitor.MinUserScore)
	fmt.Fprintf(os.Stderr, "  Threshold:    %.2f\n", cfg.Monitor.AlertThreshold)
	fmt.Fprintf(os.Stderr, "  Window:       %v\n", cfg.Monitor.CheckWindow)
	if monitorWatch {
		fmt.Fprintf(os.Stderr, "  Interval:     %v\n", cfg.Monitor.Interval)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if monitorWatch {
		err := m.RunEvery(ctx, cfg.Monitor.Interval, load)
		if errors.Is(err, context.Canceled) {
			logger.Info("monitor stopped")
			return nil
		}
		return err
	}

	usernames, err := load()
	if err != nil {
		return err
	}
	alerts, err := m.Run(ctx, usernames)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Checked %d users, %d alerts\n\n", len(usernames), len(alerts))
	return nil
}

// applyMonitorFlags overrides config values with explicitly set flags
func applyMonitorFlags(cfg *model.Config) {
	if monitorInterval > 0 {
		cfg.Monitor.Interval = monitorInterval
		monitorWatch = true
	}
	if monitorMetricsAddr != "" {
		cfg.Monitor.MetricsAddr = monitorMetricsAddr
	}
	if monitorNATSURL != "" {
		cfg.Monitor.NATSURL = monitorNATSURL
	}
}

// serveMetrics exposes /metrics on addr and returns a shutdown func
func serveMetrics(addr string, logger logrus.FieldLogger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.WithField("addr", addr).Info("serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server failed")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
