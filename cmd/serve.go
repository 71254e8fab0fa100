package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kozaktomas/facewatch/internal/attendance"
	"github.com/kozaktomas/facewatch/internal/broadcast"
	"github.com/kozaktomas/facewatch/internal/capture"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/database"
	"github.com/kozaktomas/facewatch/internal/engine"
	"github.com/kozaktomas/facewatch/internal/faceapi"
	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/kozaktomas/facewatch/internal/metrics"
	"github.com/kozaktomas/facewatch/internal/notify"
	"github.com/kozaktomas/facewatch/internal/snapshot"
	"github.com/kozaktomas/facewatch/internal/web"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the recognition loop and the API server",
	Long: `Start the camera recognition loop together with the HTTP API.
The API exposes live presence, the event history, unknown visitors,
attendance and a WebSocket/SSE event stream.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().Bool("no-scheduler", false, "Do not run the nightly attendance job")
}

// resolveServeHostPort applies command line overrides on top of the config.
func resolveServeHostPort(cmd *cobra.Command, cfg *config.WebConfig) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Host = host
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	resolveServeHostPort(cmd, &cfg.Web)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := metrics.New()
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	snapshots, err := snapshot.New(ctx, cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("failed to set up snapshot storage: %w", err)
	}

	notifier, err := notify.New(cfg.Notify.URLs, cfg.Notify.Cooldown, m)
	if err != nil {
		return fmt.Errorf("failed to set up notifications: %w", err)
	}
	defer notifier.Wait()

	hub := broadcast.NewHub(m)
	defer hub.Close()
	if cfg.MQTT.Enabled() {
		bridge, err := broadcast.ConnectMQTT(cfg.MQTT)
		if err != nil {
			return err
		}
		hub.Subscribe(bridge)
	}

	detector := faceapi.NewClient(cfg.FaceAPI.URL, cfg.Engine.Device, cfg.FaceAPI.Timeout)
	if err := detector.Health(ctx); err != nil {
		logger.Warn("face API not reachable yet, frames will be skipped until it is", "url", cfg.FaceAPI.URL, "error", err)
	}

	eng := engine.New(engine.OptionsFromConfig(cfg.Engine, cfg.Camera), engine.Deps{
		Store:     store,
		Detector:  detector,
		Source:    func() (capture.Source, error) { return capture.Open(cfg.Camera.Source) },
		Snapshots: snapshots,
		Notifier:  notifier,
		Hub:       hub,
		Metrics:   m,
	})
	if _, err := eng.ReloadCatalogs(ctx); err != nil {
		return fmt.Errorf("failed to load identity catalogs: %w", err)
	}

	agg := attendance.NewAggregator(store, cfg.Attendance.Location(), m)
	if !mustGetBool(cmd, "no-scheduler") {
		sched, err := attendance.NewScheduler(agg, cfg.Attendance.Schedule)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		logger.Info("attendance job scheduled", "schedule", cfg.Attendance.Schedule, "next", sched.Next())
	}

	server := web.NewServer(cfg.Web, cfg.Snapshot.URLPrefix, web.Deps{
		Store:      store,
		Engine:     eng,
		Aggregator: agg,
		Hub:        hub,
		Snapshots:  snapshots,
		Metrics:    m,
	})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = eng.Run(ctx)
	}()

	if watcher := database.GetCatalogWatcher(); watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := eng.WatchCatalogs(ctx, watcher); err != nil {
				logger.Warn("catalog change feed unavailable, use POST /api/v1/catalog/reload", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error during shutdown", "error", err)
		}
	}()

	fmt.Printf("Starting facewatch API on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	err = server.Start()
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
