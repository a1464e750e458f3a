package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fusexd/metacore/internal/logger"
	"github.com/fusexd/metacore/internal/telemetry"
	"github.com/fusexd/metacore/pkg/broadcast"
	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/config"
	"github.com/fusexd/metacore/pkg/dispatch"
	"github.com/fusexd/metacore/pkg/metrics"
	"github.com/fusexd/metacore/pkg/nsstore"
	"github.com/fusexd/metacore/pkg/registry"
	"github.com/fusexd/metacore/pkg/statsapi"

	// Import prometheus metrics collectors to register their init() functions.
	_ "github.com/fusexd/metacore/pkg/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the fusexmetad server core",
	Long: `Start the fusexmetad metadata server core: the client registry,
CAP store, broadcast engine, and dispatcher, plus the heartbeat-monitor and
CAP-monitor background loops and a read-only stats HTTP surface.`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	if configFile == "" {
		if !config.DefaultConfigExists() {
			return fmt.Errorf(
				"no configuration file found at default location: %s\n\nPlease initialize one first:\n  fusexmetad init",
				config.GetDefaultConfigPath(),
			)
		}
	} else if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return fmt.Errorf("configuration file not found: %s\n\nPlease create it:\n  fusexmetad init --config %s", configFile, configFile)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "fusexmetad",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := telemetry.InitProfiling(telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "fusexmetad",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize profiling: %w", err)
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	capStore := cap.NewStore(metrics.NewCapMetrics())

	reg := registry.New(capStore, nil, nil, nil, metrics.NewHeartbeatMetrics(), registry.Config{
		HeartbeatInterval:         cfg.Heartbeat.Interval,
		HeartbeatWindow:           cfg.Heartbeat.Window,
		HeartbeatOfflineWindow:    cfg.Heartbeat.OfflineWindow,
		HeartbeatRemoveWindow:     cfg.Heartbeat.RemoveWindow,
		MinProtocolVersion:        cfg.Heartbeat.MinProtocolVersion,
		RefreshEntrySuppressBelow: cfg.Heartbeat.RefreshEntrySuppressBelow,
		HeartbeatRate:             cfg.Heartbeat.Rate,
		ServerVersion:             cfg.Heartbeat.ServerVersion,
	})

	bcEngine := broadcast.New(capStore, nil, broadcast.Config{
		AudienceThreshold: cfg.Broadcast.MaxAudience,
		SuppressPattern:   cfg.Broadcast.AudienceSuppressMatch,
	}, metrics.NewBroadcastMetrics())

	// TODO: an external namespace store can be substituted here once a
	// concrete pluggable implementation exists (spec.md §6); for now the
	// in-memory reference store backs every deployment.
	store := nsstore.NewMemoryStore()

	dispatcher := dispatch.New(store, capStore, bcEngine, nil, nil, nil, dispatch.Config{
		MaxChildren:        cfg.Listing.MaxChildren,
		ExemptAppTags:      cfg.Listing.ExemptAppTags,
		ListFlushBatch:     cfg.Listing.FlushBatch,
		ChildCapLimit:      cfg.Cap.ChildCapLimit,
		CapGraceWindow:     cfg.Cap.GraceWindow,
		ClockSkewTolerance: cfg.Cap.ClockSkewTolerance,
		RecycleEnabled:     cfg.Cap.RecycleEnabled,
		EvalUserACL:        cfg.Cap.EvalUserACL,
	}, metrics.NewDispatchMetrics())
	// dispatcher has no wire-protocol listener driving it in this binary;
	// identity resolution is the routing layer's job, not the core's
	// (pkg/identity, spec.md §1). Constructed here so every core
	// component comes up together, ready for a listener to use.
	_ = dispatcher

	logger.Info("fusexmetad core initialized",
		"heartbeat_interval", cfg.Heartbeat.Interval,
		"heartbeat_window", cfg.Heartbeat.Window,
		"max_children", cfg.Listing.MaxChildren,
	)

	go runHeartbeatMonitor(reg, cfg.Heartbeat.Interval)
	go runCapMonitor(capStore, cfg.Heartbeat.Interval, reg.Done())

	statsPort := cfg.Metrics.Port
	if statsPort == 0 {
		statsPort = 9090
	}
	statsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", statsPort),
		Handler: statsapi.NewRouter(reg, capStore),
	}
	serverDone := make(chan error, 1)
	go func() {
		logger.Info("stats surface listening", "addr", statsSrv.Addr)
		if err := statsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("fusexmetad is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
	case err := <-serverDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("stats surface error", "error", err)
		}
	}

	cancel()
	reg.Terminate()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := statsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("stats surface shutdown error", "error", err)
	}

	logger.Info("fusexmetad stopped")
	return nil
}

// runHeartbeatMonitor advances the registry's state machine once per
// interval until the registry's cooperative terminate flag fires, per
// spec.md's "heartbeat-monitor... loops exit on the cooperative terminate
// flag within one tick".
func runHeartbeatMonitor(reg *registry.Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-reg.Done():
			return
		case now := <-ticker.C:
			reg.Tick(now)
		}
	}
}

// runCapMonitor drains due entries from the CAP store's expiry heap once
// per interval until done fires (spec.md §4.5's CAP-monitor loop;
// quota-hint recomputation is left to the external quota service this
// module does not implement).
func runCapMonitor(capStore *cap.Store, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			capStore.RunExpiryOnce(now)
		}
	}
}
