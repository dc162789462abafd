package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/datastore"
	"github.com/example/slotwatch/internal/fetcher"
	"github.com/example/slotwatch/internal/logger"
	"github.com/example/slotwatch/internal/monitor"
	"github.com/example/slotwatch/internal/notifier"
	"github.com/example/slotwatch/internal/probing"
	"github.com/example/slotwatch/internal/rslimiter"
	"github.com/rs/zerolog"
)

func main() {
	configFile := flag.String("config", "", "Path to the YAML/JSON configuration file. If not set, searches default locations.")
	configFileAlias := flag.String("c", "", "Alias for --config")
	sourceURL := flag.String("url", "", "Portal URL to monitor (overrides config file if set)")
	skipPreflight := flag.Bool("skip-preflight", false, "Skip the start-up reachability probe")
	flag.Parse()

	if *configFile == "" && *configFileAlias != "" {
		*configFile = *configFileAlias
	}

	gCfg, err := config.LoadGlobalConfig(*configFile)
	if err != nil {
		log.Fatalf("[FATAL] Could not load config using path '%s': %v", *configFile, err)
	}

	if *sourceURL != "" {
		gCfg.FetcherConfig.SourceURL = *sourceURL
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Could not initialize logger: %v", err)
	}

	if err := config.ValidateConfig(gCfg); err != nil {
		zLogger.Fatal().Err(err).Msg("Configuration validation failed")
	}
	zLogger.Info().Str("source_url", gCfg.FetcherConfig.SourceURL).Msg("Configuration loaded")

	controller, cleanup, err := buildController(gCfg, zLogger, *skipPreflight)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Component wiring failed")
	}
	defer cleanup()

	go logEvents(controller, zLogger)

	if err := controller.Start(); err != nil {
		zLogger.Fatal().Err(err).Msg("Monitor failed to start")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zLogger.Info().Str("signal", sig.String()).Msg("Interrupt received, shutting down")
	case <-waitForStop(controller):
		zLogger.Info().Str("state", string(controller.State())).Msg("Monitor finished")
	}

	if err := controller.Stop(); err != nil {
		zLogger.Error().Err(err).Msg("Shutdown error")
	}
}

func buildController(gCfg *config.GlobalConfig, zLogger zerolog.Logger, skipPreflight bool) (*monitor.Controller, func(), error) {
	source, err := fetcher.NewSnapshotFetcher(*gCfg, zLogger)
	if err != nil {
		return nil, nil, err
	}

	dispatcher, err := notifier.NewDispatcher(gCfg.NotificationConfig, zLogger)
	if err != nil {
		return nil, nil, err
	}

	store, err := datastore.NewStateStore(gCfg.StorageConfig.BaseDir, zLogger)
	if err != nil {
		return nil, nil, err
	}

	opts := []monitor.ControllerOption{
		monitor.WithCycleGate(rslimiter.NewMemoryGuard(gCfg.MonitorConfig.MaxMemoryPercent, zLogger)),
	}

	cleanup := func() {}
	sessionDB, err := datastore.NewSessionDB(gCfg.StorageConfig.SessionDBPath, zLogger)
	if err != nil {
		zLogger.Warn().Err(err).Msg("Session history unavailable, continuing without it")
	} else {
		opts = append(opts, monitor.WithSessionRecorder(sessionDB))
		cleanup = func() {
			if err := sessionDB.Close(); err != nil {
				zLogger.Warn().Err(err).Msg("Session database close failed")
			}
		}
	}

	if !skipPreflight {
		opts = append(opts, monitor.WithPreflight(probing.NewProber(10*time.Second, 1, zLogger)))
	}

	controller := monitor.NewController(*gCfg, source, dispatcher, store, zLogger, opts...)
	return controller, cleanup, nil
}

// logEvents consumes the controller's event stream so nothing is dropped,
// mirroring each event into the log.
func logEvents(controller *monitor.Controller, zLogger zerolog.Logger) {
	for ev := range controller.Events() {
		switch ev.Type {
		case monitor.EventStatusChanged:
			zLogger.Info().Str("state", string(ev.State)).Msg("Monitor state changed")
		case monitor.EventNewAppointments:
			zLogger.Info().Int("count", ev.Count).Msg("New available appointments")
		case monitor.EventNotificationSent:
			zLogger.Info().Int("count", ev.Count).Msg("Notification sent")
		case monitor.EventError:
			zLogger.Warn().Err(ev.Err).Int("cycle", ev.Cycle).Msg("Monitor error")
		case monitor.EventAppointmentsFound, monitor.EventCheckCompleted:
			zLogger.Debug().Int("cycle", ev.Cycle).Int("count", ev.Count).Str("event", string(ev.Type)).Msg("Cycle event")
		}
	}
}

// waitForStop closes the returned channel when the controller leaves the
// running states on its own (max cycles reached or fatal error).
func waitForStop(controller *monitor.Controller) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			switch controller.State() {
			case monitor.StateStopped, monitor.StateError:
				return
			}
			time.Sleep(250 * time.Millisecond)
		}
	}()
	return done
}
