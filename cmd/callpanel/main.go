// Command callpanel runs the switch panel controller: it watches the panel
// switches over GPIO, lights the paired bulbs, notifies the remote call
// service and serves status over HTTP.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/herrera/callpanel/internal/api"
	"github.com/herrera/callpanel/internal/config"
	"github.com/herrera/callpanel/internal/directory"
	"github.com/herrera/callpanel/internal/events"
	"github.com/herrera/callpanel/internal/hw"
	"github.com/herrera/callpanel/internal/press"
	"github.com/herrera/callpanel/internal/service"
	"github.com/herrera/callpanel/internal/status"
	"github.com/herrera/callpanel/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "callpanel",
	})
	if !cfg.IsProd() {
		logger.SetLevel(log.DebugLevel)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("fatal", "err", err)
	}
}

func run(cfg config.Config, logger *log.Logger) error {
	lines := hw.Lines{SwitchPins: cfg.SwitchPins, BulbPins: cfg.BulbPins}

	store, err := directory.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer store.Close()

	client := api.NewClient(cfg.APIURL, cfg.APIEndpoint, cfg.CompanyID, cfg.DeviceID)

	// The MQTT stream is optional; without a broker the daemon runs the
	// same, just silently.
	var stream events.Publisher
	if cfg.MQTTBroker != "" {
		stream = events.NewRealPublisher(cfg.MQTTBroker, cfg.DeviceID, logger)
		defer stream.Close()
	}

	detector := hw.NewDetector(cfg.EnableGPIO)
	svc := service.New(service.Options{
		Lines:    lines,
		Detector: detector,
		NewHardware: func() hw.Driver {
			return hw.NewRealDriver(lines, logger)
		},
		NewSim: func() hw.Driver {
			return hw.NewSimDriver(lines, logger)
		},
		NewHandler: func(driver hw.Driver) service.PressHandler {
			return press.NewHandler(driver, lines, store, client, stream,
				cfg.BulbHold, cfg.DeviceID, logger)
		},
		Poll:            cfg.PollInterval,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})

	svc.Initialize(context.Background())
	defer svc.Shutdown()

	// A failed sync is not fatal: the daemon serves whatever the local
	// directory already holds and presses on unknown switches report a
	// lookup miss.
	syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := directory.Sync(syncCtx, store, client, lines.Count()); err != nil {
		logger.Error("user sync failed, serving stored directory", "err", err)
	} else {
		n, _ := store.Count(syncCtx)
		logger.Info("user directory synced", "users", n)
	}
	cancel()

	svc.StartMonitoring(context.Background())

	reporter := status.NewReporter(svc, detector, lines)
	srv := web.New(web.Options{
		Addr:     fmt.Sprintf(":%d", cfg.Port),
		DeviceID: cfg.DeviceID,
		Trigger:  svc,
		Status:   reporter,
		Logger:   logger,
	})
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "err", err)
		}
	}()
	logger.Info("http server listening", "port", cfg.Port)

	publishSystem(stream, logger, "STARTUP", "")
	logger.Info("controller running",
		"mode", svc.Mode(), "switches", lines.Count(), "poll", cfg.PollInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", "signal", sig)

	publishSystem(stream, logger, "SHUTDOWN", signalName(sig))

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "err", err)
	}

	svc.Shutdown()
	return nil
}

func publishSystem(stream events.Publisher, logger *log.Logger, event, reason string) {
	if stream == nil {
		return
	}
	err := stream.PublishSystem(events.SystemEvent{
		Timestamp: time.Now(),
		Event:     event,
		Reason:    reason,
		Retained:  true,
	})
	if err != nil {
		logger.Error("system event publish failed", "event", event, "err", err)
	}
}

func signalName(sig os.Signal) string {
	switch sig {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return sig.String()
}
