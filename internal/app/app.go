// Package app holds the process-bootstrap plumbing shared by this module's
// command-line entry points: building the structured-logging router from
// environment-driven configuration, the way internal/app.Run built one for
// the teacher's HTTP server before spawning its Hub.
//
// Unlike the teacher, this module's core (Client) is a generic type and
// can't be constructed behind a non-generic Run function, so each command
// wires its own Client directly; this package only carries the ambient
// concerns (logging, environment) that don't depend on the Simulation's
// type parameters.
package app

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"netcode/internal/telemetry"
	"netcode/logging"
	"netcode/logging/sinks"
)

// Config controls how the logging router is constructed.
type Config struct {
	Logger  telemetry.Logger
	Logging logging.Config
}

// BuildRouter constructs a logging.Router from cfg, wiring one sink per
// name in cfg.Logging.EnabledSinks. Grounded on the teacher's Run, which
// built a console sink map and passed it to logging.NewRouter before
// spawning the Hub; this module has no Hub, so the router is handed back
// to the caller to pass into Connect's Config.
func BuildRouter(cfg Config) (*logging.Router, error) {
	logCfg := cfg.Logging
	if len(logCfg.EnabledSinks) == 0 {
		logCfg = logging.DefaultConfig()
	}

	named := make([]logging.NamedSink, 0, len(logCfg.EnabledSinks))
	for _, name := range logCfg.EnabledSinks {
		switch name {
		case "console":
			named = append(named, logging.NamedSink{Name: "console", Sink: sinks.NewConsoleSink(os.Stdout, logCfg.Console)})
		case "json":
			named = append(named, logging.NamedSink{Name: "json", Sink: sinks.NewJSON(os.Stdout, logCfg.JSON.FlushInterval)})
		case "memory":
			named = append(named, logging.NamedSink{Name: "memory", Sink: sinks.NewMemorySink()})
		default:
			if cfg.Logger != nil {
				cfg.Logger.Printf("app: unknown logging sink %q ignored", name)
			}
		}
	}

	router, err := logging.NewRouter(logging.ClockFunc(time.Now), logCfg, named)
	if err != nil {
		return nil, fmt.Errorf("app: construct logging router: %w", err)
	}
	return router, nil
}

// CloseRouter shuts the router down, logging (rather than failing the
// caller) if the shutdown itself errors — matching the teacher's Run,
// which logged a close failure via defer rather than propagating it.
func CloseRouter(ctx context.Context, router *logging.Router, logger telemetry.Logger) {
	if router == nil {
		return
	}
	if err := router.Close(ctx); err != nil {
		if logger != nil {
			logger.Printf("app: close logging router: %v", err)
		} else {
			log.Printf("app: close logging router: %v", err)
		}
	}
}

// TelemetryAddr reads the NETCODE_TELEMETRY_ADDR environment variable,
// mirroring the teacher's Run reading KEYFRAME_INTERVAL_TICKS /
// ENABLE_PPROF_TRACE: an unset variable is not an error, just absence.
func TelemetryAddr() (string, bool) {
	addr := os.Getenv("NETCODE_TELEMETRY_ADDR")
	return addr, addr != ""
}
