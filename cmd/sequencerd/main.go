// Command sequencerd runs one rate-monotonic frame sequencer schedule
// from a YAML config file: it wires the configured camera backend and
// pipeline stages into a sequencer.Schedule, brings the schedule up, and
// serves /healthz and /status until the schedule's iteration bound is
// reached or a shutdown signal arrives.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/neo4reo/real-timely/internal/camera"
	"github.com/neo4reo/real-timely/internal/config"
	"github.com/neo4reo/real-timely/internal/control"
	"github.com/neo4reo/real-timely/internal/framepipeline"
	"github.com/neo4reo/real-timely/internal/rtclock"
	"github.com/neo4reo/real-timely/internal/rtlog"
	"github.com/neo4reo/real-timely/internal/sequencer"
	"github.com/neo4reo/real-timely/internal/stages"
	"github.com/neo4reo/real-timely/internal/telemetry"
)

const (
	defaultConfigPath = "config/schedule_1hz.yaml"
	defaultControlAddr = ":8080"
)

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to the schedule config file")
	controlAddr := flag.String("control-addr", defaultControlAddr, "address for the /healthz and /status server")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("starting sequencer", "config", *configPath, "control_addr", *controlAddr)

	if err := run(*configPath, *controlAddr); err != nil {
		slog.Error("sequencer exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("sequencer stopped successfully")
}

func run(configPath, controlAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	withBlur := cfg.Blur != nil
	pipeline, err := framepipeline.New(cfg.FrameCount, cfg.FrameWidth, cfg.FrameHeight, 3, withBlur)
	if err != nil {
		return err
	}
	if err := pipeline.Seed(ctx); err != nil {
		return err
	}

	src, err := camera.Open(ctx, camera.Config{
		Backend:      cfg.Camera.Backend,
		Width:        cfg.FrameWidth,
		Height:       cfg.FrameHeight,
		RTSPURL:      cfg.Camera.RTSPURL,
		ReplayScript: cfg.Camera.ReplayScript,
	})
	if err != nil {
		return err
	}

	var telem *telemetry.Emitter
	if cfg.MQTT != nil {
		telem = telemetry.New(telemetry.Config{
			Broker:   cfg.MQTT.Broker,
			Topic:    cfg.MQTT.Topic,
			ClientID: "sequencerd",
		})
		if err := telem.Connect(ctx); err != nil {
			slog.Warn("mqtt connect failed, continuing without telemetry", "error", err)
			telem = nil
		}
	}

	clock := rtclock.New()
	logger := rtlog.NewStderr(clock)

	var publisher telemetry.Publisher = telemetry.NoopEmitter{}
	if telem != nil {
		publisher = telem
	}

	specs := make([]sequencer.ServiceSpec, 0, len(cfg.Services))
	for i, sc := range cfg.Services {
		hooks, err := buildHooks(sc.Stage, cfg, src, logger, publisher)
		if err != nil {
			return err
		}
		specs = append(specs, sequencer.ServiceSpec{
			ID:     i + 1,
			Name:   sc.Name,
			Period: sc.Period,
			CPU:    sc.CPU,
			Hooks:  hooks,
		})
	}

	services, err := sequencer.BuildServices(specs, cfg.MaxIterations)
	if err != nil {
		return err
	}
	schedule, err := sequencer.NewSchedule(cfg.Frequency, cfg.MaxIterations, cfg.SequencerCPU, services)
	if err != nil {
		return err
	}

	ctrl := control.New(controlAddr, schedule, pipeline, telem)
	ctrl.Start()
	defer ctrl.Stop()

	err = sequencer.Bringup(ctx, schedule, pipeline, logger)
	if telem != nil {
		telem.Disconnect()
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func buildHooks(stage string, cfg *config.ScheduleConfig, src camera.Source, logger *rtlog.Logger, publisher telemetry.Publisher) (sequencer.Hooks, error) {
	switch stage {
	case "capture":
		return stages.Capture(src, logger), nil
	case "difference":
		return stages.Difference(), nil
	case "select":
		return stages.Select(stages.SelectConfig{
			Threshold: cfg.Select.Threshold,
			Direction: cfg.Select.Direction,
		}, publisher), nil
	case "blur":
		return stages.Blur(cfg.Blur.Radius, logger), nil
	case "write":
		return stages.Write(cfg.OutputDir, logger), nil
	default:
		return sequencer.Hooks{}, &unknownStageError{stage: stage}
	}
}

type unknownStageError struct{ stage string }

func (e *unknownStageError) Error() string {
	return "sequencerd: unknown stage " + e.stage
}
