package config

import (
	"fmt"
	"strings"
)

var validStages = map[string]bool{
	"capture":    true,
	"difference": true,
	"select":     true,
	"write":      true,
	"blur":       true,
}

var validBackends = map[string]bool{
	"gstreamer": true,
	"rpicamera": true,
	"mock":      true,
}

// Validate checks a ScheduleConfig for the constraints the sequencer
// and frame pipeline require before they will accept it: positive
// frequency, a frame pool of at least two slots, recognized stage
// names, and a camera backend that exists.
func Validate(cfg *ScheduleConfig) error {
	if cfg.Frequency <= 0 {
		return fmt.Errorf("frequency must be positive, got %f", cfg.Frequency)
	}
	if cfg.FrameCount < 2 {
		return fmt.Errorf("frame_count must be at least 2 (one in flight, one free), got %d", cfg.FrameCount)
	}
	if cfg.FrameWidth <= 0 || cfg.FrameHeight <= 0 {
		return fmt.Errorf("frame_width and frame_height must be positive, got %dx%d", cfg.FrameWidth, cfg.FrameHeight)
	}
	if len(cfg.Services) == 0 {
		return fmt.Errorf("at least one service must be configured")
	}

	haveWrite := false
	haveBlur := false
	for _, svc := range cfg.Services {
		if svc.Name == "" {
			return fmt.Errorf("service at index referencing stage %q has an empty name", svc.Stage)
		}
		if svc.Period <= 0 {
			return fmt.Errorf("service %q: period must be positive, got %d", svc.Name, svc.Period)
		}
		stage := strings.ToLower(svc.Stage)
		if !validStages[stage] {
			return fmt.Errorf("service %q: unrecognized stage %q", svc.Name, svc.Stage)
		}
		if stage == "write" {
			haveWrite = true
		}
		if stage == "blur" {
			haveBlur = true
		}
	}

	if haveWrite && cfg.OutputDir == "" {
		return fmt.Errorf("a write service is configured but output_dir is empty")
	}
	if haveBlur && cfg.Blur == nil {
		return fmt.Errorf("a blur service is configured but no blur section was provided")
	}
	if cfg.Blur != nil && cfg.Blur.Radius <= 0 {
		return fmt.Errorf("blur.radius must be positive, got %d", cfg.Blur.Radius)
	}

	backend := strings.ToLower(cfg.Camera.Backend)
	if !validBackends[backend] {
		return fmt.Errorf("unrecognized camera backend %q", cfg.Camera.Backend)
	}
	if backend == "gstreamer" && cfg.Camera.RTSPURL == "" {
		return fmt.Errorf("camera backend %q requires rtsp_url", cfg.Camera.Backend)
	}

	if cfg.Select.Threshold < 0 || cfg.Select.Threshold > 1 {
		return fmt.Errorf("select.threshold must be within [0, 1], got %f", cfg.Select.Threshold)
	}
	dir := strings.ToLower(cfg.Select.Direction)
	if dir != "" && dir != "up" && dir != "down" {
		return fmt.Errorf("select.direction must be \"up\" or \"down\", got %q", cfg.Select.Direction)
	}

	if cfg.MQTT != nil && cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt section given but broker is empty")
	}

	return nil
}
