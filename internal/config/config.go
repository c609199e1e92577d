// Package config loads and validates a Schedule variant from a YAML file:
// the base frequency, the iteration bound, the sequencer's CPU, the
// frame pool's geometry, and the ordered list of services (each bound to
// one pipeline stage) that make up the run.
//
// The shape mirrors a teacher config package this one is grounded on: a
// single Load(path) entry point that reads the file, unmarshals it with
// gopkg.in/yaml.v3, and runs Validate before handing the caller a config
// it can trust.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScheduleConfig is the complete on-disk description of one schedule
// variant (e.g. "1 Hz", "10 Hz", "1 Hz + blur").
type ScheduleConfig struct {
	Frequency     float64 `yaml:"frequency"`
	MaxIterations uint64  `yaml:"max_iterations"`
	SequencerCPU  int     `yaml:"sequencer_cpu"`

	// FrameCount is the frame pool size N. The write stage keeps every
	// token it writes, so each written frame removes one slot from the
	// pool for the rest of the run; Validate checks only FrameCount >= 2.
	FrameCount  int `yaml:"frame_count"`
	FrameWidth  int `yaml:"frame_width"`
	FrameHeight int `yaml:"frame_height"`

	OutputDir string `yaml:"output_dir"`

	Camera CameraConfig  `yaml:"camera"`
	Select SelectConfig  `yaml:"select"`
	Blur   *BlurConfig   `yaml:"blur,omitempty"`
	MQTT   *MQTTConfig   `yaml:"mqtt,omitempty"`

	Services []ServiceConfig `yaml:"services"`
}

// ServiceConfig describes one service: which stage it runs, its period
// in base ticks, and its CPU affinity.
type ServiceConfig struct {
	Name   string `yaml:"name"`
	Stage  string `yaml:"stage"` // "capture", "difference", "select", "write", or "blur"
	Period int    `yaml:"period"`
	CPU    int    `yaml:"cpu"`
}

// CameraConfig selects and configures the capture stage's camera
// backend.
type CameraConfig struct {
	Backend string `yaml:"backend"` // "gstreamer", "rpicamera", or "mock"
	RTSPURL string `yaml:"rtsp_url,omitempty"`
	// ReplayScript, when set, drives the mock backend with a sequence of
	// target difference_percentage values, each approximated to a
	// multiple of 100/255, instead of its free-running sinusoidal
	// brightness sweep.
	ReplayScript []float64 `yaml:"replay_script,omitempty"`
}

// SelectConfig configures the select stage's tick detector.
type SelectConfig struct {
	Threshold float64 `yaml:"threshold"`
	// Direction is "up" (the canonical "selected" variant: a tick is an
	// upward crossing of Threshold) or "down". Defaults to "up" when
	// empty.
	Direction string `yaml:"direction,omitempty"`
}

// BlurConfig configures the optional blur stage.
type BlurConfig struct {
	Radius int `yaml:"radius"`
}

// MQTTConfig configures the optional telemetry emitter. When nil, the
// scheduler bring-up wires in a no-op emitter.
type MQTTConfig struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

// Load reads path, parses it as YAML into a ScheduleConfig, and
// validates the result.
func Load(path string) (*ScheduleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %q: %w", path, err)
	}

	var cfg ScheduleConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %q: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid schedule in %q: %w", path, err)
	}
	return &cfg, nil
}
