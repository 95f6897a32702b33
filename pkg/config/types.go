package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration struct.
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Storage   StorageConfig  `yaml:"storage"`
	Logging   LoggingConfig  `yaml:"logging"`
	Metrics   MetricsConfig  `yaml:"metrics"`
	Reminders ReminderConfig `yaml:"reminders"`
}

// ServerConfig holds the task page listener settings.
type ServerConfig struct {
	Address    string    `yaml:"address"`
	Port       int       `yaml:"port"`
	ReadBuffer SizeBytes `yaml:"read_buffer"`
}

// StorageConfig selects where tasks live.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // "file" or "pebble"
	Dir       string `yaml:"dir"`
	File      string `yaml:"file"`
	PebbleDir string `yaml:"pebble_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Sink  string `yaml:"sink"`
}

// MetricsConfig controls the side listener serving /metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// ReminderConfig controls the desktop reminder monitor.
type ReminderConfig struct {
	// Enabled and Watch default to true, so nil means unset.
	Enabled *bool    `yaml:"enabled"`
	Watch   *bool    `yaml:"watch"`
	Cron    string   `yaml:"cron"`
	Window  Duration `yaml:"window"`
	Command string   `yaml:"command"`
	Title   string   `yaml:"title"`
	Rate    float64  `yaml:"rate"`
	Burst   int      `yaml:"burst"`
}

// IsEnabled reports whether the monitor should run.
func (r ReminderConfig) IsEnabled() bool { return r.Enabled == nil || *r.Enabled }

// Watching reports whether config directory writes trigger a check.
func (r ReminderConfig) Watching() bool { return r.Watch == nil || *r.Watch }

// SizeBytes represents a number of bytes, unmarshaled from human-friendly strings like "1KB" or plain integers.
type SizeBytes int64

func (s *SizeBytes) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*s = 0
		return nil
	}
	v, err := parseSize(node.Value)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s SizeBytes) Int() int { return int(s) }

func (s SizeBytes) String() string { return humanize.IBytes(uint64(s)) }

func parseSize(raw string) (SizeBytes, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return SizeBytes(i), nil
	}
	if v, err := humanize.ParseBytes(raw); err == nil {
		return SizeBytes(v), nil
	}
	return 0, fmt.Errorf("invalid size value: %q", raw)
}

// Duration is a wrapper around time.Duration that supports YAML parsing from strings like "5m" or plain numbers (interpreted as seconds).
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	v, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func parseDuration(raw string) (Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		return Duration(td), nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Duration(time.Duration(f * float64(time.Second))), nil
	}
	return 0, fmt.Errorf("invalid duration value: %q", raw)
}
