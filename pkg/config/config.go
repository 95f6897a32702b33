package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"gopkg.in/yaml.v3"
)

const (
	defaultAddress    = "0.0.0.0"
	defaultPort       = 8080
	defaultReadBuffer = 1024
	defaultBackend    = BackendFile
	defaultDir        = "~/.config/todo"
	defaultFile       = "tasks.csv"
	defaultPebbleDir  = "tasks.db"
	defaultLogLevel   = "info"
	defaultLogSink    = "stderr"
	defaultMetrics    = "127.0.0.1:9090"
	// reminder defaults
	defaultReminderCron   = "* * * * *"
	defaultReminderWindow = 5 * time.Minute
	defaultReminderCmd    = "notify-send"
	defaultReminderTitle  = "Todo Reminder"
	defaultReminderRate   = 1
	defaultReminderBurst  = 3
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendPebble = "pebble"
)

// ConfigFileName is looked up in the storage directory when no path is given.
const ConfigFileName = "config.yaml"

// Addr returns the task page address as host:port.
func (c *Config) Addr() string {
	addr := c.Server.Address
	if addr == "" {
		addr = defaultAddress
	}
	port := c.Server.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(addr, strconv.Itoa(port))
}

// TasksFile is the absolute path of the flat task file.
func (c *Config) TasksFile() string {
	return resolveIn(c.Storage.Dir, c.Storage.File)
}

// PebblePath is the absolute path of the pebble database directory.
func (c *Config) PebblePath() string {
	return resolveIn(c.Storage.Dir, c.Storage.PebbleDir)
}

func resolveIn(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(ExpandHome(dir), name)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// LoadConfigFile reads and parses a config file. A missing file returns an
// error satisfying os.IsNotExist.
func LoadConfigFile(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// ValidateConfig fills in missing defaults and returns an error if any
// configuration value is invalid.
func (c *Config) ValidateConfig() error {
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port: %d", c.Server.Port)
	}
	if c.Server.ReadBuffer <= 0 {
		c.Server.ReadBuffer = defaultReadBuffer
	}

	st := &c.Storage
	if st.Backend == "" {
		st.Backend = defaultBackend
	}
	st.Backend = strings.ToLower(st.Backend)
	if st.Backend != BackendFile && st.Backend != BackendPebble {
		return fmt.Errorf("invalid storage.backend %q: want %s or %s", st.Backend, BackendFile, BackendPebble)
	}
	if st.Dir == "" {
		st.Dir = defaultDir
	}
	st.Dir = ExpandHome(st.Dir)
	if st.File == "" {
		st.File = defaultFile
	}
	if st.PebbleDir == "" {
		st.PebbleDir = defaultPebbleDir
	}

	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Sink == "" {
		c.Logging.Sink = defaultLogSink
	}

	if c.Metrics.Address == "" {
		c.Metrics.Address = defaultMetrics
	}
	if c.Metrics.Enabled {
		if _, _, err := net.SplitHostPort(c.Metrics.Address); err != nil {
			return fmt.Errorf("invalid metrics.address %q: %w", c.Metrics.Address, err)
		}
	}

	r := &c.Reminders
	if r.Cron == "" {
		r.Cron = defaultReminderCron
	}
	if r.Window.Duration() == 0 {
		r.Window = Duration(defaultReminderWindow)
	}
	if r.Window.Duration() < 0 {
		return fmt.Errorf("invalid reminders.window: %s", r.Window.Duration())
	}
	if r.Command == "" {
		r.Command = defaultReminderCmd
	}
	if r.Title == "" {
		r.Title = defaultReminderTitle
	}
	if r.Rate <= 0 {
		r.Rate = defaultReminderRate
	}
	if r.Burst <= 0 {
		r.Burst = defaultReminderBurst
	}
	if !gronx.New().IsValid(r.Cron) {
		return fmt.Errorf("invalid reminders.cron expression: %s", r.Cron)
	}
	return nil
}

// ResolveConfigPath returns the config file path, preferring flag, then env,
// then config.yaml in dir.
func ResolveConfigPath(flagPath string, flagSet bool, dir string) string {
	if flagSet && flagPath != "" {
		return ExpandHome(flagPath)
	}
	if p := os.Getenv("TODO_CONFIG"); p != "" {
		return ExpandHome(p)
	}
	if dir == "" {
		dir = defaultDir
	}
	return filepath.Join(ExpandHome(dir), ConfigFileName)
}
