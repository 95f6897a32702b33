package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const envPrefix = "TODO_"

// holds command-line flag values and which were set
type Flags struct {
	Config  string
	Dir     string
	Backend string
	Address string
	Port    int
	Metrics bool
	Set     map[string]bool
}

// holds the results of reading environment overrides
type EnvResult struct {
	EnvUsed bool
	// keys that were set but could not be parsed
	Invalid []string
}

// holds the result of LoadEffectiveConfig
type EffectiveConfigResult struct {
	Config     *Config
	Addr       string
	ConfigPath string
	Sources    []string // layers applied on top of defaults, lowest first
}

// Source joins the applied layers, or "defaults" when none were.
func (r EffectiveConfigResult) Source() string {
	if len(r.Sources) == 0 {
		return "defaults"
	}
	return strings.Join(r.Sources, "+")
}

// LoadDotEnv loads .env from the working directory and from dir without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(dir string) {
	candidates := []string{".env"}
	if dir != "" {
		candidates = append(candidates, filepath.Join(ExpandHome(dir), ".env"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// loads config from file, returns config, found bool, and error
func ParseConfigFile(path string) (*Config, bool, error) {
	cfg, err := LoadConfigFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

// loads TODO_* environment variables into a new Config
func ParseConfigEnvs() (*Config, EnvResult) {
	envs := map[string]string{
		"SERVER_ADDR":        os.Getenv(envPrefix + "SERVER_ADDR"),
		"SERVER_ADDRESS":     os.Getenv(envPrefix + "SERVER_ADDRESS"),
		"SERVER_PORT":        os.Getenv(envPrefix + "SERVER_PORT"),
		"SERVER_READ_BUFFER": os.Getenv(envPrefix + "SERVER_READ_BUFFER"),

		"STORAGE_BACKEND":    os.Getenv(envPrefix + "STORAGE_BACKEND"),
		"STORAGE_DIR":        os.Getenv(envPrefix + "STORAGE_DIR"),
		"STORAGE_FILE":       os.Getenv(envPrefix + "STORAGE_FILE"),
		"STORAGE_PEBBLE_DIR": os.Getenv(envPrefix + "STORAGE_PEBBLE_DIR"),

		// logging
		"LOG_LEVEL": os.Getenv(envPrefix + "LOG_LEVEL"),
		"LOG_SINK":  os.Getenv(envPrefix + "LOG_SINK"),

		"METRICS_ENABLED": os.Getenv(envPrefix + "METRICS_ENABLED"),
		"METRICS_ADDRESS": os.Getenv(envPrefix + "METRICS_ADDRESS"),

		// reminders
		"REMINDERS_ENABLED": os.Getenv(envPrefix + "REMINDERS_ENABLED"),
		"REMINDERS_WATCH":   os.Getenv(envPrefix + "REMINDERS_WATCH"),
		"REMINDERS_CRON":    os.Getenv(envPrefix + "REMINDERS_CRON"),
		"REMINDERS_WINDOW":  os.Getenv(envPrefix + "REMINDERS_WINDOW"),
		"REMINDERS_COMMAND": os.Getenv(envPrefix + "REMINDERS_COMMAND"),
		"REMINDERS_TITLE":   os.Getenv(envPrefix + "REMINDERS_TITLE"),
		"REMINDERS_RATE":    os.Getenv(envPrefix + "REMINDERS_RATE"),
		"REMINDERS_BURST":   os.Getenv(envPrefix + "REMINDERS_BURST"),
	}

	var res EnvResult
	for _, v := range envs {
		if v != "" {
			res.EnvUsed = true
			break
		}
	}
	envCfg := &Config{}

	parseBool := func(v string) bool {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes":
			return true
		default:
			return false
		}
	}
	parseInt := func(key string) (int, bool) {
		n, err := strconv.Atoi(strings.TrimSpace(envs[key]))
		if err != nil {
			res.Invalid = append(res.Invalid, envPrefix+key)
			return 0, false
		}
		return n, true
	}

	if v := envs["SERVER_ADDR"]; v != "" {
		if h, p, err := net.SplitHostPort(v); err == nil {
			envCfg.Server.Address = h
			if pi, err := strconv.Atoi(p); err == nil {
				envCfg.Server.Port = pi
			}
		} else {
			envCfg.Server.Address = v
		}
	} else {
		if host := envs["SERVER_ADDRESS"]; host != "" {
			envCfg.Server.Address = host
		}
		if envs["SERVER_PORT"] != "" {
			if n, ok := parseInt("SERVER_PORT"); ok {
				envCfg.Server.Port = n
			}
		}
	}
	if v := envs["SERVER_READ_BUFFER"]; v != "" {
		if s, err := parseSize(v); err == nil {
			envCfg.Server.ReadBuffer = s
		} else {
			res.Invalid = append(res.Invalid, envPrefix+"SERVER_READ_BUFFER")
		}
	}

	envCfg.Storage.Backend = strings.ToLower(strings.TrimSpace(envs["STORAGE_BACKEND"]))
	envCfg.Storage.Dir = envs["STORAGE_DIR"]
	envCfg.Storage.File = envs["STORAGE_FILE"]
	envCfg.Storage.PebbleDir = envs["STORAGE_PEBBLE_DIR"]

	envCfg.Logging.Level = strings.TrimSpace(envs["LOG_LEVEL"])
	envCfg.Logging.Sink = strings.TrimSpace(envs["LOG_SINK"])

	if v := envs["METRICS_ENABLED"]; v != "" {
		envCfg.Metrics.Enabled = parseBool(v)
	}
	envCfg.Metrics.Address = envs["METRICS_ADDRESS"]

	r := &envCfg.Reminders
	if v := envs["REMINDERS_ENABLED"]; v != "" {
		b := parseBool(v)
		r.Enabled = &b
	}
	if v := envs["REMINDERS_WATCH"]; v != "" {
		b := parseBool(v)
		r.Watch = &b
	}
	r.Cron = strings.TrimSpace(envs["REMINDERS_CRON"])
	if v := envs["REMINDERS_WINDOW"]; v != "" {
		if d, err := parseDuration(v); err == nil {
			r.Window = d
		} else {
			res.Invalid = append(res.Invalid, envPrefix+"REMINDERS_WINDOW")
		}
	}
	r.Command = envs["REMINDERS_COMMAND"]
	r.Title = envs["REMINDERS_TITLE"]
	if v := envs["REMINDERS_RATE"]; v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			r.Rate = f
		} else {
			res.Invalid = append(res.Invalid, envPrefix+"REMINDERS_RATE")
		}
	}
	if envs["REMINDERS_BURST"] != "" {
		if n, ok := parseInt("REMINDERS_BURST"); ok {
			r.Burst = n
		}
	}
	return envCfg, res
}

// LoadEffectiveConfig layers the config file, then the environment, then
// explicitly set flags, and applies defaults. If --config was set the file
// must exist.
func LoadEffectiveConfig(flags Flags) (EffectiveConfigResult, error) {
	var res EffectiveConfigResult

	dir := flags.Dir
	if !flags.Set["dir"] {
		dir = os.Getenv(envPrefix + "STORAGE_DIR")
	}
	LoadDotEnv(dir)

	res.ConfigPath = ResolveConfigPath(flags.Config, flags.Set["config"], dir)
	fileCfg, found, err := ParseConfigFile(res.ConfigPath)
	if err != nil {
		return res, err
	}
	if flags.Set["config"] && !found {
		return res, fmt.Errorf("config file %s not found", res.ConfigPath)
	}

	cfg := &Config{}
	if found {
		merge(cfg, fileCfg)
		res.Sources = append(res.Sources, "config")
	}

	envCfg, envRes := ParseConfigEnvs()
	if len(envRes.Invalid) > 0 {
		return res, fmt.Errorf("invalid environment values: %s", strings.Join(envRes.Invalid, ", "))
	}
	if envRes.EnvUsed {
		merge(cfg, envCfg)
		res.Sources = append(res.Sources, "env")
	}

	if applyFlags(cfg, flags) {
		res.Sources = append(res.Sources, "flags")
	}

	if err := cfg.ValidateConfig(); err != nil {
		return res, err
	}
	res.Config = cfg
	res.Addr = cfg.Addr()
	return res, nil
}

func applyFlags(cfg *Config, flags Flags) bool {
	used := false
	if flags.Set["dir"] {
		cfg.Storage.Dir = flags.Dir
		used = true
	}
	if flags.Set["backend"] {
		cfg.Storage.Backend = flags.Backend
		used = true
	}
	if flags.Set["address"] {
		cfg.Server.Address = flags.Address
		used = true
	}
	if flags.Set["port"] {
		cfg.Server.Port = flags.Port
		used = true
	}
	if flags.Set["metrics"] {
		cfg.Metrics.Enabled = flags.Metrics
		used = true
	}
	return used
}

// merge copies every non-zero field of src onto dst.
func merge(dst, src *Config) {
	setStr := func(d *string, s string) {
		if s != "" {
			*d = s
		}
	}
	setStr(&dst.Server.Address, src.Server.Address)
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}
	if src.Server.ReadBuffer != 0 {
		dst.Server.ReadBuffer = src.Server.ReadBuffer
	}

	setStr(&dst.Storage.Backend, src.Storage.Backend)
	setStr(&dst.Storage.Dir, src.Storage.Dir)
	setStr(&dst.Storage.File, src.Storage.File)
	setStr(&dst.Storage.PebbleDir, src.Storage.PebbleDir)

	setStr(&dst.Logging.Level, src.Logging.Level)
	setStr(&dst.Logging.Sink, src.Logging.Sink)

	if src.Metrics.Enabled {
		dst.Metrics.Enabled = true
	}
	setStr(&dst.Metrics.Address, src.Metrics.Address)

	r, sr := &dst.Reminders, src.Reminders
	if sr.Enabled != nil {
		r.Enabled = sr.Enabled
	}
	if sr.Watch != nil {
		r.Watch = sr.Watch
	}
	setStr(&r.Cron, sr.Cron)
	if sr.Window != 0 {
		r.Window = sr.Window
	}
	setStr(&r.Command, sr.Command)
	setStr(&r.Title, sr.Title)
	if sr.Rate != 0 {
		r.Rate = sr.Rate
	}
	if sr.Burst != 0 {
		r.Burst = sr.Burst
	}
}
