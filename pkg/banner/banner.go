package banner

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"todo/pkg/config"
)

const banner = `
 _____ ___  ____   ___
|_   _/ _ \|  _ \ / _ \
  | || | | | | | | | | |
  | || |_| | |_| | |_| |
  |_| \___/|____/ \___/
`

// Print writes the startup banner and a summary of the effective config.
func Print(w io.Writer, eff config.EffectiveConfigResult, version string, tasks int) {
	cfg := eff.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	addr := eff.Addr
	if addr == "" {
		addr = cfg.Addr()
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Listen:   http://%s\n", addr)
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	fmt.Fprintf(w, "Config:   %s (%s)\n", eff.Source(), eff.ConfigPath)
	fmt.Fprintf(w, "Buffer:   %s\n", humanize.IBytes(uint64(cfg.Server.ReadBuffer)))

	fmt.Fprintln(w, "\n== Tasks ======================================================")
	switch cfg.Storage.Backend {
	case config.BackendPebble:
		fmt.Fprintf(w, "- Storage: pebble at %s\n", cfg.PebblePath())
	default:
		fmt.Fprintf(w, "- Storage: file at %s\n", cfg.TasksFile())
	}
	fmt.Fprintf(w, "- Tasks: %s\n", humanize.Comma(int64(tasks)))

	r := cfg.Reminders
	if r.IsEnabled() {
		watch := "off"
		if r.Watching() {
			watch = "on"
		}
		fmt.Fprintf(w, "- Reminders: enabled (cron=%s, window=%s, watch=%s)\n", r.Cron, r.Window.Duration(), watch)
	} else {
		fmt.Fprintln(w, "- Reminders: disabled")
	}
	if cfg.Metrics.Enabled {
		fmt.Fprintf(w, "- Metrics: http://%s/metrics\n", cfg.Metrics.Address)
	} else {
		fmt.Fprintln(w, "- Metrics: disabled")
	}
	fmt.Fprintln(w)
}
