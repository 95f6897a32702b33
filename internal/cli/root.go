package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"todo/pkg/config"
	"todo/pkg/logger"
	"todo/pkg/state"
)

// errReported marks a failure whose message was already printed.
var errReported = errors.New("reported")

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

type rootState struct {
	build BuildInfo
	eff   config.EffectiveConfigResult

	configPath string
	dir        string
	backend    string
}

// NewRootCmd builds the todo command tree.
func NewRootCmd(build BuildInfo) *cobra.Command {
	rt := &rootState{build: build}

	rootCmd := &cobra.Command{
		Use:   "todo",
		Short: "Personal task list with reminders and a local task page",
		Long: `todo keeps a personal task list in ~/.config/todo, sends desktop
reminders for tasks that are due and serves the list as a page on a local port.`,
		Version:           fmt.Sprintf("%s (commit: %s)", build.Version, build.Commit),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rt.setup,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVarP(&rt.configPath, "config", "c", "", "config file path (default is <dir>/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&rt.dir, "dir", "", "task directory (default is ~/.config/todo)")
	rootCmd.PersistentFlags().StringVar(&rt.backend, "backend", "", "storage backend: file or pebble")

	rootCmd.AddCommand(rt.displayCmd(), rt.addCmd(), rt.removeCmd(), rt.serveCmd())
	return rootCmd
}

// Execute runs the command tree with args and returns the process exit code.
func Execute(build BuildInfo, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd(build)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.Execute()
	logger.Sync()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// setup resolves the effective config, starts logging and makes sure the
// task directory exists before any command runs.
func (rt *rootState) setup(cmd *cobra.Command, _ []string) error {
	flags := config.Flags{
		Config:  rt.configPath,
		Dir:     rt.dir,
		Backend: rt.backend,
		Set:     map[string]bool{},
	}
	for _, name := range []string{"config", "dir", "backend", "address", "port", "metrics"} {
		flags.Set[name] = cmd.Flags().Changed(name)
	}
	if flags.Set["address"] {
		flags.Address, _ = cmd.Flags().GetString("address")
	}
	if flags.Set["port"] {
		flags.Port, _ = cmd.Flags().GetInt("port")
	}
	if flags.Set["metrics"] {
		flags.Metrics, _ = cmd.Flags().GetBool("metrics")
	}

	eff, err := config.LoadEffectiveConfig(flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rt.eff = eff

	level := eff.Config.Logging.Level
	// one-shot commands stay quiet unless something goes wrong
	if cmd.Name() != "serve" && logger.ParseLevel(level) < slog.LevelWarn {
		level = "warn"
	}
	logger.Init(level, eff.Config.Logging.Sink)
	logger.Debug("effective_config_loaded", "source", eff.Source(), "path", eff.ConfigPath)

	if err := state.EnsureDir(eff.Config.Storage.Dir); err != nil {
		return fmt.Errorf("prepare task directory: %w", err)
	}
	return nil
}
