package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"go.aimuz.me/kzmacro/config"
	"go.aimuz.me/kzmacro/hook"
	appsvc "go.aimuz.me/kzmacro/internal/app"
	"go.aimuz.me/kzmacro/internal/tray"
	"go.aimuz.me/kzmacro/player/robot"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	logLevel   string
	configPath string

	cfg *config.Config
)

// SetVersion sets the build information (called from main)
func SetVersion(v, c, d string) {
	version, commit, date = v, c, d
}

var rootCmd = &cobra.Command{
	Use:   "kzmacro",
	Short: "Record and replay keyboard and mouse macros",
	Long: `KzMacro records keyboard and mouse input with its timing into named
profiles and replays a profile when its trigger key or mouse button is pressed.

Without a subcommand it runs in the system tray.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = loadConfig()
		level := cfg.Level()
		if logLevel != "" {
			level = config.ParseLevel(logLevel)
		}
		setupLogging(level)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		slog.Info("starting app", "version", version, "commit", commit, "date", date)
		return tray.Run(tray.Options{
			Version: version,
			Config:  cfg,
			Service: appsvc.Options{
				Source: hook.NewHub(cfg.HookStartTimeout()),
				Synth:  robot.New(),
			},
		})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (default from config)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <user config dir>/kzmacro/config.json)")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("kzmacro %s (commit %s, built %s)\n", version, commit, date)
	},
}

func loadConfig() *config.Config {
	var (
		c   *config.Config
		err error
	)
	if configPath != "" {
		c, err = config.LoadFrom(configPath)
	} else {
		c, err = config.Load()
	}
	if err != nil {
		slog.Error("load config", "error", err)
		return config.Default()
	}
	return c
}

func setupLogging(level slog.Level) {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	})))
}
