package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pitprobe/pitprobe/internal/config"
	"github.com/pitprobe/pitprobe/internal/registry"
)

var (
	cfgPath string
	cfg     *config.Config
	reg     *registry.Registry
)

var rootCmd = &cobra.Command{
	Use:   "pitprobe",
	Short: "Pit-side tire temperature logger for BLE probe thermometers",
	Long: `pitprobe scans for supported Bluetooth LE probe thermometers,
connects to them, and streams channel temperatures to the terminal.

Supported families include continuous-notify ASCII probes, polled and
wake-polled binary probes, and block-transfer probes that require a
registration code before they report.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		setupLogging(cfg.LogLevel)

		reg, err = registry.Load(cfg.RegistryPath)
		if err != nil {
			return err
		}
		return nil
	},
}

// loadConfig reads the config at path, or falls back to defaults when the
// default file is absent.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.Load(defaultPath)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (default: ~/.config/pitprobe/config.yaml)")
	rootCmd.AddCommand(scanCmd, logCmd, devicesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
