package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAI/internal/bench"
	"github.com/OpenTraceLab/OpenTraceTAI/internal/config"
	"github.com/OpenTraceLab/OpenTraceTAI/internal/logging"
)

var (
	// Global flags
	verbose       bool
	configPath    string
	consoleKind   string
	consolePort   string
	deviceType    string
	bootCodePaths []string
)

var rootCmd = &cobra.Command{
	Use:   "tai",
	Short: "Board test-automation interface",
	Long: `Drive a development board through its Tiva board controller: switch power,
assert resets, select the boot mode, pick the DUT and read the power rails.

Each command claims the console for the driver it needs; any other driver
sharing that console is deactivated first.

Examples:
  tai power on                                  # Simulated board
  tai --console file --port /dev/ttyACM0 reset  # Real controller
  tai measure --samples 5 --delay 5 --json      # Rail readings as JSON
  tai bootcodes lookup am62xx-sk mmc            # Boot-code table`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.ConfigureRuntime()
		if verbose {
			logging.SetLevel(zerolog.DebugLevel)
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVarP(&configPath, "config", "c", "", "bench config file (.yaml, .yml or .toml)")
	flags.StringVar(&consoleKind, "console", "", "console kind: sim or file")
	flags.StringVarP(&consolePort, "port", "p", "", "console device path for --console file")
	flags.StringVar(&deviceType, "device-type", "", "device type used for boot-code lookups")
	flags.StringSliceVar(&bootCodePaths, "bootcodes", nil, "extra boot-code table files or directories")
}

// loadConfig merges the config file (if any) with the command-line flags.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if consoleKind != "" {
		cfg.Console.Kind = strings.ToLower(consoleKind)
	}
	if consolePort != "" {
		cfg.Console.Path = consolePort
		if consoleKind == "" {
			cfg.Console.Kind = config.ConsoleFile
		}
	}
	if deviceType != "" {
		cfg.DeviceType = deviceType
	}
	cfg.BootCodes = append(cfg.BootCodes, bootCodePaths...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withBench builds the bench, runs fn and releases the console.
func withBench(fn func(b *bench.Bench) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	b, err := bench.Build(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close bench: %w", cerr)
		}
	}()
	return fn(b)
}
