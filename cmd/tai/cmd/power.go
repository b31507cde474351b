package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAI/internal/bench"
)

var powerCmd = &cobra.Command{
	Use:       "power <on|off>",
	Short:     "Switch board power",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE:      runPower,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Pulse the board's warm reset",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBench(func(b *bench.Bench) error {
			if err := b.TAI.Reset(); err != nil {
				return err
			}
			fmt.Println("Reset issued.")
			return nil
		})
	},
}

var (
	porHold    bool
	porRelease bool
)

var porCmd = &cobra.Command{
	Use:   "por",
	Short: "Power-on reset, or hold/release the POR line",
	Long: `Issue a power-on reset. With --hold the POR line is asserted and left
asserted; --release de-asserts it again.`,
	Args: cobra.NoArgs,
	RunE: runPOR,
}

func init() {
	porCmd.Flags().BoolVar(&porHold, "hold", false, "assert POR and keep it asserted")
	porCmd.Flags().BoolVar(&porRelease, "release", false, "release a held POR")
	porCmd.MarkFlagsMutuallyExclusive("hold", "release")

	rootCmd.AddCommand(powerCmd, resetCmd, porCmd)
}

func runPower(cmd *cobra.Command, args []string) error {
	return withBench(func(b *bench.Bench) error {
		var err error
		if args[0] == "on" {
			err = b.TAI.PowerOn()
		} else {
			err = b.TAI.PowerOff()
		}
		if err != nil {
			return err
		}
		fmt.Printf("Power %s.\n", args[0])
		return nil
	})
}

func runPOR(cmd *cobra.Command, args []string) error {
	return withBench(func(b *bench.Bench) error {
		switch {
		case porHold:
			if err := b.TAI.HoldPOR(); err != nil {
				return err
			}
			fmt.Println("POR held.")
		case porRelease:
			if err := b.TAI.ReleasePOR(); err != nil {
				return err
			}
			fmt.Println("POR released.")
		default:
			if err := b.TAI.POR(); err != nil {
				return err
			}
			fmt.Println("POR issued.")
		}
		return nil
	})
}
