package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAI/internal/bench"
)

var bootmodeCmd = &cobra.Command{
	Use:   "bootmode <mode>",
	Short: "Select the boot mode",
	Long: `Look up the boot code for <mode> on the configured device type and send it
to the board controller. Nothing is sent when the mode is unknown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBench(func(b *bench.Bench) error {
			if err := b.TAI.SetBootmode(args[0]); err != nil {
				return err
			}
			fmt.Printf("Boot mode %s selected on %s.\n", args[0], b.Config.DeviceType)
			return nil
		})
	},
}

var dutCmd = &cobra.Command{
	Use:   "dut <name>",
	Short: "Select the device under test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBench(func(b *bench.Bench) error {
			if err := b.TAI.SetDUT(args[0]); err != nil {
				return err
			}
			fmt.Printf("DUT set to %s.\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(bootmodeCmd, dutCmd)
}
