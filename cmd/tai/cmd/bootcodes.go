package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAI/internal/bench"
)

var bootcodesCmd = &cobra.Command{
	Use:   "bootcodes",
	Short: "Inspect the boot-code table",
	Long: `Show the boot codes known for each device type: the built-in table plus any
files passed with --bootcodes or listed in the config.`,
}

var bootcodesListCmd = &cobra.Command{
	Use:   "list [device-type]",
	Short: "List boot modes per device type",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBootcodesList,
}

var bootcodesLookupCmd = &cobra.Command{
	Use:   "lookup <device-type> <mode>",
	Short: "Print the boot code for a device type and mode",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBench(func(b *bench.Bench) error {
			code, err := b.Repo.Lookup(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Println(code)
			return nil
		})
	},
}

func init() {
	bootcodesCmd.AddCommand(bootcodesListCmd, bootcodesLookupCmd)
	rootCmd.AddCommand(bootcodesCmd)
}

func runBootcodesList(cmd *cobra.Command, args []string) error {
	return withBench(func(b *bench.Bench) error {
		devices := b.Repo.Devices()
		if len(args) == 1 {
			devices = []string{args[0]}
		}
		for _, dev := range devices {
			modes, err := b.Repo.Modes(dev)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(modes))
			for m := range modes {
				names = append(names, m)
			}
			sort.Strings(names)

			fmt.Printf("%s:\n", dev)
			for _, m := range names {
				fmt.Printf("  %-12s %s\n", m, modes[m])
			}
		}
		return nil
	})
}
