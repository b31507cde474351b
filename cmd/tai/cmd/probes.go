package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAI/pkg/console"
)

var probesCmd = &cobra.Command{
	Use:   "probes",
	Short: "List attached board controllers and debug probes",
	Long: `Scan the USB bus for Tiva ICDI controllers, XDS110 probes and the usual
USB-serial bridges, and print what was found. Use this to locate the console
before passing --port.`,
	Args: cobra.NoArgs,
	RunE: runProbes,
}

func init() {
	rootCmd.AddCommand(probesCmd)
}

func runProbes(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := console.DiscoverProbes(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("usb scan failed, listing the simulator only")
	}

	if len(infos) == 0 {
		fmt.Println("No probes found.")
		return nil
	}

	fmt.Println("Detected probes:")
	for _, p := range infos {
		fmt.Printf("  - %s [%s] (VID:PID %04X:%04X)\n", p.Label(), p.Kind, p.VendorID, p.ProductID)
	}
	return nil
}
