package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAI/internal/bench"
	"github.com/OpenTraceLab/OpenTraceTAI/pkg/telemetry"
)

var (
	measureSamples int
	measureDelay   int
	measureJSON    bool
)

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Read the board's power rails",
	Long: `Ask the board controller to sample every INA rail and print the parsed
readings followed by the total and average power.

Examples:
  tai measure                          # 5 samples, 5 ms apart
  tai measure --samples 20 --delay 10
  tai measure --json`,
	Args: cobra.NoArgs,
	RunE: runMeasure,
}

func init() {
	measureCmd.Flags().IntVarP(&measureSamples, "samples", "n", 5, "samples per rail")
	measureCmd.Flags().IntVarP(&measureDelay, "delay", "d", 5, "delay between samples in ms")
	measureCmd.Flags().BoolVar(&measureJSON, "json", false, "print rows as JSON")

	rootCmd.AddCommand(measureCmd)
}

type measureReport struct {
	Rails   []telemetry.RailData `json:"rails"`
	TotalMW float64              `json:"total_mw"`
	AvgMW   float64              `json:"average_mw"`
}

func runMeasure(cmd *cobra.Command, args []string) error {
	return withBench(func(b *bench.Bench) error {
		rows, err := b.TAI.MeasurePower(measureSamples, measureDelay)
		if err != nil {
			return err
		}
		if measureJSON {
			avg, _ := telemetry.AveragePower(rows)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(measureReport{Rails: rows, TotalMW: telemetry.TotalPower(rows), AvgMW: avg})
		}
		printRails(rows)
		return nil
	})
}

func printRails(rows []telemetry.RailData) {
	if len(rows) == 0 {
		fmt.Println("No rail readings.")
		return
	}
	fmt.Printf("%-5s %-24s %14s %12s %12s %12s\n", "Index", "Rail", "Shunt(uV)", "Rail(V)", "Current(mA)", "Power(mW)")
	for _, r := range rows {
		fmt.Printf("%-5d %-24s %14.2f %12.6f %12.2f %12.2f\n", r.Index, r.RailName, r.ShuntVoltage, r.RailVoltage, r.Current, r.Power)
	}
	avg, _ := telemetry.AveragePower(rows)
	fmt.Printf("\nTotal power:   %.2f mW\n", telemetry.TotalPower(rows))
	fmt.Printf("Average power: %.2f mW over %d rail(s)\n", avg, len(rows))
}
