package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTAI/internal/bench"
)

var runCmd = &cobra.Command{
	Use:   "run <step>...",
	Short: "Run several steps in one console session",
	Long: `Run a sequence of steps against one bench, stopping at the first failure.
Useful with the simulated console, whose state only lives for one command.

Steps:
  power:on  power:off  reset  por  por:hold  por:release
  dut:<name>  bootmode:<mode>  measure[:<samples>[:<delay-ms>]]

Example:
  tai run dut:am62xx-sk bootmode:mmc por:hold power:on por:release measure:5:5`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSteps,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

type step func(b *bench.Bench) error

func runSteps(cmd *cobra.Command, args []string) error {
	steps := make([]step, len(args))
	for i, arg := range args {
		s, err := parseStep(arg)
		if err != nil {
			return err
		}
		steps[i] = s
	}
	return withBench(func(b *bench.Bench) error {
		for i, s := range steps {
			if err := s(b); err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, args[i], err)
			}
			fmt.Printf("ok   %s\n", args[i])
		}
		return nil
	})
}

func parseStep(raw string) (step, error) {
	name, arg, hasArg := strings.Cut(raw, ":")
	switch name {
	case "power":
		switch arg {
		case "on":
			return func(b *bench.Bench) error { return b.TAI.PowerOn() }, nil
		case "off":
			return func(b *bench.Bench) error { return b.TAI.PowerOff() }, nil
		}
	case "reset":
		if !hasArg {
			return func(b *bench.Bench) error { return b.TAI.Reset() }, nil
		}
	case "por":
		switch {
		case !hasArg:
			return func(b *bench.Bench) error { return b.TAI.POR() }, nil
		case arg == "hold":
			return func(b *bench.Bench) error { return b.TAI.HoldPOR() }, nil
		case arg == "release":
			return func(b *bench.Bench) error { return b.TAI.ReleasePOR() }, nil
		}
	case "dut":
		if arg != "" {
			return func(b *bench.Bench) error { return b.TAI.SetDUT(arg) }, nil
		}
	case "bootmode":
		if arg != "" {
			return func(b *bench.Bench) error { return b.TAI.SetBootmode(arg) }, nil
		}
	case "measure":
		samples, delay, err := parseMeasureArgs(arg, hasArg)
		if err != nil {
			return nil, fmt.Errorf("step %q: %w", raw, err)
		}
		return func(b *bench.Bench) error {
			rows, err := b.TAI.MeasurePower(samples, delay)
			if err != nil {
				return err
			}
			printRails(rows)
			return nil
		}, nil
	}
	return nil, fmt.Errorf("invalid step %q", raw)
}

func parseMeasureArgs(arg string, hasArg bool) (samples, delay int, err error) {
	samples, delay = 5, 5
	if !hasArg {
		return samples, delay, nil
	}
	first, second, hasDelay := strings.Cut(arg, ":")
	if samples, err = strconv.Atoi(first); err != nil {
		return 0, 0, fmt.Errorf("samples: %w", err)
	}
	if hasDelay {
		if delay, err = strconv.Atoi(second); err != nil {
			return 0, 0, fmt.Errorf("delay: %w", err)
		}
	}
	return samples, delay, nil
}
