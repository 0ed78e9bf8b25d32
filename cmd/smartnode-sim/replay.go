package main

import (
	"github.com/spf13/cobra"

	"smartnode-sim/internal/device"
)

var (
	replayInput     string
	replaySpeed     float64
	replayPrintOnly bool
	replayDevice    string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded telemetry log file",
	Long:  "replay feeds readings from a log file back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		writer, err := baseWriter(replayDevice, replayPrintOnly, false)
		if err != nil {
			return err
		}
		if c, ok := writer.(interface{ Close() error }); ok {
			defer c.Close()
		}
		return device.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to telemetry log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print readings to STDOUT instead of writing to DB")
	replayCmd.Flags().StringVar(&replayDevice, "device", "SmartNode", "Device name tagged on replayed readings")
	replayCmd.MarkFlagRequired("input")
}
