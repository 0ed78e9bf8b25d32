package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "smartnode-sim",
	Short: "Smart node firmware simulator",
	Long:  "smartnode-sim runs a simulated IoT sensor node: WiFi provisioning with a captive setup portal, synthetic telemetry, and a device admin API.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
}
