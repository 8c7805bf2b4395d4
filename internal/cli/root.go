// Package cli wires internal/config, internal/di, internal/replay and
// internal/rpcapi into the xlnd binary's subcommands. Grounded on
// LeJamon-goXRPLd's internal/cli package: same cobra rootCmd with a
// persistent --conf flag and a "server" subcommand set as the default
// action (cobra.OnInitialize left unused here — config loading happens
// inside runServer via internal/config.LoadConfig, not a package-level
// init hook).
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

// rootCmd is the base command when xlnd is called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "xlnd",
	Short: "xln - bilateral payment-channel network daemon",
	Long: `xlnd runs the tick-loop server, consensus engine, and egress
surfaces (gRPC + WebSocket observer feed) of a bilateral payment-channel
network node.`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to rootCmd and runs it. Called once
// by cmd/xlnd/main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "", "configuration file path (toml)")
}
