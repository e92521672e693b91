// Solixctl is a command line client for Anker Solix power systems.
//
// It talks to the vendor cloud for account, site and device state, and
// decodes or composes the binary hex messages the devices exchange
// over MQTT.
//
// Usage:
//
//	solixctl [command] [flags]
//
// See 'solixctl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/thomluther/anker-solix-api/internal/logging"
	"github.com/thomluther/anker-solix-api/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "solixctl",
	Short: "Anker Solix cloud and device message client",
	Long: `A command line client for Anker Solix power systems.

Polls account, site and device state from the vendor cloud, and
decodes or composes the binary hex messages the devices exchange
over MQTT.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel != "" {
			return logging.Initialize(logLevel)
		}
		return logging.InitializeFromEnv()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error); defaults to "+logging.LogLevelEnvVar)

	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("solixctl " + version.Full())
	},
}
