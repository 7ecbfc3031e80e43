package main

import (
	"os"

	"github.com/spf13/cobra"
)

// defaultConfigPath is used when neither --config nor NOTICE_CONFIG is set.
const defaultConfigPath = "configs/config.yaml"

// configPath is the daemon settings file, shared by every subcommand.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "noticed",
	Short: "MQTT notification client",
	Long: `noticed subscribes to a notification topic on an MQTT broker and shows
every message as a desktop notification.

Run "noticed serve" for the daemon with its HTTP API, or "noticed listen"
for a headless subscriber that prints messages to stdout.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", getConfigPath(), "Path to the daemon settings file (env NOTICE_CONFIG)")
}

// getConfigPath returns the configuration file path.
// Uses NOTICE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("NOTICE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
