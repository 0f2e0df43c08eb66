package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "muster",
	Short: "Muster - DD214 processing pipeline",
	Long: `Muster ingests DD214 separation documents, extracts their text and
structured fields, redacts personally identifiable information, and
generates career transition insights.

It runs as a single daemon: blob ingress, the processing pipeline,
the document API, and retention sweeping in one process.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Muster version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/muster/config.yaml", "path to the configuration file")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(processCmd)
}
