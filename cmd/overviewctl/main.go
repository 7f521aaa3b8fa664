package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "overviewctl",
	Short: "Site overview command line client",
	Long:  `Build the site/host overview from the configured sites without running the API server`,
	// Ошибки печатает cobra, usage только при ошибке аргументов
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "error", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(overviewCmd, sitesCmd, tooltipCmd)
	sitesCmd.AddCommand(sitesEnableCmd, sitesDisableCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
