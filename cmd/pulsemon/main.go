// Command pulsemon polls vendor service-health APIs per customer and mails
// periodic health reports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bissquit/pulsemon/internal/app"
	"github.com/bissquit/pulsemon/internal/config"
	"github.com/bissquit/pulsemon/internal/version"
)

var (
	configPath string
	mode       string
	customer   string
)

var rootCmd = &cobra.Command{
	Use:   "pulsemon",
	Short: "Vendor service-health monitor and report mailer",
	Long: `Pulsemon polls the vendor service-health API for each configured
customer and caches the observations in a local database (scan mode), or
renders the cached observations into a per-customer HTML report and sends it
by email (report mode).`,
	Version:      version.Version,
	RunE:         run,
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to the configuration file")
	rootCmd.Flags().StringVar(&mode, "mode", "", "task to perform: scan or report")
	rootCmd.Flags().StringVar(&customer, "customer", "all", "customer to report on, or all (report mode only)")
	_ = rootCmd.MarkFlagRequired("mode")
}

func run(cmd *cobra.Command, _ []string) error {
	if mode != "scan" && mode != "report" {
		return fmt.Errorf("unknown mode %q, expected scan or report", mode)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	switch mode {
	case "scan":
		return a.RunScan(cmd.Context())
	default:
		return a.RunReport(cmd.Context(), customer)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
