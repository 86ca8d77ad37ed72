package cmd

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-engine/internal/config"
	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/logger"
	"github.com/rezonia/invoice-engine/internal/model"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	envFile      string
	logLevel     string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "invoice-engine",
	Short: "Compute, validate and reconcile UBL e-invoices",
	Long: `Invoice Engine computes invoice totals and VAT breakdowns, validates
invoices against the EN 16931 business rules and reconciles the totals
declared by imported UBL documents against its own computation.

Examples:
  # Import a UBL invoice and show the recomputed totals
  invoice-engine import invoice.xml -f table

  # Import a directory, tolerating field inconsistencies
  invoice-engine import invoices/ --mode lenient -o results.json

  # Validate with the Peppol rule set
  invoice-engine validate invoice.xml --peppol

  # Start the HTTP API
  invoice-engine serve --address :8080`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "json", "Output format (json, csv, table)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (env: LOG_LEVEL)")
}

func initConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(envFile)
	if err != nil {
		return err
	}

	lc := c.LoggerConfig()
	switch {
	case logLevel != "":
		lc.Level = logLevel
	case verbose:
		lc.Level = "debug"
	}
	if err := logger.Setup(lc); err != nil {
		return err
	}

	cfg = c
	log = logger.WithComponent("cli")
	return nil
}

// importOptions merges the configured import settings with the flag overrides
func importOptions(mode, tolerance string) ([]importer.Option, error) {
	if mode == "" {
		mode = cfg.ImportMode
	}
	m, err := importer.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	tol := cfg.ImportTolerance
	if tolerance != "" {
		if tol, err = decimal.NewFromString(tolerance); err != nil {
			return nil, err
		}
	}

	opts := []importer.Option{
		importer.WithMode(m),
		importer.WithTolerance(tol),
		importer.WithLogger(logger.WithComponent("importer")),
	}
	for cur, t := range cfg.CurrencyTolerances {
		opts = append(opts, importer.WithCurrencyTolerance(model.Currency(strings.ToUpper(cur)), t))
	}
	return opts, nil
}
