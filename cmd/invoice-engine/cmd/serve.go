package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	serverPeppol bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for importing, validating and computing invoices.

The API provides endpoints for:
  - POST /api/v1/import     - Import a UBL document (?mode=strict|lenient)
  - POST /api/v1/validate   - Validate a UBL document (?rules=peppol)
  - POST /api/v1/compute    - Compute totals for a JSON invoice (?format=ubl)
  - GET  /health            - Health check

Flags override the SERVER_* and IMPORT_* environment variables.

Examples:
  # Start server on default port
  invoice-engine serve

  # Start on custom port with the Peppol rules
  invoice-engine serve --address :9090 --peppol

  # Start in debug mode
  invoice-engine serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address (env: SERVER_ADDRESS)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode (env: SERVER_DEBUG)")
	serveCmd.Flags().BoolVar(&serverPeppol, "peppol", false, "Apply the Peppol BIS Billing rules (env: VALIDATION_PEPPOL)")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout (env: SERVER_READ_TIMEOUT)")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 60*time.Second, "HTTP write timeout (env: SERVER_WRITE_TIMEOUT)")
}

func runServe(cmd *cobra.Command, args []string) error {
	mode, err := importer.ParseMode(cfg.ImportMode)
	if err != nil {
		return err
	}

	config := &server.Config{
		Address:            cfg.ServerAddress,
		ReadTimeout:        cfg.ReadTimeout,
		WriteTimeout:       cfg.WriteTimeout,
		Debug:              cfg.Debug,
		ImportMode:         mode,
		Tolerance:          decimal.NewNullDecimal(cfg.ImportTolerance),
		CurrencyTolerances: make(map[model.Currency]decimal.Decimal, len(cfg.CurrencyTolerances)),
		Peppol:             cfg.Peppol,
	}
	for cur, tol := range cfg.CurrencyTolerances {
		config.CurrencyTolerances[model.Currency(strings.ToUpper(cur))] = tol
	}

	flags := cmd.Flags()
	if flags.Changed("address") {
		config.Address = serverAddr
	}
	if flags.Changed("debug") {
		config.Debug = serverDebug
	}
	if flags.Changed("peppol") {
		config.Peppol = serverPeppol
	}
	if flags.Changed("read-timeout") {
		config.ReadTimeout = readTimeout
	}
	if flags.Changed("write-timeout") {
		config.WriteTimeout = writeTimeout
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("address", config.Address).
		Str("mode", string(config.ImportMode)).
		Bool("peppol", config.Peppol).
		Msg("starting server")

	return server.NewServer(config).Run(ctx)
}
