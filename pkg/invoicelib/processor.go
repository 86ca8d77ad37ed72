package invoicelib

import (
	"context"
	"io"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/validation"
)

// ProcessOptions configures processor behavior
type ProcessOptions struct {
	Mode Mode

	// Tolerance overrides the default reconciliation tolerance when valid;
	// a valid zero means exact reconciliation
	Tolerance          decimal.NullDecimal
	CurrencyTolerances map[Currency]decimal.Decimal

	// Peppol adds the Peppol BIS rules to validation
	Peppol bool

	// Logger receives import diagnostics; the zero value discards them
	Logger *zerolog.Logger
}

// DefaultProcessOptions returns strict import with the default tolerance
func DefaultProcessOptions() ProcessOptions {
	return ProcessOptions{
		Mode:      ModeStrict,
		Tolerance: decimal.NewNullDecimal(model.DefaultTolerance),
	}
}

// ProcessResult is an imported invoice together with its findings
type ProcessResult struct {
	Invoice       *Invoice
	CorrelationID string
	Anomalies     []Anomaly
	Discrepancies []Discrepancy
	Violations    []*ValidationError
}

// Valid reports an invoice without violations, anomalies and discrepancies
func (r *ProcessResult) Valid() bool {
	return len(r.Violations) == 0 && len(r.Anomalies) == 0 && len(r.Discrepancies) == 0
}

// Processor imports UBL documents and validates the resulting invoices
type Processor struct {
	importer  *importer.Importer
	validator *validation.Validator
}

// NewProcessor creates a new invoice processor with the given options
func NewProcessor(opts ProcessOptions) *Processor {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	importOpts := []importer.Option{
		importer.WithMode(opts.Mode),
		importer.WithLogger(log),
	}
	if opts.Tolerance.Valid {
		importOpts = append(importOpts, importer.WithTolerance(opts.Tolerance.Decimal))
	}
	for cur, tol := range opts.CurrencyTolerances {
		importOpts = append(importOpts, importer.WithCurrencyTolerance(cur, tol))
	}

	var rules []validation.Rule
	if opts.Peppol {
		rules = validation.PeppolRules()
	}

	return &Processor{
		importer:  importer.New(importOpts...),
		validator: validation.New(rules...),
	}
}

// NewDefaultProcessor creates a processor with default options
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultProcessOptions())
}

// Process imports a UBL document and validates the invoice
func (p *Processor) Process(ctx context.Context, r io.Reader) (*ProcessResult, error) {
	res, err := p.importer.ImportXML(ctx, r)
	if err != nil {
		return nil, err
	}

	return &ProcessResult{
		Invoice:       res.Invoice,
		CorrelationID: res.CorrelationID,
		Anomalies:     res.Anomalies,
		Discrepancies: res.Discrepancies,
		Violations:    p.validator.Validate(res.Invoice),
	}, nil
}

// Validate runs the configured rules against a constructed invoice
func (p *Processor) Validate(inv *Invoice) []*ValidationError {
	return p.validator.Validate(inv)
}

// ProcessBatch processes multiple inputs concurrently. Results keep the
// input order; a failed input leaves a nil entry and the first error is
// returned.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []io.Reader) ([]*ProcessResult, error) {
	results := make([]*ProcessResult, len(inputs))
	errCh := make(chan error, len(inputs))

	for i, input := range inputs {
		go func(idx int, r io.Reader) {
			result, err := p.Process(ctx, r)
			if err != nil {
				errCh <- err
				return
			}
			results[idx] = result
			errCh <- nil
		}(i, input)
	}

	// Wait for all goroutines
	var firstErr error
	for range inputs {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return results, firstErr
}
