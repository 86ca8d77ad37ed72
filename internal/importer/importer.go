// Package importer loads decoded UBL documents into invoices and reconciles
// the totals they declare against the engine's own computation.
//
// In strict mode the first field that cannot be loaded aborts the import and
// declared totals must reconcile. In lenient mode field inconsistencies are
// collected as anomalies, raw values are kept where the model has a place for
// them, and the invoice is returned together with everything that did not
// line up.
package importer

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-engine/internal/decimal"
	"github.com/rezonia/invoice-engine/internal/logger"
	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/parser/ubl"
)

// Mode selects how field level inconsistencies are handled
type Mode string

const (
	ModeStrict  Mode = "strict"
	ModeLenient Mode = "lenient"
)

// ParseMode parses "strict" or "lenient"; empty means strict
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeStrict:
		return ModeStrict, nil
	case ModeLenient:
		return ModeLenient, nil
	}
	return "", fmt.Errorf("unknown import mode %q", s)
}

// Importer loads documents into invoices
type Importer struct {
	mode              Mode
	tolerance         decimal.Decimal
	currencyTolerance map[model.Currency]decimal.Decimal
	log               zerolog.Logger
}

// Option configures the importer
type Option func(*Importer)

// WithMode sets strict or lenient handling
func WithMode(m Mode) Option {
	return func(i *Importer) {
		i.mode = m
	}
}

// WithTolerance sets the accepted drift between declared and computed totals
func WithTolerance(tol decimal.Decimal) Option {
	return func(i *Importer) {
		i.tolerance = tol
	}
}

// WithCurrencyTolerance overrides the tolerance for one currency
func WithCurrencyTolerance(cur model.Currency, tol decimal.Decimal) Option {
	return func(i *Importer) {
		i.currencyTolerance[cur] = tol
	}
}

// WithLogger sets the logger
func WithLogger(l zerolog.Logger) Option {
	return func(i *Importer) {
		i.log = l
	}
}

// New creates an importer, strict with a 0.02 tolerance unless configured
func New(opts ...Option) *Importer {
	i := &Importer{
		mode:              ModeStrict,
		tolerance:         model.DefaultTolerance,
		currencyTolerance: make(map[model.Currency]decimal.Decimal),
		log:               logger.WithComponent("importer"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Mode returns the configured mode
func (i *Importer) Mode() Mode {
	return i.mode
}

// Tolerance returns the reconciliation tolerance for a currency
func (i *Importer) Tolerance(cur model.Currency) decimal.Decimal {
	if tol, ok := i.currencyTolerance[cur]; ok {
		return tol
	}
	return i.tolerance
}

// Import loads doc field by field, snapshots its declared totals, recomputes
// the totals and compares the two.
//
// Strict mode returns *FieldError for the first inconsistent field and
// *ReconciliationError when the totals drift. Lenient mode returns a Result
// whose Warning reports anything that did not line up. Construction errors of
// the mandatory header fields and unparseable amounts are fatal in both modes.
func (i *Importer) Import(ctx context.Context, doc *ubl.Document) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, model.NewParseError("UBL", "document", "document is required", nil)
	}

	res := &Result{CorrelationID: uuid.NewString(), Mode: i.mode}
	log := i.log.With().
		Str("correlation_id", res.CorrelationID).
		Str("invoice", doc.ID).
		Str("mode", string(i.mode)).
		Logger()

	l := &loader{mode: i.mode}
	inv, err := l.load(doc)
	if err != nil {
		log.Debug().Err(err).Msg("import aborted")
		return nil, err
	}

	declared, err := l.declaredTotals(doc)
	if err != nil {
		return nil, err
	}
	if err := inv.SetImportedTotals(declared); err != nil {
		return nil, err
	}
	if err := inv.CalculateTotals(); err != nil {
		return nil, err
	}

	tol := i.Tolerance(inv.Currency())
	res.Invoice = inv
	res.Anomalies = l.anomalies
	res.Discrepancies = append(lineDiscrepancies(doc, inv, tol), model.CompareTotals(inv.ImportedTotals(), inv.Totals(), tol)...)

	for _, a := range res.Anomalies {
		log.Debug().Str("field", a.Field).Str("value", a.Value).Msg(a.Message)
	}
	for _, d := range res.Discrepancies {
		log.Warn().
			Str("field", d.Field).
			Str("declared", d.Declared.String()).
			Str("computed", d.Computed.String()).
			Msg("declared total does not reconcile")
	}

	if i.mode == ModeStrict && len(res.Discrepancies) > 0 {
		return nil, &ReconciliationError{InvoiceID: inv.ID(), Discrepancies: res.Discrepancies}
	}

	log.Info().
		Int("lines", len(inv.Lines())).
		Int("anomalies", len(res.Anomalies)).
		Int("discrepancies", len(res.Discrepancies)).
		Msg("invoice imported")
	return res, nil
}

// ImportInvoice imports doc and returns the invoice. An unclean lenient
// import returns the invoice together with an *ImportWarning.
func (i *Importer) ImportInvoice(ctx context.Context, doc *ubl.Document) (*model.Invoice, error) {
	res, err := i.Import(ctx, doc)
	if err != nil {
		return nil, err
	}
	if w := res.Warning(); w != nil {
		return res.Invoice, w
	}
	return res.Invoice, nil
}

// ImportXML decodes a UBL document from r and imports it
func (i *Importer) ImportXML(ctx context.Context, r io.Reader) (*Result, error) {
	doc, err := ubl.Decode(ctx, r)
	if err != nil {
		return nil, err
	}
	return i.Import(ctx, doc)
}

// lineDiscrepancies compares each declared line extension amount against
// the line net recomputed from quantity, price and line adjustments
func lineDiscrepancies(doc *ubl.Document, inv *model.Invoice, tol decimal.Decimal) []model.Discrepancy {
	var out []model.Discrepancy
	lines := inv.Lines()
	for idx, src := range doc.Lines() {
		if idx >= len(lines) {
			break
		}
		declared, err := decimal.NewFromString(strings.TrimSpace(src.LineExtensionAmount.Value))
		if err != nil {
			continue
		}
		computed := lines[idx].NetAmount()
		if !money.WithinTolerance(declared, computed, tol) {
			out = append(out, model.Discrepancy{
				Field:    fmt.Sprintf("line[%d].line_extension_amount", idx),
				Declared: declared,
				Computed: computed,
			})
		}
	}
	return out
}
