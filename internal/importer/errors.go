package importer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rezonia/invoice-engine/internal/model"
)

// Anomaly is a field level inconsistency tolerated by a lenient import.
// Value is the raw text found in the source document.
type Anomaly struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (a Anomaly) String() string {
	if a.Value == "" {
		return fmt.Sprintf("%s: %s", a.Field, a.Message)
	}
	return fmt.Sprintf("%s: %s (value=%q)", a.Field, a.Message, a.Value)
}

// FieldError aborts an import on a field that could not be loaded
type FieldError struct {
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("import: field %s (value=%q): %s", e.Field, e.Value, describe(e.Err))
	}
	return fmt.Sprintf("import: field %s: %s", e.Field, describe(e.Err))
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// ReconciliationError is returned by a strict import whose declared totals
// drift from the recomputed ones beyond the tolerance
type ReconciliationError struct {
	InvoiceID     string
	Discrepancies []model.Discrepancy
}

func (e *ReconciliationError) Error() string {
	parts := make([]string, len(e.Discrepancies))
	for i, d := range e.Discrepancies {
		parts[i] = d.String()
	}
	return fmt.Sprintf("import: invoice %s declared totals do not reconcile: %s", e.InvoiceID, strings.Join(parts, "; "))
}

// ImportWarning signals a lenient import that completed with anomalies or
// discrepancies. Invoice is fully constructed and carries the recomputed
// totals; the snapshot of declared totals is on Invoice.ImportedTotals.
type ImportWarning struct {
	Invoice       *model.Invoice
	Anomalies     []Anomaly
	Discrepancies []model.Discrepancy
}

func (w *ImportWarning) Error() string {
	return fmt.Sprintf("import: invoice %s loaded with %d anomalies and %d total discrepancies",
		w.Invoice.ID(), len(w.Anomalies), len(w.Discrepancies))
}

// Messages lists anomalies and discrepancies as text
func (w *ImportWarning) Messages() []string {
	out := make([]string, 0, len(w.Anomalies)+len(w.Discrepancies))
	for _, a := range w.Anomalies {
		out = append(out, a.String())
	}
	for _, d := range w.Discrepancies {
		out = append(out, d.String())
	}
	return out
}

// Result is the outcome of an import that produced an invoice
type Result struct {
	Invoice       *model.Invoice      `json:"-"`
	CorrelationID string              `json:"correlation_id"`
	Mode          Mode                `json:"-"`
	Anomalies     []Anomaly           `json:"anomalies,omitempty"`
	Discrepancies []model.Discrepancy `json:"discrepancies,omitempty"`
}

// Clean reports an import without anomalies and discrepancies
func (r *Result) Clean() bool {
	return len(r.Anomalies) == 0 && len(r.Discrepancies) == 0
}

// Warning returns the *ImportWarning of an unclean result, nil otherwise
func (r *Result) Warning() error {
	if r.Clean() {
		return nil
	}
	return &ImportWarning{Invoice: r.Invoice, Anomalies: r.Anomalies, Discrepancies: r.Discrepancies}
}

// describe prefers the violation message over the full error text
func describe(err error) string {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if err == nil {
		return "invalid value"
	}
	return err.Error()
}
