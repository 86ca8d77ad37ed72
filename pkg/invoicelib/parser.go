package invoicelib

import (
	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/parser/ubl"
	"github.com/rezonia/invoice-engine/internal/validation"
)

// Import types
type (
	Mode          = importer.Mode
	Anomaly       = importer.Anomaly
	ImportResult  = importer.Result
	FieldError    = importer.FieldError
	ImportWarning = importer.ImportWarning

	ReconciliationError = importer.ReconciliationError
)

// Import modes
const (
	ModeStrict  = importer.ModeStrict
	ModeLenient = importer.ModeLenient
)

// Rule inspects an invoice and reports its violations
type Rule = validation.Rule

// Validator validates constructed invoices
type Validator interface {
	// Validate returns every violation, empty when the invoice conforms
	Validate(inv *model.Invoice) []*model.ValidationError
}

// NewValidator creates a validator with the core rules plus extra
func NewValidator(extra ...Rule) Validator {
	return validation.New(extra...)
}

// Validate checks an invoice against the core rules
func Validate(inv *Invoice) []*ValidationError {
	return validation.Validate(inv)
}

// PeppolRules returns the Peppol BIS Billing 3.0 rule set
func PeppolRules() []Rule {
	return validation.PeppolRules()
}

// TotalsConsistency reports declared totals drifting beyond tolerance
var TotalsConsistency = validation.TotalsConsistency

// EncodeUBL renders a computed invoice as a UBL Invoice or CreditNote
func EncodeUBL(inv *Invoice) ([]byte, error) {
	return ubl.Encode(inv)
}
