package server

import (
	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/model"
)

// ComputeRequest is the JSON body of the compute endpoint
type ComputeRequest struct {
	ID               string                `json:"id" binding:"required"`
	IssueDate        model.Date            `json:"issue_date"`
	TypeCode         string                `json:"type_code"`
	Currency         string                `json:"currency" binding:"required,len=3"`
	DueDate          model.Date            `json:"due_date"`
	References       model.References      `json:"references"`
	Note             string                `json:"note"`
	Seller           *model.Party          `json:"seller"`
	Buyer            *model.Party          `json:"buyer"`
	Payment          *model.Payment        `json:"payment"`
	PrepaidAmount    decimal.Decimal       `json:"prepaid_amount"`
	Lines            []LineRequest         `json:"lines" binding:"required,min=1,dive"`
	AllowanceCharges []AdjustmentRequest   `json:"allowance_charges" binding:"dive"`
	Imported         *model.ImportedTotals `json:"declared_totals"`
}

// LineRequest is one invoice line of a compute request
type LineRequest struct {
	ID                  string              `json:"id" binding:"required"`
	Name                string              `json:"name" binding:"required"`
	Description         string              `json:"description"`
	Quantity            decimal.Decimal     `json:"quantity"`
	UnitCode            string              `json:"unit_code" binding:"required"`
	UnitPrice           decimal.Decimal     `json:"unit_price"`
	TaxCategory         string              `json:"tax_category" binding:"required"`
	TaxRate             decimal.Decimal     `json:"tax_rate"`
	ExemptionReasonCode string              `json:"exemption_reason_code"`
	ExemptionReason     string              `json:"exemption_reason"`
	AllowanceCharges    []AdjustmentRequest `json:"allowance_charges" binding:"dive"`
}

// AdjustmentRequest is an allowance or charge of a compute request. Line
// level adjustments without a tax category take the one of their line.
type AdjustmentRequest struct {
	Charge      bool                `json:"charge"`
	Amount      decimal.NullDecimal `json:"amount"`
	BaseAmount  decimal.NullDecimal `json:"base_amount"`
	Percentage  decimal.NullDecimal `json:"percentage"`
	TaxCategory string              `json:"tax_category"`
	TaxRate     decimal.Decimal     `json:"tax_rate"`
	ReasonCode  string              `json:"reason_code"`
	Reason      string              `json:"reason"`
}

// InvoiceView renders an invoice through its accessors
type InvoiceView struct {
	ID             string                `json:"id"`
	IssueDate      model.Date            `json:"issue_date"`
	TypeCode       string                `json:"type_code"`
	Currency       string                `json:"currency"`
	DueDate        model.Date            `json:"due_date"`
	References     model.References      `json:"references"`
	Seller         *model.Party          `json:"seller,omitempty"`
	Buyer          *model.Party          `json:"buyer,omitempty"`
	Payment        *model.Payment        `json:"payment,omitempty"`
	Lines          []LineView            `json:"lines"`
	Totals         *model.Totals         `json:"totals,omitempty"`
	ImportedTotals *model.ImportedTotals `json:"declared_totals,omitempty"`
}

// LineView is one line of an InvoiceView
type LineView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCode    string          `json:"unit_code"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxCategory string          `json:"tax_category"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	NetAmount   decimal.Decimal `json:"net_amount"`
}

// Violation is a business rule violation in API form
type Violation struct {
	Field   string `json:"field,omitempty"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ImportResponse is the response for the import endpoint
type ImportResponse struct {
	CorrelationID string              `json:"correlation_id"`
	Mode          string              `json:"mode"`
	Clean         bool                `json:"clean"`
	Invoice       *InvoiceView        `json:"invoice"`
	Anomalies     []importer.Anomaly  `json:"anomalies,omitempty"`
	Discrepancies []model.Discrepancy `json:"discrepancies,omitempty"`
	Violations    []Violation         `json:"violations,omitempty"`
}

// ValidationResponse is the response for validate endpoint
type ValidationResponse struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// ComputeResponse is the response for the compute endpoint
type ComputeResponse struct {
	Invoice       *InvoiceView        `json:"invoice"`
	Violations    []Violation         `json:"violations,omitempty"`
	Discrepancies []model.Discrepancy `json:"discrepancies,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error         string              `json:"error"`
	Field         string              `json:"field,omitempty"`
	Discrepancies []model.Discrepancy `json:"discrepancies,omitempty"`
}

func newInvoiceView(inv *model.Invoice) *InvoiceView {
	v := &InvoiceView{
		ID:             inv.ID(),
		IssueDate:      inv.IssueDate(),
		TypeCode:       string(inv.TypeCode()),
		Currency:       string(inv.Currency()),
		DueDate:        inv.DueDate(),
		References:     inv.References(),
		Seller:         inv.Seller(),
		Buyer:          inv.Buyer(),
		Payment:        inv.Payment(),
		Totals:         inv.Totals(),
		ImportedTotals: inv.ImportedTotals(),
	}
	for _, l := range inv.Lines() {
		v.Lines = append(v.Lines, LineView{
			ID:          l.ID(),
			Name:        l.Name(),
			Quantity:    l.Quantity(),
			UnitCode:    string(l.Unit()),
			UnitPrice:   l.UnitPrice(),
			TaxCategory: string(l.TaxCategory()),
			TaxRate:     l.TaxRate(),
			NetAmount:   l.NetAmount(),
		})
	}
	return v
}

func newViolations(errs []*model.ValidationError) []Violation {
	if len(errs) == 0 {
		return nil
	}
	out := make([]Violation, len(errs))
	for i, e := range errs {
		out[i] = Violation{Field: e.Field, Rule: e.Rule, Message: e.Message}
	}
	return out
}
