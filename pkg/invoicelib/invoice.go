// Package invoicelib provides a public API for computing, validating and
// reconciling EN 16931 e-invoices.
//
// This package exposes the core types and constructors of the engine along
// with a Processor that imports UBL documents and validates them in one step.
//
// Example usage:
//
//	inv, err := invoicelib.NewInvoice("INV-1", invoicelib.NewDate(2026, time.May, 4),
//	    invoicelib.InvoiceTypeCommercial, "EUR")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	line, _ := invoicelib.NewLine(invoicelib.LineSpec{...})
//	inv.AddLine(line)
//	if err := inv.CalculateTotals(); err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(inv.Totals().Payable)
package invoicelib

import "github.com/rezonia/invoice-engine/internal/model"

// Re-export core types for public API
type (
	Invoice           = model.Invoice
	Line              = model.Line
	LineSpec          = model.LineSpec
	Adjustment        = model.Adjustment
	AdjustmentSpec    = model.AdjustmentSpec
	Party             = model.Party
	Address           = model.Address
	Contact           = model.Contact
	Payment           = model.Payment
	Attachment        = model.Attachment
	References        = model.References
	DocumentReference = model.DocumentReference
	Period            = model.Period
	Totals            = model.Totals
	TaxBreakdownEntry = model.TaxBreakdownEntry
	ImportedTotals    = model.ImportedTotals
	Discrepancy       = model.Discrepancy
)

// Re-export value types and code lists
type (
	Date                = model.Date
	CountryCode         = model.CountryCode
	VATID               = model.VATID
	IBAN                = model.IBAN
	BIC                 = model.BIC
	StructuredReference = model.StructuredReference
	TaxCategory         = model.TaxCategory
	Currency            = model.Currency
	UnitCode            = model.UnitCode
	InvoiceTypeCode     = model.InvoiceTypeCode
	PaymentMeansCode    = model.PaymentMeansCode
	ExemptionReasonCode = model.ExemptionReasonCode
)

// Re-export tax categories
const (
	TaxCategoryStandard       = model.TaxCategoryStandard
	TaxCategoryZeroRated      = model.TaxCategoryZeroRated
	TaxCategoryExempt         = model.TaxCategoryExempt
	TaxCategoryReverseCharge  = model.TaxCategoryReverseCharge
	TaxCategoryIntraCommunity = model.TaxCategoryIntraCommunity
	TaxCategoryExport         = model.TaxCategoryExport
	TaxCategoryNotSubject     = model.TaxCategoryNotSubject
)

// Re-export invoice types
const (
	InvoiceTypeCommercial = model.InvoiceTypeCommercial
	InvoiceTypeCreditNote = model.InvoiceTypeCreditNote
	InvoiceTypeCorrected  = model.InvoiceTypeCorrected
)

// Re-export common units and payment means
const (
	UnitPiece = model.UnitPiece
	UnitHour  = model.UnitHour
	UnitDay   = model.UnitDay

	PaymentMeansCreditTransfer = model.PaymentMeansCreditTransfer
	PaymentMeansSEPATransfer   = model.PaymentMeansSEPATransfer
)

// Re-export error types
type (
	ParseError      = model.ParseError
	ValidationError = model.ValidationError
	NoLinesError    = model.NoLinesError
)

// Constructors
var (
	NewInvoice    = model.NewInvoice
	NewLine       = model.NewLine
	NewAdjustment = model.NewAdjustment
	NewAllowance  = model.NewAllowance
	NewCharge     = model.NewCharge
	NewDate       = model.NewDate
	ParseDate     = model.ParseDate
	ComputeTotals = model.ComputeTotals
	CompareTotals = model.CompareTotals
)

// DefaultTolerance is the accepted drift between declared and computed totals
var DefaultTolerance = model.DefaultTolerance
