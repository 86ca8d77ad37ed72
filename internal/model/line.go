package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-engine/internal/decimal"
)

// LineSpec carries the construction input of an invoice line
type LineSpec struct {
	ID                  string
	Name                string
	Description         string
	Quantity            decimal.Decimal
	Unit                UnitCode
	UnitPrice           decimal.Decimal
	TaxCategory         TaxCategory
	TaxRate             decimal.Decimal
	ExemptionReasonCode ExemptionReasonCode
	ExemptionReason     string
}

// Line is one billable invoice line. Core fields are fixed at construction;
// line level adjustments may be appended and recompute the derived amounts.
type Line struct {
	id                  string
	name                string
	description         string
	quantity            decimal.Decimal
	unit                UnitCode
	unitUnchecked       bool
	unitPrice           decimal.Decimal
	taxCategory         TaxCategory
	taxRate             decimal.Decimal
	exemptionReasonCode ExemptionReasonCode
	exemptionReason     string
	adjustments         []*Adjustment

	// Calculated
	netAmount decimal.Decimal
	taxExact  decimal.Decimal
}

// NewLine validates its input and creates a line
func NewLine(spec LineSpec) (*Line, error) {
	if !spec.Unit.Valid() {
		return nil, NewValidationError("unit_code", string(spec.Unit), "code.unit", "unknown unit of measure code")
	}
	return newLine(spec, false)
}

// NewUncheckedLine creates a line whose unit code is stored verbatim without
// the vocabulary check. Lenient import uses it to keep the source value for
// audit; UnitUnchecked reports the bypass and the validator still flags it.
func NewUncheckedLine(spec LineSpec) (*Line, error) {
	return newLine(spec, !spec.Unit.Valid())
}

func newLine(spec LineSpec, unchecked bool) (*Line, error) {
	if strings.TrimSpace(spec.ID) == "" {
		return nil, NewValidationError("id", nil, "line.id.required", "line identifier is required")
	}
	if strings.TrimSpace(spec.Name) == "" {
		return nil, NewValidationError("name", nil, "line.name.required", "item name is required")
	}
	if !spec.Quantity.IsPositive() {
		return nil, NewValidationError("quantity", spec.Quantity.String(), "line.quantity.positive", "quantity must be greater than zero")
	}
	if spec.UnitPrice.IsNegative() {
		return nil, NewValidationError("unit_price", spec.UnitPrice.String(), "line.unit_price.non_negative", "unit price must not be negative")
	}
	if !spec.TaxCategory.Valid() {
		return nil, NewValidationError("tax_category", string(spec.TaxCategory), "code.tax_category", "unknown tax category")
	}
	if spec.TaxRate.IsNegative() {
		return nil, NewValidationError("tax_rate", spec.TaxRate.String(), "line.tax_rate.non_negative", "tax rate must not be negative")
	}

	l := &Line{
		id:                  spec.ID,
		name:                spec.Name,
		description:         spec.Description,
		quantity:            spec.Quantity,
		unit:                spec.Unit,
		unitUnchecked:       unchecked,
		unitPrice:           spec.UnitPrice,
		taxCategory:         spec.TaxCategory,
		taxRate:             spec.TaxRate,
		exemptionReasonCode: spec.ExemptionReasonCode,
		exemptionReason:     spec.ExemptionReason,
	}
	l.calculate()
	return l, nil
}

// AddAdjustment appends a line level allowance or charge
func (l *Line) AddAdjustment(a *Adjustment) {
	l.adjustments = append(l.adjustments, a)
	l.calculate()
}

// calculate derives net = round2(qty*price - allowances + charges) and the
// exact line tax. Rounding happens once, on the final net.
func (l *Line) calculate() {
	net := l.quantity.Mul(l.unitPrice)
	for _, a := range l.adjustments {
		net = net.Add(a.SignedAmount())
	}
	l.netAmount = money.Round2(net)
	l.taxExact = money.Percent(l.netAmount, l.taxRate)
}

func (l *Line) ID() string                               { return l.id }
func (l *Line) Name() string                             { return l.name }
func (l *Line) Description() string                      { return l.description }
func (l *Line) Quantity() decimal.Decimal                { return l.quantity }
func (l *Line) Unit() UnitCode                           { return l.unit }
func (l *Line) UnitUnchecked() bool                      { return l.unitUnchecked }
func (l *Line) UnitPrice() decimal.Decimal               { return l.unitPrice }
func (l *Line) TaxCategory() TaxCategory                 { return l.taxCategory }
func (l *Line) TaxRate() decimal.Decimal                 { return l.taxRate }
func (l *Line) ExemptionReasonCode() ExemptionReasonCode { return l.exemptionReasonCode }
func (l *Line) ExemptionReason() string                  { return l.exemptionReason }
func (l *Line) NetAmount() decimal.Decimal               { return l.netAmount }

// Adjustments returns a copy of the line level allowances and charges
func (l *Line) Adjustments() []*Adjustment {
	return append([]*Adjustment(nil), l.adjustments...)
}

// GrossAmount is quantity x unit price before adjustments, rounded
func (l *Line) GrossAmount() decimal.Decimal {
	return money.Round2(l.quantity.Mul(l.unitPrice))
}

// TaxAmount is the line tax rounded for display; totals use the exact value
func (l *Line) TaxAmount() decimal.Decimal {
	return money.Round2(l.taxExact)
}

// Validate checks the line and its adjustments
func (l *Line) Validate() []*ValidationError {
	var errs []*ValidationError

	if !l.unit.Valid() {
		errs = append(errs, NewValidationError("unit_code", string(l.unit), "code.unit", "unknown unit of measure code"))
	}
	errs = append(errs, validateCategoryRate("tax_rate", l.taxCategory, l.taxRate)...)
	if l.exemptionReasonCode != "" && !l.exemptionReasonCode.Valid() {
		errs = append(errs, NewValidationError("exemption_reason_code", string(l.exemptionReasonCode), "code.exemption_reason", "unknown tax exemption reason code"))
	}
	if l.netAmount.IsNegative() {
		errs = append(errs, NewValidationError("net_amount", l.netAmount.String(), "line.net_amount.non_negative", "line allowances exceed the line amount"))
	}
	for i, a := range l.adjustments {
		sub := a.Validate()
		// line level adjustments are taxed with the line
		if a.taxCategory != l.taxCategory || !a.taxRate.Equal(l.taxRate) {
			sub = append(sub, NewValidationError("tax_category", string(a.taxCategory), "line.adjustment.tax_mismatch",
				"line level allowance or charge must use the line tax category and rate"))
		}
		errs = append(errs, Namespace(fmt.Sprintf("allowance_charge[%d]", i), sub)...)
	}

	return errs
}
