package model

import (
	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-engine/internal/decimal"
)

var hundredPercent = decimal.NewFromInt(100)

// AdjustmentSpec carries the construction input of an allowance or charge
type AdjustmentSpec struct {
	Charge      bool
	Amount      decimal.NullDecimal
	BaseAmount  decimal.NullDecimal
	Percentage  decimal.NullDecimal
	TaxCategory TaxCategory
	TaxRate     decimal.Decimal
	ReasonCode  string
	Reason      string
}

// Adjustment is a document or line level allowance (discount) or charge
// (surcharge). The direction is carried by the charge indicator, the amount
// is never negative.
type Adjustment struct {
	charge      bool
	amount      decimal.Decimal
	baseAmount  decimal.NullDecimal
	percentage  decimal.NullDecimal
	taxCategory TaxCategory
	taxRate     decimal.Decimal
	reasonCode  string
	reason      string
}

// NewAdjustment validates its input and creates an adjustment.
// An absent amount is derived from base and percentage; a present one is
// kept as given and cross-checked by Validate.
func NewAdjustment(spec AdjustmentSpec) (*Adjustment, error) {
	if spec.Amount.Valid {
		a := spec.Amount.Decimal
		if a.IsNegative() {
			return nil, NewValidationError("amount", a.String(), "adjustment.amount.non_negative", "amount must not be negative")
		}
		if !isMonetary(a) {
			return nil, NewValidationError("amount", a.String(), "adjustment.amount.precision", "amount must not have more than 2 decimals")
		}
	}
	if spec.BaseAmount.Valid {
		b := spec.BaseAmount.Decimal
		if b.IsNegative() {
			return nil, NewValidationError("base_amount", b.String(), "adjustment.base.non_negative", "base amount must not be negative")
		}
		if !isMonetary(b) {
			return nil, NewValidationError("base_amount", b.String(), "adjustment.base.precision", "base amount must not have more than 2 decimals")
		}
	}
	if spec.Percentage.Valid {
		p := spec.Percentage.Decimal
		if p.IsNegative() || p.GreaterThan(hundredPercent) {
			return nil, NewValidationError("percentage", p.String(), "adjustment.percentage.range", "percentage must be between 0 and 100")
		}
	}
	if !spec.TaxCategory.Valid() {
		return nil, NewValidationError("tax_category", string(spec.TaxCategory), "code.tax_category", "unknown tax category")
	}
	if spec.TaxRate.IsNegative() {
		return nil, NewValidationError("tax_rate", spec.TaxRate.String(), "adjustment.tax_rate.non_negative", "tax rate must not be negative")
	}

	var amount decimal.Decimal
	switch {
	case spec.Amount.Valid:
		amount = spec.Amount.Decimal
	case spec.BaseAmount.Valid && spec.Percentage.Valid:
		amount = money.PercentRounded(spec.BaseAmount.Decimal, spec.Percentage.Decimal)
	default:
		return nil, NewValidationError("amount", nil, "adjustment.amount.required", "amount is required unless base amount and percentage are given")
	}

	return &Adjustment{
		charge:      spec.Charge,
		amount:      amount,
		baseAmount:  spec.BaseAmount,
		percentage:  spec.Percentage,
		taxCategory: spec.TaxCategory,
		taxRate:     spec.TaxRate,
		reasonCode:  spec.ReasonCode,
		reason:      spec.Reason,
	}, nil
}

// NewAllowance creates a fixed amount allowance
func NewAllowance(amount decimal.Decimal, category TaxCategory, rate decimal.Decimal, reason string) (*Adjustment, error) {
	return NewAdjustment(AdjustmentSpec{Amount: decimal.NewNullDecimal(amount), TaxCategory: category, TaxRate: rate, Reason: reason})
}

// NewCharge creates a fixed amount charge
func NewCharge(amount decimal.Decimal, category TaxCategory, rate decimal.Decimal, reason string) (*Adjustment, error) {
	return NewAdjustment(AdjustmentSpec{Charge: true, Amount: decimal.NewNullDecimal(amount), TaxCategory: category, TaxRate: rate, Reason: reason})
}

func (a *Adjustment) IsCharge() bool                  { return a.charge }
func (a *Adjustment) Amount() decimal.Decimal         { return a.amount }
func (a *Adjustment) BaseAmount() decimal.NullDecimal { return a.baseAmount }
func (a *Adjustment) Percentage() decimal.NullDecimal { return a.percentage }
func (a *Adjustment) TaxCategory() TaxCategory        { return a.taxCategory }
func (a *Adjustment) TaxRate() decimal.Decimal        { return a.taxRate }
func (a *Adjustment) ReasonCode() string              { return a.reasonCode }
func (a *Adjustment) Reason() string                  { return a.reason }

// SignedAmount is the contribution to a base: negative for allowances
func (a *Adjustment) SignedAmount() decimal.Decimal {
	if a.charge {
		return a.amount
	}
	return a.amount.Neg()
}

// TaxAmount is the exact (unrounded) signed tax contribution
func (a *Adjustment) TaxAmount() decimal.Decimal {
	return money.Percent(a.SignedAmount(), a.taxRate)
}

// Validate checks the rules that construction leaves to the validator
func (a *Adjustment) Validate() []*ValidationError {
	var errs []*ValidationError

	if a.baseAmount.Valid && a.percentage.Valid {
		expected := money.Percent(a.baseAmount.Decimal, a.percentage.Decimal)
		if !money.WithinTolerance(a.amount, expected, money.Cent) {
			errs = append(errs, NewValidationError("amount", a.amount.String(), "adjustment.amount.percentage_mismatch",
				"amount must equal base amount x percentage / 100 ("+money.Format(expected)+")"))
		}
	}
	if a.percentage.Valid && !a.baseAmount.Valid {
		errs = append(errs, NewValidationError("base_amount", nil, "adjustment.base.required", "base amount is required when a percentage is given"))
	}
	if a.reason == "" && a.reasonCode == "" {
		errs = append(errs, NewValidationError("reason", nil, "adjustment.reason.required", "reason or reason code is required"))
	}
	errs = append(errs, validateCategoryRate("tax_rate", a.taxCategory, a.taxRate)...)

	return errs
}

// validateCategoryRate checks the joint constraint of category and rate
func validateCategoryRate(field string, category TaxCategory, rate decimal.Decimal) []*ValidationError {
	switch {
	case !category.Valid():
		return []*ValidationError{NewValidationError("tax_category", string(category), "code.tax_category", "unknown tax category")}
	case category == TaxCategoryStandard && !rate.IsPositive():
		return []*ValidationError{NewValidationError(field, rate.String(), "tax_rate.standard_positive", "standard rated category requires a rate greater than zero")}
	case category.RequiresZeroRate() && !rate.IsZero():
		return []*ValidationError{NewValidationError(field, rate.String(), "tax_rate.zero_required", "category "+string(category)+" requires a zero rate")}
	}
	return nil
}

// isMonetary reports a value representable with 2 decimals
func isMonetary(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
