package model

import (
	"sort"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-engine/internal/decimal"
)

// TaxBreakdownEntry aggregates the taxable base and tax of one (category, rate) pair
type TaxBreakdownEntry struct {
	Category            TaxCategory         `json:"category"`
	Rate                decimal.Decimal     `json:"rate"`
	TaxableAmount       decimal.Decimal     `json:"taxable_amount"`
	TaxAmount           decimal.Decimal     `json:"tax_amount"`
	ExemptionReasonCode ExemptionReasonCode `json:"exemption_reason_code,omitempty"`
	ExemptionReason     string              `json:"exemption_reason,omitempty"`
}

// Key renders the (category, rate) pair, e.g. "S/21"
func (e *TaxBreakdownEntry) Key() string {
	return string(e.Category) + "/" + e.Rate.String()
}

// Validate checks the entry independently of the invoice
func (e *TaxBreakdownEntry) Validate() []*ValidationError {
	errs := validateCategoryRate("rate", e.Category, e.Rate)

	if e.Category.RequiresExemptionReason() && e.ExemptionReasonCode == "" && e.ExemptionReason == "" {
		msg := "category " + string(e.Category) + " requires a tax exemption reason"
		if hint := DefaultExemptionReason(e.Category); hint != "" {
			msg += " (e.g. " + string(hint) + ")"
		}
		errs = append(errs, NewValidationError("exemption_reason", nil, "breakdown.exemption_reason.required", msg))
	}
	if (e.Category == TaxCategoryStandard || e.Category == TaxCategoryZeroRated) && (e.ExemptionReasonCode != "" || e.ExemptionReason != "") {
		errs = append(errs, NewValidationError("exemption_reason", e.ExemptionReason, "breakdown.exemption_reason.forbidden",
			"category "+string(e.Category)+" must not carry a tax exemption reason"))
	}
	if e.ExemptionReasonCode != "" && !e.ExemptionReasonCode.Valid() {
		errs = append(errs, NewValidationError("exemption_reason_code", string(e.ExemptionReasonCode), "code.exemption_reason", "unknown tax exemption reason code"))
	}
	expected := money.PercentRounded(e.TaxableAmount, e.Rate)
	if !e.TaxAmount.Equal(expected) {
		errs = append(errs, NewValidationError("tax_amount", e.TaxAmount.String(), "breakdown.tax_amount.mismatch",
			"tax amount must equal taxable amount x rate ("+money.Format(expected)+")"))
	}

	return errs
}

// Totals is the document level monetary summation. It is a fresh value on
// every aggregation run and never read back as input.
type Totals struct {
	LineExtension  decimal.Decimal     `json:"line_extension_amount"`
	AllowanceTotal decimal.Decimal     `json:"allowance_total_amount"`
	ChargeTotal    decimal.Decimal     `json:"charge_total_amount"`
	TaxExclusive   decimal.Decimal     `json:"tax_exclusive_amount"`
	TaxTotal       decimal.Decimal     `json:"tax_amount"`
	TaxInclusive   decimal.Decimal     `json:"tax_inclusive_amount"`
	Prepaid        decimal.Decimal     `json:"prepaid_amount"`
	Payable        decimal.Decimal     `json:"payable_amount"`
	Breakdown      []TaxBreakdownEntry `json:"tax_breakdown"`
}

// Entry returns the breakdown entry for a (category, rate) pair
func (t *Totals) Entry(category TaxCategory, rate decimal.Decimal) (TaxBreakdownEntry, bool) {
	for _, e := range t.Breakdown {
		if e.Category == category && e.Rate.Equal(rate) {
			return e, true
		}
	}
	return TaxBreakdownEntry{}, false
}

type taxKey struct {
	category TaxCategory
	rate     string
}

type taxAccumulator struct {
	category   TaxCategory
	rate       decimal.Decimal
	base       decimal.Decimal
	tax        decimal.Decimal
	reasonCode ExemptionReasonCode
	reason     string
}

// ComputeTotals aggregates lines and document level adjustments into a new
// Totals value. Every sum is rounded to 2 places once, after all of its
// contributions are folded in.
func ComputeTotals(lines []*Line, adjustments []*Adjustment, prepaid decimal.Decimal) (*Totals, error) {
	if len(lines) == 0 {
		return nil, &NoLinesError{}
	}

	acc := make(map[taxKey]*taxAccumulator)
	fold := func(category TaxCategory, rate, base, tax decimal.Decimal) *taxAccumulator {
		key := taxKey{category: category, rate: rate.String()}
		a, ok := acc[key]
		if !ok {
			a = &taxAccumulator{category: category, rate: rate}
			acc[key] = a
		}
		a.base = a.base.Add(base)
		a.tax = a.tax.Add(tax)
		return a
	}

	lineSum := decimal.Zero
	for _, l := range lines {
		lineSum = lineSum.Add(l.netAmount)
		a := fold(l.taxCategory, l.taxRate, l.netAmount, l.taxExact)
		if a.reasonCode == "" && a.reason == "" {
			a.reasonCode = l.exemptionReasonCode
			a.reason = l.exemptionReason
		}
	}

	allowances, charges := decimal.Zero, decimal.Zero
	for _, adj := range adjustments {
		if adj.charge {
			charges = charges.Add(adj.amount)
		} else {
			allowances = allowances.Add(adj.amount)
		}
		fold(adj.taxCategory, adj.taxRate, adj.SignedAmount(), adj.TaxAmount())
	}

	t := &Totals{
		LineExtension:  money.Round2(lineSum),
		AllowanceTotal: money.Round2(allowances),
		ChargeTotal:    money.Round2(charges),
		Prepaid:        money.Round2(prepaid),
		Breakdown:      make([]TaxBreakdownEntry, 0, len(acc)),
	}
	t.TaxExclusive = t.LineExtension.Sub(t.AllowanceTotal).Add(t.ChargeTotal)

	for _, a := range acc {
		entry := TaxBreakdownEntry{
			Category:            a.category,
			Rate:                a.rate,
			TaxableAmount:       money.Round2(a.base),
			TaxAmount:           money.Round2(a.tax),
			ExemptionReasonCode: a.reasonCode,
			ExemptionReason:     a.reason,
		}
		t.Breakdown = append(t.Breakdown, entry)
	}
	sortBreakdown(t.Breakdown)

	t.TaxTotal = decimal.Zero
	for _, e := range t.Breakdown {
		t.TaxTotal = t.TaxTotal.Add(e.TaxAmount)
	}
	t.TaxInclusive = t.TaxExclusive.Add(t.TaxTotal)
	t.Payable = t.TaxInclusive.Sub(t.Prepaid)

	return t, nil
}

var categoryOrder = map[TaxCategory]int{
	TaxCategoryStandard: 0, TaxCategoryZeroRated: 1, TaxCategoryExempt: 2,
	TaxCategoryReverseCharge: 3, TaxCategoryIntraCommunity: 4, TaxCategoryExport: 5,
	TaxCategoryNotSubject: 6, TaxCategoryCanaryIslands: 7, TaxCategoryCeutaMelilla: 8,
}

// sortBreakdown orders by category, then by descending rate, so the result
// does not depend on map iteration or input order
func sortBreakdown(entries []TaxBreakdownEntry) {
	sort.Slice(entries, func(i, j int) bool {
		ci, cj := categoryOrder[entries[i].Category], categoryOrder[entries[j].Category]
		if ci != cj {
			return ci < cj
		}
		return entries[i].Rate.GreaterThan(entries[j].Rate)
	})
}

// ImportedTotals is the write-once snapshot of totals declared by an
// externally authored document. Absent fields are not Valid.
type ImportedTotals struct {
	LineExtension  decimal.NullDecimal `json:"line_extension_amount"`
	AllowanceTotal decimal.NullDecimal `json:"allowance_total_amount"`
	ChargeTotal    decimal.NullDecimal `json:"charge_total_amount"`
	TaxExclusive   decimal.NullDecimal `json:"tax_exclusive_amount"`
	TaxTotal       decimal.NullDecimal `json:"tax_amount"`
	TaxInclusive   decimal.NullDecimal `json:"tax_inclusive_amount"`
	Prepaid        decimal.NullDecimal `json:"prepaid_amount"`
	Payable        decimal.NullDecimal `json:"payable_amount"`
}
