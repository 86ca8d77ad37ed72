package model

import (
	"fmt"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-engine/internal/decimal"
)

// DefaultTolerance is the accepted drift between declared and computed totals
var DefaultTolerance = decimal.New(2, -2)

// Discrepancy is a declared total that differs from its recomputed value
// by more than the tolerance
type Discrepancy struct {
	Field    string          `json:"field"`
	Declared decimal.Decimal `json:"declared"`
	Computed decimal.Decimal `json:"computed"`
}

// Difference is declared minus computed
func (d Discrepancy) Difference() decimal.Decimal {
	return d.Declared.Sub(d.Computed)
}

func (d Discrepancy) String() string {
	return fmt.Sprintf("%s: declared %s, computed %s (difference %s)",
		d.Field, money.Format(d.Declared), money.Format(d.Computed), money.Format(d.Difference()))
}

// CompareTotals checks every declared total against the computed one.
// Totals absent from the declaration are skipped.
func CompareTotals(declared *ImportedTotals, computed *Totals, tolerance decimal.Decimal) []Discrepancy {
	if declared == nil || computed == nil {
		return nil
	}

	pairs := []struct {
		field    string
		declared decimal.NullDecimal
		computed decimal.Decimal
	}{
		{"line_extension_amount", declared.LineExtension, computed.LineExtension},
		{"allowance_total_amount", declared.AllowanceTotal, computed.AllowanceTotal},
		{"charge_total_amount", declared.ChargeTotal, computed.ChargeTotal},
		{"tax_exclusive_amount", declared.TaxExclusive, computed.TaxExclusive},
		{"tax_amount", declared.TaxTotal, computed.TaxTotal},
		{"tax_inclusive_amount", declared.TaxInclusive, computed.TaxInclusive},
		{"prepaid_amount", declared.Prepaid, computed.Prepaid},
		{"payable_amount", declared.Payable, computed.Payable},
	}

	var out []Discrepancy
	for _, p := range pairs {
		if !p.declared.Valid {
			continue
		}
		if !money.WithinTolerance(p.declared.Decimal, p.computed, tolerance) {
			out = append(out, Discrepancy{Field: p.field, Declared: p.declared.Decimal, Computed: p.computed})
		}
	}
	return out
}
