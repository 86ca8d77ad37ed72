package validation_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/validation"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func rules(errs []*model.ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Rule)
	}
	return out
}

func seller() model.Party {
	return model.Party{
		Name:           "Acme BV",
		VATID:          "BE0123456789",
		EndpointID:     "0123456789",
		EndpointScheme: "0208",
		Address:        model.Address{City: "Brussels", Country: "BE"},
	}
}

func buyer() model.Party {
	return model.Party{
		Name:           "Globex GmbH",
		VATID:          "DE123456789",
		EndpointID:     "DE123456789",
		EndpointScheme: "9930",
		Address:        model.Address{City: "Berlin", Country: "DE"},
	}
}

func addLine(t *testing.T, inv *model.Invoice, id, qty, price string, cat model.TaxCategory, rate string) *model.Line {
	t.Helper()
	l, err := model.NewLine(model.LineSpec{
		ID: id, Name: "Consulting", Quantity: dec(qty), Unit: model.UnitHour,
		UnitPrice: dec(price), TaxCategory: cat, TaxRate: dec(rate),
	})
	require.NoError(t, err)
	inv.AddLine(l)
	return l
}

func conformingInvoice(t *testing.T) *model.Invoice {
	t.Helper()
	inv, err := model.NewInvoice("INV-1", model.NewDate(2026, time.April, 2), model.InvoiceTypeCommercial, "EUR")
	require.NoError(t, err)
	inv.SetSeller(seller())
	inv.SetBuyer(buyer())
	inv.SetReferences(model.References{Buyer: "PO-778"})
	inv.SetPayment(model.Payment{MeansCode: model.PaymentMeansCreditTransfer, IBAN: "BE68539007547034"})
	addLine(t, inv, "1", "8", "95.00", model.TaxCategoryStandard, "21")
	require.NoError(t, inv.CalculateTotals())
	return inv
}

func TestValidate_Conforming(t *testing.T) {
	inv := conformingInvoice(t)

	assert.Empty(t, validation.Validate(inv))
	assert.Empty(t, validation.New(validation.PeppolRules()...).Validate(inv))
}

func TestValidate_TotalsNotComputed(t *testing.T) {
	inv, err := model.NewInvoice("INV-1", model.NewDate(2026, time.April, 2), model.InvoiceTypeCommercial, "EUR")
	require.NoError(t, err)
	inv.SetSeller(seller())
	inv.SetBuyer(buyer())
	addLine(t, inv, "1", "1", "10", model.TaxCategoryStandard, "21")

	assert.Equal(t, []string{"totals.not_computed"}, rules(validation.Validate(inv)))
}

func TestValidate_ZeroTaxExclusiveWithLines(t *testing.T) {
	inv := conformingInvoice(t)
	inv2, err := model.NewInvoice("INV-2", inv.IssueDate(), model.InvoiceTypeCommercial, "EUR")
	require.NoError(t, err)
	inv2.SetSeller(seller())
	inv2.SetBuyer(buyer())
	addLine(t, inv2, "1", "1", "0", model.TaxCategoryStandard, "21")
	require.NoError(t, inv2.CalculateTotals())

	assert.Contains(t, rules(validation.Validate(inv2)), "totals.tax_exclusive.zero")
}

func TestValidate_BreakdownTaxableSum(t *testing.T) {
	inv := conformingInvoice(t)
	addLine(t, inv, "2", "1", "100.00", model.TaxCategoryStandard, "6")
	allowance, err := model.NewAllowance(dec("0.01"), model.TaxCategoryStandard, dec("6"), "Rounding")
	require.NoError(t, err)
	inv.AddAdjustment(allowance)
	require.NoError(t, inv.CalculateTotals())
	assert.NotContains(t, rules(validation.Validate(inv)), "totals.breakdown.taxable_sum")

	inv.Totals().Breakdown[0].TaxableAmount = inv.Totals().Breakdown[0].TaxableAmount.Add(dec("0.01"))
	assert.Contains(t, rules(validation.Validate(inv)), "totals.breakdown.taxable_sum")
}

func TestValidate_Exhaustive(t *testing.T) {
	inv, err := model.NewInvoice("INV-3", model.NewDate(2026, time.April, 2), model.InvoiceTypeCommercial, "EUR")
	require.NoError(t, err)
	inv.SetBuyer(model.Party{Name: "Globex", Address: model.Address{Country: "XX"}})
	addLine(t, inv, "1", "1", "100", model.TaxCategoryStandard, "0")
	addLine(t, inv, "1", "1", "100", model.TaxCategoryExempt, "0")
	addLine(t, inv, "3", "1", "100", model.TaxCategoryZeroRated, "6")
	allowance, err := model.NewAllowance(dec("5"), model.TaxCategoryStandard, dec("21"), "")
	require.NoError(t, err)
	inv.AddAdjustment(allowance)
	inv.SetPayment(model.Payment{MeansCode: model.PaymentMeansCreditTransfer})
	require.NoError(t, inv.CalculateTotals())

	errs := validation.Validate(inv)

	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[e.Field] = e.Rule
	}
	assert.Equal(t, "invoice.seller.required", fields["seller"])
	assert.Equal(t, "value.country_code", fields["buyer.address.country_code"])
	assert.Equal(t, "tax_rate.standard_positive", fields["line[0].tax_rate"])
	assert.Equal(t, "line.id.unique", fields["line[1].id"])
	assert.Equal(t, "tax_rate.zero_required", fields["line[2].tax_rate"])
	assert.Equal(t, "adjustment.reason.required", fields["allowance_charge[0].reason"])
	assert.Equal(t, "payment.iban.required", fields["payment.iban"])
	assert.Equal(t, "breakdown.exemption_reason.required", fields["tax_breakdown[E/0].exemption_reason"])
}

func TestValidate_Pure(t *testing.T) {
	inv := conformingInvoice(t)
	inv.SetBuyer(model.Party{})
	before := *inv.Totals()

	v := validation.New(validation.PeppolRules()...)
	first := v.Validate(inv)
	second := v.Validate(inv)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, before, *inv.Totals())
}

func TestValidate_ExtraRules(t *testing.T) {
	inv := conformingInvoice(t)
	called := 0
	noteRequired := func(inv *model.Invoice) []*model.ValidationError {
		called++
		if inv.Note() == "" {
			return []*model.ValidationError{model.NewValidationError("note", nil, "custom.note.required", "note is required")}
		}
		return nil
	}

	errs := validation.New(noteRequired).Validate(inv)
	assert.Equal(t, []string{"custom.note.required"}, rules(errs))
	assert.Equal(t, 1, called)
}

func TestPeppolRules(t *testing.T) {
	inv, err := model.NewInvoice("INV-4", model.NewDate(2026, time.April, 2), model.InvoiceTypeCommercial, "EUR")
	require.NoError(t, err)
	s := seller()
	s.VATID = ""
	s.EndpointID, s.EndpointScheme = "", ""
	inv.SetSeller(s)
	inv.SetBuyer(buyer())
	addLine(t, inv, "1", "1", "10", model.TaxCategoryStandard, "21")
	require.NoError(t, inv.CalculateTotals())

	errs := validation.New(validation.PeppolRules()...).Validate(inv)
	assert.ElementsMatch(t, []string{
		"peppol.buyer_reference.required",
		"peppol.seller.vat_id.required",
		"peppol.endpoint.required",
	}, rules(errs))
}

func TestTotalsConsistency(t *testing.T) {
	inv := conformingInvoice(t)
	require.NoError(t, inv.SetImportedTotals(model.ImportedTotals{
		TaxExclusive: decimal.NewNullDecimal(dec("760.00")),
		TaxInclusive: decimal.NewNullDecimal(dec("919.70")),
	}))

	v := validation.New(validation.TotalsConsistency(model.DefaultTolerance))
	errs := v.Validate(inv)
	require.Len(t, errs, 1)
	assert.Equal(t, "totals.tax_inclusive_amount", errs[0].Field)
	assert.Equal(t, "totals.declared_mismatch", errs[0].Rule)
}
