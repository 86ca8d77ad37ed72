package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-engine/internal/model"
)

func newInvoice(t *testing.T) *model.Invoice {
	t.Helper()
	inv, err := model.NewInvoice("INV-2026-001", model.NewDate(2026, time.March, 1), model.InvoiceTypeCommercial, "EUR")
	require.NoError(t, err)
	return inv
}

func TestNewInvoice(t *testing.T) {
	inv := newInvoice(t)

	assert.Equal(t, "INV-2026-001", inv.ID())
	assert.Equal(t, "2026-03-01", inv.IssueDate().String())
	assert.Equal(t, model.InvoiceTypeCommercial, inv.TypeCode())
	assert.Equal(t, model.Currency("EUR"), inv.Currency())
	assert.Nil(t, inv.Totals(), "totals are unset until computed")
	assert.Nil(t, inv.ImportedTotals())
}

func TestNewInvoice_Errors(t *testing.T) {
	date := model.NewDate(2026, time.March, 1)
	tests := []struct {
		name     string
		id       string
		date     model.Date
		typeCode model.InvoiceTypeCode
		currency model.Currency
		rule     string
	}{
		{"empty id", "", date, model.InvoiceTypeCommercial, "EUR", "invoice.number.required"},
		{"zero date", "1", model.Date{}, model.InvoiceTypeCommercial, "EUR", "invoice.issue_date.required"},
		{"unknown type", "1", date, "999", "EUR", "code.invoice_type"},
		{"unknown currency", "1", date, model.InvoiceTypeCommercial, "XXX", "code.currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := model.NewInvoice(tt.id, tt.date, tt.typeCode, tt.currency)
			assert.Nil(t, inv)
			var ve *model.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.rule, ve.Rule)
		})
	}
}

func TestInvoice_SetDueDate(t *testing.T) {
	inv := newInvoice(t)

	err := inv.SetDueDate(model.NewDate(2026, time.February, 28))
	assert.Error(t, err)
	assert.True(t, inv.DueDate().IsZero(), "rejected due date is not applied")

	require.NoError(t, inv.SetDueDate(model.NewDate(2026, time.March, 31)))
	assert.Equal(t, "2026-03-31", inv.DueDate().String())

	require.NoError(t, inv.SetDueDate(inv.IssueDate()))
}

func TestInvoice_SetPeriodAndPrepaid(t *testing.T) {
	inv := newInvoice(t)

	assert.Error(t, inv.SetPeriod(model.NewDate(2026, time.March, 1), model.NewDate(2026, time.February, 1)))
	require.NoError(t, inv.SetPeriod(model.NewDate(2026, time.February, 1), model.NewDate(2026, time.February, 28)))
	assert.Equal(t, "2026-02-28", inv.Period().End.String())

	assert.Error(t, inv.SetPrepaidAmount(dec("-1")))
	require.NoError(t, inv.SetPrepaidAmount(dec("100")))
	assert.True(t, inv.PrepaidAmount().Equal(dec("100")))
}

func TestInvoice_CalculateTotals(t *testing.T) {
	inv := newInvoice(t)
	inv.AddLine(mustLine(t, lineSpec("1", "1", "1000.00", model.TaxCategoryStandard, "21")))
	require.NoError(t, inv.SetPrepaidAmount(dec("500")))

	require.NoError(t, inv.CalculateTotals())
	totals := inv.Totals()
	require.NotNil(t, totals)
	assert.True(t, totals.Payable.Equal(dec("710")), "Expected payable 710, got %s", totals.Payable)

	// not invalidated by later mutation
	inv.AddLine(mustLine(t, lineSpec("2", "1", "100.00", model.TaxCategoryStandard, "21")))
	assert.True(t, inv.Totals().TaxExclusive.Equal(dec("1000")))

	require.NoError(t, inv.CalculateTotals())
	assert.True(t, inv.Totals().TaxExclusive.Equal(dec("1100")))
}

func TestInvoice_CalculateTotalsNoLines(t *testing.T) {
	inv := newInvoice(t)

	err := inv.CalculateTotals()
	var nl *model.NoLinesError
	require.True(t, errors.As(err, &nl))
	assert.Equal(t, "INV-2026-001", nl.InvoiceID)
	assert.Nil(t, inv.Totals())
}

func TestInvoice_ImportedTotalsWriteOnce(t *testing.T) {
	inv := newInvoice(t)

	declared := model.ImportedTotals{TaxInclusive: decimal.NewNullDecimal(dec("121"))}
	require.NoError(t, inv.SetImportedTotals(declared))

	err := inv.SetImportedTotals(model.ImportedTotals{TaxInclusive: decimal.NewNullDecimal(dec("1"))})
	assert.ErrorIs(t, err, model.ErrImportedTotalsSet)
	assert.True(t, inv.ImportedTotals().TaxInclusive.Decimal.Equal(dec("121")))
	assert.False(t, inv.ImportedTotals().Payable.Valid)
}

func TestInvoice_CollectionsAreCopies(t *testing.T) {
	inv := newInvoice(t)
	inv.AddLine(mustLine(t, lineSpec("1", "1", "10", model.TaxCategoryStandard, "21")))

	lines := inv.Lines()
	lines[0] = nil
	assert.NotNil(t, inv.Lines()[0])
}

func TestParty_Validate(t *testing.T) {
	valid := model.Party{
		Name:           "Acme BV",
		VATID:          "BE0123456789",
		EndpointID:     "0123456789",
		EndpointScheme: "0208",
		Address:        model.Address{City: "Brussels", Country: "BE"},
		Contact:        model.Contact{Email: "billing@acme.example"},
	}
	assert.Empty(t, valid.Validate())

	broken := model.Party{
		VATID:      "XX12",
		EndpointID: "0123456789",
		Address:    model.Address{Country: "ZZ"},
		Contact:    model.Contact{Email: "not-an-email"},
	}
	errs := broken.Validate()

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"name",
		"contact.email",
		"address.country_code",
		"endpoint_scheme",
		"vat_id",
	}, fields)
}

func TestPayment_Validate(t *testing.T) {
	ok := model.Payment{
		MeansCode: model.PaymentMeansCreditTransfer,
		IBAN:      "BE68539007547034",
		BIC:       "GEBABEBB",
		Reference: "+++090/9337/55493+++",
	}
	assert.Empty(t, ok.Validate())

	missing := model.Payment{MeansCode: model.PaymentMeansSEPATransfer}
	assert.Equal(t, []string{"payment.iban.required"}, rules(missing.Validate()))

	broken := model.Payment{MeansCode: "77", IBAN: "BE00", Reference: "RF00"}
	assert.ElementsMatch(t, []string{"code.payment_means", "value.iban", "value.structured_reference"}, rules(broken.Validate()))
}

func TestAttachment_Validate(t *testing.T) {
	a := model.Attachment{ID: "ATT-1", Filename: "timesheet.pdf", MimeCode: "application/pdf", Data: []byte("%PDF")}
	assert.Empty(t, a.Validate())

	b := model.Attachment{Data: []byte("x"), MimeCode: "application/zip"}
	assert.ElementsMatch(t, []string{"attachment.id.required", "attachment.mime_code", "attachment.filename.required"}, rules(b.Validate()))
}
