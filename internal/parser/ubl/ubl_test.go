package ubl_test

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/parser/ubl"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return data
}

func TestDecode_Invoice(t *testing.T) {
	doc, err := ubl.Decode(context.Background(), bytes.NewReader(readFixture(t, "invoice.xml")))
	require.NoError(t, err)

	assert.Equal(t, ubl.FormatInvoice, doc.Format)
	assert.Equal(t, "INV-2026-0042", doc.ID)
	assert.Equal(t, "2026-02-10", doc.IssueDate)
	assert.Equal(t, "2026-03-12", doc.DueDate)
	assert.Equal(t, "380", doc.TypeCode())
	assert.Equal(t, "EUR", doc.CurrencyCode)
	assert.Equal(t, "February services", doc.Note)
	assert.Equal(t, "PO-4711", doc.BuyerReference)
	assert.Equal(t, "SO-2026-17", doc.OrderReference)
	assert.Equal(t, "2026-02-09", doc.DeliveryDate)
	assert.Equal(t, "Net 30 days", doc.PaymentTerms)

	// Supplier
	assert.Equal(t, "Acme BV", doc.Supplier.LegalEntity.RegistrationName)
	assert.Equal(t, "Acme", doc.Supplier.Name)
	assert.Equal(t, "BE0123456789", doc.Supplier.VATID())
	assert.Equal(t, "0208", doc.Supplier.EndpointID.SchemeID)
	assert.Equal(t, "BE", doc.Supplier.Address.Country)
	assert.Equal(t, "billing@acme.example", doc.Supplier.Contact.Email)

	// Payment
	require.Len(t, doc.PaymentMeans, 1)
	assert.Equal(t, "30", doc.PaymentMeans[0].Code)
	assert.Equal(t, "BE68539007547034", doc.PaymentMeans[0].AccountID)
	assert.Equal(t, "GEBABEBB", doc.PaymentMeans[0].BranchID)

	// Document level allowance
	require.Len(t, doc.AllowanceCharges, 1)
	assert.Equal(t, "false", doc.AllowanceCharges[0].ChargeIndicator)
	assert.Equal(t, "50.00", doc.AllowanceCharges[0].Amount.Value)
	assert.Equal(t, "S", doc.AllowanceCharges[0].TaxCategory.ID)

	// Totals
	taxTotal, ok := doc.DeclaredTaxTotal()
	require.True(t, ok)
	assert.Equal(t, "245.70", taxTotal.TaxAmount.Value)
	require.Len(t, taxTotal.TaxSubtotals, 2)
	assert.Equal(t, "VATEX-EU-132", taxTotal.TaxSubtotals[1].TaxCategory.ExemptionReasonCode)
	assert.Equal(t, "1495.70", doc.MonetaryTotal.PayableAmount.Value)

	// Lines
	lines := doc.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "HUR", lines[0].Quantity().UnitCode)
	assert.Equal(t, "10", lines[0].Quantity().Value)
	assert.Equal(t, "95.00", lines[0].PriceAmount.Value)
	require.Len(t, lines[1].AllowanceCharges, 1)
	assert.Equal(t, "300.00", lines[1].AllowanceCharges[0].BaseAmount.Value)
	assert.Equal(t, "Annual licence, single seat", lines[1].Item.Description)
	assert.Equal(t, "E", lines[2].Item.TaxCategory.ID)
}

func TestDecode_CreditNote(t *testing.T) {
	doc, err := ubl.Decode(context.Background(), bytes.NewReader(readFixture(t, "creditnote.xml")))
	require.NoError(t, err)

	assert.Equal(t, ubl.FormatCreditNote, doc.Format)
	assert.Equal(t, "381", doc.TypeCode())
	require.NotNil(t, doc.BillingReference)
	assert.Equal(t, "INV-2026-0042", doc.BillingReference.ID)
	require.Len(t, doc.Lines(), 1)
	assert.Equal(t, "1", doc.Lines()[0].Quantity().Value)
}

func TestRegistry_Detect(t *testing.T) {
	r := ubl.NewRegistry()

	a, err := r.Detect(readFixture(t, "invoice.xml"))
	require.NoError(t, err)
	assert.Equal(t, ubl.FormatInvoice, a.Format())

	a, err = r.Detect(readFixture(t, "creditnote.xml"))
	require.NoError(t, err)
	assert.Equal(t, ubl.FormatCreditNote, a.Format())

	_, err = r.Detect([]byte(`<?xml version="1.0"?><Order><ID>1</ID></Order>`))
	var pe *model.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "root", pe.Field)

	assert.NotNil(t, r.GetAdapter(ubl.FormatCreditNote))
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"not xml", "not xml", "root"},
		{"missing id", `<Invoice><IssueDate>2026-01-01</IssueDate><InvoiceLine><ID>1</ID></InvoiceLine></Invoice>`, "ID"},
		{"no lines", `<Invoice><ID>1</ID></Invoice>`, "InvoiceLine"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ubl.Decode(context.Background(), strings.NewReader(tt.input))
			var pe *model.ParseError
			require.True(t, errors.As(err, &pe), "got %v", err)
			assert.Equal(t, tt.field, pe.Field)
		})
	}
}

func TestDecode_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ubl.Decode(ctx, bytes.NewReader(readFixture(t, "invoice.xml")))
	assert.ErrorIs(t, err, context.Canceled)
}

type orderAdapter struct{ called bool }

func (a *orderAdapter) Parse(ctx context.Context, r io.Reader) (*ubl.Document, error) {
	a.called = true
	return &ubl.Document{ID: "ORD-1", Format: a.Format()}, nil
}

func (a *orderAdapter) CanParse(content []byte) bool {
	return bytes.Contains(content, []byte("<Order"))
}

func (a *orderAdapter) Format() ubl.Format { return "Order" }

func TestRegistry_RegisterAdapter(t *testing.T) {
	r := ubl.NewRegistry()
	custom := &orderAdapter{}
	r.RegisterAdapter(custom)

	doc, err := r.Parse(context.Background(), []byte(`<Order><ID>ORD-1</ID></Order>`))
	require.NoError(t, err)
	assert.True(t, custom.called)
	assert.Equal(t, "ORD-1", doc.ID)
	assert.Equal(t, custom, r.GetAdapter("Order"))
}

func buildInvoice(t *testing.T, typeCode model.InvoiceTypeCode) *model.Invoice {
	t.Helper()
	inv, err := model.NewInvoice("RT-1", model.NewDate(2026, time.May, 4), typeCode, "EUR")
	require.NoError(t, err)
	require.NoError(t, inv.SetDueDate(model.NewDate(2026, time.June, 3)))
	inv.SetSeller(model.Party{
		Name: "Acme BV", VATID: "BE0123456789", EndpointID: "0123456789", EndpointScheme: "0208",
		Address: model.Address{City: "Brussels", Country: "BE"},
	})
	inv.SetBuyer(model.Party{Name: "Globex GmbH", Address: model.Address{Country: "DE"}})
	inv.SetReferences(model.References{
		Buyer:            "PO-1",
		PrecedingInvoice: &model.DocumentReference{ID: "INV-0", IssueDate: model.NewDate(2026, time.April, 1)},
	})
	inv.SetPayment(model.Payment{MeansCode: model.PaymentMeansCreditTransfer, IBAN: "BE68539007547034", BIC: "GEBABEBB"})
	inv.AddAttachment(model.Attachment{ID: "ATT-1", Filename: "hours.csv", MimeCode: "text/csv", Data: []byte("day,hours\n1,8\n")})

	line, err := model.NewLine(model.LineSpec{
		ID: "1", Name: "Consulting", Quantity: decimal.NewFromInt(8), Unit: model.UnitHour,
		UnitPrice: decimal.RequireFromString("95.00"), TaxCategory: model.TaxCategoryStandard, TaxRate: decimal.NewFromInt(21),
	})
	require.NoError(t, err)
	inv.AddLine(line)

	charge, err := model.NewCharge(decimal.RequireFromString("12.50"), model.TaxCategoryStandard, decimal.NewFromInt(21), "Travel")
	require.NoError(t, err)
	inv.AddAdjustment(charge)

	require.NoError(t, inv.CalculateTotals())
	return inv
}

func TestEncode_RoundTrip(t *testing.T) {
	inv := buildInvoice(t, model.InvoiceTypeCommercial)

	data, err := ubl.Encode(inv)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte(xml.Header)))
	assert.Contains(t, string(data), "<cbc:InvoiceTypeCode>380</cbc:InvoiceTypeCode>")

	doc, err := ubl.Decode(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, ubl.FormatInvoice, doc.Format)
	assert.Equal(t, "RT-1", doc.ID)
	assert.Equal(t, "2026-06-03", doc.DueDate)
	assert.Equal(t, "PO-1", doc.BuyerReference)
	assert.Equal(t, "Acme BV", doc.Supplier.LegalEntity.RegistrationName)
	assert.Equal(t, "BE0123456789", doc.Supplier.VATID())
	assert.Equal(t, "772.50", doc.MonetaryTotal.TaxExclusiveAmount.Value)
	assert.Equal(t, "12.50", doc.MonetaryTotal.ChargeTotalAmount.Value)
	assert.Equal(t, "934.73", doc.MonetaryTotal.TaxInclusiveAmount.Value)
	assert.Empty(t, doc.MonetaryTotal.PrepaidAmount.Value)
	require.Len(t, doc.Lines(), 1)
	assert.Equal(t, "HUR", doc.Lines()[0].Quantity().UnitCode)
	require.Len(t, doc.AdditionalDocuments, 1)
	require.NotNil(t, doc.AdditionalDocuments[0].Embedded)
	assert.Equal(t, "text/csv", doc.AdditionalDocuments[0].Embedded.MimeCode)
}

func TestEncode_CreditNote(t *testing.T) {
	inv := buildInvoice(t, model.InvoiceTypeCreditNote)

	data, err := ubl.Encode(inv)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<CreditNote ")
	assert.Contains(t, string(data), "<cbc:CreditNoteTypeCode>381</cbc:CreditNoteTypeCode>")
	assert.Contains(t, string(data), "<cac:CreditNoteLine>")
	assert.Contains(t, string(data), `<cbc:CreditedQuantity unitCode="HUR">8</cbc:CreditedQuantity>`)

	doc, err := ubl.Decode(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, ubl.FormatCreditNote, doc.Format)
	assert.Equal(t, "INV-0", doc.BillingReference.ID)
}

func TestEncode_RequiresTotals(t *testing.T) {
	inv, err := model.NewInvoice("X", model.NewDate(2026, time.May, 4), model.InvoiceTypeCommercial, "EUR")
	require.NoError(t, err)

	_, err = ubl.Encode(inv)
	assert.ErrorIs(t, err, ubl.ErrTotalsNotComputed)
}
