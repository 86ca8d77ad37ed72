package importer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/invoice-engine/internal/importer"
	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/parser/ubl"
	"github.com/rezonia/invoice-engine/internal/validation"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixture loads a testdata document, applying old/new replacement pairs
func fixture(t *testing.T, name string, replacements ...string) *ubl.Document {
	t.Helper()
	data, err := os.ReadFile("../parser/ubl/testdata/" + name)
	require.NoError(t, err)

	content := string(data)
	for i := 0; i+1 < len(replacements); i += 2 {
		require.Contains(t, content, replacements[i])
		content = strings.Replace(content, replacements[i], replacements[i+1], 1)
	}

	doc, err := ubl.Decode(context.Background(), strings.NewReader(content))
	require.NoError(t, err)
	return doc
}

func newImporter(opts ...importer.Option) *importer.Importer {
	return importer.New(append([]importer.Option{importer.WithLogger(zerolog.Nop())}, opts...)...)
}

func lenient(opts ...importer.Option) *importer.Importer {
	return newImporter(append([]importer.Option{importer.WithMode(importer.ModeLenient)}, opts...)...)
}

func fields(anomalies []importer.Anomaly) []string {
	out := make([]string, 0, len(anomalies))
	for _, a := range anomalies {
		out = append(out, a.Field)
	}
	return out
}

func TestImport_StrictClean(t *testing.T) {
	res, err := newImporter().Import(context.Background(), fixture(t, "invoice.xml"))
	require.NoError(t, err)
	require.True(t, res.Clean())
	assert.NoError(t, res.Warning())
	assert.Equal(t, importer.ModeStrict, res.Mode)
	assert.NotEmpty(t, res.CorrelationID)

	inv := res.Invoice
	assert.Equal(t, "INV-2026-0042", inv.ID())
	assert.Equal(t, "2026-03-12", inv.DueDate().String())
	assert.Equal(t, "PO-4711", inv.References().Buyer)
	assert.Equal(t, "SO-2026-17", inv.References().Order)

	require.NotNil(t, inv.Seller())
	assert.Equal(t, "Acme BV", inv.Seller().Name)
	assert.Equal(t, "Acme", inv.Seller().TradingName)
	assert.Equal(t, model.VATID("BE0123456789"), inv.Seller().VATID)
	assert.Equal(t, "Globex GmbH", inv.Buyer().Name)
	assert.Empty(t, inv.Buyer().TradingName)

	require.NotNil(t, inv.Payment())
	assert.Equal(t, model.PaymentMeansCreditTransfer, inv.Payment().MeansCode)
	assert.Equal(t, model.IBAN("BE68539007547034"), inv.Payment().IBAN)
	assert.Equal(t, "Net 30 days", inv.Payment().Terms)

	lines := inv.Lines()
	require.Len(t, lines, 3)
	assert.True(t, lines[1].NetAmount().Equal(dec("270")), "Expected 270, got %s", lines[1].NetAmount())
	assert.Equal(t, model.TaxCategoryStandard, lines[1].Adjustments()[0].TaxCategory())
	assert.Equal(t, model.ExemptionReasonCode("VATEX-EU-132"), lines[2].ExemptionReasonCode())

	totals := inv.Totals()
	require.NotNil(t, totals)
	assert.True(t, totals.TaxExclusive.Equal(dec("1250.00")), "Expected 1250.00, got %s", totals.TaxExclusive)
	assert.True(t, totals.TaxTotal.Equal(dec("245.70")), "Expected 245.70, got %s", totals.TaxTotal)
	assert.True(t, totals.TaxInclusive.Equal(dec("1495.70")), "Expected 1495.70, got %s", totals.TaxInclusive)

	imported := inv.ImportedTotals()
	require.NotNil(t, imported)
	assert.True(t, imported.Payable.Valid)
	assert.False(t, imported.ChargeTotal.Valid)

	assert.Empty(t, validation.Validate(inv))
}

func TestImport_CreditNote(t *testing.T) {
	inv, err := newImporter().ImportInvoice(context.Background(), fixture(t, "creditnote.xml"))
	require.NoError(t, err)

	assert.Equal(t, model.InvoiceTypeCreditNote, inv.TypeCode())
	require.NotNil(t, inv.References().PrecedingInvoice)
	assert.Equal(t, "INV-2026-0042", inv.References().PrecedingInvoice.ID)
	assert.True(t, inv.Totals().Payable.Equal(dec("114.95")))
}

func TestImport_LenientDeclaredDrift(t *testing.T) {
	doc := fixture(t, "invoice.xml",
		`<cbc:TaxInclusiveAmount currencyID="EUR">1495.70`, `<cbc:TaxInclusiveAmount currencyID="EUR">1495.75`)

	inv, err := lenient().ImportInvoice(context.Background(), doc)

	var warning *importer.ImportWarning
	require.True(t, errors.As(err, &warning), "got %v", err)
	require.NotNil(t, inv)
	assert.Same(t, inv, warning.Invoice)
	assert.Empty(t, warning.Anomalies)
	require.Len(t, warning.Discrepancies, 1)

	d := warning.Discrepancies[0]
	assert.Equal(t, "tax_inclusive_amount", d.Field)
	assert.True(t, d.Difference().Equal(dec("0.05")), "Expected 0.05, got %s", d.Difference())

	// the carried invoice shows the recomputed totals, the snapshot keeps the declared ones
	assert.True(t, inv.Totals().TaxInclusive.Equal(dec("1495.70")), "Expected 1495.70, got %s", inv.Totals().TaxInclusive)
	assert.True(t, inv.ImportedTotals().TaxInclusive.Decimal.Equal(dec("1495.75")))
	assert.Contains(t, warning.Messages(), "tax_inclusive_amount: declared 1495.75, computed 1495.70 (difference 0.05)")
}

func TestImport_StrictDeclaredDrift(t *testing.T) {
	doc := fixture(t, "invoice.xml",
		`<cbc:TaxInclusiveAmount currencyID="EUR">1495.70`, `<cbc:TaxInclusiveAmount currencyID="EUR">1495.75`)

	res, err := newImporter().Import(context.Background(), doc)
	assert.Nil(t, res)

	var rec *importer.ReconciliationError
	require.True(t, errors.As(err, &rec), "got %v", err)
	assert.Equal(t, "INV-2026-0042", rec.InvoiceID)
	require.Len(t, rec.Discrepancies, 1)
	assert.Contains(t, rec.Error(), "tax_inclusive_amount")
}

func TestImport_Tolerance(t *testing.T) {
	drift := []string{`<cbc:TaxInclusiveAmount currencyID="EUR">1495.70`, `<cbc:TaxInclusiveAmount currencyID="EUR">1495.75`}

	res, err := newImporter(importer.WithCurrencyTolerance("EUR", dec("0.10"))).Import(context.Background(), fixture(t, "invoice.xml", drift...))
	require.NoError(t, err)
	assert.True(t, res.Clean())

	_, err = newImporter(importer.WithCurrencyTolerance("USD", dec("0.10"))).Import(context.Background(), fixture(t, "invoice.xml", drift...))
	assert.Error(t, err)

	res, err = newImporter(importer.WithTolerance(dec("0.05"))).Import(context.Background(), fixture(t, "invoice.xml", drift...))
	require.NoError(t, err)
	assert.True(t, res.Clean())
}

func TestImport_LineDiscrepancy(t *testing.T) {
	doc := fixture(t, "invoice.xml",
		`<cbc:LineExtensionAmount currencyID="EUR">950.00`, `<cbc:LineExtensionAmount currencyID="EUR">951.00`)

	res, err := lenient().Import(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, "line[0].line_extension_amount", res.Discrepancies[0].Field)
	assert.True(t, res.Discrepancies[0].Computed.Equal(dec("950")))
}

var fieldBreakers = []struct {
	name  string
	old   string
	new   string
	field string
}{
	{"unit code", `unitCode="HUR">10<`, `unitCode="HOURS">10<`, "line[0].unit_code"},
	{"iban", `<cbc:ID>BE68539007547034</cbc:ID>`, `<cbc:ID>BE68539007547035</cbc:ID>`, "payment.iban"},
	{"bic", `<cbc:ID>GEBABEBB</cbc:ID>`, `<cbc:ID>GEBA</cbc:ID>`, "payment.bic"},
	{"structured reference", `+++090/9337/55493+++`, `+++090/9337/55494+++`, "payment.reference"},
	{"vat id", `<cbc:CompanyID>BE0123456789</cbc:CompanyID>`, `<cbc:CompanyID>0123456789</cbc:CompanyID>`, "seller.vat_id"},
	{"due date", `<cbc:DueDate>2026-03-12</cbc:DueDate>`, `<cbc:DueDate>12.03.2026</cbc:DueDate>`, "due_date"},
}

func TestImport_StrictAbortsOnFieldInconsistency(t *testing.T) {
	for _, tt := range fieldBreakers {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newImporter().Import(context.Background(), fixture(t, "invoice.xml", tt.old, tt.new))
			assert.Nil(t, res)

			var fe *importer.FieldError
			require.True(t, errors.As(err, &fe), "got %v", err)
			assert.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestImport_LenientRecordsAnomalies(t *testing.T) {
	var replacements, want []string
	for _, b := range fieldBreakers {
		replacements = append(replacements, b.old, b.new)
		want = append(want, b.field)
	}

	inv, err := lenient().ImportInvoice(context.Background(), fixture(t, "invoice.xml", replacements...))

	var warning *importer.ImportWarning
	require.True(t, errors.As(err, &warning), "got %v", err)
	assert.ElementsMatch(t, want, fields(warning.Anomalies))
	assert.Empty(t, warning.Discrepancies)

	// raw values are preserved for audit
	line := inv.Lines()[0]
	assert.Equal(t, model.UnitCode("HOURS"), line.Unit())
	assert.True(t, line.UnitUnchecked())
	assert.Equal(t, model.IBAN("BE68539007547035"), inv.Payment().IBAN)
	assert.Equal(t, model.BIC("GEBA"), inv.Payment().BIC)
	assert.Equal(t, model.VATID("0123456789"), inv.Seller().VATID)
	assert.True(t, inv.DueDate().IsZero())

	// and still flagged by the validator
	byField := make(map[string]string)
	for _, v := range validation.Validate(inv) {
		byField[v.Field] = v.Rule
	}
	assert.Equal(t, "code.unit", byField["line[0].unit_code"])
	assert.Equal(t, "value.iban", byField["payment.iban"])
}

func TestImport_EquivalentOnCleanInput(t *testing.T) {
	ctx := context.Background()

	strictInv, err := newImporter().ImportInvoice(ctx, fixture(t, "invoice.xml"))
	require.NoError(t, err)
	lenientInv, err := lenient().ImportInvoice(ctx, fixture(t, "invoice.xml"))
	require.NoError(t, err)

	assert.Equal(t, strictInv, lenientInv)
}

func TestImport_FatalInBothModes(t *testing.T) {
	tests := []struct {
		name  string
		old   string
		new   string
		field string
	}{
		{"quantity", `unitCode="C62">1<`, `unitCode="C62">one<`, "line[2].quantity"},
		{"currency", `<cbc:DocumentCurrencyCode>EUR<`, `<cbc:DocumentCurrencyCode>EURO<`, "currency"},
		{"tax category", "Training session</cbc:Name>\n      <cac:ClassifiedTaxCategory>\n        <cbc:ID>E<", "Training session</cbc:Name>\n      <cac:ClassifiedTaxCategory>\n        <cbc:ID>X<", "line[2].tax_category"},
		{"issue date", `<cbc:IssueDate>2026-02-10<`, `<cbc:IssueDate>yesterday<`, "issue_date"},
	}

	for _, tt := range tests {
		for _, imp := range []*importer.Importer{newImporter(), lenient()} {
			t.Run(tt.name+"/"+string(imp.Mode()), func(t *testing.T) {
				_, err := imp.Import(context.Background(), fixture(t, "invoice.xml", tt.old, tt.new))
				var fe *importer.FieldError
				require.True(t, errors.As(err, &fe), "got %v", err)
				assert.Contains(t, fe.Field, tt.field)
			})
		}
	}
}

func TestImportXML(t *testing.T) {
	data, err := os.ReadFile("../parser/ubl/testdata/invoice.xml")
	require.NoError(t, err)

	res, err := newImporter().ImportXML(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)
	assert.True(t, res.Clean())

	_, err = newImporter().ImportXML(context.Background(), strings.NewReader("<Order/>"))
	var pe *model.ParseError
	assert.True(t, errors.As(err, &pe))
}

func TestImport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newImporter().Import(ctx, fixture(t, "invoice.xml"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImport_NilDocument(t *testing.T) {
	_, err := newImporter().Import(context.Background(), nil)
	var pe *model.ParseError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "document", pe.Field)
}

func TestImport_KeepsDeclaredAdjustmentAmount(t *testing.T) {
	doc := fixture(t, "invoice.xml",
		`<cbc:Amount currencyID="EUR">30.00</cbc:Amount>`, `<cbc:Amount currencyID="EUR">0.00</cbc:Amount>`)

	res, err := lenient().Import(context.Background(), doc)
	require.NoError(t, err)

	adjustments := res.Invoice.Lines()[1].Adjustments()
	require.Len(t, adjustments, 1)
	assert.True(t, adjustments[0].Amount().IsZero(), "Expected 0, got %s", adjustments[0].Amount())

	var rules []string
	for _, v := range adjustments[0].Validate() {
		rules = append(rules, v.Rule)
	}
	assert.Contains(t, rules, "adjustment.amount.percentage_mismatch")
	assert.Contains(t, fieldsOf(res.Discrepancies), "line[1].line_extension_amount")
}

func TestResult_JSONSameInBothModes(t *testing.T) {
	ctx := context.Background()

	strictRes, err := newImporter().Import(ctx, fixture(t, "invoice.xml"))
	require.NoError(t, err)
	lenientRes, err := lenient().Import(ctx, fixture(t, "invoice.xml"))
	require.NoError(t, err)

	lenientRes.CorrelationID = strictRes.CorrelationID
	a, err := json.Marshal(strictRes)
	require.NoError(t, err)
	b, err := json.Marshal(lenientRes)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.NotContains(t, string(b), "lenient")
}

func fieldsOf(discrepancies []model.Discrepancy) []string {
	out := make([]string, 0, len(discrepancies))
	for _, d := range discrepancies {
		out = append(out, d.Field)
	}
	return out
}

func TestParseMode(t *testing.T) {
	m, err := importer.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, importer.ModeStrict, m)

	m, err = importer.ParseMode(" Lenient ")
	require.NoError(t, err)
	assert.Equal(t, importer.ModeLenient, m)

	_, err = importer.ParseMode("relaxed")
	assert.Error(t, err)
}
