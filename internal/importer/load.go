package importer

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-engine/internal/model"
	"github.com/rezonia/invoice-engine/internal/parser/ubl"
)

// loader carries the anomaly collector through one import
type loader struct {
	mode      Mode
	anomalies []Anomaly
}

// flag records a field level inconsistency. Strict mode turns it into the
// import error; lenient mode keeps it and the caller stores the raw value.
func (l *loader) flag(field, value string, err error) error {
	if l.mode == ModeStrict {
		return &FieldError{Field: field, Value: value, Err: err}
	}
	l.anomalies = append(l.anomalies, Anomaly{Field: field, Value: value, Message: describe(err)})
	return nil
}

// fatal wraps a construction error, prefixing the violation field
func fatal(prefix string, err error) error {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		field := ve.Field
		if prefix != "" {
			field = prefix
			if ve.Field != "" {
				field = prefix + "." + ve.Field
			}
		}
		value := ""
		if ve.Value != nil {
			value = fmt.Sprint(ve.Value)
		}
		return &FieldError{Field: field, Value: value, Err: err}
	}
	return &FieldError{Field: prefix, Err: err}
}

func (l *loader) load(doc *ubl.Document) (*model.Invoice, error) {
	inv, err := l.header(doc)
	if err != nil {
		return nil, err
	}

	seller, err := l.party("seller", doc.Supplier)
	if err != nil {
		return nil, err
	}
	inv.SetSeller(seller)
	buyer, err := l.party("buyer", doc.Customer)
	if err != nil {
		return nil, err
	}
	inv.SetBuyer(buyer)

	if err := l.payment(inv, doc); err != nil {
		return nil, err
	}
	if err := l.attachments(inv, doc.AdditionalDocuments); err != nil {
		return nil, err
	}

	exemptions := declaredExemptions(doc)
	for idx, src := range doc.Lines() {
		line, err := l.line(fmt.Sprintf("line[%d]", idx), src, exemptions)
		if err != nil {
			return nil, err
		}
		inv.AddLine(line)
	}
	for idx, src := range doc.AllowanceCharges {
		adj, err := l.adjustment(fmt.Sprintf("allowance_charge[%d]", idx), src, nil)
		if err != nil {
			return nil, err
		}
		inv.AddAdjustment(adj)
	}

	if raw := doc.MonetaryTotal.PrepaidAmount.Value; strings.TrimSpace(raw) != "" {
		prepaid, err := amount("prepaid_amount", raw)
		if err != nil {
			return nil, err
		}
		if err := inv.SetPrepaidAmount(prepaid); err != nil {
			return nil, fatal("", err)
		}
	}

	return inv, nil
}

func (l *loader) header(doc *ubl.Document) (*model.Invoice, error) {
	issue, err := model.ParseDate(doc.IssueDate)
	if err != nil {
		return nil, &FieldError{Field: "issue_date", Value: doc.IssueDate, Err: err}
	}
	typeCode, err := model.ParseInvoiceTypeCode(doc.TypeCode())
	if err != nil {
		return nil, fatal("", err)
	}
	currency, err := model.ParseCurrency(doc.CurrencyCode)
	if err != nil {
		return nil, fatal("", err)
	}
	inv, err := model.NewInvoice(strings.TrimSpace(doc.ID), issue, typeCode, currency)
	if err != nil {
		return nil, fatal("", err)
	}

	due, err := l.date("due_date", doc.DueDate)
	if err != nil {
		return nil, err
	}
	if err := inv.SetDueDate(due); err != nil {
		if err := l.flag("due_date", doc.DueDate, err); err != nil {
			return nil, err
		}
	}

	delivery, err := l.date("delivery_date", doc.DeliveryDate)
	if err != nil {
		return nil, err
	}
	inv.SetDeliveryDate(delivery)

	if p := doc.InvoicePeriod; p != nil {
		start, err := l.date("period.start", p.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := l.date("period.end", p.EndDate)
		if err != nil {
			return nil, err
		}
		if err := inv.SetPeriod(start, end); err != nil {
			if err := l.flag("period", p.EndDate, err); err != nil {
				return nil, err
			}
		}
	}

	refs := model.References{
		Buyer:    strings.TrimSpace(doc.BuyerReference),
		Order:    strings.TrimSpace(doc.OrderReference),
		Contract: strings.TrimSpace(doc.ContractReference),
		Project:  strings.TrimSpace(doc.ProjectReference),
	}
	if b := doc.BillingReference; b != nil && strings.TrimSpace(b.ID) != "" {
		issued, err := l.date("preceding_invoice.issue_date", b.IssueDate)
		if err != nil {
			return nil, err
		}
		refs.PrecedingInvoice = &model.DocumentReference{ID: strings.TrimSpace(b.ID), IssueDate: issued}
	}
	inv.SetReferences(refs)
	inv.SetNote(strings.TrimSpace(doc.Note))

	return inv, nil
}

// date parses an optional date. A malformed date in lenient mode is
// recorded and left unset.
func (l *loader) date(field, raw string) (model.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return model.Date{}, nil
	}
	d, err := model.ParseDate(raw)
	if err != nil {
		return model.Date{}, l.flag(field, raw, err)
	}
	return d, nil
}

func (l *loader) party(field string, src ubl.Party) (model.Party, error) {
	p := model.Party{
		Name:           strings.TrimSpace(src.LegalEntity.RegistrationName),
		RegistrationID: strings.TrimSpace(src.LegalEntity.CompanyID),
		EndpointID:     strings.TrimSpace(src.EndpointID.Value),
		EndpointScheme: strings.TrimSpace(src.EndpointID.SchemeID),
		Address: model.Address{
			Street:      src.Address.StreetName,
			Additional:  src.Address.AdditionalStreetName,
			City:        src.Address.CityName,
			PostalZone:  src.Address.PostalZone,
			Subdivision: src.Address.CountrySubentity,
		},
		Contact: model.Contact{
			Name:  src.Contact.Name,
			Phone: src.Contact.Telephone,
			Email: src.Contact.Email,
		},
	}
	if p.Name == "" {
		p.Name = strings.TrimSpace(src.Name)
	} else {
		p.TradingName = strings.TrimSpace(src.Name)
	}

	if raw := src.Address.Country; strings.TrimSpace(raw) != "" {
		country, err := model.ParseCountryCode(raw)
		if err != nil {
			if err := l.flag(field+".address.country_code", raw, err); err != nil {
				return p, err
			}
		}
		p.Address.Country = country
	}

	if raw := src.VATID(); strings.TrimSpace(raw) != "" {
		vat, err := model.ParseVATID(raw)
		if err != nil {
			if err := l.flag(field+".vat_id", raw, err); err != nil {
				return p, err
			}
		}
		p.VATID = vat
	}

	return p, nil
}

// payment loads the first payment means; further means are not modelled
func (l *loader) payment(inv *model.Invoice, doc *ubl.Document) error {
	if len(doc.PaymentMeans) == 0 {
		return nil
	}
	src := doc.PaymentMeans[0]

	p := model.Payment{
		AccountName:    strings.TrimSpace(src.AccountName),
		RemittanceInfo: strings.TrimSpace(src.InstructionNote),
		Terms:          strings.TrimSpace(doc.PaymentTerms),
	}

	code, err := model.ParsePaymentMeansCode(src.Code)
	if err != nil {
		if err := l.flag("payment.means_code", src.Code, err); err != nil {
			return err
		}
	}
	p.MeansCode = code

	if raw := src.AccountID; strings.TrimSpace(raw) != "" {
		iban, err := model.ParseIBAN(raw)
		if err != nil {
			if err := l.flag("payment.iban", raw, err); err != nil {
				return err
			}
		}
		p.IBAN = iban
	}
	if raw := src.BranchID; strings.TrimSpace(raw) != "" {
		bic, err := model.ParseBIC(raw)
		if err != nil {
			if err := l.flag("payment.bic", raw, err); err != nil {
				return err
			}
		}
		p.BIC = bic
	}
	if raw := src.PaymentID; strings.TrimSpace(raw) != "" {
		ref, err := model.ParseStructuredReference(raw)
		if err != nil {
			if err := l.flag("payment.reference", raw, err); err != nil {
				return err
			}
		}
		p.Reference = ref
	}

	inv.SetPayment(p)
	return nil
}

func (l *loader) attachments(inv *model.Invoice, docs []ubl.DocumentReference) error {
	for idx, src := range docs {
		a := model.Attachment{
			ID:          strings.TrimSpace(src.ID),
			Description: strings.TrimSpace(src.Description),
			URI:         strings.TrimSpace(src.URI),
		}
		if e := src.Embedded; e != nil {
			a.Filename = e.Filename
			a.MimeCode = e.MimeCode
			data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(e.Value), ""))
			if err != nil {
				if err := l.flag(fmt.Sprintf("attachment[%d].data", idx), "", err); err != nil {
					return err
				}
			} else {
				a.Data = data
			}
		}
		inv.AddAttachment(a)
	}
	return nil
}

type exemption struct {
	code   string
	reason string
}

// declaredExemptions indexes the exemption reasons of the declared tax
// subtotals by category and rate. UBL commonly carries the reason only there.
func declaredExemptions(doc *ubl.Document) map[string]exemption {
	out := make(map[string]exemption)
	total, ok := doc.DeclaredTaxTotal()
	if !ok {
		return out
	}
	for _, sub := range total.TaxSubtotals {
		c := sub.TaxCategory
		if c.ExemptionReasonCode == "" && c.ExemptionReason == "" {
			continue
		}
		out[exemptionKey(c.ID, c.Percent)] = exemption{code: c.ExemptionReasonCode, reason: c.ExemptionReason}
	}
	return out
}

func exemptionKey(category, percent string) string {
	rate, err := decimal.NewFromString(strings.TrimSpace(percent))
	if err != nil {
		rate = decimal.Zero
	}
	return strings.ToUpper(strings.TrimSpace(category)) + "/" + rate.String()
}

func (l *loader) line(field string, src ubl.Line, exemptions map[string]exemption) (*model.Line, error) {
	qty := src.Quantity()
	quantity, err := amount(field+".quantity", qty.Value)
	if err != nil {
		return nil, err
	}
	price, err := amount(field+".unit_price", src.PriceAmount.Value)
	if err != nil {
		return nil, err
	}
	category, rate, err := taxCategory(field, src.Item.TaxCategory)
	if err != nil {
		return nil, err
	}

	spec := model.LineSpec{
		ID:              strings.TrimSpace(src.ID),
		Name:            strings.TrimSpace(src.Item.Name),
		Description:     strings.TrimSpace(src.Item.Description),
		Quantity:        quantity,
		UnitPrice:       price,
		TaxCategory:     category,
		TaxRate:         rate,
		ExemptionReason: strings.TrimSpace(src.Item.TaxCategory.ExemptionReason),
	}

	rawCode := src.Item.TaxCategory.ExemptionReasonCode
	if strings.TrimSpace(rawCode) == "" && spec.ExemptionReason == "" && category.RequiresExemptionReason() {
		if e, ok := exemptions[exemptionKey(string(category), rate.String())]; ok {
			rawCode, spec.ExemptionReason = e.code, e.reason
		}
	}
	if strings.TrimSpace(rawCode) != "" {
		code, err := model.ParseExemptionReasonCode(rawCode)
		if err != nil {
			if err := l.flag(field+".exemption_reason_code", rawCode, err); err != nil {
				return nil, err
			}
		}
		spec.ExemptionReasonCode = code
	}

	unit, unitErr := model.ParseUnitCode(qty.UnitCode)
	spec.Unit = unit

	var line *model.Line
	if unitErr != nil {
		if err := l.flag(field+".unit_code", qty.UnitCode, unitErr); err != nil {
			return nil, err
		}
		line, err = model.NewUncheckedLine(spec)
	} else {
		line, err = model.NewLine(spec)
	}
	if err != nil {
		return nil, fatal(field, err)
	}

	for idx, ac := range src.AllowanceCharges {
		adj, err := l.adjustment(fmt.Sprintf("%s.allowance_charge[%d]", field, idx), ac, line)
		if err != nil {
			return nil, err
		}
		line.AddAdjustment(adj)
	}
	return line, nil
}

// adjustment loads an allowance or charge. Line level adjustments carry no
// tax category in UBL and take the one of their line.
func (l *loader) adjustment(field string, src ubl.AllowanceCharge, owner *model.Line) (*model.Adjustment, error) {
	charge, err := strconv.ParseBool(strings.TrimSpace(src.ChargeIndicator))
	if err != nil {
		return nil, &FieldError{Field: field + ".charge_indicator", Value: src.ChargeIndicator, Err: err}
	}
	value, err := optionalAmount(field+".amount", src.Amount.Value)
	if err != nil {
		return nil, err
	}
	base, err := optionalAmount(field+".base_amount", src.BaseAmount.Value)
	if err != nil {
		return nil, err
	}
	percentage, err := optionalAmount(field+".percentage", src.Percentage)
	if err != nil {
		return nil, err
	}

	spec := model.AdjustmentSpec{
		Charge:     charge,
		Amount:     value,
		BaseAmount: base,
		Percentage: percentage,
		ReasonCode: strings.TrimSpace(src.ReasonCode),
		Reason:     strings.TrimSpace(src.Reason),
	}
	if owner != nil && strings.TrimSpace(src.TaxCategory.ID) == "" {
		spec.TaxCategory, spec.TaxRate = owner.TaxCategory(), owner.TaxRate()
	} else {
		spec.TaxCategory, spec.TaxRate, err = taxCategory(field, src.TaxCategory)
		if err != nil {
			return nil, err
		}
	}

	adj, err := model.NewAdjustment(spec)
	if err != nil {
		return nil, fatal(field, err)
	}
	return adj, nil
}

func taxCategory(field string, src ubl.TaxCategory) (model.TaxCategory, decimal.Decimal, error) {
	category, err := model.ParseTaxCategory(src.ID)
	if err != nil {
		return "", decimal.Zero, fatal(field, err)
	}
	rate, err := amount(field+".tax_rate", src.Percent)
	if err != nil {
		return "", decimal.Zero, err
	}
	return category, rate, nil
}

// declaredTotals snapshots the document level totals. Absent amounts stay
// unset; amounts in a foreign currency are flagged.
func (l *loader) declaredTotals(doc *ubl.Document) (model.ImportedTotals, error) {
	var t model.ImportedTotals
	m := doc.MonetaryTotal
	taxTotal, _ := doc.DeclaredTaxTotal()

	fields := []struct {
		field string
		src   ubl.Amount
		dst   *decimal.NullDecimal
	}{
		{"line_extension_amount", m.LineExtensionAmount, &t.LineExtension},
		{"allowance_total_amount", m.AllowanceTotalAmount, &t.AllowanceTotal},
		{"charge_total_amount", m.ChargeTotalAmount, &t.ChargeTotal},
		{"tax_exclusive_amount", m.TaxExclusiveAmount, &t.TaxExclusive},
		{"tax_amount", taxTotal.TaxAmount, &t.TaxTotal},
		{"tax_inclusive_amount", m.TaxInclusiveAmount, &t.TaxInclusive},
		{"prepaid_amount", m.PrepaidAmount, &t.Prepaid},
		{"payable_amount", m.PayableAmount, &t.Payable},
	}

	for _, f := range fields {
		if strings.TrimSpace(f.src.Value) == "" {
			continue
		}
		if cur := strings.TrimSpace(f.src.CurrencyID); cur != "" && !strings.EqualFold(cur, doc.CurrencyCode) {
			if err := l.flag("totals."+f.field+".currency", cur, fmt.Errorf("amount is in %s, document currency is %s", cur, doc.CurrencyCode)); err != nil {
				return t, err
			}
		}
		d, err := decimal.NewFromString(strings.TrimSpace(f.src.Value))
		if err != nil {
			if err := l.flag("totals."+f.field, f.src.Value, err); err != nil {
				return t, err
			}
			continue
		}
		*f.dst = decimal.NewNullDecimal(d)
	}
	return t, nil
}

// amount parses a required number; empty is zero and left to the
// constructors to reject. Numbers have no raw fallback, so a malformed one
// is fatal in both modes.
func amount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &FieldError{Field: field, Value: raw, Err: err}
	}
	return d, nil
}

func optionalAmount(field, raw string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := amount(field, raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(d), nil
}
