package ubl

import (
	"encoding/base64"
	"encoding/xml"
	"errors"

	"github.com/shopspring/decimal"

	money "github.com/rezonia/invoice-engine/internal/decimal"
	"github.com/rezonia/invoice-engine/internal/model"
)

const (
	nsInvoice    = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsCreditNote = "urn:oasis:names:specification:ubl:schema:xsd:CreditNote-2"
	nsCac        = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsCbc        = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"

	peppolCustomization = "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0"
	peppolProfile       = "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0"
)

// ErrTotalsNotComputed is returned when encoding an invoice without totals
var ErrTotalsNotComputed = errors.New("ubl: invoice totals have not been computed")

type outDocument struct {
	XMLName         xml.Name
	Xmlns           string           `xml:"xmlns,attr"`
	Cac             string           `xml:"xmlns:cac,attr"`
	Cbc             string           `xml:"xmlns:cbc,attr"`
	CustomizationID string           `xml:"cbc:CustomizationID"`
	ProfileID       string           `xml:"cbc:ProfileID"`
	ID              string           `xml:"cbc:ID"`
	IssueDate       string           `xml:"cbc:IssueDate"`
	DueDate         string           `xml:"cbc:DueDate,omitempty"`
	TypeCode        outNamed         `xml:"cbc:InvoiceTypeCode"`
	Note            string           `xml:"cbc:Note,omitempty"`
	Currency        string           `xml:"cbc:DocumentCurrencyCode"`
	BuyerReference  string           `xml:"cbc:BuyerReference,omitempty"`
	InvoicePeriod   *outPeriod       `xml:"cac:InvoicePeriod"`
	OrderReference  *outID           `xml:"cac:OrderReference"`
	Billing         *outBilling      `xml:"cac:BillingReference"`
	Contract        *outID           `xml:"cac:ContractDocumentReference"`
	Additional      []outDocRef      `xml:"cac:AdditionalDocumentReference"`
	Project         *outID           `xml:"cac:ProjectReference"`
	Supplier        outParty         `xml:"cac:AccountingSupplierParty>cac:Party"`
	Customer        outParty         `xml:"cac:AccountingCustomerParty>cac:Party"`
	Delivery        *outDelivery     `xml:"cac:Delivery"`
	PaymentMeans    *outPaymentMeans `xml:"cac:PaymentMeans"`
	PaymentTerms    *outNote         `xml:"cac:PaymentTerms"`
	Adjustments     []outAllowance   `xml:"cac:AllowanceCharge"`
	TaxTotal        outTaxTotal      `xml:"cac:TaxTotal"`
	MonetaryTotal   outMonetaryTotal `xml:"cac:LegalMonetaryTotal"`
	Lines           []outLine        `xml:"cac:InvoiceLine"`
}

// outNamed is a text element whose name depends on the document type
type outNamed struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type outAmount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

type outQuantity struct {
	XMLName  xml.Name
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

type outID struct {
	ID string `xml:"cbc:ID"`
}

type outNote struct {
	Note string `xml:"cbc:Note"`
}

type outPeriod struct {
	StartDate string `xml:"cbc:StartDate,omitempty"`
	EndDate   string `xml:"cbc:EndDate,omitempty"`
}

type outBilling struct {
	ID        string `xml:"cac:InvoiceDocumentReference>cbc:ID"`
	IssueDate string `xml:"cac:InvoiceDocumentReference>cbc:IssueDate,omitempty"`
}

type outDocRef struct {
	ID          string         `xml:"cbc:ID"`
	Description string         `xml:"cbc:DocumentDescription,omitempty"`
	Attachment  *outAttachment `xml:"cac:Attachment"`
}

type outAttachment struct {
	Embedded *outEmbedded `xml:"cbc:EmbeddedDocumentBinaryObject"`
	URI      string       `xml:"cac:ExternalReference>cbc:URI,omitempty"`
}

type outEmbedded struct {
	Value    string `xml:",chardata"`
	MimeCode string `xml:"mimeCode,attr"`
	Filename string `xml:"filename,attr"`
}

type outEndpoint struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr"`
}

type outParty struct {
	EndpointID  *outEndpoint       `xml:"cbc:EndpointID"`
	Name        string             `xml:"cac:PartyName>cbc:Name,omitempty"`
	Address     outAddress         `xml:"cac:PostalAddress"`
	TaxScheme   *outPartyTaxScheme `xml:"cac:PartyTaxScheme"`
	LegalEntity outLegalEntity     `xml:"cac:PartyLegalEntity"`
	Contact     *outContact        `xml:"cac:Contact"`
}

type outAddress struct {
	StreetName       string `xml:"cbc:StreetName,omitempty"`
	AdditionalStreet string `xml:"cbc:AdditionalStreetName,omitempty"`
	CityName         string `xml:"cbc:CityName,omitempty"`
	PostalZone       string `xml:"cbc:PostalZone,omitempty"`
	CountrySubentity string `xml:"cbc:CountrySubentity,omitempty"`
	Country          string `xml:"cac:Country>cbc:IdentificationCode"`
}

type outPartyTaxScheme struct {
	CompanyID string `xml:"cbc:CompanyID"`
	TaxScheme string `xml:"cac:TaxScheme>cbc:ID"`
}

type outLegalEntity struct {
	RegistrationName string `xml:"cbc:RegistrationName"`
	CompanyID        string `xml:"cbc:CompanyID,omitempty"`
}

type outContact struct {
	Name      string `xml:"cbc:Name,omitempty"`
	Telephone string `xml:"cbc:Telephone,omitempty"`
	Email     string `xml:"cbc:ElectronicMail,omitempty"`
}

type outDelivery struct {
	Date string `xml:"cbc:ActualDeliveryDate"`
}

type outPaymentMeans struct {
	Code            string      `xml:"cbc:PaymentMeansCode"`
	InstructionNote string      `xml:"cbc:InstructionNote,omitempty"`
	PaymentID       string      `xml:"cbc:PaymentID,omitempty"`
	Account         *outAccount `xml:"cac:PayeeFinancialAccount"`
}

type outAccount struct {
	ID       string `xml:"cbc:ID"`
	Name     string `xml:"cbc:Name,omitempty"`
	BranchID string `xml:"cac:FinancialInstitutionBranch>cbc:ID,omitempty"`
}

type outTaxCategory struct {
	ID                  string `xml:"cbc:ID"`
	Percent             string `xml:"cbc:Percent"`
	ExemptionReasonCode string `xml:"cbc:TaxExemptionReasonCode,omitempty"`
	ExemptionReason     string `xml:"cbc:TaxExemptionReason,omitempty"`
	TaxScheme           string `xml:"cac:TaxScheme>cbc:ID"`
}

type outAllowance struct {
	ChargeIndicator bool            `xml:"cbc:ChargeIndicator"`
	ReasonCode      string          `xml:"cbc:AllowanceChargeReasonCode,omitempty"`
	Reason          string          `xml:"cbc:AllowanceChargeReason,omitempty"`
	Percentage      string          `xml:"cbc:MultiplierFactorNumeric,omitempty"`
	Amount          outAmount       `xml:"cbc:Amount"`
	BaseAmount      *outAmount      `xml:"cbc:BaseAmount"`
	TaxCategory     *outTaxCategory `xml:"cac:TaxCategory"`
}

type outTaxTotal struct {
	TaxAmount    outAmount        `xml:"cbc:TaxAmount"`
	TaxSubtotals []outTaxSubtotal `xml:"cac:TaxSubtotal"`
}

type outTaxSubtotal struct {
	TaxableAmount outAmount      `xml:"cbc:TaxableAmount"`
	TaxAmount     outAmount      `xml:"cbc:TaxAmount"`
	TaxCategory   outTaxCategory `xml:"cac:TaxCategory"`
}

type outMonetaryTotal struct {
	LineExtension  outAmount  `xml:"cbc:LineExtensionAmount"`
	TaxExclusive   outAmount  `xml:"cbc:TaxExclusiveAmount"`
	TaxInclusive   outAmount  `xml:"cbc:TaxInclusiveAmount"`
	AllowanceTotal *outAmount `xml:"cbc:AllowanceTotalAmount"`
	ChargeTotal    *outAmount `xml:"cbc:ChargeTotalAmount"`
	Prepaid        *outAmount `xml:"cbc:PrepaidAmount"`
	Payable        outAmount  `xml:"cbc:PayableAmount"`
}

type outLine struct {
	XMLName       xml.Name
	ID            string         `xml:"cbc:ID"`
	Quantity      outQuantity    `xml:"cbc:InvoicedQuantity"`
	LineExtension outAmount      `xml:"cbc:LineExtensionAmount"`
	Adjustments   []outAllowance `xml:"cac:AllowanceCharge"`
	Item          outItem        `xml:"cac:Item"`
	Price         outAmount      `xml:"cac:Price>cbc:PriceAmount"`
}

type outItem struct {
	Description string         `xml:"cbc:Description,omitempty"`
	Name        string         `xml:"cbc:Name"`
	TaxCategory outTaxCategory `xml:"cac:ClassifiedTaxCategory"`
}

// Encode renders a computed invoice as a UBL Invoice, or a CreditNote for
// credit note type codes. Only public accessors of the invoice are read.
func Encode(inv *model.Invoice) ([]byte, error) {
	totals := inv.Totals()
	if totals == nil {
		return nil, ErrTotalsNotComputed
	}

	root, ns, lineName, qtyName, typeName := "Invoice", nsInvoice, "cac:InvoiceLine", "cbc:InvoicedQuantity", "cbc:InvoiceTypeCode"
	if inv.TypeCode().IsCreditNote() {
		root, ns, lineName, qtyName, typeName = "CreditNote", nsCreditNote, "cac:CreditNoteLine", "cbc:CreditedQuantity", "cbc:CreditNoteTypeCode"
	}
	cur := string(inv.Currency())
	amount := func(d decimal.Decimal) outAmount {
		return outAmount{Value: money.Format(d), CurrencyID: cur}
	}
	optAmount := func(d decimal.Decimal) *outAmount {
		if d.IsZero() {
			return nil
		}
		a := amount(d)
		return &a
	}

	doc := outDocument{
		XMLName:         xml.Name{Local: root},
		Xmlns:           ns,
		Cac:             nsCac,
		Cbc:             nsCbc,
		CustomizationID: peppolCustomization,
		ProfileID:       peppolProfile,
		ID:              inv.ID(),
		IssueDate:       inv.IssueDate().String(),
		DueDate:         inv.DueDate().String(),
		TypeCode:        outNamed{XMLName: xml.Name{Local: typeName}, Value: string(inv.TypeCode())},
		Note:            inv.Note(),
		Currency:        cur,
	}

	refs := inv.References()
	doc.BuyerReference = refs.Buyer
	if p := inv.Period(); p != nil {
		doc.InvoicePeriod = &outPeriod{StartDate: p.Start.String(), EndDate: p.End.String()}
	}
	if refs.Order != "" {
		doc.OrderReference = &outID{ID: refs.Order}
	}
	if refs.PrecedingInvoice != nil {
		doc.Billing = &outBilling{ID: refs.PrecedingInvoice.ID, IssueDate: refs.PrecedingInvoice.IssueDate.String()}
	}
	if refs.Contract != "" {
		doc.Contract = &outID{ID: refs.Contract}
	}
	if refs.Project != "" {
		doc.Project = &outID{ID: refs.Project}
	}
	for _, a := range inv.Attachments() {
		doc.Additional = append(doc.Additional, encodeAttachment(a))
	}

	if s := inv.Seller(); s != nil {
		doc.Supplier = encodeParty(s)
	}
	if b := inv.Buyer(); b != nil {
		doc.Customer = encodeParty(b)
	}
	if d := inv.DeliveryDate(); !d.IsZero() {
		doc.Delivery = &outDelivery{Date: d.String()}
	}
	if p := inv.Payment(); p != nil {
		doc.PaymentMeans = &outPaymentMeans{
			Code:            string(p.MeansCode),
			InstructionNote: p.RemittanceInfo,
			PaymentID:       string(p.Reference),
		}
		if p.IBAN != "" {
			doc.PaymentMeans.Account = &outAccount{ID: string(p.IBAN), Name: p.AccountName, BranchID: string(p.BIC)}
		}
		if p.Terms != "" {
			doc.PaymentTerms = &outNote{Note: p.Terms}
		}
	}

	for _, a := range inv.Adjustments() {
		out := encodeAdjustment(a, amount)
		out.TaxCategory = &outTaxCategory{ID: string(a.TaxCategory()), Percent: a.TaxRate().String(), TaxScheme: "VAT"}
		doc.Adjustments = append(doc.Adjustments, out)
	}

	doc.TaxTotal.TaxAmount = amount(totals.TaxTotal)
	for _, e := range totals.Breakdown {
		doc.TaxTotal.TaxSubtotals = append(doc.TaxTotal.TaxSubtotals, outTaxSubtotal{
			TaxableAmount: amount(e.TaxableAmount),
			TaxAmount:     amount(e.TaxAmount),
			TaxCategory: outTaxCategory{
				ID:                  string(e.Category),
				Percent:             e.Rate.String(),
				ExemptionReasonCode: string(e.ExemptionReasonCode),
				ExemptionReason:     e.ExemptionReason,
				TaxScheme:           "VAT",
			},
		})
	}

	doc.MonetaryTotal = outMonetaryTotal{
		LineExtension:  amount(totals.LineExtension),
		TaxExclusive:   amount(totals.TaxExclusive),
		TaxInclusive:   amount(totals.TaxInclusive),
		AllowanceTotal: optAmount(totals.AllowanceTotal),
		ChargeTotal:    optAmount(totals.ChargeTotal),
		Prepaid:        optAmount(totals.Prepaid),
		Payable:        amount(totals.Payable),
	}

	for _, l := range inv.Lines() {
		out := outLine{
			XMLName:       xml.Name{Local: lineName},
			ID:            l.ID(),
			Quantity:      outQuantity{XMLName: xml.Name{Local: qtyName}, Value: l.Quantity().String(), UnitCode: string(l.Unit())},
			LineExtension: amount(l.NetAmount()),
			Item: outItem{
				Description: l.Description(),
				Name:        l.Name(),
				TaxCategory: outTaxCategory{
					ID:                  string(l.TaxCategory()),
					Percent:             l.TaxRate().String(),
					ExemptionReasonCode: string(l.ExemptionReasonCode()),
					ExemptionReason:     l.ExemptionReason(),
					TaxScheme:           "VAT",
				},
			},
			Price: outAmount{Value: l.UnitPrice().String(), CurrencyID: cur},
		}
		for _, a := range l.Adjustments() {
			out.Adjustments = append(out.Adjustments, encodeAdjustment(a, amount))
		}
		doc.Lines = append(doc.Lines, out)
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, model.NewParseError(formatName, "xml", "failed to encode document", err)
	}
	return append([]byte(xml.Header), body...), nil
}

func encodeAdjustment(a *model.Adjustment, amount func(decimal.Decimal) outAmount) outAllowance {
	out := outAllowance{
		ChargeIndicator: a.IsCharge(),
		ReasonCode:      a.ReasonCode(),
		Reason:          a.Reason(),
		Amount:          amount(a.Amount()),
	}
	if a.Percentage().Valid {
		out.Percentage = a.Percentage().Decimal.String()
	}
	if a.BaseAmount().Valid {
		base := amount(a.BaseAmount().Decimal)
		out.BaseAmount = &base
	}
	return out
}

func encodeParty(p *model.Party) outParty {
	out := outParty{
		Name: p.TradingName,
		Address: outAddress{
			StreetName:       p.Address.Street,
			AdditionalStreet: p.Address.Additional,
			CityName:         p.Address.City,
			PostalZone:       p.Address.PostalZone,
			CountrySubentity: p.Address.Subdivision,
			Country:          string(p.Address.Country),
		},
		LegalEntity: outLegalEntity{RegistrationName: p.Name, CompanyID: p.RegistrationID},
	}
	if p.EndpointID != "" {
		out.EndpointID = &outEndpoint{Value: p.EndpointID, SchemeID: p.EndpointScheme}
	}
	if p.VATID != "" {
		out.TaxScheme = &outPartyTaxScheme{CompanyID: string(p.VATID), TaxScheme: "VAT"}
	}
	if p.Contact != (model.Contact{}) {
		out.Contact = &outContact{Name: p.Contact.Name, Telephone: p.Contact.Phone, Email: p.Contact.Email}
	}
	return out
}

func encodeAttachment(a model.Attachment) outDocRef {
	out := outDocRef{ID: a.ID, Description: a.Description}
	if len(a.Data) > 0 || a.URI != "" {
		out.Attachment = &outAttachment{URI: a.URI}
		if len(a.Data) > 0 {
			out.Attachment.Embedded = &outEmbedded{
				Value:    base64.StdEncoding.EncodeToString(a.Data),
				MimeCode: a.MimeCode,
				Filename: a.Filename,
			}
		}
	}
	return out
}
