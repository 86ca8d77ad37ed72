// Package ubl reads and writes UBL 2.1 Invoice and CreditNote documents.
//
// Decoding produces a Document whose leaves are the raw strings of the
// source, so the importer can decide per field whether a malformed value is
// fatal. Elements are matched by local name; namespace prefixes are ignored.
package ubl

import "encoding/xml"

// Format is the UBL root document type
type Format string

const (
	FormatInvoice    Format = "Invoice"
	FormatCreditNote Format = "CreditNote"
)

// Document is a decoded UBL document with every leaf kept as text
type Document struct {
	XMLName xml.Name
	Format  Format `xml:"-"`

	CustomizationID    string `xml:"CustomizationID"`
	ProfileID          string `xml:"ProfileID"`
	ID                 string `xml:"ID"`
	IssueDate          string `xml:"IssueDate"`
	DueDate            string `xml:"DueDate"`
	InvoiceTypeCode    string `xml:"InvoiceTypeCode"`
	CreditNoteTypeCode string `xml:"CreditNoteTypeCode"`
	Note               string `xml:"Note"`
	CurrencyCode       string `xml:"DocumentCurrencyCode"`
	BuyerReference     string `xml:"BuyerReference"`

	InvoicePeriod       *Period             `xml:"InvoicePeriod"`
	OrderReference      string              `xml:"OrderReference>ID"`
	BillingReference    *DocumentReference  `xml:"BillingReference>InvoiceDocumentReference"`
	ContractReference   string              `xml:"ContractDocumentReference>ID"`
	AdditionalDocuments []DocumentReference `xml:"AdditionalDocumentReference"`
	ProjectReference    string              `xml:"ProjectReference>ID"`

	Supplier Party `xml:"AccountingSupplierParty>Party"`
	Customer Party `xml:"AccountingCustomerParty>Party"`

	DeliveryDate     string            `xml:"Delivery>ActualDeliveryDate"`
	PaymentMeans     []PaymentMeans    `xml:"PaymentMeans"`
	PaymentTerms     string            `xml:"PaymentTerms>Note"`
	AllowanceCharges []AllowanceCharge `xml:"AllowanceCharge"`
	TaxTotals        []TaxTotal        `xml:"TaxTotal"`
	MonetaryTotal    MonetaryTotal     `xml:"LegalMonetaryTotal"`

	InvoiceLines    []Line `xml:"InvoiceLine"`
	CreditNoteLines []Line `xml:"CreditNoteLine"`
}

// TypeCode returns the document type code of either root
func (d *Document) TypeCode() string {
	if d.CreditNoteTypeCode != "" {
		return d.CreditNoteTypeCode
	}
	if d.InvoiceTypeCode == "" && d.Format == FormatCreditNote {
		return "381"
	}
	return d.InvoiceTypeCode
}

// Lines returns the invoice or credit note lines
func (d *Document) Lines() []Line {
	if len(d.CreditNoteLines) > 0 {
		return d.CreditNoteLines
	}
	return d.InvoiceLines
}

// DeclaredTaxTotal returns the tax total in the document currency.
// A second TaxTotal in the tax currency is ignored.
func (d *Document) DeclaredTaxTotal() (TaxTotal, bool) {
	for _, t := range d.TaxTotals {
		if t.TaxAmount.CurrencyID == "" || t.TaxAmount.CurrencyID == d.CurrencyCode {
			return t, true
		}
	}
	return TaxTotal{}, false
}

// Amount is a monetary amount with its currency attribute
type Amount struct {
	Value      string `xml:",chardata"`
	CurrencyID string `xml:"currencyID,attr"`
}

// Quantity is a quantity with its unit of measure attribute
type Quantity struct {
	Value    string `xml:",chardata"`
	UnitCode string `xml:"unitCode,attr"`
}

// Identifier is an identifier with its scheme attribute
type Identifier struct {
	Value    string `xml:",chardata"`
	SchemeID string `xml:"schemeID,attr"`
}

type Period struct {
	StartDate string `xml:"StartDate"`
	EndDate   string `xml:"EndDate"`
}

type DocumentReference struct {
	ID          string          `xml:"ID"`
	IssueDate   string          `xml:"IssueDate"`
	Description string          `xml:"DocumentDescription"`
	Embedded    *EmbeddedObject `xml:"Attachment>EmbeddedDocumentBinaryObject"`
	URI         string          `xml:"Attachment>ExternalReference>URI"`
}

// EmbeddedObject is a base64 encoded attachment
type EmbeddedObject struct {
	Value    string `xml:",chardata"`
	MimeCode string `xml:"mimeCode,attr"`
	Filename string `xml:"filename,attr"`
}

type Party struct {
	EndpointID     Identifier       `xml:"EndpointID"`
	Identification string           `xml:"PartyIdentification>ID"`
	Name           string           `xml:"PartyName>Name"`
	Address        Address          `xml:"PostalAddress"`
	TaxSchemes     []PartyTaxScheme `xml:"PartyTaxScheme"`
	LegalEntity    LegalEntity      `xml:"PartyLegalEntity"`
	Contact        Contact          `xml:"Contact"`
}

// VATID returns the company id registered under the VAT scheme
func (p *Party) VATID() string {
	for _, s := range p.TaxSchemes {
		if s.TaxScheme == "" || s.TaxScheme == "VAT" {
			return s.CompanyID
		}
	}
	return ""
}

type Address struct {
	StreetName           string `xml:"StreetName"`
	AdditionalStreetName string `xml:"AdditionalStreetName"`
	CityName             string `xml:"CityName"`
	PostalZone           string `xml:"PostalZone"`
	CountrySubentity     string `xml:"CountrySubentity"`
	Country              string `xml:"Country>IdentificationCode"`
}

type PartyTaxScheme struct {
	CompanyID string `xml:"CompanyID"`
	TaxScheme string `xml:"TaxScheme>ID"`
}

type LegalEntity struct {
	RegistrationName string `xml:"RegistrationName"`
	CompanyID        string `xml:"CompanyID"`
}

type Contact struct {
	Name      string `xml:"Name"`
	Telephone string `xml:"Telephone"`
	Email     string `xml:"ElectronicMail"`
}

type PaymentMeans struct {
	Code            string `xml:"PaymentMeansCode"`
	InstructionNote string `xml:"InstructionNote"`
	PaymentID       string `xml:"PaymentID"`
	AccountID       string `xml:"PayeeFinancialAccount>ID"`
	AccountName     string `xml:"PayeeFinancialAccount>Name"`
	BranchID        string `xml:"PayeeFinancialAccount>FinancialInstitutionBranch>ID"`
}

type AllowanceCharge struct {
	ChargeIndicator string      `xml:"ChargeIndicator"`
	ReasonCode      string      `xml:"AllowanceChargeReasonCode"`
	Reason          string      `xml:"AllowanceChargeReason"`
	Percentage      string      `xml:"MultiplierFactorNumeric"`
	Amount          Amount      `xml:"Amount"`
	BaseAmount      Amount      `xml:"BaseAmount"`
	TaxCategory     TaxCategory `xml:"TaxCategory"`
}

type TaxCategory struct {
	ID                  string `xml:"ID"`
	Percent             string `xml:"Percent"`
	ExemptionReasonCode string `xml:"TaxExemptionReasonCode"`
	ExemptionReason     string `xml:"TaxExemptionReason"`
	TaxScheme           string `xml:"TaxScheme>ID"`
}

type TaxTotal struct {
	TaxAmount    Amount        `xml:"TaxAmount"`
	TaxSubtotals []TaxSubtotal `xml:"TaxSubtotal"`
}

type TaxSubtotal struct {
	TaxableAmount Amount      `xml:"TaxableAmount"`
	TaxAmount     Amount      `xml:"TaxAmount"`
	TaxCategory   TaxCategory `xml:"TaxCategory"`
}

type MonetaryTotal struct {
	LineExtensionAmount  Amount `xml:"LineExtensionAmount"`
	TaxExclusiveAmount   Amount `xml:"TaxExclusiveAmount"`
	TaxInclusiveAmount   Amount `xml:"TaxInclusiveAmount"`
	AllowanceTotalAmount Amount `xml:"AllowanceTotalAmount"`
	ChargeTotalAmount    Amount `xml:"ChargeTotalAmount"`
	PrepaidAmount        Amount `xml:"PrepaidAmount"`
	PayableAmount        Amount `xml:"PayableAmount"`
}

type Line struct {
	ID                  string            `xml:"ID"`
	Note                string            `xml:"Note"`
	InvoicedQuantity    Quantity          `xml:"InvoicedQuantity"`
	CreditedQuantity    Quantity          `xml:"CreditedQuantity"`
	LineExtensionAmount Amount            `xml:"LineExtensionAmount"`
	AllowanceCharges    []AllowanceCharge `xml:"AllowanceCharge"`
	Item                Item              `xml:"Item"`
	PriceAmount         Amount            `xml:"Price>PriceAmount"`
}

// Quantity returns the invoiced or credited quantity
func (l *Line) Quantity() Quantity {
	if l.CreditedQuantity.Value != "" {
		return l.CreditedQuantity
	}
	return l.InvoicedQuantity
}

type Item struct {
	Description   string      `xml:"Description"`
	Name          string      `xml:"Name"`
	SellersItemID string      `xml:"SellersItemIdentification>ID"`
	TaxCategory   TaxCategory `xml:"ClassifiedTaxCategory"`
}
