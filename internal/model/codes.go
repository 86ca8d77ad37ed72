package model

import "strings"

// TaxCategory is the UNCL5305 VAT category code
type TaxCategory string

const (
	TaxCategoryStandard       TaxCategory = "S"
	TaxCategoryZeroRated      TaxCategory = "Z"
	TaxCategoryExempt         TaxCategory = "E"
	TaxCategoryReverseCharge  TaxCategory = "AE"
	TaxCategoryIntraCommunity TaxCategory = "K"
	TaxCategoryExport         TaxCategory = "G"
	TaxCategoryNotSubject     TaxCategory = "O"
	TaxCategoryCanaryIslands  TaxCategory = "L"
	TaxCategoryCeutaMelilla   TaxCategory = "M"
)

var taxCategoryNames = map[TaxCategory]string{
	TaxCategoryStandard:       "Standard rated",
	TaxCategoryZeroRated:      "Zero rated goods",
	TaxCategoryExempt:         "Exempt from tax",
	TaxCategoryReverseCharge:  "VAT reverse charge",
	TaxCategoryIntraCommunity: "Intra-community supply",
	TaxCategoryExport:         "Free export item, VAT not charged",
	TaxCategoryNotSubject:     "Services outside scope of tax",
	TaxCategoryCanaryIslands:  "Canary Islands general indirect tax",
	TaxCategoryCeutaMelilla:   "Tax for production, services and importation in Ceuta and Melilla",
}

// Valid reports membership in the category vocabulary
func (c TaxCategory) Valid() bool {
	_, ok := taxCategoryNames[c]
	return ok
}

// Name returns the human readable category name
func (c TaxCategory) Name() string {
	return taxCategoryNames[c]
}

// RequiresZeroRate reports whether the category only allows a 0% rate
func (c TaxCategory) RequiresZeroRate() bool {
	switch c {
	case TaxCategoryZeroRated, TaxCategoryExempt, TaxCategoryReverseCharge,
		TaxCategoryIntraCommunity, TaxCategoryExport, TaxCategoryNotSubject:
		return true
	}
	return false
}

// RequiresExemptionReason reports whether a breakdown in this category must
// state why no tax is charged
func (c TaxCategory) RequiresExemptionReason() bool {
	switch c {
	case TaxCategoryExempt, TaxCategoryReverseCharge, TaxCategoryIntraCommunity,
		TaxCategoryExport, TaxCategoryNotSubject:
		return true
	}
	return false
}

// ParseTaxCategory parses a category code
func ParseTaxCategory(s string) (TaxCategory, error) {
	c := TaxCategory(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return c, NewValidationError("tax_category", s, "code.tax_category", "unknown tax category")
	}
	return c, nil
}

// Currency is an ISO 4217 currency code
type Currency string

// minor units per supported currency
var currencies = map[Currency]int32{
	"EUR": 2, "USD": 2, "GBP": 2, "CHF": 2, "SEK": 2, "NOK": 2, "DKK": 2,
	"PLN": 2, "CZK": 2, "HUF": 2, "RON": 2, "BGN": 2, "ISK": 0, "CAD": 2,
	"AUD": 2, "NZD": 2, "JPY": 0, "CNY": 2, "SGD": 2, "HKD": 2, "VND": 0,
	"INR": 2, "ZAR": 2, "TRY": 2, "AED": 2, "KWD": 3, "BHD": 3, "MXN": 2,
	"BRL": 2,
}

// Valid reports membership in the currency vocabulary
func (c Currency) Valid() bool {
	_, ok := currencies[c]
	return ok
}

// MinorUnits returns the number of decimals of the currency (2 when unknown)
func (c Currency) MinorUnits() int32 {
	if u, ok := currencies[c]; ok {
		return u
	}
	return 2
}

// ParseCurrency parses a currency code
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return c, NewValidationError("currency", s, "code.currency", "unknown currency code")
	}
	return c, nil
}

// UnitCode is a UN/ECE Recommendation 20/21 unit of measure
type UnitCode string

const (
	UnitPiece UnitCode = "C62"
	UnitEach  UnitCode = "EA"
	UnitHour  UnitCode = "HUR"
	UnitDay   UnitCode = "DAY"
	UnitMonth UnitCode = "MON"
	UnitKilo  UnitCode = "KGM"
)

var unitCodes = map[UnitCode]bool{
	"C62": true, "H87": true, "EA": true, "XPP": true, "ZZ": true, "LS": true,
	"SET": true, "PR": true, "HUR": true, "MIN": true, "SEC": true, "DAY": true,
	"WEE": true, "MON": true, "ANN": true, "KGM": true, "GRM": true, "TNE": true,
	"MTR": true, "CMT": true, "MMT": true, "KMT": true, "MTK": true, "MTQ": true,
	"LTR": true, "MLT": true, "KWH": true, "KWT": true, "E48": true, "XBX": true,
	"XPK": true, "XPA": true,
}

// Valid reports membership in the unit vocabulary
func (u UnitCode) Valid() bool {
	return unitCodes[u]
}

// ParseUnitCode parses a unit of measure code
func ParseUnitCode(s string) (UnitCode, error) {
	u := UnitCode(strings.ToUpper(strings.TrimSpace(s)))
	if !u.Valid() {
		return UnitCode(s), NewValidationError("unit_code", s, "code.unit", "unknown unit of measure code")
	}
	return u, nil
}

// InvoiceTypeCode is the UNCL1001 document type
type InvoiceTypeCode string

const (
	InvoiceTypeCommercial       InvoiceTypeCode = "380"
	InvoiceTypeCreditNote       InvoiceTypeCode = "381"
	InvoiceTypeDebitNote        InvoiceTypeCode = "383"
	InvoiceTypeCorrected        InvoiceTypeCode = "384"
	InvoiceTypePrepayment       InvoiceTypeCode = "386"
	InvoiceTypeSelfBilled       InvoiceTypeCode = "389"
	InvoiceTypeSelfBilledCredit InvoiceTypeCode = "261"
	InvoiceTypeFactored         InvoiceTypeCode = "393"
	InvoiceTypeCommercialB      InvoiceTypeCode = "751"
)

var invoiceTypeCodes = map[InvoiceTypeCode]bool{
	InvoiceTypeCommercial:       true,
	InvoiceTypeCreditNote:       true,
	InvoiceTypeDebitNote:        true,
	InvoiceTypeCorrected:        true,
	InvoiceTypePrepayment:       true,
	InvoiceTypeSelfBilled:       true,
	InvoiceTypeSelfBilledCredit: true,
	InvoiceTypeFactored:         true,
	InvoiceTypeCommercialB:      true,
}

// Valid reports membership in the invoice type vocabulary
func (t InvoiceTypeCode) Valid() bool {
	return invoiceTypeCodes[t]
}

// IsCreditNote reports whether the type is a credit document
func (t InvoiceTypeCode) IsCreditNote() bool {
	return t == InvoiceTypeCreditNote || t == InvoiceTypeSelfBilledCredit
}

// ParseInvoiceTypeCode parses an invoice type code
func ParseInvoiceTypeCode(s string) (InvoiceTypeCode, error) {
	t := InvoiceTypeCode(strings.TrimSpace(s))
	if !t.Valid() {
		return t, NewValidationError("type_code", s, "code.invoice_type", "unknown invoice type code")
	}
	return t, nil
}

// PaymentMeansCode is the UNCL4461 payment means code
type PaymentMeansCode string

const (
	PaymentMeansUnspecified    PaymentMeansCode = "1"
	PaymentMeansCash           PaymentMeansCode = "10"
	PaymentMeansCreditTransfer PaymentMeansCode = "30"
	PaymentMeansDebitTransfer  PaymentMeansCode = "31"
	PaymentMeansBankAccount    PaymentMeansCode = "42"
	PaymentMeansCard           PaymentMeansCode = "48"
	PaymentMeansDirectDebit    PaymentMeansCode = "49"
	PaymentMeansSEPATransfer   PaymentMeansCode = "58"
	PaymentMeansSEPADebit      PaymentMeansCode = "59"
	PaymentMeansOnline         PaymentMeansCode = "68"
	PaymentMeansClearing       PaymentMeansCode = "97"
	PaymentMeansMutuallyAgreed PaymentMeansCode = "ZZZ"
)

var paymentMeansCodes = map[PaymentMeansCode]bool{
	"1": true, "10": true, "20": true, "30": true, "31": true, "42": true,
	"48": true, "49": true, "54": true, "55": true, "57": true, "58": true,
	"59": true, "68": true, "97": true, "ZZZ": true,
}

// Valid reports membership in the payment means vocabulary
func (p PaymentMeansCode) Valid() bool {
	return paymentMeansCodes[p]
}

// IsCreditTransfer reports whether the means require a payee account
func (p PaymentMeansCode) IsCreditTransfer() bool {
	return p == PaymentMeansCreditTransfer || p == PaymentMeansSEPATransfer
}

// ParsePaymentMeansCode parses a payment means code
func ParsePaymentMeansCode(s string) (PaymentMeansCode, error) {
	p := PaymentMeansCode(strings.ToUpper(strings.TrimSpace(s)))
	if !p.Valid() {
		return p, NewValidationError("means_code", s, "code.payment_means", "unknown payment means code")
	}
	return p, nil
}

// ExemptionReasonCode is a VATEX tax exemption reason code
type ExemptionReasonCode string

var exemptionReasons = map[ExemptionReasonCode]string{
	"VATEX-EU-79-C":      "Exempt based on article 79, point c of Council Directive 2006/112/EC",
	"VATEX-EU-132":       "Exempt based on article 132 of Council Directive 2006/112/EC",
	"VATEX-EU-143":       "Exempt based on article 143 of Council Directive 2006/112/EC",
	"VATEX-EU-148":       "Exempt based on article 148 of Council Directive 2006/112/EC",
	"VATEX-EU-151":       "Exempt based on article 151 of Council Directive 2006/112/EC",
	"VATEX-EU-309":       "Exempt based on article 309 of Council Directive 2006/112/EC",
	"VATEX-EU-AE":        "Reverse charge",
	"VATEX-EU-D":         "Intra-Community acquisition from second hand means of transport",
	"VATEX-EU-F":         "Intra-Community acquisition of second hand goods",
	"VATEX-EU-G":         "Export outside the EU",
	"VATEX-EU-I":         "Intra-Community acquisition of works of art",
	"VATEX-EU-IC":        "Intra-Community supply",
	"VATEX-EU-O":         "Not subject to VAT",
	"VATEX-EU-J":         "Intra-Community acquisition of collectors items and antiques",
	"VATEX-FR-FRANCHISE": "France domestic VAT franchise in base",
	"VATEX-FR-CNWVAT":    "France domestic Credit Notes without VAT",
}

// Valid reports membership in the exemption reason vocabulary
func (r ExemptionReasonCode) Valid() bool {
	_, ok := exemptionReasons[r]
	return ok
}

// Text returns the standard wording for the code
func (r ExemptionReasonCode) Text() string {
	return exemptionReasons[r]
}

// ParseExemptionReasonCode parses a VATEX code
func ParseExemptionReasonCode(s string) (ExemptionReasonCode, error) {
	r := ExemptionReasonCode(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return ExemptionReasonCode(s), NewValidationError("exemption_reason_code", s, "code.exemption_reason", "unknown tax exemption reason code")
	}
	return r, nil
}

// DefaultExemptionReason returns the usual VATEX code for a zero-rated category
func DefaultExemptionReason(c TaxCategory) ExemptionReasonCode {
	switch c {
	case TaxCategoryReverseCharge:
		return "VATEX-EU-AE"
	case TaxCategoryIntraCommunity:
		return "VATEX-EU-IC"
	case TaxCategoryExport:
		return "VATEX-EU-G"
	case TaxCategoryNotSubject:
		return "VATEX-EU-O"
	}
	return ""
}
