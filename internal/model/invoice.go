package model

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Period is an invoicing or delivery period
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// DocumentReference points to a preceding invoice
type DocumentReference struct {
	ID        string `json:"id"`
	IssueDate Date   `json:"issue_date"`
}

// References groups the optional business references of an invoice
type References struct {
	Buyer            string             `json:"buyer_reference,omitempty"`
	Order            string             `json:"order_reference,omitempty"`
	Contract         string             `json:"contract_reference,omitempty"`
	Project          string             `json:"project_reference,omitempty"`
	PrecedingInvoice *DocumentReference `json:"preceding_invoice,omitempty"`
}

// Invoice is the root aggregate. It is created with its four mandatory
// fields and grown through the additive mutators below. An Invoice is not
// safe for concurrent mutation; callers serialize access per instance.
type Invoice struct {
	id        string
	issueDate Date
	typeCode  InvoiceTypeCode
	currency  Currency

	dueDate      Date
	deliveryDate Date
	period       *Period
	references   References
	note         string

	seller  *Party
	buyer   *Party
	payment *Payment

	lines       []*Line
	adjustments []*Adjustment
	attachments []Attachment
	prepaid     decimal.Decimal

	// Calculated
	totals *Totals

	// Declared by the source document, set once on import
	imported *ImportedTotals
}

// ErrImportedTotalsSet is returned on a second SetImportedTotals call
var ErrImportedTotalsSet = errors.New("imported totals are already set")

// NewInvoice creates an invoice from its mandatory fields
func NewInvoice(id string, issueDate Date, typeCode InvoiceTypeCode, currency Currency) (*Invoice, error) {
	if strings.TrimSpace(id) == "" {
		return nil, NewValidationError("id", nil, "invoice.number.required", "invoice number is required")
	}
	if issueDate.IsZero() {
		return nil, NewValidationError("issue_date", nil, "invoice.issue_date.required", "issue date is required")
	}
	if !typeCode.Valid() {
		return nil, NewValidationError("type_code", string(typeCode), "code.invoice_type", "unknown invoice type code")
	}
	if !currency.Valid() {
		return nil, NewValidationError("currency", string(currency), "code.currency", "unknown currency code")
	}

	return &Invoice{
		id:        id,
		issueDate: issueDate,
		typeCode:  typeCode,
		currency:  currency,
	}, nil
}

// SetDueDate sets the payment due date, which must not precede the issue date
func (inv *Invoice) SetDueDate(d Date) error {
	if !d.IsZero() && d.Before(inv.issueDate) {
		return NewValidationError("due_date", d.String(), "invoice.due_date.after_issue", "due date must not be before the issue date")
	}
	inv.dueDate = d
	return nil
}

func (inv *Invoice) SetDeliveryDate(d Date) { inv.deliveryDate = d }

// SetPeriod sets the invoicing period
func (inv *Invoice) SetPeriod(start, end Date) error {
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return NewValidationError("period", end.String(), "invoice.period.order", "period end must not be before its start")
	}
	inv.period = &Period{Start: start, End: end}
	return nil
}

func (inv *Invoice) SetReferences(r References) { inv.references = r }
func (inv *Invoice) SetNote(note string)        { inv.note = note }
func (inv *Invoice) SetSeller(p Party)          { inv.seller = &p }
func (inv *Invoice) SetBuyer(p Party)           { inv.buyer = &p }
func (inv *Invoice) SetPayment(p Payment)       { inv.payment = &p }

// SetPrepaidAmount records an amount already paid
func (inv *Invoice) SetPrepaidAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return NewValidationError("prepaid_amount", amount.String(), "invoice.prepaid.non_negative", "prepaid amount must not be negative")
	}
	inv.prepaid = amount
	return nil
}

func (inv *Invoice) AddAttachment(a Attachment) { inv.attachments = append(inv.attachments, a) }

// AddLine appends a line. Totals are not recomputed.
func (inv *Invoice) AddLine(l *Line) { inv.lines = append(inv.lines, l) }

// AddAdjustment appends a document level allowance or charge
func (inv *Invoice) AddAdjustment(a *Adjustment) { inv.adjustments = append(inv.adjustments, a) }

// SetImportedTotals stores the totals declared by the source document.
// The snapshot can be written only once.
func (inv *Invoice) SetImportedTotals(t ImportedTotals) error {
	if inv.imported != nil {
		return ErrImportedTotalsSet
	}
	inv.imported = &t
	return nil
}

// CalculateTotals runs the aggregation from scratch and stores the result
func (inv *Invoice) CalculateTotals() error {
	t, err := ComputeTotals(inv.lines, inv.adjustments, inv.prepaid)
	if err != nil {
		var nl *NoLinesError
		if errors.As(err, &nl) {
			nl.InvoiceID = inv.id
		}
		return err
	}
	inv.totals = t
	return nil
}

func (inv *Invoice) ID() string                { return inv.id }
func (inv *Invoice) IssueDate() Date           { return inv.issueDate }
func (inv *Invoice) TypeCode() InvoiceTypeCode { return inv.typeCode }
func (inv *Invoice) Currency() Currency        { return inv.currency }
func (inv *Invoice) DueDate() Date             { return inv.dueDate }
func (inv *Invoice) DeliveryDate() Date        { return inv.deliveryDate }
func (inv *Invoice) Period() *Period           { return inv.period }
func (inv *Invoice) References() References    { return inv.references }
func (inv *Invoice) Note() string              { return inv.note }
func (inv *Invoice) Seller() *Party            { return inv.seller }
func (inv *Invoice) Buyer() *Party             { return inv.buyer }
func (inv *Invoice) Payment() *Payment         { return inv.payment }
func (inv *Invoice) PrepaidAmount() decimal.Decimal {
	return inv.prepaid
}

// Lines returns a copy of the line list
func (inv *Invoice) Lines() []*Line { return append([]*Line(nil), inv.lines...) }

// Adjustments returns a copy of the document level adjustments
func (inv *Invoice) Adjustments() []*Adjustment {
	return append([]*Adjustment(nil), inv.adjustments...)
}

func (inv *Invoice) Attachments() []Attachment {
	return append([]Attachment(nil), inv.attachments...)
}

// Totals returns the last computed totals, nil before CalculateTotals ran
func (inv *Invoice) Totals() *Totals { return inv.totals }

// ImportedTotals returns the declared totals snapshot, nil when not imported
func (inv *Invoice) ImportedTotals() *ImportedTotals { return inv.imported }
