// Package validation checks a constructed invoice against the business rules
// of the e-invoicing standard. Violations are returned as data.
package validation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rezonia/invoice-engine/internal/model"
)

// Rule inspects an invoice and reports its violations. Rules must not
// mutate the invoice.
type Rule func(inv *model.Invoice) []*model.ValidationError

// Validator runs the core rule set followed by caller supplied rules
type Validator struct {
	rules []Rule
}

// New creates a validator with the core rules and any extra rules appended
func New(extra ...Rule) *Validator {
	rules := []Rule{
		headerRule,
		partiesRule,
		linesRule,
		adjustmentsRule,
		paymentRule,
		attachmentsRule,
		totalsRule,
	}
	return &Validator{rules: append(rules, extra...)}
}

// Validate runs every rule and returns all violations in rule order.
// An empty result means the invoice conforms.
func (v *Validator) Validate(inv *model.Invoice) []*model.ValidationError {
	if inv == nil {
		return []*model.ValidationError{violation("", nil, "invoice.required", "invoice is required")}
	}

	var errs []*model.ValidationError
	for _, rule := range v.rules {
		errs = append(errs, rule(inv)...)
	}
	return errs
}

// Validate runs the core rules only
func Validate(inv *model.Invoice) []*model.ValidationError {
	return New().Validate(inv)
}

func violation(field string, value interface{}, rule, message string) *model.ValidationError {
	return model.NewValidationError(field, value, rule, message)
}

func headerRule(inv *model.Invoice) []*model.ValidationError {
	var errs []*model.ValidationError

	if strings.TrimSpace(inv.ID()) == "" {
		errs = append(errs, violation("id", nil, "invoice.number.required", "invoice number is required"))
	}
	if inv.IssueDate().IsZero() {
		errs = append(errs, violation("issue_date", nil, "invoice.issue_date.required", "issue date is required"))
	}
	if !inv.TypeCode().Valid() {
		errs = append(errs, violation("type_code", string(inv.TypeCode()), "invoice.type_code.valid", "unknown invoice type code"))
	}
	if !inv.Currency().Valid() {
		errs = append(errs, violation("currency", string(inv.Currency()), "invoice.currency.valid", "unknown currency code"))
	}
	if !inv.DueDate().IsZero() && inv.DueDate().Before(inv.IssueDate()) {
		errs = append(errs, violation("due_date", inv.DueDate().String(), "invoice.due_date.after_issue", "due date must not be before the issue date"))
	}
	if inv.TypeCode().IsCreditNote() && inv.References().PrecedingInvoice == nil {
		errs = append(errs, violation("preceding_invoice", nil, "invoice.preceding_invoice.required", "credit note must reference the invoice it corrects"))
	}

	return errs
}

func partiesRule(inv *model.Invoice) []*model.ValidationError {
	var errs []*model.ValidationError

	if seller := inv.Seller(); seller == nil {
		errs = append(errs, violation("seller", nil, "invoice.seller.required", "seller is required"))
	} else {
		errs = append(errs, model.Namespace("seller", seller.Validate())...)
	}
	if buyer := inv.Buyer(); buyer == nil {
		errs = append(errs, violation("buyer", nil, "invoice.buyer.required", "buyer is required"))
	} else {
		errs = append(errs, model.Namespace("buyer", buyer.Validate())...)
	}

	return errs
}

func linesRule(inv *model.Invoice) []*model.ValidationError {
	lines := inv.Lines()
	if len(lines) == 0 {
		return []*model.ValidationError{violation("lines", nil, "invoice.lines.required", "invoice must have at least one line")}
	}

	var errs []*model.ValidationError
	seen := make(map[string]bool, len(lines))
	for i, l := range lines {
		prefix := fmt.Sprintf("line[%d]", i)
		if seen[l.ID()] {
			errs = append(errs, violation(prefix+".id", l.ID(), "line.id.unique", "line identifier is used more than once"))
		}
		seen[l.ID()] = true
		errs = append(errs, model.Namespace(prefix, l.Validate())...)
	}
	return errs
}

func adjustmentsRule(inv *model.Invoice) []*model.ValidationError {
	var errs []*model.ValidationError
	for i, a := range inv.Adjustments() {
		errs = append(errs, model.Namespace(fmt.Sprintf("allowance_charge[%d]", i), a.Validate())...)
	}
	return errs
}

func paymentRule(inv *model.Invoice) []*model.ValidationError {
	if p := inv.Payment(); p != nil {
		return model.Namespace("payment", p.Validate())
	}
	return nil
}

func attachmentsRule(inv *model.Invoice) []*model.ValidationError {
	var errs []*model.ValidationError
	for i, a := range inv.Attachments() {
		errs = append(errs, model.Namespace(fmt.Sprintf("attachment[%d]", i), a.Validate())...)
	}
	return errs
}

func totalsRule(inv *model.Invoice) []*model.ValidationError {
	totals := inv.Totals()
	if totals == nil {
		return []*model.ValidationError{violation("totals", nil, "totals.not_computed", "totals have not been computed")}
	}

	var errs []*model.ValidationError
	if totals.TaxExclusive.IsZero() && len(inv.Lines()) > 0 {
		errs = append(errs, violation("totals.tax_exclusive_amount", "0", "totals.tax_exclusive.zero",
			"tax exclusive total is zero for an invoice with lines"))
	}
	if totals.Payable.IsNegative() {
		errs = append(errs, violation("totals.payable_amount", totals.Payable.String(), "totals.payable.non_negative",
			"prepaid amount exceeds the tax inclusive total"))
	}
	taxable := decimal.Zero
	for _, e := range totals.Breakdown {
		taxable = taxable.Add(e.TaxableAmount)
		errs = append(errs, model.Namespace("tax_breakdown["+e.Key()+"]", e.Validate())...)
	}
	if !taxable.Equal(totals.TaxExclusive) {
		errs = append(errs, violation("totals.tax_breakdown", taxable.String(), "totals.breakdown.taxable_sum",
			"sum of breakdown taxable amounts must equal the tax exclusive total ("+totals.TaxExclusive.String()+")"))
	}
	return errs
}

// TotalsConsistency reports declared totals that drift from the computed
// ones by more than the tolerance. Invoices without a declared snapshot pass.
func TotalsConsistency(tolerance decimal.Decimal) Rule {
	return func(inv *model.Invoice) []*model.ValidationError {
		var errs []*model.ValidationError
		for _, d := range model.CompareTotals(inv.ImportedTotals(), inv.Totals(), tolerance) {
			errs = append(errs, violation("totals."+d.Field, d.Declared.String(), "totals.declared_mismatch", d.String()))
		}
		return errs
	}
}
