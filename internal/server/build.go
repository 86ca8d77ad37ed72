package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rezonia/invoice-engine/internal/model"
)

// buildInvoice constructs and computes an invoice from a compute request.
// Construction errors come back as *model.ValidationError with the field
// path of the offending request member.
func buildInvoice(req *ComputeRequest) (*model.Invoice, error) {
	typeCode := model.InvoiceTypeCommercial
	if strings.TrimSpace(req.TypeCode) != "" {
		t, err := model.ParseInvoiceTypeCode(req.TypeCode)
		if err != nil {
			return nil, err
		}
		typeCode = t
	}
	currency, err := model.ParseCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	inv, err := model.NewInvoice(req.ID, req.IssueDate, typeCode, currency)
	if err != nil {
		return nil, err
	}
	if !req.DueDate.IsZero() {
		if err := inv.SetDueDate(req.DueDate); err != nil {
			return nil, err
		}
	}
	inv.SetReferences(req.References)
	inv.SetNote(req.Note)
	if req.Seller != nil {
		inv.SetSeller(*req.Seller)
	}
	if req.Buyer != nil {
		inv.SetBuyer(*req.Buyer)
	}
	if req.Payment != nil {
		inv.SetPayment(*req.Payment)
	}
	if err := inv.SetPrepaidAmount(req.PrepaidAmount); err != nil {
		return nil, err
	}

	for i, lr := range req.Lines {
		line, err := buildLine(lr)
		if err != nil {
			return nil, prefixed(fmt.Sprintf("lines[%d]", i), err)
		}
		for j, ar := range lr.AllowanceCharges {
			adj, err := buildAdjustment(ar, line)
			if err != nil {
				return nil, prefixed(fmt.Sprintf("lines[%d].allowance_charges[%d]", i, j), err)
			}
			line.AddAdjustment(adj)
		}
		inv.AddLine(line)
	}
	for i, ar := range req.AllowanceCharges {
		adj, err := buildAdjustment(ar, nil)
		if err != nil {
			return nil, prefixed(fmt.Sprintf("allowance_charges[%d]", i), err)
		}
		inv.AddAdjustment(adj)
	}

	if req.Imported != nil {
		if err := inv.SetImportedTotals(*req.Imported); err != nil {
			return nil, err
		}
	}
	if err := inv.CalculateTotals(); err != nil {
		return nil, err
	}
	return inv, nil
}

func buildLine(lr LineRequest) (*model.Line, error) {
	unit, err := model.ParseUnitCode(lr.UnitCode)
	if err != nil {
		return nil, err
	}
	category, err := model.ParseTaxCategory(lr.TaxCategory)
	if err != nil {
		return nil, err
	}

	spec := model.LineSpec{
		ID:              lr.ID,
		Name:            lr.Name,
		Description:     lr.Description,
		Quantity:        lr.Quantity,
		Unit:            unit,
		UnitPrice:       lr.UnitPrice,
		TaxCategory:     category,
		TaxRate:         lr.TaxRate,
		ExemptionReason: lr.ExemptionReason,
	}
	if lr.ExemptionReasonCode != "" {
		code, err := model.ParseExemptionReasonCode(lr.ExemptionReasonCode)
		if err != nil {
			return nil, err
		}
		spec.ExemptionReasonCode = code
	}
	return model.NewLine(spec)
}

func buildAdjustment(ar AdjustmentRequest, owner *model.Line) (*model.Adjustment, error) {
	spec := model.AdjustmentSpec{
		Charge:     ar.Charge,
		Amount:     ar.Amount,
		BaseAmount: ar.BaseAmount,
		Percentage: ar.Percentage,
		TaxRate:    ar.TaxRate,
		ReasonCode: ar.ReasonCode,
		Reason:     ar.Reason,
	}
	if owner != nil && ar.TaxCategory == "" {
		spec.TaxCategory, spec.TaxRate = owner.TaxCategory(), owner.TaxRate()
	} else {
		category, err := model.ParseTaxCategory(ar.TaxCategory)
		if err != nil {
			return nil, err
		}
		spec.TaxCategory = category
	}
	return model.NewAdjustment(spec)
}

func prefixed(prefix string, err error) error {
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		return err
	}
	field := prefix
	if ve.Field != "" {
		field += "." + ve.Field
	}
	return model.NewValidationError(field, ve.Value, ve.Rule, ve.Message)
}
