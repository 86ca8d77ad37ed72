package validation

import (
	"github.com/rezonia/invoice-engine/internal/model"
)

// PeppolRules returns the Peppol BIS Billing 3.0 rules on top of the core set
func PeppolRules() []Rule {
	return []Rule{
		buyerReferenceRule,
		sellerTaxIdentifierRule,
		endpointRule,
	}
}

func buyerReferenceRule(inv *model.Invoice) []*model.ValidationError {
	refs := inv.References()
	if refs.Buyer == "" && refs.Order == "" {
		return []*model.ValidationError{violation("buyer_reference", nil, "peppol.buyer_reference.required",
			"buyer reference or order reference is required")}
	}
	return nil
}

func sellerTaxIdentifierRule(inv *model.Invoice) []*model.ValidationError {
	seller := inv.Seller()
	if seller == nil || seller.VATID != "" {
		return nil
	}
	for _, l := range inv.Lines() {
		if l.TaxCategory() == model.TaxCategoryStandard {
			return []*model.ValidationError{violation("seller.vat_id", nil, "peppol.seller.vat_id.required",
				"seller VAT identifier is required when standard rated lines are invoiced")}
		}
	}
	return nil
}

func endpointRule(inv *model.Invoice) []*model.ValidationError {
	var errs []*model.ValidationError
	if s := inv.Seller(); s != nil && s.EndpointID == "" {
		errs = append(errs, violation("seller.endpoint_id", nil, "peppol.endpoint.required", "seller electronic address is required"))
	}
	if b := inv.Buyer(); b != nil && b.EndpointID == "" {
		errs = append(errs, violation("buyer.endpoint_id", nil, "peppol.endpoint.required", "buyer electronic address is required"))
	}
	return errs
}
