package model

// Payment holds the payment instructions of an invoice
type Payment struct {
	MeansCode      PaymentMeansCode    `json:"means_code"`
	IBAN           IBAN                `json:"iban,omitempty"`
	BIC            BIC                 `json:"bic,omitempty"`
	AccountName    string              `json:"account_name,omitempty"`
	Reference      StructuredReference `json:"reference,omitempty"`
	RemittanceInfo string              `json:"remittance_info,omitempty"`
	Terms          string              `json:"terms,omitempty"`
}

// Validate checks the payment instructions independently of the invoice
func (p *Payment) Validate() []*ValidationError {
	var errs []*ValidationError

	if !p.MeansCode.Valid() {
		errs = append(errs, NewValidationError("means_code", string(p.MeansCode), "code.payment_means", "unknown payment means code"))
	}
	if p.MeansCode.IsCreditTransfer() && p.IBAN == "" {
		errs = append(errs, NewValidationError("iban", nil, "payment.iban.required", "credit transfer requires a payee account"))
	}
	if p.IBAN != "" {
		if err := p.IBAN.Validate(); err != nil {
			errs = append(errs, asViolation(err))
		}
	}
	if p.BIC != "" {
		if err := p.BIC.Validate(); err != nil {
			errs = append(errs, asViolation(err))
		}
	}
	if p.Reference != "" {
		if err := p.Reference.Validate(); err != nil {
			errs = append(errs, asViolation(err))
		}
	}

	return errs
}

// Attachment is a supporting document embedded in or referenced by the invoice
type Attachment struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Filename    string `json:"filename,omitempty"`
	MimeCode    string `json:"mime_code,omitempty"`
	Data        []byte `json:"-"`
	URI         string `json:"uri,omitempty"`
}

var attachmentMimeCodes = map[string]bool{
	"application/pdf": true, "image/png": true, "image/jpeg": true, "text/csv": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/vnd.oasis.opendocument.spreadsheet":                    true,
}

// Validate checks the attachment
func (a *Attachment) Validate() []*ValidationError {
	var errs []*ValidationError
	if a.ID == "" {
		errs = append(errs, NewValidationError("id", nil, "attachment.id.required", "attachment identifier is required"))
	}
	if len(a.Data) > 0 {
		if !attachmentMimeCodes[a.MimeCode] {
			errs = append(errs, NewValidationError("mime_code", a.MimeCode, "attachment.mime_code", "unsupported attachment mime code"))
		}
		if a.Filename == "" {
			errs = append(errs, NewValidationError("filename", nil, "attachment.filename.required", "embedded attachment requires a filename"))
		}
	}
	return errs
}
