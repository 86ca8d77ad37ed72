package model

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Address is a postal address
type Address struct {
	Street      string      `json:"street,omitempty"`
	Additional  string      `json:"additional,omitempty"`
	City        string      `json:"city,omitempty"`
	PostalZone  string      `json:"postal_zone,omitempty"`
	Subdivision string      `json:"subdivision,omitempty"`
	Country     CountryCode `json:"country"`
}

// Contact is the party contact point
type Contact struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=64"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
}

// Party represents seller or buyer
type Party struct {
	Name           string  `json:"name" validate:"required"`
	TradingName    string  `json:"trading_name,omitempty"`
	VATID          VATID   `json:"vat_id,omitempty"`
	RegistrationID string  `json:"registration_id,omitempty"`
	EndpointID     string  `json:"endpoint_id,omitempty" validate:"required_with=EndpointScheme"`
	EndpointScheme string  `json:"endpoint_scheme,omitempty" validate:"omitempty,len=4,numeric"`
	Address        Address `json:"address"`
	Contact        Contact `json:"contact"`
}

// Validate checks the struct tags and the embedded value types
func (p *Party) Validate() []*ValidationError {
	var errs []*ValidationError

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fieldViolation(fe))
			}
		} else {
			errs = append(errs, NewValidationError("", nil, "party.struct", err.Error()))
		}
	}

	if err := p.Address.Country.Validate(); err != nil {
		errs = append(errs, Namespace("address", []*ValidationError{asViolation(err)})...)
	}
	if p.EndpointID != "" && p.EndpointScheme == "" {
		errs = append(errs, NewValidationError("endpoint_scheme", nil, "party.endpoint_scheme.required_with", "is required"))
	}
	if p.VATID != "" {
		if err := p.VATID.Validate(); err != nil {
			errs = append(errs, asViolation(err))
		} else if err := p.VATID.Country().Validate(); err != nil {
			errs = append(errs, NewValidationError("vat_id", string(p.VATID), "party.vat_id.prefix", "VAT identifier prefix is not a country code"))
		}
	}

	return errs
}

// fieldViolation maps a validator field error onto the violation type
func fieldViolation(fe validator.FieldError) *ValidationError {
	field := fieldNames[fe.Namespace()]
	if field == "" {
		field = fe.Field()
	}
	var value interface{}
	if s, ok := fe.Value().(string); ok && s != "" {
		value = s
	}
	msg := "failed " + fe.Tag()
	switch fe.Tag() {
	case "required", "required_with":
		msg = "is required"
	case "email":
		msg = "must be a valid email address"
	case "len", "numeric":
		msg = "must be a 4 digit scheme identifier"
	case "max":
		msg = "is too long"
	}
	return NewValidationError(field, value, "party."+field+"."+fe.Tag(), msg)
}

var fieldNames = map[string]string{
	"Party.Name":           "name",
	"Party.EndpointID":     "endpoint_id",
	"Party.EndpointScheme": "endpoint_scheme",
	"Party.Contact.Phone":  "contact.phone",
	"Party.Contact.Email":  "contact.email",
}

// asViolation unwraps a value type error into a violation
func asViolation(err error) *ValidationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve
	}
	return NewValidationError("", nil, "value", err.Error())
}
