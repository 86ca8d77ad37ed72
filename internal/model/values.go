package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const dateLayout = "2006-01-02"

// Date is a calendar date without time of day
type Date struct {
	t time.Time
}

// NewDate creates a date in UTC
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses YYYY-MM-DD (and the compact YYYYMMDD form)
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{dateLayout, "20060102"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, NewValidationError("date", s, "value.date", "expected a YYYY-MM-DD date")
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Before reports whether d is strictly before o
func (d Date) Before(o Date) bool {
	return d.t.Before(o.t)
}

// After reports whether d is strictly after o
func (d Date) After(o Date) bool {
	return d.t.After(o.t)
}

// Time returns the date at UTC midnight
func (d Date) Time() time.Time {
	return d.t
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// CountryCode is an ISO 3166-1 alpha-2 country code
type CountryCode string

// ParseCountryCode parses and validates a country code
func ParseCountryCode(s string) (CountryCode, error) {
	c := CountryCode(strings.ToUpper(strings.TrimSpace(s)))
	if err := c.Validate(); err != nil {
		return CountryCode(s), err
	}
	return c, nil
}

// Validate checks the code against ISO 3166-1
func (c CountryCode) Validate() error {
	if err := validate.Var(string(c), "required,iso3166_1_alpha2"); err != nil {
		return NewValidationError("country_code", string(c), "value.country_code", "not an ISO 3166-1 alpha-2 country code")
	}
	return nil
}

// VATID is a VAT identifier prefixed with its country code
type VATID string

var vatIDPattern = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z+*.]{2,13}$`)

// ParseVATID normalises separators away and validates the identifier.
// Greek identifiers use the EL prefix.
func ParseVATID(s string) (VATID, error) {
	clean := strings.ToUpper(strings.TrimSpace(s))
	clean = strings.NewReplacer(" ", "", "-", "", ".", "").Replace(clean)
	if strings.HasPrefix(clean, "GR") {
		clean = "EL" + clean[2:]
	}
	v := VATID(clean)
	if err := v.Validate(); err != nil {
		return VATID(s), err
	}
	return v, nil
}

// Validate checks the identifier format
func (v VATID) Validate() error {
	if !vatIDPattern.MatchString(string(v)) {
		return NewValidationError("vat_id", string(v), "value.vat_id", "VAT identifier must be a country prefix followed by 2-13 characters")
	}
	return nil
}

// Country returns the ISO country of the identifier (GR for EL)
func (v VATID) Country() CountryCode {
	if len(v) < 2 {
		return ""
	}
	if v[:2] == "EL" {
		return "GR"
	}
	return CountryCode(v[:2])
}

// IBAN is an ISO 13616 international bank account number
type IBAN string

var ibanPattern = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{11,30}$`)

var ibanLengths = map[string]int{
	"AT": 20, "BE": 16, "BG": 22, "CH": 21, "CY": 28, "CZ": 24, "DE": 22,
	"DK": 18, "EE": 20, "ES": 24, "FI": 18, "FR": 27, "GB": 22, "GR": 27,
	"HR": 21, "HU": 28, "IE": 22, "IS": 26, "IT": 27, "LI": 21, "LT": 20,
	"LU": 20, "LV": 21, "MT": 31, "NL": 18, "NO": 15, "PL": 28, "PT": 25,
	"RO": 24, "SE": 24, "SI": 19, "SK": 24,
}

// ParseIBAN strips spaces and validates the account number
func ParseIBAN(s string) (IBAN, error) {
	clean := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	i := IBAN(clean)
	if err := i.Validate(); err != nil {
		return IBAN(s), err
	}
	return i, nil
}

// Validate checks format, country length and the mod-97 checksum
func (i IBAN) Validate() error {
	s := string(i)
	if !ibanPattern.MatchString(s) {
		return NewValidationError("iban", s, "value.iban", "malformed IBAN")
	}
	if want, ok := ibanLengths[s[:2]]; ok && len(s) != want {
		return NewValidationError("iban", s, "value.iban", fmt.Sprintf("IBAN for %s must have %d characters", s[:2], want))
	}
	if mod97(s[4:]+s[:4]) != 1 {
		return NewValidationError("iban", s, "value.iban", "IBAN checksum mismatch")
	}
	return nil
}

// BIC is an ISO 9362 bank identifier code
type BIC string

// ParseBIC validates a bank identifier code
func ParseBIC(s string) (BIC, error) {
	b := BIC(strings.ToUpper(strings.TrimSpace(s)))
	if err := b.Validate(); err != nil {
		return BIC(s), err
	}
	return b, nil
}

// Validate checks the code against ISO 9362
func (b BIC) Validate() error {
	if err := validate.Var(string(b), "required,bic"); err != nil {
		return NewValidationError("bic", string(b), "value.bic", "malformed BIC")
	}
	return nil
}

// StructuredReference is a creditor payment reference: either a Belgian
// structured communication (+++123/4567/89002+++) or an ISO 11649 RF reference.
type StructuredReference string

var (
	ogmPattern = regexp.MustCompile(`^\d{12}$`)
	rfPattern  = regexp.MustCompile(`^RF\d{2}[A-Z0-9]{1,21}$`)
)

// ParseStructuredReference validates a payment reference
func ParseStructuredReference(s string) (StructuredReference, error) {
	r := StructuredReference(strings.TrimSpace(s))
	if err := r.Validate(); err != nil {
		return StructuredReference(s), err
	}
	return r, nil
}

// IsRF reports whether the reference uses the ISO 11649 form
func (r StructuredReference) IsRF() bool {
	return strings.HasPrefix(strings.ToUpper(string(r)), "RF")
}

// Validate checks the reference checksum
func (r StructuredReference) Validate() error {
	s := string(r)
	if r.IsRF() {
		compact := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
		if !rfPattern.MatchString(compact) || mod97(compact[4:]+compact[:4]) != 1 {
			return NewValidationError("structured_reference", s, "value.structured_reference", "invalid RF creditor reference")
		}
		return nil
	}

	digits := strings.NewReplacer("+", "", "*", "", "/", "", " ", "").Replace(s)
	if !ogmPattern.MatchString(digits) {
		return NewValidationError("structured_reference", s, "value.structured_reference", "structured communication must have 12 digits")
	}
	check := mod97(digits[:10])
	if check == 0 {
		check = 97
	}
	if fmt.Sprintf("%02d", check) != digits[10:] {
		return NewValidationError("structured_reference", s, "value.structured_reference", "structured communication check digits mismatch")
	}
	return nil
}

// mod97 computes the ISO 7064 remainder, letters count as 10..35
func mod97(s string) int {
	rem := 0
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			rem = (rem*100 + int(c-'A') + 10) % 97
		default:
			return -1
		}
	}
	return rem
}
