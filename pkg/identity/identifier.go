// Package identity classifies a login identifier as an email address or a
// phone number exactly once at the system boundary.
package identity

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// Kind tags an identifier as one of the supported contact channels.
type Kind string

const (
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
)

// Identifier is the parsed form of a user-supplied login identifier.
// Value holds the normalized representation: a lower-cased email address
// or an E.164 phone number.
type Identifier struct {
	Kind  Kind
	Value string
}

// ErrUnrecognized is returned for strings that are neither a well-formed
// email address nor a parseable, valid phone number. Callers are expected
// to surface it as "not found" rather than revealing the parse outcome.
var ErrUnrecognized = errors.New("identifier is not an email address or phone number")

// Parse resolves a raw identifier. Anything containing "@" is treated as
// an email address; everything else must parse to a valid E.164 number.
func Parse(raw string) (Identifier, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Identifier{}, ErrUnrecognized
	}
	if strings.Contains(raw, "@") {
		email, err := NormalizeEmail(raw)
		if err != nil {
			return Identifier{}, ErrUnrecognized
		}
		return Identifier{Kind: KindEmail, Value: email}, nil
	}
	phone, err := NormalizePhone(raw)
	if err != nil {
		return Identifier{}, ErrUnrecognized
	}
	return Identifier{Kind: KindPhone, Value: phone}, nil
}

// NormalizeEmail lower-cases and validates an email address.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", errors.New("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errors.New("email format is invalid")
	}
	return email, nil
}

// NormalizePhone parses a phone number and returns its E.164 form.
// Numbers without a leading + must carry their country code anyway,
// matching how the original registration form submits them.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("phone is required")
	}
	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", errors.New("phone number is invalid")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
