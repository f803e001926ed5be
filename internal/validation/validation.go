// Package validation holds the per-step gates a transition must pass.
// The checks are pure: same form data, same errors, no state touched.
package validation

import (
	"regexp"
	"strings"

	"github.com/fjod/go_checkout/domain"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const (
	minPhoneDigits  = 10
	cardNumberWidth = 16
	cvvWidth        = 3
)

// ValidateShipping checks the step-1 form. Zero errors permits advancing to
// the payment step.
func ValidateShipping(f domain.ShippingFormData) []domain.FieldError {
	var errs []domain.FieldError

	required := []struct {
		field, value string
	}{
		{domain.FieldEmail, f.Email},
		{domain.FieldPhone, f.Phone},
		{domain.FieldFirstName, f.FirstName},
		{domain.FieldLastName, f.LastName},
		{domain.FieldAddress, f.Address},
		{domain.FieldCity, f.City},
		{domain.FieldState, f.State},
		{domain.FieldCountry, f.Country},
		{domain.FieldPostalCode, f.PostalCode},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, domain.FieldError{Field: r.field, Message: "is required"})
		}
	}

	if f.Email != "" && !emailPattern.MatchString(f.Email) {
		errs = append(errs, domain.FieldError{Field: domain.FieldEmail, Message: "is not a valid email address"})
	}
	if f.Phone != "" && digitCount(f.Phone) < minPhoneDigits {
		errs = append(errs, domain.FieldError{Field: domain.FieldPhone, Message: "must contain at least 10 digits"})
	}

	return errs
}

// ValidatePayment checks the step-2 form. Card fields are only required for
// the credit-card method; separators in the card number are ignored.
func ValidatePayment(f domain.PaymentFormData) []domain.FieldError {
	var errs []domain.FieldError

	if f.Method == "" {
		return append(errs, domain.FieldError{Field: domain.FieldPaymentMethod, Message: "is required"})
	}
	if !f.Method.Known() {
		return append(errs, domain.FieldError{Field: domain.FieldPaymentMethod, Message: "is not a supported payment method"})
	}

	if f.Method != domain.PaymentMethodCreditCard {
		return errs
	}

	if digits := stripSeparators(f.CardNumber); len(digits) != cardNumberWidth || digitCount(digits) != cardNumberWidth {
		errs = append(errs, domain.FieldError{Field: domain.FieldCardNumber, Message: "must be 16 digits"})
	}
	if strings.TrimSpace(f.ExpiryDate) == "" {
		errs = append(errs, domain.FieldError{Field: domain.FieldExpiryDate, Message: "is required"})
	}
	if cvv := f.CVV; len(cvv) != cvvWidth || digitCount(cvv) != cvvWidth {
		errs = append(errs, domain.FieldError{Field: domain.FieldCVV, Message: "must be 3 digits"})
	}

	return errs
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, s)
}
