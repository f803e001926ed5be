package domain

import "fmt"

type PaymentMethod string

const (
	PaymentMethodCreditCard     PaymentMethod = "credit-card"
	PaymentMethodWalletA        PaymentMethod = "wallet-a"
	PaymentMethodWalletB        PaymentMethod = "wallet-b"
	PaymentMethodCashOnDelivery PaymentMethod = "cash-on-delivery"
)

func (m PaymentMethod) Known() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodWalletA, PaymentMethodWalletB, PaymentMethodCashOnDelivery:
		return true
	}
	return false
}

// ShippingFormData holds the step-1 form. CompanyName, Apartment,
// SpecialNotes and SaveInfo are optional; everything else is required.
type ShippingFormData struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	CompanyName  string `json:"company_name,omitempty"`
	Address      string `json:"address"`
	Apartment    string `json:"apartment,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	Country      string `json:"country"`
	PostalCode   string `json:"postal_code"`
	SpecialNotes string `json:"special_notes,omitempty"`
	SaveInfo     bool   `json:"save_info,omitempty"`
}

// PaymentFormData holds the step-2 form. Card fields are required only when
// Method is credit-card; for wallets and cash-on-delivery they stay empty.
type PaymentFormData struct {
	Method     PaymentMethod `json:"payment_method"`
	CardNumber string        `json:"card_number,omitempty"`
	ExpiryDate string        `json:"expiry_date,omitempty"`
	CVV        string        `json:"cvv,omitempty"`
}

// ClearSecrets drops the raw card data. Called after a fatal submission
// failure so secrets never outlive a failed attempt.
func (p *PaymentFormData) ClearSecrets() {
	p.CardNumber = ""
	p.CVV = ""
}

// FieldError attaches a validation message to the form field it belongs to.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Shipping field names accepted by SetShippingField.
const (
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldFirstName    = "first_name"
	FieldLastName     = "last_name"
	FieldCompanyName  = "company_name"
	FieldAddress      = "address"
	FieldApartment    = "apartment"
	FieldCity         = "city"
	FieldState        = "state"
	FieldCountry      = "country"
	FieldPostalCode   = "postal_code"
	FieldSpecialNotes = "special_notes"
	FieldSaveInfo     = "save_info"
)

// Payment field names accepted by SetPaymentField.
const (
	FieldPaymentMethod = "payment_method"
	FieldCardNumber    = "card_number"
	FieldExpiryDate    = "expiry_date"
	FieldCVV           = "cvv"
)

// SetShippingField writes a named field of the shipping form. Unknown names
// are rejected so callers cannot smuggle arbitrary keys into the draft.
func (f *ShippingFormData) SetShippingField(name, value string) error {
	switch name {
	case FieldEmail:
		f.Email = value
	case FieldPhone:
		f.Phone = value
	case FieldFirstName:
		f.FirstName = value
	case FieldLastName:
		f.LastName = value
	case FieldCompanyName:
		f.CompanyName = value
	case FieldAddress:
		f.Address = value
	case FieldApartment:
		f.Apartment = value
	case FieldCity:
		f.City = value
	case FieldState:
		f.State = value
	case FieldCountry:
		f.Country = value
	case FieldPostalCode:
		f.PostalCode = value
	case FieldSpecialNotes:
		f.SpecialNotes = value
	case FieldSaveInfo:
		f.SaveInfo = value == "true" || value == "1"
	default:
		return fmt.Errorf("unknown shipping field %q", name)
	}
	return nil
}

// SetPaymentField writes a named field of the payment form.
func (f *PaymentFormData) SetPaymentField(name, value string) error {
	switch name {
	case FieldPaymentMethod:
		f.Method = PaymentMethod(value)
	case FieldCardNumber:
		f.CardNumber = value
	case FieldExpiryDate:
		f.ExpiryDate = value
	case FieldCVV:
		f.CVV = value
	default:
		return fmt.Errorf("unknown payment field %q", name)
	}
	return nil
}
