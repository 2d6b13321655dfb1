package orders

import (
	"errors"
	"strings"
)

// PaymentType is how a transaction is paid.
type PaymentType string

const (
	PaymentCash   PaymentType = "numerario"
	PaymentMPesa  PaymentType = "mpesa"
	PaymentEMola  PaymentType = "emola"
	PaymentCheque PaymentType = "cheque"

	DefaultPaymentType = PaymentCash
)

// ErrUnknownPaymentType is returned for payment types the shop does not take.
var ErrUnknownPaymentType = errors.New("unknown payment type")

// ParsePaymentType normalises raw input.
func ParsePaymentType(raw string) (PaymentType, error) {
	p := PaymentType(strings.ToLower(strings.TrimSpace(raw)))
	if !p.Valid() {
		return "", ErrUnknownPaymentType
	}
	return p, nil
}

// Valid reports whether p is accepted.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentCash, PaymentMPesa, PaymentEMola, PaymentCheque:
		return true
	}
	return false
}

// ClientInfo identifies the customer on the document.
type ClientInfo struct {
	Name  string `json:"name" validate:"required,max=200"`
	TaxID string `json:"taxId,omitempty" validate:"omitempty,max=32"`
	Phone string `json:"phone,omitempty" validate:"omitempty,max=32"`
}

// Normalize trims surrounding whitespace from every field.
func (c ClientInfo) Normalize() ClientInfo {
	return ClientInfo{
		Name:  strings.TrimSpace(c.Name),
		TaxID: strings.TrimSpace(c.TaxID),
		Phone: strings.TrimSpace(c.Phone),
	}
}
