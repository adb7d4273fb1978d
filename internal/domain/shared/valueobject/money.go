package valueobject

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

// BRL is the only currency the dashboard reports in.
const BRL Currency = "BRL"

// Money is an immutable amount in BRL as the API shows it
type Money struct {
	amount decimal.Decimal
}

// NewMoneyBRL creates Money in BRL
func NewMoneyBRL(amount decimal.Decimal) Money {
	return Money{amount: amount}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// String returns the localized form, e.g. "R$ 195.584,85".
func (m Money) String() string {
	return FormatBRL(m.amount)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount    string   `json:"amount"`
		Currency  Currency `json:"currency"`
		Formatted string   `json:"formatted"`
	}{
		Amount:    m.amount.StringFixed(2),
		Currency:  BRL,
		Formatted: m.String(),
	})
}
