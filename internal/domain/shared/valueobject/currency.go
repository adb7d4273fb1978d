package valueobject

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cashflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const brlSymbol = "R$"

// ParseError reports a currency string that could not be turned into an amount.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("parse currency: %s", e.Reason)
	}
	return fmt.Sprintf("parse currency %q: %s", e.Input, e.Reason)
}

// Unwrap lets callers match the error with errors.Is(err, shared.ErrInvalidCurrency).
func (e *ParseError) Unwrap() error {
	return shared.ErrInvalidCurrency
}

// ParseCurrency converts a pt-BR currency string into a decimal amount.
//
// "R$ 195.584,85" -> 195584.85. The "R$" prefix is optional, "." is a
// thousands separator and "," the decimal separator. A leading minus sign
// may appear before or after the symbol.
func ParseCurrency(text string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)
	if cleaned == "" {
		return decimal.Zero, &ParseError{Input: text, Reason: "empty value"}
	}

	negative := false
	if strings.HasPrefix(cleaned, "-") {
		negative = true
		cleaned = cleaned[1:]
	}
	cleaned = strings.TrimPrefix(cleaned, brlSymbol)
	if strings.HasPrefix(cleaned, "-") {
		if negative {
			return decimal.Zero, &ParseError{Input: text, Reason: "duplicated sign"}
		}
		negative = true
		cleaned = cleaned[1:]
	}

	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if cleaned == "" || strings.ContainsAny(cleaned, ",+-eE") {
		return decimal.Zero, &ParseError{Input: text, Reason: "not a number"}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, &ParseError{Input: text, Reason: "not a number"}
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// ParseOptionalCurrency treats a nil input as missing and fails like an empty string.
func ParseOptionalCurrency(text *string) (decimal.Decimal, error) {
	if text == nil {
		return decimal.Zero, &ParseError{Reason: "missing value"}
	}
	return ParseCurrency(*text)
}

// FormatBRL renders an amount as "R$ 195.584,85". Digits are grouped from
// the exact decimal text, so large amounts keep every cent.
func FormatBRL(amount decimal.Decimal) string {
	text := amount.StringFixed(2)
	sign := ""
	if strings.HasPrefix(text, "-") {
		text = text[1:]
		if strings.Trim(text, "0.") != "" {
			sign = "-"
		}
	}
	intPart, frac, _ := strings.Cut(text, ".")
	return sign + brlSymbol + " " + groupThousands(intPart) + "," + frac
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
