package types

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mycourse/catalog-backend/internal/apperr"
)

// Currency is an ISO-4217 style code. The set is closed here but adding a
// code is a one-line change.
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyEUR, CurrencyUSD, CurrencyGBP:
		return true
	}
	return false
}

// Money is an immutable currency + exact amount pair. Amounts are decimals,
// never floats; values are replaced, not mutated.
//
// Stored inline on Course via gorm's embedded struct support.
type Money struct {
	Currency Currency        `gorm:"column:currency;type:varchar(3)" json:"currency"`
	Amount   decimal.Decimal `gorm:"column:amount;type:numeric(12,2)" json:"amount"`
}

func NewMoney(currency Currency, amount decimal.Decimal) Money {
	return Money{Currency: currency, Amount: amount}
}

// Zero returns a zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{Currency: currency, Amount: decimal.Zero}
}

func (m Money) IsZero() bool {
	return m.Currency == "" && m.Amount.IsZero()
}

func (m Money) Equals(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

// Compare orders two Money values by amount. Comparing across currencies is
// a contract violation, not a silent false.
func (m Money) Compare(other Money) (int, error) {
	if m.Currency != other.Currency {
		return 0, apperr.CurrencyMismatch("money.compare",
			fmt.Sprintf("cannot compare %s with %s", m.Currency, other.Currency))
	}
	return m.Amount.Cmp(other.Amount), nil
}

func (m Money) GreaterThan(other Money) (bool, error) {
	cmp, err := m.Compare(other)
	if err != nil {
		return false, err
	}
	return cmp > 0, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}
