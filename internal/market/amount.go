package market

import (
	"math/big"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal amount of the native currency ("0.5") into base units.
// Amounts must be positive and fit in the currency's decimals.
func ParseAmount(amount string, decimals uint8) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, errors.Wrap(ErrInvalidAmount, "amount is required")
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q is not a number", amount)
	}
	if d.Sign() <= 0 {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q must be greater than zero", amount)
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, errors.Wrapf(ErrInvalidAmount, "%q has more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders base units as a decimal amount.
func FormatAmount(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
