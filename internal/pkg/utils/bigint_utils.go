package utils

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBigInt converts amount to a human-readable string using the given number of decimals.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals int32) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}
	return decimal.NewFromBigInt(amount, -decimals).String()
}

// ParseBigInt parses a non-negative decimal or 0x-prefixed hex integer. Empty input yields zero;
// negative values are rejected.
func ParseBigInt(s string) (*big.Int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return big.NewInt(0), true
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits := strings.TrimLeft(s[2:], "0")
		if digits == "" {
			return big.NewInt(0), true
		}
		s, base = digits, 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// ScaleToRaw converts a decimal token amount (e.g. "1.5") into base units.
func ScaleToRaw(amount string, decimals int32) (*big.Int, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, false
	}
	return d.Shift(decimals).Truncate(0).BigInt(), true
}
