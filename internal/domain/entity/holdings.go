package entity

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// NotAvailable is displayed in place of a missing USD value.
const NotAvailable = "N/A"

// TokenHolding is one fungible balance held by an address on a chain.
type TokenHolding struct {
	Name            string           `json:"name"`
	Symbol          string           `json:"symbol"`
	ContractAddress string           `json:"contractAddress,omitempty"`
	RawBalance      *big.Int         `json:"rawBalance"`
	Decimals        int32            `json:"decimals"`
	PriceUSD        *decimal.Decimal `json:"priceUsd,omitempty"`
	UsdValue        *decimal.Decimal `json:"usdValue,omitempty"`
	LogoURL         string           `json:"logoUrl,omitempty"`
	IsNative        bool             `json:"isNative"`
}

// Balance returns RawBalance scaled by Decimals.
func (h TokenHolding) Balance() decimal.Decimal {
	if h.RawBalance == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(h.RawBalance, -h.Decimals)
}

// IsZero reports whether the holding has no balance.
func (h TokenHolding) IsZero() bool {
	return h.RawBalance == nil || h.RawBalance.Sign() == 0
}

// USD returns the USD value, counting a missing value as zero.
func (h TokenHolding) USD() decimal.Decimal {
	if h.UsdValue == nil {
		return decimal.Zero
	}
	return *h.UsdValue
}

// UsdDisplay formats the USD value, or NotAvailable if the provider gave none.
func (h TokenHolding) UsdDisplay() string {
	if h.UsdValue == nil {
		return NotAvailable
	}
	return FormatUSD(*h.UsdValue)
}

// FormatUSD renders an amount as dollars with two decimal places.
func FormatUSD(v decimal.Decimal) string {
	return "$" + v.StringFixed(2)
}

// NftHolding is one non-fungible token owned by an address.
type NftHolding struct {
	ContractAddress string    `json:"contractAddress"`
	TokenID         string    `json:"tokenId"`
	Name            string    `json:"name,omitempty"`
	Collection      string    `json:"collection,omitempty"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	ChainID         uint64    `json:"chainId"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

// PoapHolding is one attendance badge owned by an address.
type PoapHolding struct {
	TokenID   string    `json:"tokenId"`
	EventID   int64     `json:"eventId"`
	EventName string    `json:"eventName"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Chain     string    `json:"chain,omitempty"`
	Created   time.Time `json:"created"`
}

// HoldingsSummary is a display-limited slice of holdings together with the true total.
type HoldingsSummary[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
