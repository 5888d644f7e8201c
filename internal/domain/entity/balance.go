package entity

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ChainBalance is the filtered token list and USD subtotal of one chain.
type ChainBalance struct {
	ChainID     uint64          `json:"chainId"`
	ChainName   string          `json:"chainName"`
	Status      SourceStatus    `json:"status"`
	Holdings    []TokenHolding  `json:"holdings"`
	SubtotalUSD decimal.Decimal `json:"subtotalUsd"`
}

// AggregatedBalance rolls token results up across chains.
// Total only includes chains whose result settled as Ready or Empty; Partial is set when any chain is Pending or Failed.
type AggregatedBalance struct {
	PerChain map[uint64]ChainBalance `json:"perChain"`
	Total    decimal.Decimal         `json:"total"`
	Partial  bool                    `json:"partial"`
}

// Chains returns the per-chain balances ordered by subtotal descending, then chain id.
func (b AggregatedBalance) Chains() []ChainBalance {
	chains := make([]ChainBalance, 0, len(b.PerChain))
	for _, c := range b.PerChain {
		chains = append(chains, c)
	}
	sort.Slice(chains, func(i, j int) bool {
		if cmp := chains[i].SubtotalUSD.Cmp(chains[j].SubtotalUSD); cmp != 0 {
			return cmp > 0
		}
		return chains[i].ChainID < chains[j].ChainID
	})
	return chains
}

// TotalDisplay formats the total, marking it when it is partial.
func (b AggregatedBalance) TotalDisplay() string {
	s := FormatUSD(b.Total)
	if b.Partial {
		return s + "+"
	}
	return s
}
