package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Aggregator combines per-chain source results into display rollups.
// Every method is a pure function of its arguments.
type Aggregator struct {
	spam         []*regexp.Regexp
	displayLimit int
	chains       port.ChainProvider
}

// NewAggregator compiles the spam patterns. Patterns match case-insensitively against "name symbol".
func NewAggregator(cfg configloader.AggregationConfig, chains port.ChainProvider) (*Aggregator, error) {
	a := &Aggregator{displayLimit: cfg.DisplayLimit, chains: chains}
	for _, p := range cfg.SpamPatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("invalid spam pattern %q: %w", p, err)
		}
		a.spam = append(a.spam, re)
	}
	return a, nil
}

// IsSpam reports whether the token name or symbol matches a spam pattern.
func (a *Aggregator) IsSpam(h entity.TokenHolding) bool {
	text := h.Name + " " + h.Symbol
	return lo.SomeBy(a.spam, func(re *regexp.Regexp) bool { return re.MatchString(text) })
}

// FilterHoldings drops spam, zero or negative balances and negative USD values, and orders the rest by USD value descending.
// Holdings without a USD value come last; ties are broken by symbol and contract address.
func (a *Aggregator) FilterHoldings(holdings []entity.TokenHolding) []entity.TokenHolding {
	kept := lo.Filter(holdings, func(h entity.TokenHolding, _ int) bool {
		if h.RawBalance == nil || h.RawBalance.Sign() <= 0 {
			return false
		}
		if h.UsdValue != nil && h.UsdValue.IsNegative() {
			return false
		}
		return !a.IsSpam(h)
	})
	sort.SliceStable(kept, func(i, j int) bool {
		hi, hj := kept[i], kept[j]
		if (hi.UsdValue == nil) != (hj.UsdValue == nil) {
			return hj.UsdValue == nil
		}
		if hi.UsdValue != nil {
			if cmp := hi.UsdValue.Cmp(*hj.UsdValue); cmp != 0 {
				return cmp > 0
			}
		}
		if hi.Symbol != hj.Symbol {
			return hi.Symbol < hj.Symbol
		}
		return strings.ToLower(hi.ContractAddress) < strings.ToLower(hj.ContractAddress)
	})
	return kept
}

func sumUSD(holdings []entity.TokenHolding) decimal.Decimal {
	return lo.Reduce(holdings, func(acc decimal.Decimal, h entity.TokenHolding, _ int) decimal.Decimal {
		return acc.Add(h.USD())
	}, decimal.Zero)
}

// Aggregate rolls token results up per chain. Ready and Empty chains count toward the total,
// a Ready chain with nothing left after filtering contributes zero. Pending and Failed chains
// are listed but excluded from the total, which is then marked partial.
func (a *Aggregator) Aggregate(results map[uint64]entity.SourceResult[[]entity.TokenHolding]) entity.AggregatedBalance {
	out := entity.AggregatedBalance{
		PerChain: make(map[uint64]entity.ChainBalance, len(results)),
		Total:    decimal.Zero,
	}
	for chainID, r := range results {
		cb := entity.ChainBalance{
			ChainID:     chainID,
			ChainName:   a.chainName(chainID),
			Status:      r.Status,
			Holdings:    []entity.TokenHolding{},
			SubtotalUSD: decimal.Zero,
		}
		switch r.Status {
		case entity.StatusReady:
			cb.Holdings = a.FilterHoldings(r.Data)
			cb.SubtotalUSD = sumUSD(cb.Holdings)
			out.Total = out.Total.Add(cb.SubtotalUSD)
		case entity.StatusEmpty:
		default:
			out.Partial = true
		}
		out.PerChain[chainID] = cb
	}
	return out
}

// VisibleChains lists settled chains with a positive subtotal, highest first.
func (a *Aggregator) VisibleChains(b entity.AggregatedBalance) []entity.ChainBalance {
	return lo.Filter(b.Chains(), func(c entity.ChainBalance, _ int) bool {
		return c.Status == entity.StatusReady && c.SubtotalUSD.IsPositive()
	})
}

func (a *Aggregator) chainName(chainID uint64) string {
	if a.chains == nil {
		return ""
	}
	if c, ok := a.chains.GetChainByID(chainID); ok {
		return c.Name
	}
	return ""
}

// SummarizeNfts merges Ready NFT results of all chains, drops malformed and duplicate items,
// and keeps the most recently updated ones up to the display limit.
func (a *Aggregator) SummarizeNfts(results map[uint64]entity.SourceResult[[]entity.NftHolding]) entity.HoldingsSummary[entity.NftHolding] {
	chainIDs := lo.Keys(results)
	sort.Slice(chainIDs, func(i, j int) bool { return chainIDs[i] < chainIDs[j] })

	var all []entity.NftHolding
	for _, id := range chainIDs {
		if r := results[id]; r.Status == entity.StatusReady {
			all = append(all, r.Data...)
		}
	}
	all = lo.Filter(all, func(n entity.NftHolding, _ int) bool {
		return n.ContractAddress != "" && n.TokenID != ""
	})
	all = lo.UniqBy(all, func(n entity.NftHolding) string {
		return fmt.Sprintf("%d|%s|%s", n.ChainID, strings.ToLower(n.ContractAddress), n.TokenID)
	})
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].UpdatedAt.After(all[j].UpdatedAt)
	})
	return summary(all, a.displayLimit)
}

// SummarizePoaps dedupes POAPs by token id and keeps the most recently created ones up to the display limit.
func (a *Aggregator) SummarizePoaps(result entity.SourceResult[[]entity.PoapHolding]) entity.HoldingsSummary[entity.PoapHolding] {
	if result.Status != entity.StatusReady {
		return summary[entity.PoapHolding](nil, a.displayLimit)
	}
	all := lo.Filter(result.Data, func(p entity.PoapHolding, _ int) bool { return p.TokenID != "" })
	all = lo.UniqBy(all, func(p entity.PoapHolding) string { return p.TokenID })
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Created.After(all[j].Created)
	})
	return summary(all, a.displayLimit)
}

func summary[T any](items []T, limit int) entity.HoldingsSummary[T] {
	s := entity.HoldingsSummary[T]{Items: items, Total: len(items)}
	if limit > 0 && len(items) > limit {
		s.Items = items[:limit]
	}
	if s.Items == nil {
		s.Items = []T{}
	}
	return s
}
