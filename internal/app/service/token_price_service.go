package service

import (
	"context"
	"strings"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"
	"address_vision/internal/infrastructure/httpclient"
	"address_vision/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	stablecoinUSDCSymbol = "USDC"
	stablecoinUSDTSymbol = "USDT"
	stablecoinDAISymbol  = "DAI"
)

var stablecoinSymbols = map[string]struct{}{
	stablecoinUSDCSymbol: {},
	stablecoinUSDTSymbol: {},
	stablecoinDAISymbol:  {},
}

// tokenPriceServiceImpl implements port.TokenPriceService on top of DEX Screener.
type tokenPriceServiceImpl struct {
	dexscreenerClient httpclient.DEXScreenerClient
	logger            port.Logger
	prices            *cache.Cache
	batchSize         int
	concurrency       int
	requestTimeout    time.Duration
}

// NewTokenPriceService creates a price service that caches DEX Screener prices for the configured TTL.
func NewTokenPriceService(dsc httpclient.DEXScreenerClient, l port.Logger, cfg *configloader.Config) port.TokenPriceService {
	ttl := time.Duration(cfg.TokenPriceSvc.CacheTTLMinutes) * time.Minute
	return &tokenPriceServiceImpl{
		dexscreenerClient: dsc,
		logger:            l,
		prices:            cache.New(ttl, 2*ttl),
		batchSize:         cfg.TokenPriceSvc.MaxTokensPerBatchRequest,
		concurrency:       cfg.Performance.MaxConcurrentRoutines,
		requestTimeout:    time.Duration(cfg.TokenPriceSvc.RequestTimeoutMillis) * time.Millisecond,
	}
}

func priceKey(dexScreenerChainID, tokenAddress string) string {
	return dexScreenerChainID + "|" + strings.ToLower(tokenAddress)
}

// GetPriceUSD implements port.TokenPriceService.
func (s *tokenPriceServiceImpl) GetPriceUSD(dexScreenerChainID string, tokenAddress string) (decimal.Decimal, bool) {
	if v, ok := s.prices.Get(priceKey(dexScreenerChainID, tokenAddress)); ok {
		return v.(decimal.Decimal), true
	}
	return decimal.Zero, false
}

// priceAddress is the address DEX Screener knows the holding by. Native coins are priced via their wrapped token.
func priceAddress(chain entity.ChainContext, h entity.TokenHolding) string {
	if h.IsNative {
		return chain.WrappedNativeTokenAddress
	}
	return h.ContractAddress
}

// FillMissingPrices implements port.TokenPriceService. Failures leave holdings unpriced.
func (s *tokenPriceServiceImpl) FillMissingPrices(ctx context.Context, chain entity.ChainContext, holdings []entity.TokenHolding) []entity.TokenHolding {
	if chain.DEXScreenerChainID == "" {
		return holdings
	}

	seen := make(map[string]struct{})
	var missing []string
	for _, h := range holdings {
		if h.UsdValue != nil || h.IsZero() {
			continue
		}
		addr := priceAddress(chain, h)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if _, cached := s.GetPriceUSD(chain.DEXScreenerChainID, addr); !cached {
			missing = append(missing, addr)
		}
	}

	if len(missing) > 0 {
		s.loadPrices(ctx, chain.DEXScreenerChainID, missing)
	}

	out := make([]entity.TokenHolding, len(holdings))
	for i, h := range holdings {
		out[i] = h
		if h.UsdValue != nil {
			continue
		}
		addr := priceAddress(chain, h)
		if addr == "" {
			continue
		}
		if price, ok := s.GetPriceUSD(chain.DEXScreenerChainID, addr); ok {
			value := price.Mul(h.Balance())
			out[i].PriceUSD = &price
			out[i].UsdValue = &value
		}
	}
	return out
}

func (s *tokenPriceServiceImpl) loadPrices(ctx context.Context, dexscreenerID string, addresses []string) {
	g, gctx := errgroup.WithContext(ctx)
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}

	for _, batch := range utils.BatchStrings(addresses, s.batchSize) {
		batch := batch
		g.Go(func() error {
			callCtx := gctx
			if s.requestTimeout > 0 {
				var cancel context.CancelFunc
				callCtx, cancel = context.WithTimeout(gctx, s.requestTimeout)
				defer cancel()
			}
			pairs, err := s.dexscreenerClient.GetTokenPairsByAddresses(callCtx, dexscreenerID, batch)
			if err != nil {
				s.logger.Warn("Failed to get token pairs from DEXScreener",
					"dexScreenerID", dexscreenerID,
					"token_addresses_count", len(batch),
					"error", err)
				return nil
			}
			for _, addr := range batch {
				priceStr := s.selectBestPriceFromPairs(pairs, addr)
				if priceStr == "" {
					continue
				}
				price, err := decimal.NewFromString(priceStr)
				if err != nil || !price.IsPositive() {
					s.logger.Warn("Failed to parse token price from DEXScreener",
						"dexScreenerID", dexscreenerID,
						"tokenAddress", addr,
						"price_string", priceStr)
					continue
				}
				s.prices.SetDefault(priceKey(dexscreenerID, addr), price)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// selectBestPriceFromPairs prefers the deepest stablecoin-quoted pair, then the deepest pair overall.
func (s *tokenPriceServiceImpl) selectBestPriceFromPairs(pairs []entity.PairData, baseTokenAddress string) string {
	var bestOverallPair *entity.PairData
	var bestStablecoinPair *entity.PairData

	for i := range pairs {
		pair := &pairs[i]
		if !strings.EqualFold(pair.BaseToken.Address, baseTokenAddress) {
			continue
		}
		if pair.PriceUsd == "" || pair.PriceUsd == "0" {
			continue
		}

		if _, isStablecoin := stablecoinSymbols[strings.ToUpper(pair.QuoteToken.Symbol)]; isStablecoin {
			if bestStablecoinPair == nil || deeper(pair, bestStablecoinPair) {
				bestStablecoinPair = pair
			}
		}
		if bestOverallPair == nil || deeper(pair, bestOverallPair) {
			bestOverallPair = pair
		}
	}

	switch {
	case bestStablecoinPair != nil:
		s.logger.Debug("Selected best price from stablecoin pair",
			"baseTokenAddress", baseTokenAddress,
			"pairAddress", bestStablecoinPair.PairAddress,
			"priceUsd", bestStablecoinPair.PriceUsd,
			"quoteToken", bestStablecoinPair.QuoteToken.Symbol)
		return bestStablecoinPair.PriceUsd
	case bestOverallPair != nil:
		s.logger.Debug("Selected best price from overall highest liquidity pair",
			"baseTokenAddress", baseTokenAddress,
			"pairAddress", bestOverallPair.PairAddress,
			"priceUsd", bestOverallPair.PriceUsd,
			"quoteToken", bestOverallPair.QuoteToken.Symbol)
		return bestOverallPair.PriceUsd
	}
	s.logger.Debug("No suitable price found from pairs", "baseTokenAddress", baseTokenAddress, "evaluatedPairCount", len(pairs))
	return ""
}

// deeper reports whether a has more USD liquidity than b. Pairs without liquidity data never win.
func deeper(a, b *entity.PairData) bool {
	if a.Liquidity == nil {
		return false
	}
	if b.Liquidity == nil {
		return true
	}
	return a.Liquidity.Usd > b.Liquidity.Usd
}
