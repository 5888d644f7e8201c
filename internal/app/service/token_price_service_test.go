package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"
	networkdefinition "address_vision/internal/infrastructure/network/definition"
	"address_vision/internal/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDEXScreener struct {
	mu      sync.Mutex
	pairs   []entity.PairData
	err     error
	batches [][]string
}

func (f *fakeDEXScreener) GetTokenPairsByAddresses(_ context.Context, _ string, addrs []string) ([]entity.PairData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]string(nil), addrs...))
	if f.err != nil {
		return nil, f.err
	}
	return f.pairs, nil
}

func pair(base, quote, price string, liquidity float64) entity.PairData {
	p := entity.PairData{
		BaseToken:  entity.DEXToken{Address: base},
		QuoteToken: entity.DEXToken{Symbol: quote},
		PriceUsd:   price,
	}
	if liquidity > 0 {
		p.Liquidity = &entity.DEXLiquidity{Usd: liquidity}
	}
	return p
}

const (
	wethAddr = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
	linkAddr = "0x514910771AF9Ca656af840dff83E8264EcF986CA"
)

func newTestPriceService(dsc *fakeDEXScreener, batch int) *tokenPriceServiceImpl {
	cfg := configloader.Default()
	cfg.TokenPriceSvc.MaxTokensPerBatchRequest = batch
	return NewTokenPriceService(dsc, logger.NewNop(), cfg).(*tokenPriceServiceImpl)
}

func TestFillMissingPricesPricesNativeAndTokens(t *testing.T) {
	dsc := &fakeDEXScreener{pairs: []entity.PairData{
		pair(wethAddr, "USDC", "2000", 1_000_000),
		pair(wethAddr, "WBTC", "1900", 9_000_000),
		pair(linkAddr, "WETH", "15", 100),
		pair(linkAddr, "SHIB", "99", 0),
	}}
	s := newTestPriceService(dsc, 30)

	priced := decimal.NewFromInt(7)
	in := []entity.TokenHolding{
		{Symbol: "ETH", IsNative: true, RawBalance: big.NewInt(2), Decimals: 0},
		{Symbol: "LINK", ContractAddress: linkAddr, RawBalance: big.NewInt(10), Decimals: 0},
		{Symbol: "USDC", ContractAddress: "0xa0b8", RawBalance: big.NewInt(7), UsdValue: &priced},
	}
	out := s.FillMissingPrices(context.Background(), networkdefinition.Ethereum, in)

	require.Len(t, out, 3)
	require.NotNil(t, out[0].UsdValue)
	assert.True(t, decimal.NewFromInt(4000).Equal(*out[0].UsdValue), "stablecoin quote wins over deeper pair")
	require.NotNil(t, out[1].UsdValue)
	assert.True(t, decimal.NewFromInt(150).Equal(*out[1].UsdValue), "pairs without liquidity never win")
	assert.Same(t, &priced, out[2].UsdValue)
	assert.Nil(t, in[0].UsdValue, "input is not mutated")

	// Second call is served from the cache.
	s.FillMissingPrices(context.Background(), networkdefinition.Ethereum, in)
	assert.Len(t, dsc.batches, 1)
	price, ok := s.GetPriceUSD("ethereum", linkAddr)
	require.True(t, ok)
	assert.Equal(t, "15", price.String())
}

func TestFillMissingPricesBatchesAddresses(t *testing.T) {
	dsc := &fakeDEXScreener{}
	s := newTestPriceService(dsc, 2)

	in := []entity.TokenHolding{
		{ContractAddress: "0x01", RawBalance: big.NewInt(1)},
		{ContractAddress: "0x02", RawBalance: big.NewInt(1)},
		{ContractAddress: "0x03", RawBalance: big.NewInt(1)},
		{ContractAddress: "0x03", RawBalance: big.NewInt(1)},
		{ContractAddress: "0x04", RawBalance: big.NewInt(0)},
	}
	out := s.FillMissingPrices(context.Background(), networkdefinition.Ethereum, in)
	assert.Len(t, out, 5)

	total := 0
	for _, b := range dsc.batches {
		assert.LessOrEqual(t, len(b), 2)
		total += len(b)
	}
	assert.Equal(t, 3, total)
}

func TestFillMissingPricesLeavesHoldingsUnpricedOnError(t *testing.T) {
	dsc := &fakeDEXScreener{err: errors.New("dexscreener down")}
	s := newTestPriceService(dsc, 30)

	in := []entity.TokenHolding{{ContractAddress: linkAddr, RawBalance: big.NewInt(1)}}
	out := s.FillMissingPrices(context.Background(), networkdefinition.Ethereum, in)
	assert.Nil(t, out[0].UsdValue)

	// Chains unknown to DEX Screener are skipped entirely.
	out = s.FillMissingPrices(context.Background(), entity.ChainContext{ChainID: 999}, in)
	assert.Nil(t, out[0].UsdValue)
	assert.Len(t, dsc.batches, 1)
}
