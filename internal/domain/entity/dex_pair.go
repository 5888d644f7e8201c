package entity

// DEXTokenPair is the wrapped form of a DEX Screener pairs response.
type DEXTokenPair struct {
	SchemaVersion string     `json:"schemaVersion"`
	Pairs         []PairData `json:"pairs"`
}

// PairData is one trading pair reported by DEX Screener.
type PairData struct {
	ChainID     string        `json:"chainId"`
	DexID       string        `json:"dexId"`
	URL         string        `json:"url"`
	PairAddress string        `json:"pairAddress"`
	BaseToken   DEXToken      `json:"baseToken"`
	QuoteToken  DEXToken      `json:"quoteToken"`
	PriceNative string        `json:"priceNative"`
	PriceUsd    string        `json:"priceUsd"`
	Volume      PairVolume    `json:"volume"`
	Liquidity   *DEXLiquidity `json:"liquidity"`
	Fdv         float64       `json:"fdv"`
	MarketCap   float64       `json:"marketCap"`
}

// DEXToken is a token side of a pair.
type DEXToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// DEXLiquidity is the pooled liquidity of a pair. It is nil for pairs DEX Screener cannot value.
type DEXLiquidity struct {
	Usd   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// PairVolume is trading volume over rolling windows.
type PairVolume struct {
	H1  float64 `json:"h1"`
	H24 float64 `json:"h24"`
}
