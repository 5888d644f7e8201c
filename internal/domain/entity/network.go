package entity

import "strings"

// GlobalChainID scopes results of sources that are not bound to a chain (POAP, social graph).
const GlobalChainID uint64 = 0

// ChainContext holds the static configuration for a supported chain.
// It is defined at the domain level so that sources, clients and the aggregator share one view of a chain.
type ChainContext struct {
	ChainID          uint64   `json:"chainId" yaml:"chainId"`
	Name             string   `json:"name" yaml:"name"`
	Identifier       string   `json:"identifier" yaml:"identifier"`
	NativeSymbol     string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	Decimals         int32    `json:"decimals" yaml:"decimals"`
	PrimaryRPCURL    string   `json:"-" yaml:"primaryRpcUrl"`
	FallbackRPCURLs  []string `json:"-" yaml:"fallbackRpcUrls"`
	BlockExplorerURL string   `json:"blockExplorerUrl,omitempty" yaml:"blockExplorerUrl,omitempty"`

	// Provider-specific chain identifiers.
	AlchemyNetwork            string `json:"-" yaml:"alchemyNetwork"`
	MoralisChain              string `json:"-" yaml:"moralisChain"`
	OpenSeaChain              string `json:"-" yaml:"openSeaChain"`
	DEXScreenerChainID        string `json:"-" yaml:"dexScreenerChainId"`
	WrappedNativeTokenAddress string `json:"-" yaml:"wrappedNativeTokenAddress"`
}

// AddressURL returns the block explorer page for address, or an empty string if the chain has no explorer.
func (c ChainContext) AddressURL(address string) string {
	if c.BlockExplorerURL == "" {
		return ""
	}
	return strings.TrimRight(c.BlockExplorerURL, "/") + "/address/" + address
}

// GlobalChain is the pseudo chain used for chain-agnostic sources.
func GlobalChain() ChainContext {
	return ChainContext{ChainID: GlobalChainID, Name: "Global", Identifier: "global"}
}
