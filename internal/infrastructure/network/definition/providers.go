package networkdefinition

import (
	"fmt"
	"sort"
	"strings"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
)

// NetworkDefinitionProvider provides the tracked chains.
type NetworkDefinitionProvider struct {
	logger       port.Logger
	activeChains []entity.ChainContext
}

// Predefined chains
var ( //nolint:gochecknoglobals // Global for definitions
	Ethereum = entity.ChainContext{
		ChainID:                   1,
		Name:                      "Ethereum Mainnet",
		Identifier:                "ethereum",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://ethereum-rpc.publicnode.com",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/eth", "https://ethereum.publicnode.com"},
		BlockExplorerURL:          "https://etherscan.io",
		AlchemyNetwork:            "eth-mainnet",
		MoralisChain:              "eth",
		OpenSeaChain:              "ethereum",
		DEXScreenerChainID:        "ethereum",
		WrappedNativeTokenAddress: "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", // WETH
	}
	Optimism = entity.ChainContext{
		ChainID:                   10,
		Name:                      "OP Mainnet",
		Identifier:                "optimism",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://optimism.publicnode.com",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/optimism", "https://op-pokt.nodies.app"},
		BlockExplorerURL:          "https://optimistic.etherscan.io",
		AlchemyNetwork:            "opt-mainnet",
		MoralisChain:              "optimism",
		OpenSeaChain:              "optimism",
		DEXScreenerChainID:        "optimism",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006", // WETH on Optimism
	}
	Polygon = entity.ChainContext{
		ChainID:                   137,
		Name:                      "Polygon PoS",
		Identifier:                "polygon",
		NativeSymbol:              "POL",
		Decimals:                  18,
		PrimaryRPCURL:             "https://polygon-rpc.com/",
		FallbackRPCURLs:           []string{"https://rpc.ankr.com/polygon", "https://polygon.publicnode.com"},
		BlockExplorerURL:          "https://polygonscan.com",
		AlchemyNetwork:            "polygon-mainnet",
		MoralisChain:              "polygon",
		OpenSeaChain:              "matic",
		DEXScreenerChainID:        "polygon",
		WrappedNativeTokenAddress: "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", // WPOL
	}
	Base = entity.ChainContext{
		ChainID:                   8453,
		Name:                      "Base Mainnet",
		Identifier:                "base",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://base.publicnode.com",
		FallbackRPCURLs:           []string{"https://1rpc.io/base", "https://base.llamarpc.com"},
		BlockExplorerURL:          "https://basescan.org",
		AlchemyNetwork:            "base-mainnet",
		MoralisChain:              "base",
		OpenSeaChain:              "base",
		DEXScreenerChainID:        "base",
		WrappedNativeTokenAddress: "0x4200000000000000000000000000000000000006", // WETH on Base
	}
	Arbitrum = entity.ChainContext{
		ChainID:                   42161,
		Name:                      "Arbitrum One",
		Identifier:                "arbitrum",
		NativeSymbol:              "ETH",
		Decimals:                  18,
		PrimaryRPCURL:             "https://arb1.arbitrum.io/rpc",
		FallbackRPCURLs:           []string{"https://arbitrum.llamarpc.com", "https://arbitrum.publicnode.com"},
		BlockExplorerURL:          "https://arbiscan.io",
		AlchemyNetwork:            "arb-mainnet",
		MoralisChain:              "arbitrum",
		OpenSeaChain:              "arbitrum",
		DEXScreenerChainID:        "arbitrum",
		WrappedNativeTokenAddress: "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", // WETH on Arbitrum
	}
)

// allKnownDefinitions is a helper to quickly access all hardcoded definitions.
var allKnownDefinitions = map[string]entity.ChainContext{
	Ethereum.Identifier: Ethereum,
	Optimism.Identifier: Optimism,
	Polygon.Identifier:  Polygon,
	Base.Identifier:     Base,
	Arbitrum.Identifier: Arbitrum,
}

// Lookup returns the known definition of identifier, tracked or not, with its RPC override applied.
// The overridden URL becomes primary and the default one its first fallback.
func Lookup(identifier string, rpcOverrides map[string]string) (entity.ChainContext, bool) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	def, ok := allKnownDefinitions[identifier]
	if !ok {
		return entity.ChainContext{}, false
	}
	if rpcURL, ok := rpcOverrides[identifier]; ok && rpcURL != "" {
		def.FallbackRPCURLs = append([]string{def.PrimaryRPCURL}, def.FallbackRPCURLs...)
		def.PrimaryRPCURL = rpcURL
	}
	return def, true
}

// NewNetworkDefinitionProvider activates the tracked identifiers. rpcOverrides replaces the primary RPC URL per identifier.
func NewNetworkDefinitionProvider(log port.Logger, tracked []string, rpcOverrides map[string]string) *NetworkDefinitionProvider {
	p := &NetworkDefinitionProvider{
		logger:       log,
		activeChains: make([]entity.ChainContext, 0, len(tracked)),
	}

	seen := make(map[string]struct{})
	for _, raw := range tracked {
		identifier := strings.ToLower(strings.TrimSpace(raw))
		if _, dup := seen[identifier]; dup {
			p.logger.Warn("Duplicate tracked network, skipping", "identifier", identifier)
			continue
		}

		def, ok := Lookup(identifier, rpcOverrides)
		if !ok {
			p.logger.Warn(fmt.Sprintf("Tracked network '%s' has no hardcoded definition. Skipping.", identifier))
			continue
		}

		p.activeChains = append(p.activeChains, def)
		seen[identifier] = struct{}{}
	}
	sort.Slice(p.activeChains, func(i, j int) bool { return p.activeChains[i].ChainID < p.activeChains[j].ChainID })

	if len(p.activeChains) == 0 {
		p.logger.Warn("No tracked networks match a known definition. No chains will be queried.")
	} else {
		p.logger.Info(fmt.Sprintf("NetworkDefinitionProvider initialized. Active networks: %d", len(p.activeChains)))
		for _, c := range p.activeChains {
			p.logger.Debug(fmt.Sprintf("  - Active network: %s (ID: %s, ChainID: %d)", c.Name, c.Identifier, c.ChainID))
		}
	}

	return p
}

// GetAllChains returns the active chains ordered by chain id.
func (p *NetworkDefinitionProvider) GetAllChains() []entity.ChainContext {
	if p == nil {
		return []entity.ChainContext{}
	}
	defsCopy := make([]entity.ChainContext, len(p.activeChains))
	copy(defsCopy, p.activeChains)
	return defsCopy
}

// GetChainByIdentifier returns an active chain by its identifier.
func (p *NetworkDefinitionProvider) GetChainByIdentifier(identifier string) (entity.ChainContext, bool) {
	if p == nil {
		return entity.ChainContext{}, false
	}
	for _, def := range p.activeChains {
		if def.Identifier == identifier {
			return def, true
		}
	}
	return entity.ChainContext{}, false
}

// GetChainByID returns an active chain by its chain id.
func (p *NetworkDefinitionProvider) GetChainByID(chainID uint64) (entity.ChainContext, bool) {
	if p == nil {
		return entity.ChainContext{}, false
	}
	for _, def := range p.activeChains {
		if def.ChainID == chainID {
			return def, true
		}
	}
	return entity.ChainContext{}, false
}
