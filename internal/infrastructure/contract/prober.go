package contract

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const safeABI = `[
{"constant":true,"inputs":[],"name":"getOwners","outputs":[{"name":"","type":"address[]"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"getThreshold","outputs":[{"name":"","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}
]`

var (
	parsedSafeABI abi.ABI
	parseSafeOnce sync.Once
)

func initSafeABI() {
	parseSafeOnce.Do(func() {
		var err error
		parsedSafeABI, err = abi.JSON(strings.NewReader(safeABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse Safe ABI: %v", err))
		}
	})
}

// Pattern is a known contract implementation recognized by its bytecode prefix.
type Pattern struct {
	Name   string
	Kind   entity.ContractKind
	Prefix []byte
}

// DefaultPatterns is the registry of recognized bytecode prefixes.
var DefaultPatterns = []Pattern{
	{
		// Safe (Gnosis Safe) proxy: loads the singleton from slot 0 and delegates.
		Name:   "Safe proxy",
		Kind:   entity.ContractKindSafe,
		Prefix: common.FromHex("0x608060405273ffffffffffffffffffffffffffffffffffffffff600054167fa619486e"),
	},
	{
		Name:   "EIP-1167 minimal proxy",
		Kind:   entity.ContractKindMinimalProxy,
		Prefix: common.FromHex("0x363d3d373d3d3d363d73"),
	},
}

// Prober implements port.ContractProber.
type Prober struct {
	readers  port.ChainReaderProvider
	patterns []Pattern
	logger   *zap.Logger
}

// NewProber creates a prober matching against patterns, or DefaultPatterns when patterns is nil.
func NewProber(readers port.ChainReaderProvider, patterns []Pattern, logger *zap.Logger) *Prober {
	initSafeABI()
	if patterns == nil {
		patterns = DefaultPatterns
	}
	return &Prober{readers: readers, patterns: patterns, logger: logger.Named("ContractProber")}
}

// Match returns the first pattern whose prefix starts code.
func (p *Prober) Match(code []byte) (Pattern, bool) {
	for _, pattern := range p.patterns {
		if len(pattern.Prefix) > 0 && len(code) >= len(pattern.Prefix) && string(code[:len(pattern.Prefix)]) == string(pattern.Prefix) {
			return pattern, true
		}
	}
	return Pattern{}, false
}

// Probe classifies the code at address. Only Safe matches trigger follow-up reads.
func (p *Prober) Probe(ctx context.Context, address string, chain entity.ChainContext) (entity.ContractInfo, error) {
	reader, err := p.readers.GetReader(chain)
	if err != nil {
		return entity.ContractInfo{}, err
	}

	code, err := reader.CodeAt(ctx, address)
	if err != nil {
		return entity.ContractInfo{}, err
	}
	if len(code) == 0 {
		return entity.ContractInfo{IsContract: false, Kind: entity.ContractKindEOA}, nil
	}

	info := entity.ContractInfo{IsContract: true, Kind: entity.ContractKindGeneric, CodeSize: len(code)}
	pattern, ok := p.Match(code)
	if !ok {
		p.logger.Debug("Unrecognized contract", zap.String("address", address), zap.String("codePrefix", codePrefix(code)))
		return info, nil
	}
	info.Kind = pattern.Kind
	info.PatternName = pattern.Name

	if pattern.Kind != entity.ContractKindSafe {
		return info, nil
	}

	owners, threshold, err := p.readSafe(ctx, reader, address)
	if err != nil {
		return entity.ContractInfo{}, fmt.Errorf("read Safe state of %s: %w", address, err)
	}
	info.Owners = owners
	info.Threshold = threshold
	return info, nil
}

func (p *Prober) readSafe(ctx context.Context, reader port.ChainReader, address string) ([]string, uint64, error) {
	ownersData, err := parsedSafeABI.Pack("getOwners")
	if err != nil {
		return nil, 0, err
	}
	thresholdData, err := parsedSafeABI.Pack("getThreshold")
	if err != nil {
		return nil, 0, err
	}

	results, err := reader.BatchCall(ctx, []entity.ContractCallItem{
		{ID: "getOwners", To: address, Data: ownersData},
		{ID: "getThreshold", To: address, Data: thresholdData},
	})
	if err != nil {
		return nil, 0, err
	}
	for _, r := range results {
		if r.Error != nil {
			return nil, 0, r.Error
		}
	}

	unpackedOwners, err := parsedSafeABI.Unpack("getOwners", results[0].Output)
	if err != nil {
		return nil, 0, fmt.Errorf("unpack getOwners: %w", err)
	}
	if len(unpackedOwners) == 0 {
		return nil, 0, errors.New("unpack getOwners: empty result")
	}
	ownerAddrs, ok := unpackedOwners[0].([]common.Address)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected getOwners result type %T", unpackedOwners[0])
	}
	owners := make([]string, len(ownerAddrs))
	for i, o := range ownerAddrs {
		owners[i] = o.Hex()
	}

	unpackedThreshold, err := parsedSafeABI.Unpack("getThreshold", results[1].Output)
	if err != nil {
		return nil, 0, fmt.Errorf("unpack getThreshold: %w", err)
	}
	if len(unpackedThreshold) == 0 {
		return nil, 0, errors.New("unpack getThreshold: empty result")
	}
	threshold, ok := unpackedThreshold[0].(*big.Int)
	if !ok {
		return nil, 0, fmt.Errorf("unexpected getThreshold result type %T", unpackedThreshold[0])
	}
	return owners, threshold.Uint64(), nil
}

func codePrefix(code []byte) string {
	if len(code) > 8 {
		code = code[:8]
	}
	return "0x" + hex.EncodeToString(code)
}

var _ port.ContractProber = (*Prober)(nil)
