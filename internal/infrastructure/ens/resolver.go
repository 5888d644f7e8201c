package ens

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

const registryABI = `[{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"resolver","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}]`

const resolverABI = `[
{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"addr","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"node","type":"bytes32"}],"name":"name","outputs":[{"name":"","type":"string"}],"payable":false,"stateMutability":"view","type":"function"}
]`

const reverseSuffix = "addr.reverse"

var (
	parsedRegistryABI abi.ABI
	parsedResolverABI abi.ABI
	parseABIOnce      sync.Once
)

func initABIs() {
	parseABIOnce.Do(func() {
		var err error
		parsedRegistryABI, err = abi.JSON(strings.NewReader(registryABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ENS registry ABI: %v", err))
		}
		parsedResolverABI, err = abi.JSON(strings.NewReader(resolverABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ENS resolver ABI: %v", err))
		}
	})
}

// NameHash computes the EIP-137 namehash of name. The name must already be normalized.
func NameHash(name string) common.Hash {
	var node common.Hash
	if name == "" {
		return node
	}
	labels := strings.Split(name, ".")
	for i := len(labels) - 1; i >= 0; i-- {
		labelHash := crypto.Keccak256Hash([]byte(labels[i]))
		node = crypto.Keccak256Hash(node.Bytes(), labelHash.Bytes())
	}
	return node
}

// Resolver implements port.NameResolver with read-only calls to the ENS registry and resolvers.
type Resolver struct {
	reader        port.ChainReader
	registry      common.Address
	verifyReverse bool
	logger        *zap.Logger
}

// NewResolver creates a resolver that reads through reader, which must be bound to the chain hosting the registry.
func NewResolver(reader port.ChainReader, registryAddress string, verifyReverse bool, logger *zap.Logger) *Resolver {
	initABIs()
	return &Resolver{
		reader:        reader,
		registry:      common.HexToAddress(registryAddress),
		verifyReverse: verifyReverse,
		logger:        logger.Named("ENSResolver"),
	}
}

// ResolveName implements port.NameResolver.
func (r *Resolver) ResolveName(ctx context.Context, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	node := NameHash(name)

	resolverAddr, err := r.resolverOf(ctx, node)
	if err != nil {
		return "", fmt.Errorf("resolver lookup for %s: %w", name, err)
	}
	if resolverAddr == (common.Address{}) {
		r.logger.Debug("Name has no resolver", zap.String("name", name))
		return "", entity.ErrNotFound
	}

	data, err := parsedResolverABI.Pack("addr", node)
	if err != nil {
		return "", fmt.Errorf("pack addr(%s): %w", name, err)
	}
	out, err := r.reader.CallContract(ctx, resolverAddr.Hex(), data)
	if err != nil {
		return "", fmt.Errorf("addr lookup for %s: %w", name, err)
	}
	if len(out) == 0 {
		return "", entity.ErrNotFound
	}

	unpacked, err := parsedResolverABI.Unpack("addr", out)
	if err != nil || len(unpacked) == 0 {
		return "", fmt.Errorf("unpack addr(%s): %w", name, errors.Join(err, errEmptyOutput))
	}
	addr, ok := unpacked[0].(common.Address)
	if !ok {
		return "", fmt.Errorf("unexpected addr(%s) result type %T", name, unpacked[0])
	}
	if addr == (common.Address{}) {
		return "", entity.ErrNotFound
	}

	r.logger.Debug("Resolved name", zap.String("name", name), zap.String("address", addr.Hex()))
	return addr.Hex(), nil
}

// LookupAddress implements port.NameResolver. When verification is on, a reverse record
// that does not forward-resolve to the same address is ignored.
func (r *Resolver) LookupAddress(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid address %q", address)
	}
	addr := common.HexToAddress(address)
	node := NameHash(strings.ToLower(addr.Hex()[2:]) + "." + reverseSuffix)

	resolverAddr, err := r.resolverOf(ctx, node)
	if err != nil {
		return "", fmt.Errorf("reverse resolver lookup for %s: %w", addr.Hex(), err)
	}
	if resolverAddr == (common.Address{}) {
		return "", nil
	}

	data, err := parsedResolverABI.Pack("name", node)
	if err != nil {
		return "", fmt.Errorf("pack name(%s): %w", addr.Hex(), err)
	}
	out, err := r.reader.CallContract(ctx, resolverAddr.Hex(), data)
	if err != nil {
		return "", fmt.Errorf("name lookup for %s: %w", addr.Hex(), err)
	}
	if len(out) == 0 {
		return "", nil
	}
	unpacked, err := parsedResolverABI.Unpack("name", out)
	if err != nil || len(unpacked) == 0 {
		return "", fmt.Errorf("unpack name(%s): %w", addr.Hex(), errors.Join(err, errEmptyOutput))
	}
	name, _ := unpacked[0].(string)
	name = strings.ToLower(name)
	if name == "" || !r.verifyReverse {
		return name, nil
	}

	forward, err := r.ResolveName(ctx, name)
	if errors.Is(err, entity.ErrNotFound) {
		r.logger.Debug("Reverse record does not forward-resolve", zap.String("address", addr.Hex()), zap.String("name", name))
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !strings.EqualFold(forward, addr.Hex()) {
		r.logger.Debug("Reverse record points elsewhere",
			zap.String("address", addr.Hex()),
			zap.String("name", name),
			zap.String("forward", forward))
		return "", nil
	}
	return name, nil
}

func (r *Resolver) resolverOf(ctx context.Context, node common.Hash) (common.Address, error) {
	data, err := parsedRegistryABI.Pack("resolver", node)
	if err != nil {
		return common.Address{}, err
	}
	out, err := r.reader.CallContract(ctx, r.registry.Hex(), data)
	if err != nil {
		return common.Address{}, err
	}
	if len(out) == 0 {
		return common.Address{}, nil
	}
	unpacked, err := parsedRegistryABI.Unpack("resolver", out)
	if err != nil || len(unpacked) == 0 {
		return common.Address{}, errors.Join(err, errEmptyOutput)
	}
	addr, _ := unpacked[0].(common.Address)
	return addr, nil
}

var errEmptyOutput = errors.New("empty call output")

var _ port.NameResolver = (*Resolver)(nil)
