package port

import (
	"context"

	"address_vision/internal/domain/entity"
)

// ChainReader is a read-only view of one EVM chain.
type ChainReader interface {
	// CodeAt returns the bytecode deployed at address on the latest block.
	CodeAt(ctx context.Context, address string) ([]byte, error)

	// CallContract executes a read-only call against to.
	CallContract(ctx context.Context, to string, data []byte) ([]byte, error)

	// BatchCall executes several read-only calls in one JSON-RPC batch.
	BatchCall(ctx context.Context, calls []entity.ContractCallItem) ([]entity.ContractCallResult, error)

	// Chain returns the chain this reader is bound to.
	Chain() entity.ChainContext
}

// ChainProvider provides the static chain configuration.
type ChainProvider interface {
	// GetAllChains returns all active chains ordered by chain id.
	GetAllChains() []entity.ChainContext

	// GetChainByID returns the active chain with the given id.
	GetChainByID(chainID uint64) (entity.ChainContext, bool)

	// GetChainByIdentifier returns the active chain by its identifier (e.g. "base").
	GetChainByIdentifier(identifier string) (entity.ChainContext, bool)
}

// ChainReaderProvider provides cached chain readers.
type ChainReaderProvider interface {
	GetReader(chain entity.ChainContext) (ChainReader, error)
}
