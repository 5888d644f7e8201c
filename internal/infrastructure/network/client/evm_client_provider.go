package client

import (
	"fmt"
	"sync"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"
)

// DialFunc connects a chain reader. It is replaceable in tests.
type DialFunc func(chain entity.ChainContext, connectionTimeout, rpcCallTimeout time.Duration) (port.ChainReader, error)

// evmClientProvider implements port.ChainReaderProvider and caches one reader per chain.
type evmClientProvider struct {
	clients           map[uint64]port.ChainReader
	mu                sync.Mutex
	logger            port.Logger
	dial              DialFunc
	connectionTimeout time.Duration
	rpcCallTimeout    time.Duration
}

// NewEVMClientProvider creates a provider that dials with NewEVMClient.
func NewEVMClientProvider(cfg *configloader.Config, logger port.Logger) port.ChainReaderProvider {
	return NewEVMClientProviderWithDial(cfg, logger, func(chain entity.ChainContext, connTimeout, callTimeout time.Duration) (port.ChainReader, error) {
		return NewEVMClient(chain, connTimeout, callTimeout)
	})
}

// NewEVMClientProviderWithDial creates a provider with a custom dial function.
func NewEVMClientProviderWithDial(cfg *configloader.Config, logger port.Logger, dial DialFunc) port.ChainReaderProvider {
	return &evmClientProvider{
		clients:           make(map[uint64]port.ChainReader),
		logger:            logger,
		dial:              dial,
		connectionTimeout: time.Duration(cfg.Performance.ConnectionTimeoutSeconds) * time.Second,
		rpcCallTimeout:    time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second,
	}
}

// GetReader returns the cached reader of chain, dialing it on first use.
func (p *evmClientProvider) GetReader(chain entity.ChainContext) (port.ChainReader, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[chain.ChainID]; exists {
		return client, nil
	}

	p.logger.Info("Creating new EVM client", "network", chain.Name, "rpc_primary", chain.PrimaryRPCURL)
	newClient, err := p.dial(chain, p.connectionTimeout, p.rpcCallTimeout)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", chain.Name, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", chain.Name, err)
	}

	p.clients[chain.ChainID] = newClient
	p.logger.Info("Successfully created and cached new EVM client", "network", chain.Name)
	return newClient, nil
}
