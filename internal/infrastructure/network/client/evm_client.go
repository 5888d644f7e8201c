package client

import (
	"context"
	"fmt"
	"time"

	"address_vision/internal/app/port"
	"address_vision/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EVMClient implements port.ChainReader for EVM-compatible chains.
type EVMClient struct {
	ethClient      *ethclient.Client
	chain          entity.ChainContext
	rpcCallTimeout time.Duration
}

// NewEVMClient dials the primary RPC URL of chain and falls back to the others in order.
func NewEVMClient(chain entity.ChainContext, connectionTimeout time.Duration, rpcCallTimeout time.Duration) (*EVMClient, error) {
	rpcURLs := append([]string{chain.PrimaryRPCURL}, chain.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		cancel()

		if err == nil {
			return &EVMClient{ethClient: client, chain: chain, rpcCallTimeout: rpcCallTimeout}, nil
		}
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no RPC URL configured")
	}

	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", chain.Name, lastErr)
}

// NewEVMClientWithRPC wraps an already connected RPC client.
func NewEVMClientWithRPC(chain entity.ChainContext, rpcClient *rpc.Client, rpcCallTimeout time.Duration) *EVMClient {
	return &EVMClient{ethClient: ethclient.NewClient(rpcClient), chain: chain, rpcCallTimeout: rpcCallTimeout}
}

// CodeAt implements port.ChainReader.
func (c *EVMClient) CodeAt(ctx context.Context, address string) ([]byte, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}
	callCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	code, err := c.ethClient.CodeAt(callCtx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getCode %s on %s: %w", address, c.chain.Identifier, err)
	}
	return code, nil
}

// CallContract implements port.ChainReader.
func (c *EVMClient) CallContract(ctx context.Context, to string, data []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	toAddr := common.HexToAddress(to)
	out, err := c.ethClient.CallContract(callCtx, ethereum.CallMsg{To: &toAddr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("eth_call %s on %s: %w", to, c.chain.Identifier, err)
	}
	return out, nil
}

// BatchCall executes calls in a single JSON-RPC batch. A failed element is reported on its result, not as the returned error.
func (c *EVMClient) BatchCall(ctx context.Context, calls []entity.ContractCallItem) ([]entity.ContractCallResult, error) {
	if len(calls) == 0 {
		return []entity.ContractCallResult{}, nil
	}

	batchElems := make([]rpc.BatchElem, len(calls))
	results := make([]entity.ContractCallResult, len(calls))

	for i, call := range calls {
		results[i] = entity.ContractCallResult{RequestID: call.ID, To: call.To}
		callArgs := map[string]interface{}{
			"to":   common.HexToAddress(call.To),
			"data": hexutil.Bytes(call.Data),
		}
		batchElems[i] = rpc.BatchElem{
			Method: "eth_call",
			Args:   []interface{}{callArgs, "latest"},
			Result: new(hexutil.Bytes),
		}
	}

	rpcCallCtx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	defer cancel()

	if err := c.ethClient.Client().BatchCallContext(rpcCallCtx, batchElems); err != nil {
		return results, fmt.Errorf("RPC batch call failed: %w", err)
	}

	for i, elem := range batchElems {
		if elem.Error != nil {
			results[i].Error = fmt.Errorf("call %s to %s: %w", calls[i].ID, calls[i].To, elem.Error)
			continue
		}
		if out, ok := elem.Result.(*hexutil.Bytes); ok && out != nil {
			results[i].Output = *out
		} else {
			results[i].Error = fmt.Errorf("failed to decode result of %s: unexpected type or nil result", calls[i].ID)
		}
	}
	return results, nil
}

// Chain implements port.ChainReader.
func (c *EVMClient) Chain() entity.ChainContext {
	return c.chain
}

// Close releases the underlying connection.
func (c *EVMClient) Close() {
	c.ethClient.Close()
}

var _ port.ChainReader = (*EVMClient)(nil)
