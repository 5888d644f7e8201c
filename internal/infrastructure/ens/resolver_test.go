package ens

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"address_vision/internal/domain/entity"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testRegistry = "0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e"

// fakeChain answers registry and resolver calls from in-memory records.
type fakeChain struct {
	resolvers map[common.Hash]common.Address
	addrs     map[common.Hash]common.Address
	names     map[common.Hash]string
	err       error
	calls     int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		resolvers: map[common.Hash]common.Address{},
		addrs:     map[common.Hash]common.Address{},
		names:     map[common.Hash]string{},
	}
}

func (f *fakeChain) CodeAt(context.Context, string) ([]byte, error) { return nil, nil }

func (f *fakeChain) BatchCall(context.Context, []entity.ContractCallItem) ([]entity.ContractCallResult, error) {
	return nil, nil
}

func (f *fakeChain) Chain() entity.ChainContext { return entity.ChainContext{ChainID: 1} }

func (f *fakeChain) CallContract(_ context.Context, to string, data []byte) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	var node common.Hash
	copy(node[:], data[4:36])
	selector := data[:4]

	switch {
	case common.HexToAddress(to) == common.HexToAddress(testRegistry) && bytes.Equal(selector, parsedRegistryABI.Methods["resolver"].ID):
		return parsedRegistryABI.Methods["resolver"].Outputs.Pack(f.resolvers[node])
	case bytes.Equal(selector, parsedResolverABI.Methods["addr"].ID):
		return parsedResolverABI.Methods["addr"].Outputs.Pack(f.addrs[node])
	case bytes.Equal(selector, parsedResolverABI.Methods["name"].ID):
		return parsedResolverABI.Methods["name"].Outputs.Pack(f.names[node])
	}
	return nil, fmt.Errorf("unexpected call to %s", to)
}

var (
	publicResolver = common.HexToAddress("0x231b0Ee14048e9dCcD1d247744d114a4EB5E8E63")
	vitalik        = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
)

func (f *fakeChain) setName(name string, addr common.Address) {
	node := NameHash(name)
	f.resolvers[node] = publicResolver
	f.addrs[node] = addr
}

func (f *fakeChain) setReverse(addr common.Address, name string) {
	node := NameHash(fmt.Sprintf("%x.addr.reverse", addr.Bytes()))
	f.resolvers[node] = publicResolver
	f.names[node] = name
}

func newTestResolver(chain *fakeChain, verify bool) *Resolver {
	return NewResolver(chain, testRegistry, verify, zap.NewNop())
}

func TestNameHashVectors(t *testing.T) {
	assert.Equal(t, common.Hash{}, NameHash(""))
	assert.Equal(t, "0x93cdeb708b7545dc668eb9280176169d1c33cfd8ed6f04690a0bcc88a93fc4ae", NameHash("eth").Hex())
	assert.Equal(t, "0xde9b09fd7c5f901e23a3f19fecc54828e9c848539801e86591bd9801b019f84f", NameHash("foo.eth").Hex())
}

func TestResolveName(t *testing.T) {
	chain := newFakeChain()
	chain.setName("vitalik.eth", vitalik)
	r := newTestResolver(chain, true)

	addr, err := r.ResolveName(context.Background(), "Vitalik.ETH")
	require.NoError(t, err)
	assert.Equal(t, vitalik.Hex(), addr)
}

func TestResolveNameNotFound(t *testing.T) {
	chain := newFakeChain()
	r := newTestResolver(chain, true)

	_, err := r.ResolveName(context.Background(), "doesnotexist12345.eth")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	// A resolver without an address record is also not found.
	chain.setName("empty.eth", common.Address{})
	_, err = r.ResolveName(context.Background(), "empty.eth")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestResolveNameBackendError(t *testing.T) {
	chain := newFakeChain()
	chain.err = errors.New("connection refused")
	r := newTestResolver(chain, true)

	_, err := r.ResolveName(context.Background(), "vitalik.eth")
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrNotFound)
}

func TestLookupAddressVerifiesForwardRecord(t *testing.T) {
	chain := newFakeChain()
	chain.setReverse(vitalik, "vitalik.eth")
	chain.setName("vitalik.eth", vitalik)
	r := newTestResolver(chain, true)

	name, err := r.LookupAddress(context.Background(), vitalik.Hex())
	require.NoError(t, err)
	assert.Equal(t, "vitalik.eth", name)

	// Claiming a name owned by someone else yields no name.
	impostor := common.HexToAddress("0x000000000000000000000000000000000000dEaD")
	chain.setReverse(impostor, "vitalik.eth")
	name, err = r.LookupAddress(context.Background(), impostor.Hex())
	require.NoError(t, err)
	assert.Empty(t, name)

	// Without verification the raw record is returned.
	name, err = newTestResolver(chain, false).LookupAddress(context.Background(), impostor.Hex())
	require.NoError(t, err)
	assert.Equal(t, "vitalik.eth", name)
}

func TestLookupAddressWithoutReverseRecord(t *testing.T) {
	r := newTestResolver(newFakeChain(), true)
	name, err := r.LookupAddress(context.Background(), vitalik.Hex())
	require.NoError(t, err)
	assert.Empty(t, name)

	_, err = r.LookupAddress(context.Background(), "0x123")
	require.Error(t, err)
}
