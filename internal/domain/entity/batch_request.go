package entity

// ZeroAddress represents the Ethereum zero address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// ContractCallItem is a single read-only eth_call inside a batch.
type ContractCallItem struct {
	ID   string
	To   string
	Data []byte
}

// ContractCallResult is the outcome of one call from a batch.
type ContractCallResult struct {
	RequestID string
	To        string
	Output    []byte
	Error     error
}
