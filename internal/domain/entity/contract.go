package entity

// ContractKind classifies the code deployed at an address.
type ContractKind string

const (
	ContractKindEOA          ContractKind = "eoa"
	ContractKindGeneric      ContractKind = "generic"
	ContractKindSafe         ContractKind = "safe"
	ContractKindMinimalProxy ContractKind = "minimal-proxy"
)

// ContractInfo is the result of probing an address's bytecode.
type ContractInfo struct {
	IsContract  bool         `json:"isContract"`
	Kind        ContractKind `json:"kind"`
	PatternName string       `json:"patternName,omitempty"`
	CodeSize    int          `json:"codeSize"`
	Owners      []string     `json:"owners,omitempty"`
	Threshold   uint64       `json:"threshold,omitempty"`
}
