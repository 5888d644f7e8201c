package entity

// QueryKind classifies a normalized user query.
type QueryKind int

const (
	QueryInvalid QueryKind = iota
	QueryAddress
	QueryEnsName
)

func (k QueryKind) String() string {
	switch k {
	case QueryAddress:
		return "address"
	case QueryEnsName:
		return "ens"
	default:
		return "invalid"
	}
}

// CanonicalQuery is the normalized form of raw user input.
// Value holds the checksummed address or the lower-cased name; it is empty for invalid queries.
type CanonicalQuery struct {
	Kind  QueryKind `json:"kind"`
	Value string    `json:"value"`
}

// Render returns the canonical text of the query. Normalizing it again yields the same query.
func (q CanonicalQuery) Render() string {
	if q.Kind == QueryInvalid {
		return ""
	}
	return q.Value
}

// IsValid reports whether the query can be resolved.
func (q CanonicalQuery) IsValid() bool {
	return q.Kind != QueryInvalid
}
