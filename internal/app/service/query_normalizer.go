package service

import (
	"strings"

	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"

	"github.com/ethereum/go-ethereum/common"
)

// QueryNormalizer turns raw user input into a CanonicalQuery. It is pure and safe for concurrent use.
type QueryNormalizer struct {
	prefixes []string
	suffixes []string
}

// NewQueryNormalizer creates a normalizer with the configured scheme prefixes and name suffixes.
func NewQueryNormalizer(cfg configloader.QueryConfig) *QueryNormalizer {
	n := &QueryNormalizer{}
	for _, p := range cfg.SchemePrefixes {
		n.prefixes = append(n.prefixes, strings.ToLower(p))
	}
	for _, s := range cfg.NameSuffixes {
		n.suffixes = append(n.suffixes, strings.ToLower(s))
	}
	return n
}

// Normalize classifies raw as an address, a name, or invalid.
// Normalize(Normalize(x).Render()) == Normalize(x) for every x.
func (n *QueryNormalizer) Normalize(raw string) entity.CanonicalQuery {
	body := strings.TrimSpace(raw)
	lower := strings.ToLower(body)
	for _, p := range n.prefixes {
		if strings.HasPrefix(lower, p) {
			body = strings.TrimSpace(body[len(p):])
			break
		}
	}
	if body == "" {
		return entity.CanonicalQuery{Kind: entity.QueryInvalid}
	}

	if common.IsHexAddress(body) {
		return entity.CanonicalQuery{Kind: entity.QueryAddress, Value: common.HexToAddress(body).Hex()}
	}

	name := strings.ToLower(body)
	if n.isName(name) {
		return entity.CanonicalQuery{Kind: entity.QueryEnsName, Value: name}
	}
	return entity.CanonicalQuery{Kind: entity.QueryInvalid}
}

func (n *QueryNormalizer) isName(name string) bool {
	hasSuffix := false
	for _, s := range n.suffixes {
		if strings.HasSuffix(name, s) && len(name) > len(s) {
			hasSuffix = true
			break
		}
	}
	if !hasSuffix {
		return false
	}
	for _, label := range strings.Split(name, ".") {
		if label == "" || strings.ContainsAny(label, " \t\r\n/:?#@") {
			return false
		}
	}
	return true
}
