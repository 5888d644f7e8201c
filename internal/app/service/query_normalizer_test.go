package service

import (
	"strings"
	"testing"

	"address_vision/internal/domain/entity"
	"address_vision/internal/infrastructure/configloader"

	"github.com/stretchr/testify/assert"
)

func newTestNormalizer() *QueryNormalizer {
	return NewQueryNormalizer(configloader.Default().Query)
}

func TestNormalize(t *testing.T) {
	n := newTestNormalizer()
	cases := []struct {
		raw  string
		kind entity.QueryKind
		want string
	}{
		{"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", entity.QueryAddress, vitalikAddr},
		{"  0xd8da6bf26964af9d7eed9e03e53415d37aa96045  ", entity.QueryAddress, vitalikAddr},
		{"0XD8DA6BF26964AF9D7EED9E03E53415D37AA96045", entity.QueryAddress, vitalikAddr},
		{"d8da6bf26964af9d7eed9e03e53415d37aa96045", entity.QueryAddress, vitalikAddr},
		{"eth:0xd8da6bf26964af9d7eed9e03e53415d37aa96045", entity.QueryAddress, vitalikAddr},
		{"OETH:0xd8da6bf26964af9d7eed9e03e53415d37aa96045", entity.QueryAddress, vitalikAddr},
		{"vitalik.eth", entity.QueryEnsName, "vitalik.eth"},
		{" Vitalik.ETH ", entity.QueryEnsName, "vitalik.eth"},
		{"pay.vitalik.eth", entity.QueryEnsName, "pay.vitalik.eth"},
		{"brantly.xyz", entity.QueryEnsName, "brantly.xyz"},
		{"", entity.QueryInvalid, ""},
		{"   ", entity.QueryInvalid, ""},
		{"eth:", entity.QueryInvalid, ""},
		{".eth", entity.QueryInvalid, ""},
		{"vitalik..eth", entity.QueryInvalid, ""},
		{"vitalik", entity.QueryInvalid, ""},
		{"vitalik.com", entity.QueryInvalid, ""},
		{"0x1234", entity.QueryInvalid, ""},
		{"https://vitalik.eth", entity.QueryInvalid, ""},
		{"vit alik.eth", entity.QueryInvalid, ""},
	}
	for _, tc := range cases {
		got := n.Normalize(tc.raw)
		assert.Equalf(t, tc.kind, got.Kind, "kind of %q", tc.raw)
		assert.Equalf(t, tc.want, got.Render(), "render of %q", tc.raw)
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := newTestNormalizer()
	inputs := []string{
		"0xd8da6bf26964af9d7eed9e03e53415d37aa96045",
		"eth:0xD8DA6BF26964AF9D7EED9E03E53415D37AA96045",
		"  Vitalik.ETH",
		"garbage",
		"",
		strings.Repeat("a", 40) + ".eth",
	}
	for _, raw := range inputs {
		first := n.Normalize(raw)
		assert.Equal(t, first, n.Normalize(first.Render()), raw)
		assert.Equal(t, first, n.Normalize(raw), "deterministic for %q", raw)
	}
}
