package trx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizeSortsKeys(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1, "c": map[string]any{"z": true, "y": false}}
	b := map[string]any{"c": map[string]any{"y": false, "z": true}, "a": 1, "b": 2}

	ca, err := Canonicalize(a)
	require.NoError(t, err)
	cb, err := Canonicalize(b)
	require.NoError(t, err)

	assert.Equal(t, string(ca), string(cb))
	assert.Equal(t, `{"a":1,"b":2,"c":{"y":false,"z":true}}`, string(ca))
}

func TestCanonicalizeOmitsNullKeys(t *testing.T) {
	in := map[string]any{
		"merchantNo": "M100",
		"cartNo":     nil,
		"nested":     map[string]any{"keep": "x", "drop": nil},
	}
	out, err := Canonicalize(in)
	require.NoError(t, err)
	assert.Equal(t, `{"merchantNo":"M100","nested":{"keep":"x"}}`, string(out))
}

func TestCanonicalizePreservesArrayOrder(t *testing.T) {
	in := map[string]any{"cartNo": []string{"C3", "C1", "C2"}}
	out, err := Canonicalize(in)
	require.NoError(t, err)
	assert.Equal(t, `{"cartNo":["C3","C1","C2"]}`, string(out))
}

func TestCanonicalizeNullInsideArrayKept(t *testing.T) {
	// Omission applies to object keys only; array elements keep their slots.
	in := map[string]any{"xs": []any{1, nil, 3}}
	out, err := Canonicalize(in)
	require.NoError(t, err)
	assert.Equal(t, `{"xs":[1,null,3]}`, string(out))
}

func TestCanonicalizeStructInput(t *testing.T) {
	type unlock struct {
		MerchantNo string  `json:"merchantNo"`
		DeviceNo   string  `json:"deviceNo"`
		CartNo     *string `json:"cartNo"`
		CartIndex  int     `json:"cartIndex"`
	}
	fromStruct, err := Canonicalize(unlock{MerchantNo: "M100", DeviceNo: "D1", CartIndex: 4})
	require.NoError(t, err)
	fromMap, err := Canonicalize(map[string]any{
		"cartIndex":  4,
		"deviceNo":   "D1",
		"merchantNo": "M100",
		"cartNo":     nil,
	})
	require.NoError(t, err)
	assert.Equal(t, string(fromMap), string(fromStruct))
}

func TestCanonicalizeNoHTMLEscaping(t *testing.T) {
	out, err := Canonicalize(map[string]any{"name": "A&B <mall>"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"A&B <mall>"}`, string(out))
}
