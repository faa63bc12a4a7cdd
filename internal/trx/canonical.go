// Package trx implements the signed request protocol the vendor platform
// expects on every /trx/interface call: a canonical JSON body, an RSA-SHA256
// signature over those exact bytes in the Authorization header, and the
// mirror-image verification for callbacks the vendor signs towards us.
package trx

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonicalize renders v as compact JSON that is a deterministic function of
// the value: object keys sorted lexicographically, array order preserved, and
// keys whose value is null dropped entirely. The null omission is load-bearing:
// the vendor computes signatures over payloads with absent-null keys, so both
// sides must prune identically or signatures never match.
func Canonicalize(v any) ([]byte, error) {
	// Round-trip through encoding/json so struct inputs collapse into the
	// same map/slice/float64 shape as hand-built payloads.
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(prune(tree)); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	// Encoder appends a newline; the signed bytes must not include it.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// prune drops null-valued object keys at every depth. Key ordering needs no
// extra work: encoding/json already emits map keys in sorted order.
func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = prune(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = prune(val)
		}
		return out
	default:
		return v
	}
}
