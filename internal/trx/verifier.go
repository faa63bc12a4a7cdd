package trx

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
)

// candidate is one framing the vendor may have signed a callback over. The
// platform's docs do not pin down whether the signature covers the inner
// originalData alone or an envelope repeating the merchant number, so the
// verifier tries each known framing in order and accepts on the first hit.
// Rejecting a legitimately signed callback is worse than accepting a
// loosely framed one: the vendor retries forever and the return event is
// never delivered.
type candidate struct {
	name  string
	build func(merchantNo string, payload any) any
}

var callbackCandidates = []candidate{
	{
		name:  "payload",
		build: func(_ string, payload any) any { return payload },
	},
	{
		name: "merchant_envelope",
		build: func(merchantNo string, payload any) any {
			return map[string]any{"merchantNo": merchantNo, "originalData": payload}
		},
	},
}

// Verifier authenticates vendor callbacks. A nil key puts it in trust-all
// mode for environments where the vendor public key is not distributed.
type Verifier struct {
	key *rsa.PublicKey
}

func NewVerifier(key *rsa.PublicKey) *Verifier { return &Verifier{key: key} }

// Enforced reports whether signatures are actually checked.
func (v *Verifier) Enforced() bool { return v.key != nil }

// Verify checks signB64 against every candidate canonicalization of payload.
// Pure function: no side effects, callers decide what a failure means.
func (v *Verifier) Verify(merchantNo, signB64 string, payload any) bool {
	if v.key == nil {
		return true
	}
	sig, err := base64.StdEncoding.DecodeString(signB64)
	if err != nil {
		return false
	}
	for _, c := range callbackCandidates {
		canonical, err := Canonicalize(c.build(merchantNo, payload))
		if err != nil {
			continue
		}
		digest := sha256.Sum256(canonical)
		if rsa.VerifyPKCS1v15(v.key, crypto.SHA256, digest[:], sig) == nil {
			return true
		}
	}
	return false
}
