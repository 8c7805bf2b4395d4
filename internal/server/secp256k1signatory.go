package server

import (
	"crypto/sha256"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/xlnnetwork/xln/internal/crypto"
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/types"
)

// Secp256k1Signatory is the second concrete Signatory adapter (spec.md
// §1 Non-goals: "securityAdapter/crypto.Verifier stay pluggable
// interfaces backed by decred/dcrd/dcrec/secp256k1 as a concrete
// default adapter, not a hard dependency of the reducer"). It signs
// PostStateHash directly with ECDSA over secp256k1 rather than going
// through the XRPL-shaped CryptoWrapper/SignatureProvider split
// CryptoSignatory uses, since XLN has no family-seed/XRPL key-derivation
// scheme to preserve here.
type Secp256k1Signatory struct {
	keys map[types.SignerId]*secp256k1.PrivateKey
}

// NewSecp256k1Signatory builds a signatory over raw 32-byte secp256k1
// private key scalars.
func NewSecp256k1Signatory(keys map[types.SignerId][]byte) *Secp256k1Signatory {
	parsed := make(map[types.SignerId]*secp256k1.PrivateKey, len(keys))
	for signer, raw := range keys {
		parsed[signer] = secp256k1.PrivKeyFromBytes(raw)
	}
	return &Secp256k1Signatory{keys: parsed}
}

// Signatures re-applies f against e's own account state
// (entity.VerifyPostStateHash) and, only on agreement, signs
// sha256(PostStateHash) with every signer this instance holds key
// material for.
func (s *Secp256k1Signatory) Signatures(e *entity.Entity, f *entity.Frame) map[types.SignerId]bool {
	if !entity.VerifyPostStateHash(e, f) {
		return nil
	}
	digest := sha256.Sum256(f.PostStateHash[:])
	out := make(map[types.SignerId]bool, len(s.keys))
	for _, signer := range e.Signers {
		priv, ok := s.keys[signer]
		if !ok {
			continue
		}
		sig := ecdsa.Sign(priv, digest[:])
		if !sig.Verify(digest[:], priv.PubKey()) {
			continue
		}
		// decred's ecdsa.Sign already enforces low-S, but every
		// signature this package emits is run through the canonicality
		// check before use rather than trusted implicitly.
		der := sig.Serialize()
		if crypto.ECDSACanonicality(der) != crypto.CanonicityFullyCanonical {
			der = crypto.MakeSignatureCanonical(der)
			if der == nil {
				continue
			}
		}
		out[signer] = true
	}
	return out
}
