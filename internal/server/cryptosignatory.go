package server

import (
	"encoding/hex"

	"github.com/xlnnetwork/xln/internal/crypto"
	"github.com/xlnnetwork/xln/internal/crypto/algorithms/ed25519"
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/types"
)

// CryptoSignatory is the networked-deployment Signatory: every
// configured signer independently re-applies the candidate frame and
// signs PostStateHash only on agreement, via a real Ed25519 keypair,
// instead of responsiveSignatory's colocated-simulation default.
// Grounded on the teacher's
// crypto.CryptoWrapper/SignatureProvider split (internal/crypto/wrapper.go)
// and its Ed25519 provider (internal/crypto/algorithms/ed25519).
type CryptoSignatory struct {
	wrapper *crypto.CryptoWrapper
	keys    map[types.SignerId]string // signerId -> hex private key
}

// NewCryptoSignatory builds a signatory over the given signer->private
// key material, all using the Ed25519 provider.
func NewCryptoSignatory(keys map[types.SignerId]string) *CryptoSignatory {
	return &CryptoSignatory{
		wrapper: crypto.NewED25519Wrapper(ed25519.NewED25519Provider()),
		keys:    keys,
	}
}

// Signatures re-applies f against e's own account state
// (entity.VerifyPostStateHash) and, only if that recompute agrees with
// f.PostStateHash, signs the hash with every signer this instance holds
// private key material for (spec.md §4.2: "signers independently
// re-apply to verify the post-state hash").
func (c *CryptoSignatory) Signatures(e *entity.Entity, f *entity.Frame) map[types.SignerId]bool {
	if !entity.VerifyPostStateHash(e, f) {
		return nil
	}
	msg := hex.EncodeToString(f.PostStateHash[:])
	out := make(map[types.SignerId]bool, len(c.keys))
	for _, signer := range e.Signers {
		priv, ok := c.keys[signer]
		if !ok {
			continue
		}
		sigHex, err := c.wrapper.SignMessage(msg, priv)
		if err != nil {
			continue
		}
		sigBytes, err := hex.DecodeString(sigHex)
		if err != nil || !crypto.Ed25519Canonical(sigBytes) {
			continue
		}
		out[signer] = true
	}
	return out
}
