package server

import (
	"encoding/hex"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/stretchr/testify/require"
	"github.com/xlnnetwork/xln/internal/canon"
	"github.com/xlnnetwork/xln/internal/crypto"
	"github.com/xlnnetwork/xln/internal/crypto/algorithms/ed25519"
	"github.com/xlnnetwork/xln/internal/entity"
	"github.com/xlnnetwork/xln/internal/types"
)

// emptyAccountsFrame returns a candidate frame whose PostStateHash is
// the genuine hash of an entity with no account replicas and no
// txs — the only value entity.VerifyPostStateHash will accept for the
// bare *entity.Entity{Signers: ...} fixtures below, now that every
// Signatory independently re-applies the frame before signing it.
func emptyAccountsFrame() *entity.Frame {
	f := &entity.Frame{}
	f.PostStateHash = canon.NewHasher().Sum()
	return f
}

func TestCryptoSignatory_SignsOnlyHeldKeys(t *testing.T) {
	wrapper := crypto.NewED25519Wrapper(ed25519.NewED25519Provider())
	priv, pub, err := wrapper.GenerateKeypair([]byte("test-seed-000000000000000000000"), false)
	require.NoError(t, err)
	_ = pub

	signer1, signer2 := sid(1), sid(2)
	sig := NewCryptoSignatory(map[types.SignerId]string{signer1: priv})

	e := &entity.Entity{Signers: []types.SignerId{signer1, signer2}}
	signed := sig.Signatures(e, emptyAccountsFrame())

	require.True(t, signed[signer1])
	require.False(t, signed[signer2])
}

func TestCryptoSignatory_RejectsPostStateHashMismatch(t *testing.T) {
	wrapper := crypto.NewED25519Wrapper(ed25519.NewED25519Provider())
	priv, _, err := wrapper.GenerateKeypair([]byte("test-seed-000000000000000000000"), false)
	require.NoError(t, err)

	signer1 := sid(1)
	sig := NewCryptoSignatory(map[types.SignerId]string{signer1: priv})

	e := &entity.Entity{Signers: []types.SignerId{signer1}}
	bad := &entity.Frame{}
	bad.PostStateHash[0] = 0xFF // does not match e's (empty) account state

	signed := sig.Signatures(e, bad)
	require.Nil(t, signed)
}

func TestSecp256k1Signatory_SignsAndVerifies(t *testing.T) {
	var scalar [32]byte
	scalar[31] = 1
	priv := secp256k1.PrivKeyFromBytes(scalar[:])

	signer1, signer2 := sid(1), sid(2)
	sig := NewSecp256k1Signatory(map[types.SignerId][]byte{signer1: priv.Serialize()})

	e := &entity.Entity{Signers: []types.SignerId{signer1, signer2}}
	signed := sig.Signatures(e, emptyAccountsFrame())

	require.True(t, signed[signer1])
	require.False(t, signed[signer2])
}

func TestCanonHashStable(t *testing.T) {
	h1 := canon.NewHasher()
	h1.WriteBytes([]byte("a"))
	h2 := canon.NewHasher()
	h2.WriteBytes([]byte("a"))
	require.Equal(t, h1.Sum(), h2.Sum())
	require.Equal(t, hex.EncodeToString(h1.Sum()[:]), hex.EncodeToString(h2.Sum()[:]))
}
