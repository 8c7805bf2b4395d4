package replay

import (
	"bytes"
	"encoding/gob"

	"github.com/xlnnetwork/xln/internal/types"
)

// init registers every concrete EntityTx/AccountTx variant so gob can
// encode/decode the tagged-union interface fields of a RuntimeInput.
// Canonical state hashing never goes through gob — only the replay
// log's persistence format does — so gob's
// non-deterministic map ordering cannot affect any hash.
func init() {
	gob.Register(types.DirectPaymentTx{})
	gob.Register(types.AccountInputTx{})
	gob.Register(types.ProfileUpdateTx{})
	gob.Register(types.SignerSetUpdateTx{})
	gob.Register(types.PaymentAccountTx{})
	gob.Register(types.CreditLimitAccountTx{})
	gob.Register(types.SettlementAccountTx{})
}

// EncodeInput serializes a RuntimeInput for the append-only frame log.
func EncodeInput(input types.RuntimeInput) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(input); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeInput reverses EncodeInput.
func DecodeInput(b []byte) (types.RuntimeInput, error) {
	var input types.RuntimeInput
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&input); err != nil {
		return types.RuntimeInput{}, err
	}
	return input, nil
}

// EncodeState serializes a State for a periodic snapshot record.
func EncodeState(st State) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(st); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeState reverses EncodeState.
func DecodeState(b []byte) (State, error) {
	var st State
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&st); err != nil {
		return State{}, err
	}
	return st, nil
}
