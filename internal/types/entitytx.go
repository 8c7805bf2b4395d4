package types

import "math/big"

// RuntimeInput is one submission to the server ingress queue (spec.md
// §6): a batch of jurisdictional events plus entity-targeted inputs.
type RuntimeInput struct {
	RuntimeTxs   []RuntimeTx
	EntityInputs []EntityInput
}

// EntityInput carries one or more transactions destined for a single
// entity, attributed to the signer who submitted them.
type EntityInput struct {
	EntityId  EntityId
	SignerId  SignerId
	EntityTxs []EntityTx
}

// EntityTxKind discriminates the tagged EntityTx union (spec.md §9:
// "replace dynamic any-typed payloads with tagged variants").
type EntityTxKind int

const (
	EntityTxDirectPayment EntityTxKind = iota
	EntityTxAccountInput
	EntityTxProfileUpdate
	EntityTxSignerSetUpdate
)

func (k EntityTxKind) String() string {
	switch k {
	case EntityTxDirectPayment:
		return "directPayment"
	case EntityTxAccountInput:
		return "accountInput"
	case EntityTxProfileUpdate:
		return "profileUpdate"
	case EntityTxSignerSetUpdate:
		return "signerSetUpdate"
	default:
		return "unknown"
	}
}

// EntityTx is a transaction targeting one entity's mempool. Exactly
// one of the Kind-named payload fields is populated, matching k.Kind().
type EntityTx interface {
	Kind() EntityTxKind
}

// DirectPaymentTx initiates a multi-hop payment from the owning entity
// toward TargetEntityId (spec.md §6).
type DirectPaymentTx struct {
	TargetEntityId EntityId
	TokenId        TokenId
	Amount         *big.Int
	Route          []EntityId // empty: server resolves via routing.FindRoute
	Description    string
}

func (DirectPaymentTx) Kind() EntityTxKind { return EntityTxDirectPayment }

// AccountInputTx carries one bilateral account transaction between
// FromEntityId and ToEntityId.
type AccountInputTx struct {
	FromEntityId EntityId
	ToEntityId   EntityId
	AccountTx    AccountTx
	Metadata     string
}

func (AccountInputTx) Kind() EntityTxKind { return EntityTxAccountInput }

// ProfileUpdateTx carries informational, non-consensus-critical
// metadata about the entity (display name, website, ...).
type ProfileUpdateTx struct {
	Fields map[string]string
}

func (ProfileUpdateTx) Kind() EntityTxKind { return EntityTxProfileUpdate }

// SignerSetUpdateTx mutates an entity's authorized signer set and/or
// quorum threshold. Applied like any other frame-level transaction
// (SPEC_FULL.md §4.2 Open Question 3: signer-set changes are
// frame-level transactions, not an out-of-band protocol).
type SignerSetUpdateTx struct {
	AddSigners    []SignerId
	RemoveSigners []SignerId
	NewThreshold  int // 0: leave threshold unchanged
}

func (SignerSetUpdateTx) Kind() EntityTxKind { return EntityTxSignerSetUpdate }

// AccountTxKind discriminates the AccountTx union.
type AccountTxKind int

const (
	AccountTxPayment AccountTxKind = iota
	AccountTxCreditLimit
	AccountTxSettlement
)

// AccountTx is a transaction applied directly to one bilateral account.
type AccountTx interface {
	Kind() AccountTxKind
}

// PaymentAccountTx is a direct (single-hop) payment along an account.
type PaymentAccountTx struct {
	TokenId   TokenId
	Amount    *big.Int
	Direction int // account.Direction, re-declared here to avoid an import cycle
}

func (PaymentAccountTx) Kind() AccountTxKind { return AccountTxPayment }

// CreditLimitAccountTx updates the credit limit extended by one side.
type CreditLimitAccountTx struct {
	TokenId  TokenId
	Side     int // account.Side
	NewLimit *big.Int
}

func (CreditLimitAccountTx) Kind() AccountTxKind { return AccountTxCreditLimit }

// SettlementAccountTx rewrites delta/collateral from a jurisdictional
// (on-chain) event.
type SettlementAccountTx struct {
	TokenId            TokenId
	ResultingDelta     *big.Int
	NewCollateral      *big.Int
	JurisdictionHeight uint64
}

func (SettlementAccountTx) Kind() AccountTxKind { return AccountTxSettlement }

// RuntimeTxKind discriminates jurisdictional (on-chain) event variants
// (spec.md §6 "On-chain event ingress").
type RuntimeTxKind int

const (
	RuntimeTxDepositReserve RuntimeTxKind = iota
	RuntimeTxWithdrawReserve
	RuntimeTxCreditFromReserve
	RuntimeTxDebitToReserve
	RuntimeTxSettlement
)

// RuntimeTx is a trusted, monotonic jurisdictional event applied
// outside of entity consensus (spec.md §6; reorgs out of scope per §9).
type RuntimeTx struct {
	Kind               RuntimeTxKind
	EntityId           EntityId
	CounterpartyId     EntityId
	TokenId            TokenId
	Amount             *big.Int
	JurisdictionHeight uint64
}
