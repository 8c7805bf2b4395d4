package account

import "errors"

// Failure semantics — spec.md §4.1, §7. None of these are retried
// inside the ledger; callers decide whether/how to record them.
var (
	ErrCapacityExceeded            = errors.New("capacity exceeded")
	ErrCreditLimitBelowUtilization = errors.New("credit limit below utilization")
	ErrUnknownToken                = errors.New("unknown token")
	ErrSettlementRegressed         = errors.New("settlement regressed")
	ErrInvalidAmount               = errors.New("amount must be positive")
	ErrUnknownDirection            = errors.New("unknown payment direction")
)
