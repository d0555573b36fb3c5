package store

import "errors"

// Sentinel errors returned by Store. All of these are permanent
// (non-retryable) rejections except ErrDatabase, which is transient —
// the caller should surface it as a validation-transient error rather
// than a rejection of the transaction itself.
var (
	// ErrNullifierAlreadyExecuted means the nullifier already landed in
	// a canonical block.
	ErrNullifierAlreadyExecuted = errors.New("store: nullifier already executed")

	// ErrNullifierAlreadyPending means a different pending transaction
	// already staged this nullifier.
	ErrNullifierAlreadyPending = errors.New("store: nullifier already pending on another transaction")

	// ErrDuplicateTxHash means this transaction hash is already staged
	// against a different nullifier.
	ErrDuplicateTxHash = errors.New("store: transaction hash already staged")

	// ErrDatabase wraps an underlying storage failure. Transient.
	ErrDatabase = errors.New("store: database error")
)
