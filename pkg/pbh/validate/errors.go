package validate

import "errors"

// All errors below are permanent rejections (never retry the same
// transaction) except ErrTransient, which callers should surface as
// an internal/transient failure distinct from a validation rejection.
var (
	ErrInvalidExternalNullifier = errors.New("pbh: external nullifier does not parse")
	ErrInvalidPrefix            = errors.New("pbh: unrecognized external nullifier prefix")
	ErrInvalidPeriod            = errors.New("pbh: external nullifier period is not current")
	ErrInvalidNonce             = errors.New("pbh: external nullifier nonce exceeds per-period limit")
	ErrInvalidRoot              = errors.New("pbh: root is not currently valid")
	ErrInvalidProof             = errors.New("pbh: semaphore proof verification failed")
	ErrNullifierAlreadyExecuted = errors.New("pbh: nullifier already executed")
	ErrNullifierAlreadyPending  = errors.New("pbh: nullifier already pending on another transaction")
	ErrDuplicateTxHash          = errors.New("pbh: transaction hash already staged")
	ErrMalformedPayload         = errors.New("pbh: malformed payload")
	ErrTransient                = errors.New("pbh: transient validation failure")
)
