package validate

import "time"

// Config holds the tunables the PBH Validator consults on every
// transaction. Defaults mirror §4.E.
type Config struct {
	// MaxNoncePerPeriod bounds how many PBH transactions a single
	// identity may submit in one calendar period. Default 30.
	MaxNoncePerPeriod uint16

	// GracePeriod allows a transaction's external nullifier to name the
	// *next* calendar period when validation happens within this
	// window of a month boundary. Zero means strict current-period
	// only (the spec's default).
	GracePeriod time.Duration
}

// DefaultConfig returns the spec's default tunables.
func DefaultConfig() Config {
	return Config{MaxNoncePerPeriod: 30}
}
