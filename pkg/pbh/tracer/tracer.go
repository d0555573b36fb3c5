// Package tracer implements the PBH call tracer (§4.J): a
// non-mutating EVM call observer that classifies whether a
// transaction's execution touched the PBH entrypoint or its signature
// aggregator, for block-building accounting and diagnostics.
package tracer

import (
	"github.com/ethereum/go-ethereum/common"
)

// Classification is what a traced transaction's calls revealed about
// its relationship to PBH.
type Classification int

const (
	// ClassificationNone means no PBH-related contract was called.
	ClassificationNone Classification = iota
	// ClassificationEntrypoint means the PBH entrypoint contract was
	// invoked directly.
	ClassificationEntrypoint
	// ClassificationAggregator means a signature-aggregator contract
	// used by 4337-style bundling was invoked.
	ClassificationAggregator
)

// Call is one observed EVM call frame.
type Call struct {
	From   common.Address
	To     common.Address
	Data   []byte
	Depth  int
	Revert bool
}

// Inspector observes EVM call frames during execution of a single
// transaction. It never mutates state — only the executor (out of
// scope here) does that; the inspector is purely a recorder.
type Inspector struct {
	entrypoint common.Address
	aggregator common.Address

	calls          []Call
	classification Classification
}

// NewInspector constructs an inspector with no configured addresses —
// CaptureCall still records call frames, but Classify always returns
// ClassificationNone until WithContracts is set.
func NewInspector() *Inspector {
	return &Inspector{}
}

// WithContracts configures the entrypoint and aggregator addresses
// this inspector recognizes. Returns the receiver for chaining at
// construction time.
func (i *Inspector) WithContracts(entrypoint, aggregator common.Address) *Inspector {
	i.entrypoint = entrypoint
	i.aggregator = aggregator
	return i
}

// CaptureCall records one call frame as the executor walks the call
// tree. The executor is responsible for invoking this at every frame;
// this package does not hook into the EVM itself (out of scope, §1).
func (i *Inspector) CaptureCall(c Call) {
	i.calls = append(i.calls, c)
	if i.classification != ClassificationNone || c.To == (common.Address{}) {
		return
	}
	switch c.To {
	case i.entrypoint:
		i.classification = ClassificationEntrypoint
	case i.aggregator:
		i.classification = ClassificationAggregator
	}
}

// Classify returns the classification of the first captured call, for
// the current transaction, that targeted a configured contract; later
// calls do not change it.
func (i *Inspector) Classify() Classification {
	return i.classification
}

// Calls returns the recorded call frames, for diagnostics.
func (i *Inspector) Calls() []Call {
	return i.calls
}

// Reset clears recorded calls between transactions so a single
// Inspector can be reused across a block's PBH phase.
func (i *Inspector) Reset() {
	i.calls = i.calls[:0]
	i.classification = ClassificationNone
}
