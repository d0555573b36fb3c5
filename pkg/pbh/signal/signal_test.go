package signal

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestForMulticallIsOrderSensitive(t *testing.T) {
	sender := common.HexToAddress("0x1")
	a := Call{Target: common.HexToAddress("0xa"), Data: []byte("a")}
	b := Call{Target: common.HexToAddress("0xb"), Data: []byte("b")}

	h1 := ForMulticall(sender, []Call{a, b})
	h2 := ForMulticall(sender, []Call{b, a})
	if h1.Equal(h2) {
		t.Fatalf("expected call order to affect the signal hash")
	}
}

func TestForMulticallIsDeterministic(t *testing.T) {
	sender := common.HexToAddress("0x1")
	calls := []Call{{Target: common.HexToAddress("0xa"), Data: []byte("a")}}
	if !ForMulticall(sender, calls).Equal(ForMulticall(sender, calls)) {
		t.Fatalf("expected identical inputs to produce identical signal hashes")
	}
}

func TestForUserOpChangesWithCallData(t *testing.T) {
	base := UserOp{Sender: common.HexToAddress("0x1"), Nonce: 1, CallData: []byte("x")}
	mutated := base
	mutated.CallData = []byte("y")

	if ForUserOp(base).Equal(ForUserOp(mutated)) {
		t.Fatalf("expected differing call data to change the signal hash")
	}
}
