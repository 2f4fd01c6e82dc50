package keccak

import (
	"encoding/hex"
	"testing"
)

// TestHash256EmptyInput pins Keccak-256("") to its well-known digest, the
// standard way to distinguish this primitive from NIST SHA3-256 (whose empty
// digest differs) given a lookup-free test environment.
func TestHash256EmptyInput(t *testing.T) {
	want := "c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a47"
	got := Hash256(nil)
	if hex.EncodeToString(got[:]) != want {
		t.Errorf("Hash256(nil) = %x, want %s", got, want)
	}
}

func TestSelectorIsFirstFourBytesOfHash(t *testing.T) {
	data := []byte("transfer(address,uint256)")
	full := Hash256(data)
	sel := Selector(data)
	for i := 0; i < 4; i++ {
		if sel[i] != full[i] {
			t.Fatalf("Selector()[%d] = %#x, want %#x (from Hash256)", i, sel[i], full[i])
		}
	}
}

func TestSelectorKnownSignature(t *testing.T) {
	sel := Selector([]byte("transfer(address,uint256)"))
	want := "a9059cbb"
	if hex.EncodeToString(sel[:]) != want {
		t.Errorf("Selector(transfer(address,uint256)) = %x, want %s", sel, want)
	}
}
