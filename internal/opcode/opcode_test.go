package opcode

import (
	"bytes"
	"testing"
)

func TestLookup(t *testing.T) {
	tests := []struct {
		name    string
		wantOk  bool
		wantOp  byte
	}{
		{"add", true, 0x01},
		{"jumpdest", true, JUMPDEST},
		{"push0", true, PUSH0},
		{"push1", false, 0},
		{"bogus", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, ok := Lookup(tt.name)
			if ok != tt.wantOk {
				t.Fatalf("Lookup(%q) ok = %v, want %v", tt.name, ok, tt.wantOk)
			}
			if ok && op.Code != tt.wantOp {
				t.Errorf("Lookup(%q) code = %#x, want %#x", tt.name, op.Code, tt.wantOp)
			}
		})
	}
}

func TestIsName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"add", true},
		{"push1", true},
		{"push32", true},
		{"push33", false},
		{"main", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsName(tt.name); got != tt.want {
				t.Errorf("IsName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestNewPush(t *testing.T) {
	op, err := NewPush([]byte{0x01, 0x02}, 0)
	if err != nil {
		t.Fatalf("NewPush inferred width: %v", err)
	}
	if op.Code != PUSH1+1 {
		t.Errorf("got code %#x, want PUSH2", op.Code)
	}
	if !bytes.Equal(op.Data, []byte{0x01, 0x02}) {
		t.Errorf("got data %x, want 0102", op.Data)
	}

	op, err = NewPush([]byte{0xab}, 2)
	if err != nil {
		t.Fatalf("NewPush padded width: %v", err)
	}
	if !bytes.Equal(op.Data, []byte{0x00, 0xab}) {
		t.Errorf("got data %x, want 00ab", op.Data)
	}

	if _, err := NewPush(make([]byte, 3), 2); err == nil {
		t.Error("expected error when data longer than requested width")
	}

	if _, err := NewPush([]byte{0x01}, 33); err == nil {
		t.Error("expected error for width > 32")
	}
}

func TestNewPushZeroInfersWidthOne(t *testing.T) {
	op, err := NewPush([]byte{0x00}, 0)
	if err != nil {
		t.Fatalf("NewPush([0x00]): %v", err)
	}
	if op.Code != PUSH1 {
		t.Errorf("got code %#x, want PUSH1 (no push0 collapsing via NewPush)", op.Code)
	}
	if !bytes.Equal(op.Data, []byte{0x00}) {
		t.Errorf("got data %x, want 00", op.Data)
	}
}

func TestBytesToPushCollapsesZero(t *testing.T) {
	op, err := BytesToPush([]byte{0x00}, false)
	if err != nil {
		t.Fatalf("BytesToPush: %v", err)
	}
	if op.Code != PUSH0 {
		t.Errorf("got code %#x, want PUSH0", op.Code)
	}
	if len(op.Data) != 0 {
		t.Errorf("PUSH0 must carry no immediate data, got %x", op.Data)
	}
}

func TestBytesToPushAvoidPush0(t *testing.T) {
	op, err := BytesToPush([]byte{0x00}, true)
	if err != nil {
		t.Fatalf("BytesToPush: %v", err)
	}
	if op.Code != PUSH1 {
		t.Errorf("got code %#x, want PUSH1 when avoidPush0 is set", op.Code)
	}
}

func TestOpSizeAndBytes(t *testing.T) {
	op := Op{Code: PUSH1 + 1, Data: []byte{0xca, 0xfe}}
	if got, want := op.Size(), 3; got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
	if got, want := op.Bytes(), []byte{PUSH1 + 1, 0xca, 0xfe}; !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %x, want %x", got, want)
	}
}

func TestNeededBytes(t *testing.T) {
	tests := []struct {
		val  uint64
		want int
	}{
		{0, 1},
		{1, 1},
		{255, 1},
		{256, 2},
		{65535, 2},
		{65536, 3},
	}
	for _, tt := range tests {
		if got := NeededBytes(tt.val); got != tt.want {
			t.Errorf("NeededBytes(%d) = %d, want %d", tt.val, got, tt.want)
		}
	}
}
