package compileerr

import (
	"errors"
	"testing"
)

func TestErrorMessageFormat(t *testing.T) {
	err := New(KindUndefinedMacro, "undefined macro %q", "FOO")
	want := "UndefinedMacro: undefined macro \"FOO\""
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorMessageEmptyMsg(t *testing.T) {
	err := &Error{Kind: KindMissingMain}
	if err.Error() != "MissingMain" {
		t.Errorf("Error() = %q, want %q", err.Error(), "MissingMain")
	}
}

func TestWrapUnwrapsWithErrorsAs(t *testing.T) {
	cause := errors.New("disk read failed")
	wrapped := Wrap(KindParseError, cause, "reading file")

	var target *Error
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As failed to match *Error")
	}
	if target.Kind != KindParseError {
		t.Errorf("Kind = %v, want %v", target.Kind, KindParseError)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is failed to find wrapped cause")
	}
}

func TestKindDistinguishesFailureClasses(t *testing.T) {
	a := New(KindCodeTooLarge, "too big")
	b := New(KindContextError, "too big")

	var targetA, targetB *Error
	errors.As(error(a), &targetA)
	errors.As(error(b), &targetB)
	if targetA.Kind == targetB.Kind {
		t.Fatal("distinct Kinds should not compare equal")
	}
}
