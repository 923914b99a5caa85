package depoterr

import (
	"errors"
	"testing"
)

func TestIsUnwrapsWrappedCause(t *testing.T) {
	cause := errors.New("boom")
	wrapped := Wrap(KindNetwork, cause, "download failed")

	if !Is(wrapped, KindNetwork) {
		t.Fatalf("expected wrapped error to be KindNetwork")
	}
	if Is(wrapped, KindIO) {
		t.Fatalf("did not expect wrapped error to be KindIO")
	}
}

func TestExitCode(t *testing.T) {
	if ExitCode(nil) != 0 {
		t.Fatalf("nil error should exit 0")
	}
	if ExitCode(New(KindInterrupt, "ctrl-c")) != 130 {
		t.Fatalf("interrupt should exit 130")
	}
	if ExitCode(New(KindUserInput, "bad spec")) != 1 {
		t.Fatalf("user errors should exit 1")
	}
}
