package telnetd

import (
	"context"
	"testing"
)

// TestSimultaneousWillDoesNotLoop exercises the crossed-request case the
// doDontResp/willWontResp counters exist for: we spontaneously request DO
// opt (an outstanding request), and before the peer's reply arrives it also
// sends us an unsolicited WILL opt of its own. The two must settle into
// WILL/DO without the engine bouncing back a redundant DO.
func TestSimultaneousWillDoesNotLoop(t *testing.T) {
	e, fc := newTestEngine()

	e.SendDo(OptSGA, true)
	if len(fc.netOut) != 1 {
		t.Fatalf("got %d net writes after SendDo, want 1", len(fc.netOut))
	}
	fc.netOut = nil

	// Peer's WILL crossed our DO on the wire.
	e.ReceiveWill(context.Background(), OptSGA)

	if e.hisState(OptSGA) != optWill {
		t.Fatalf("hisState(SGA) = %v, want WILL", e.hisState(OptSGA))
	}
	if len(fc.netOut) != 0 {
		t.Fatalf("got %d net writes after crossed WILL, want 0 (no redundant DO)", len(fc.netOut))
	}
}

// TestUnsolicitedWillIsConfirmed checks the ordinary path: peer offers an
// option we never asked about, we accept and confirm with DO.
func TestUnsolicitedWillIsConfirmed(t *testing.T) {
	e, fc := newTestEngine()

	e.ReceiveWill(context.Background(), OptTType)

	if e.hisState(OptTType) != optWill {
		t.Fatalf("hisState(TTYPE) = %v, want WILL", e.hisState(OptTType))
	}
	if len(fc.netOut) != 1 {
		t.Fatalf("got %d net writes, want 1", len(fc.netOut))
	}
	want := []byte{IAC, DO, OptTType}
	if string(fc.netOut[0]) != string(want) {
		t.Fatalf("got %v, want %v", fc.netOut[0], want)
	}
}

// TestUnknownOptionWillIsRefused checks that offering an option this engine
// has no accept case for gets a DONT, not a DO.
func TestUnknownOptionWillIsRefused(t *testing.T) {
	e, fc := newTestEngine()

	e.ReceiveWill(context.Background(), OptLogout)

	if len(fc.netOut) != 1 {
		t.Fatalf("got %d net writes, want 1", len(fc.netOut))
	}
	want := []byte{IAC, DONT, OptLogout}
	if string(fc.netOut[0]) != string(want) {
		t.Fatalf("got %v, want %v", fc.netOut[0], want)
	}
}

// TestRepeatedSendDoIsIdempotent checks that calling SendDo(init=true) twice
// in a row for the same option, with no reply in between, sends only one DO.
func TestRepeatedSendDoIsIdempotent(t *testing.T) {
	e, fc := newTestEngine()

	e.SendDo(OptNAWS, true)
	e.SendDo(OptNAWS, true)

	if len(fc.netOut) != 1 {
		t.Fatalf("got %d net writes, want 1 (second SendDo should be a no-op)", len(fc.netOut))
	}
}

// TestDoNotAlreadyWillIsNoOp checks that asking to DO an option the peer has
// already confirmed WILL for (and we've already recorded so) sends nothing.
func TestDoNotAlreadyWillIsNoOp(t *testing.T) {
	e, fc := newTestEngine()
	e.opts[OptSGA].hisState = optWill

	e.SendDo(OptSGA, true)

	if len(fc.netOut) != 0 {
		t.Fatalf("got %d net writes, want 0", len(fc.netOut))
	}
}

// TestReceiveWontAfterWillRequestUpdatesState checks the negative-confirm
// path: we asked DO, peer refuses with WONT.
func TestReceiveWontAfterWillRequestUpdatesState(t *testing.T) {
	e, fc := newTestEngine()
	e.SendDo(OptLinemode, true)
	fc.netOut = nil

	e.ReceiveWont(context.Background(), OptLinemode)

	if e.hisState(OptLinemode) != optWont {
		t.Fatalf("hisState(LINEMODE) = %v, want WONT", e.hisState(OptLinemode))
	}
	if len(fc.netOut) != 0 {
		t.Fatalf("got %d net writes, want 0 (WONT needs no reply)", len(fc.netOut))
	}
}

// TestReceiveDoEcho checks a peer asking us to enable local echo.
func TestReceiveDoEcho(t *testing.T) {
	e, fc := newTestEngine()

	e.ReceiveDo(context.Background(), OptEcho)

	if e.myState(OptEcho) != optWill {
		t.Fatalf("myState(ECHO) = %v, want WILL", e.myState(OptEcho))
	}
	want := []byte{IAC, WILL, OptEcho}
	if len(fc.netOut) != 1 || string(fc.netOut[0]) != string(want) {
		t.Fatalf("got %v, want exactly one write of %v", fc.netOut, want)
	}
}

// TestDoLogoutTriggersCleanup checks that a peer asking DO LOGOUT invokes
// SessionController.Cleanup.
func TestDoLogoutTriggersCleanup(t *testing.T) {
	fc := &fakeCollab{}
	ctrl := &fakeController{}
	e := NewEngine(Collaborators{Net: fc, PTY: fc, Stat: fc, Control: ctrl})

	e.ReceiveDo(context.Background(), OptLogout)

	if !ctrl.called {
		t.Fatalf("expected Cleanup to be called on DO LOGOUT")
	}
}

type fakeController struct {
	called bool
	reason string
}

func (f *fakeController) Cleanup(ctx context.Context, reason string) {
	f.called = true
	f.reason = reason
}
