package telnetd

import (
	"context"
	"testing"
)

func feedSB(t *testing.T, e *Engine, opt byte, payload []byte) {
	t.Helper()
	frame := []byte{IAC, SB, opt}
	frame = append(frame, payload...)
	frame = append(frame, IAC, SE)
	if err := e.Feed(context.Background(), frame); err != nil {
		t.Fatalf("Feed returned error: %v", err)
	}
}

func TestSubTTypeRecordsTerminalType(t *testing.T) {
	e, _ := newTestEngine()
	feedSB(t, e, OptTType, append([]byte{TelQualIs}, "xterm"...))
	if e.TerminalType() != "xterm" {
		t.Fatalf("TerminalType() = %q, want %q", e.TerminalType(), "xterm")
	}
}

func TestSubTTypeLowercasesName(t *testing.T) {
	e, _ := newTestEngine()
	feedSB(t, e, OptTType, append([]byte{TelQualIs}, "XTERM-256Color"...))
	if e.TerminalType() != "xterm-256color" {
		t.Fatalf("TerminalType() = %q, want %q", e.TerminalType(), "xterm-256color")
	}
}

func TestSubTSpeedReportsString(t *testing.T) {
	e, fc := newTestEngine()
	feedSB(t, e, OptTSpeed, append([]byte{TelQualIs}, "38400,38400"...))
	if len(fc.stats) != 1 {
		t.Fatalf("got %d stat calls, want 1", len(fc.stats))
	}
	if fc.stats[0].opt != OptTSpeed || fc.stats[0].v1 != len("38400,38400") {
		t.Fatalf("got %+v, want opt=TSPEED v1=len(payload)", fc.stats[0])
	}
}

func TestSubXDisplocReportsString(t *testing.T) {
	e, fc := newTestEngine()
	feedSB(t, e, OptXDisploc, append([]byte{TelQualIs}, "unix:0"...))
	if len(fc.stats) != 1 || fc.stats[0].opt != OptXDisploc {
		t.Fatalf("got %+v, want one XDISPLOC stat call", fc.stats)
	}
}

func TestSubNAWSTooShortIsIgnored(t *testing.T) {
	e, fc := newTestEngine()
	feedSB(t, e, OptNAWS, []byte{0, 80})
	if len(fc.stats) != 0 {
		t.Fatalf("got %d stat calls for short NAWS payload, want 0", len(fc.stats))
	}
}

func TestSubStatusSendRepliesWithIS(t *testing.T) {
	e, fc := newTestEngine()
	e.opts[OptEcho].myState = optWill
	e.opts[OptNAWS].hisState = optWill

	feedSB(t, e, OptStatus, []byte{TelQualSend})

	if len(fc.netOut) != 1 {
		t.Fatalf("got %d net writes, want 1", len(fc.netOut))
	}
	frame := fc.netOut[0]
	if frame[0] != IAC || frame[1] != SB || frame[2] != OptStatus || frame[3] != TelQualIs {
		t.Fatalf("got status frame %v, want it to start IAC SB STATUS IS", frame)
	}
	if frame[len(frame)-2] != IAC || frame[len(frame)-1] != SE {
		t.Fatalf("got status frame %v, want it to end IAC SE", frame)
	}
}

func TestDispatchUnknownSuboptionIsDiscarded(t *testing.T) {
	e, fc := newTestEngine()
	// Option 99 has no registered handler; Feed must not error or write.
	feedSB(t, e, 99, []byte{1, 2, 3})
	if len(fc.netOut) != 0 {
		t.Fatalf("got %d net writes for unknown suboption, want 0", len(fc.netOut))
	}
}

func TestSubLinemodeModeSendsAck(t *testing.T) {
	e, fc := newTestEngine()
	feedSB(t, e, OptLinemode, []byte{LMMode, ModeEdit | ModeTrapSig})

	if !e.Linemode() {
		t.Fatalf("Linemode() = false, want true after MODE with ModeEdit set")
	}
	if len(fc.netOut) != 1 {
		t.Fatalf("got %d net writes, want 1 (the MODE ack)", len(fc.netOut))
	}
	want := []byte{IAC, SB, OptLinemode, LMMode, (ModeEdit | ModeTrapSig) | ModeAck, IAC, SE}
	if string(fc.netOut[0]) != string(want) {
		t.Fatalf("got ack %v, want %v", fc.netOut[0], want)
	}
}

func TestSubLinemodeModeAckIsNotReAcked(t *testing.T) {
	e, fc := newTestEngine()
	feedSB(t, e, OptLinemode, []byte{LMMode, ModeEdit | ModeAck})
	if len(fc.netOut) != 0 {
		t.Fatalf("got %d net writes for an already-acked MODE, want 0", len(fc.netOut))
	}
	if !e.Linemode() {
		t.Fatalf("Linemode() = false, want true")
	}
}
