package telnetd

import (
	"context"
	"fmt"
)

// ErrInvariant is returned by Feed when the tokenizer reaches a state that
// should be unreachable — a programming error in this package, not a peer
// event. The caller is expected to log it and tear the connection down; it
// must never be silently absorbed.
type ErrInvariant struct {
	State recvState
}

func (e *ErrInvariant) Error() string {
	return fmt.Sprintf("telnetd: invariant violation: tokenizer reached impossible state %d", e.State)
}

// Feed drives the receive tokenizer over p. Data bytes are written to the
// PTY collaborator; IAC sequences are consumed by the negotiator and
// suboption decoder. Feed processes the whole of p in one call; backpressure
// comes from the caller blocking on PTYWriter.WritePTY, not an early return,
// since each connection already owns its own goroutine.
//
// Feed is not reentrant and not safe for concurrent use: exactly one
// goroutine may drive a given Engine.
func (e *Engine) Feed(ctx context.Context, p []byte) error {
	for i := 0; i < len(p); i++ {
		if err := e.feedByte(ctx, p[i]); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) feedByte(ctx context.Context, c byte) error {
	switch e.state {
	case stCR:
		e.state = stData
		if e.linemode && (c == '\n' || (c == 0 && e.collab.TTY != nil && e.collab.TTY.CRLFTranslate())) {
			// The \r we're holding plus this byte form a linemode
			// end-of-line; collapse the pair to a single \n instead of
			// emitting the \r.
			return e.emitPTY('\n')
		}
		if err := e.emitPTY('\r'); err != nil {
			return err
		}
		if c == 0 || c == '\n' {
			return nil // strip the \n or \0 that followed a \r
		}
		return e.feedByte(ctx, c) // reprocess in DATA

	case stData:
		if c == IAC {
			e.state = stIAC
			return nil
		}
		// Map \r\n -> \r for pragmatic reasons: many clients send \r\n
		// when the user hits Return, even outside BINARY mode. The \r
		// itself is held rather than emitted here; stCR decides on the
		// next byte whether to emit it as-is or collapse it with that
		// byte into a linemode \n.
		if c == '\r' && e.hisState(OptBinary) == optWont {
			e.state = stCR
			return nil
		}
		return e.emitPTY(c)

	case stIAC:
		return e.feedIAC(ctx, c)

	case stSB:
		if c == IAC {
			e.state = stSE
			return nil
		}
		e.sbAccum(c)
		return nil

	case stSE:
		if c == SE {
			e.dispatchSuboption(ctx)
			e.state = stData
			return nil
		}
		if c == IAC {
			// Doubled IAC inside a suboption.
			e.sbAccum(IAC)
			e.state = stSB
			return nil
		}
		// Malformed: IAC <something> inside SB that is neither SE nor IAC.
		// Parse what we have, then reprocess c as an IAC command
		// continuation rather than dropping it.
		e.dispatchSuboption(ctx)
		e.state = stIAC
		return e.feedIAC(ctx, c)

	case stWill:
		e.ReceiveWill(ctx, c)
		e.state = stData
		return nil

	case stWont:
		e.ReceiveWont(ctx, c)
		e.state = stData
		return nil

	case stDo:
		e.ReceiveDo(ctx, c)
		e.state = stData
		return nil

	case stDont:
		e.ReceiveDont(ctx, c)
		e.state = stData
		return nil

	default:
		return &ErrInvariant{State: e.state}
	}
}

// feedIAC interprets c as an IAC command code.
func (e *Engine) feedIAC(ctx context.Context, c byte) error {
	switch c {
	case IP:
		if e.collab.Signals != nil {
			e.collab.Signals.SendInterrupt()
		}
	case BRK, ABORT:
		if e.collab.Signals != nil {
			e.collab.Signals.SendQuit()
		}
	case AYT:
		if e.collab.Signals == nil || !e.collab.Signals.SendInfo() {
			if e.collab.Net != nil {
				e.collab.Net.WriteNet([]byte("\r\n[Yes]\r\n"))
			}
		}
	case AO:
		if e.collab.PTY != nil {
			e.collab.PTY.FlushPTY()
		}
		if e.collab.Net != nil {
			e.collab.Net.ClearNet()
			e.collab.Net.WriteNet([]byte{IAC, DM})
			e.collab.Net.SetUrgent()
		}
	case EC:
		if e.collab.PTY != nil {
			e.collab.PTY.FlushPTY()
		}
	case EL:
		if e.collab.PTY != nil {
			e.collab.PTY.FlushPTY()
		}
	case DM:
		e.synching = true
	case EOR:
		if e.hisState(OptEOR) == optWill && e.collab.PTY != nil {
			e.collab.PTY.SendEOF()
		}
	case xEOF:
		if e.collab.PTY != nil {
			e.collab.PTY.SendEOF()
		}
	case SUSP:
		if e.collab.Signals != nil {
			e.collab.Signals.SendSuspend()
		}
	case IAC:
		if err := e.emitPTY(IAC); err != nil {
			return err
		}
	case SB:
		e.sb = e.sb[:0]
		e.state = stSB
		return nil
	case WILL:
		e.state = stWill
		return nil
	case WONT:
		e.state = stWont
		return nil
	case DO:
		e.state = stDo
		return nil
	case DONT:
		e.state = stDont
		return nil
	default:
		// Unknown command: return to DATA silently.
	}
	e.state = stData
	_ = ctx
	return nil
}

func (e *Engine) emitPTY(b byte) error {
	if e.collab.PTY == nil {
		return nil
	}
	return e.collab.PTY.WritePTY(b)
}

func (e *Engine) sbAccum(c byte) {
	if len(e.sb) < subbufCap {
		e.sb = append(e.sb, c)
	}
	// Excess bytes beyond capacity are silently dropped.
}
