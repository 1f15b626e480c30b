package telnetd

import "context"

// dispatchSuboption decodes e.sb (the bytes between SB and the IAC that
// preceded SE, option byte included). It is called once the tokenizer has
// accumulated and de-escaped a full suboption frame.
func (e *Engine) dispatchSuboption(ctx context.Context) {
	if len(e.sb) == 0 {
		return
	}
	opt := e.sb[0]
	payload := e.sb[1:]

	switch opt {
	case OptTSpeed:
		e.subTSpeed(payload)
	case OptTType:
		e.subTType(payload)
	case OptNAWS:
		e.subNAWS(payload)
	case OptStatus:
		e.subStatus(payload)
	case OptXDisploc:
		e.subXDisploc(payload)
	case OptLinemode:
		e.subLinemode(payload)
	case OptOldEnviron:
		e.subEnviron(payload, false)
	case OptNewEnviron:
		e.subEnviron(payload, true)
	case OptAuthentication:
		e.subAuthentication(payload)
	case OptEncrypt:
		e.subEncrypt(payload)
	default:
		// Unknown suboption: silently discarded.
	}
	_ = ctx
}

// subTSpeed handles TSPEED, RFC 1079. Only an IS payload is acted on: its
// "xmit,recv" text is reported to Stat through notifyStatString, like the
// other string suboptions below (v1 is the text's length, v2 is 0). The two
// speeds are not parsed out of the text.
func (e *Engine) subTSpeed(payload []byte) {
	if len(payload) == 0 {
		return
	}
	if payload[0] == TelQualIs {
		e.notifyStatString(OptTSpeed, string(payload[1:]))
	}
	// SEND is never sent to us by a well-behaved client; ignore.
}

// subTType handles TTYPE, RFC 1091.
func (e *Engine) subTType(payload []byte) {
	if len(payload) == 0 {
		return
	}
	if payload[0] == TelQualIs {
		e.terminalType = lowerASCII(payload[1:])
		e.notifyStatString(OptTType, e.terminalType)
	}
}

// lowerASCII lowercases the 'A'-'Z' range of b and leaves every other byte
// untouched, so non-ASCII bytes in a terminal type name aren't corrupted by
// a locale-aware case fold.
func lowerASCII(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// subNAWS handles NAWS, RFC 1073: a fixed 4-byte width/height payload.
func (e *Engine) subNAWS(payload []byte) {
	if len(payload) < 4 {
		return
	}
	width := int(payload[0])<<8 | int(payload[1])
	height := int(payload[2])<<8 | int(payload[3])
	e.notifyStat(OptNAWS, width, height)
}

// subXDisploc handles XDISPLOC, RFC 1096.
func (e *Engine) subXDisploc(payload []byte) {
	if len(payload) == 0 {
		return
	}
	if payload[0] == TelQualIs {
		e.notifyStatString(OptXDisploc, string(payload[1:]))
	}
}

// subLinemode dispatches LINEMODE suboption requests, RFC 1184.
func (e *Engine) subLinemode(payload []byte) {
	if len(payload) == 0 {
		return
	}
	switch payload[0] {
	case LMMode:
		if len(payload) < 2 {
			return
		}
		mode := payload[1]
		ack := mode&ModeAck != 0
		mode &^= ModeAck
		e.useEditMode = mode
		if !ack {
			e.editmode = mode
			e.linemode = mode&ModeEdit != 0
			e.sendLinemodeAck(mode)
		} else {
			e.editmode = mode
			e.linemode = mode&ModeEdit != 0
		}
		e.notifyStat(OptLinemode, boolToInt(e.linemode), int(mode))

	case LMForwardMask:
		// We never requested a forwardmask change; any reply is discarded.

	case LMSLC:
		if e.collab.SLC == nil {
			return
		}
		e.collab.SLC.StartSLC(false)
		e.collab.SLC.DoOptSLC(payload[1:])
		reply := e.collab.SLC.EndSLC()
		if reply != nil && e.collab.Net != nil {
			frame := make([]byte, 0, len(reply)+6)
			frame = append(frame, IAC, SB, OptLinemode, LMSLC)
			frame = append(frame, reply...)
			frame = append(frame, IAC, SE)
			e.collab.Net.WriteNet(frame)
		}
	}
}

func (e *Engine) sendLinemodeAck(mode byte) {
	if e.collab.Net == nil {
		return
	}
	e.collab.Net.WriteNet([]byte{IAC, SB, OptLinemode, LMMode, mode | ModeAck, IAC, SE})
}

func (e *Engine) notifyStatString(opt byte, s string) {
	if e.collab.Stat != nil {
		// String-valued suboptions are reported with v1 as the string's
		// length and v2 unused; collaborators that need the text itself
		// read it back off the Engine (TerminalType etc.) rather than
		// threading strings through the int-typed ClientStat callback.
		e.collab.Stat.ClientStat(opt, len(s), 0)
	}
}
