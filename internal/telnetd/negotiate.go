package telnetd

import (
	"context"

	"github.com/stlalpha/telnetd/internal/logging"
)

// This file implements Dave Borman's telnet option negotiation state
// machine: four send_*-style functions and four receive handlers per
// direction. Each receive handler follows the same shape — decrement and
// absorb any crossed outstanding request, consult option-specific accept
// policy, then apply the unconditional state update — which is what keeps
// two peers that both spontaneously offer the same option from looping
// WILL/WONT forever.

func (e *Engine) writeCmd(cmd, opt byte) {
	if e.collab.Net == nil {
		return
	}
	e.collab.Net.WriteNet([]byte{IAC, cmd, opt})
}

// SendDo requests the peer enter the given option. init==true
// is the normal external call; init==false is used internally when a
// receive handler has already updated the want-state and only needs the
// wire byte emitted.
func (e *Engine) SendDo(opt byte, init bool) {
	r := &e.opts[opt]
	if init {
		if (r.doDontResp == 0 && r.hisState == optWill) || r.hisWantState == optWill {
			return
		}
		if opt == OptTM {
			// Special case for TM: we send a DO, but pretend we sent a
			// DONT, so we can send more DOs if we want to (probe again).
			r.hisWantState = optWont
		} else {
			r.hisWantState = optWill
		}
		r.doDontResp++
	}
	e.writeCmd(DO, opt)
}

// SendDont is the symmetric request that the peer leave the given option.
func (e *Engine) SendDont(opt byte, init bool) {
	r := &e.opts[opt]
	if init {
		if (r.doDontResp == 0 && r.hisState == optWont) || r.hisWantState == optWont {
			return
		}
		r.hisWantState = optWont
		r.doDontResp++
	}
	e.writeCmd(DONT, opt)
}

// SendWill requests that we ourselves enter the given option locally.
func (e *Engine) SendWill(opt byte, init bool) {
	r := &e.opts[opt]
	if init {
		if (r.willWontResp == 0 && r.myState == optWill) || r.myWantState == optWill {
			return
		}
		r.myWantState = optWill
		r.willWontResp++
	}
	e.writeCmd(WILL, opt)
}

// SendWont requests that we ourselves leave the given option locally.
func (e *Engine) SendWont(opt byte, init bool) {
	r := &e.opts[opt]
	if init {
		if (r.willWontResp == 0 && r.myState == optWont) || r.myWantState == optWont {
			return
		}
		r.myWantState = optWont
		r.willWontResp++
	}
	e.writeCmd(WONT, opt)
}

// ReceiveWill processes a peer WILL.
func (e *Engine) ReceiveWill(ctx context.Context, opt byte) {
	logging.Debug("telnetd: received WILL opt=%d", opt)
	r := &e.opts[opt]

	if r.doDontResp != 0 {
		r.doDontResp--
		if r.doDontResp != 0 && r.hisState == optWill {
			r.doDontResp--
		}
	}

	changeOK := false
	var postConfirm func()

	if r.doDontResp == 0 {
		if r.hisWantState == optWont {
			switch opt {
			case OptBinary:
				if e.collab.TTY != nil {
					e.collab.TTY.SetBinaryIn(true)
				}
				changeOK = true

			case OptEcho:
				e.not42 = false

			case OptTM:
				// This engine doesn't really support timing marks; TM is
				// used only to probe for kludge linemode.
				if e.lmodetype < KludgeLinemode {
					e.lmodetype = KludgeLinemode
					e.notifyStat(OptLinemode, 1, 0)
					e.SendWont(OptSGA, true)
				} else if e.lmodetype == NoAutoKludge {
					e.lmodetype = KludgeOK
				}
				// Never respond to a WILL TM; state stays WONT.
				return

			case OptLFlow:
				// We'll support flow control, so don't worry the peer that
				// its flow chars can't be changed.
				if e.collab.SLC != nil {
					e.collab.SLC.SetFlowSLCChangeable(true)
				}
				changeOK = true

			case OptTType, OptSGA, OptNAWS, OptTSpeed, OptXDisploc, OptNewEnviron, OptOldEnviron:
				changeOK = true

			case OptLinemode:
				e.lmodetype = RealLinemode
				postConfirm = e.notifyLinemodeWill
				changeOK = true

			case OptAuthentication:
				if e.collab.Auth != nil {
					postConfirm = e.collab.Auth.AuthRequest
					changeOK = true
				}

			case OptEncrypt:
				if e.collab.Encrypt != nil {
					postConfirm = e.collab.Encrypt.EncryptSendSupport
					changeOK = true
				}
			}

			if changeOK {
				r.hisWantState = optWill
				e.SendDo(opt, false)
			} else {
				r.doDontResp++
				e.SendDont(opt, false)
			}
		} else {
			// Confirmation of a change we requested.
			switch opt {
			case OptEcho:
				e.not42 = false
				// A 4.2BSD client just turned its own ECHO WILL on in
				// response to our probe. Tell it to stop immediately.
				e.SendDont(opt, true)

			case OptLinemode:
				e.lmodetype = RealLinemode
				postConfirm = e.notifyLinemodeWill

			case OptAuthentication:
				if e.collab.Auth != nil {
					postConfirm = e.collab.Auth.AuthRequest
				}

			case OptEncrypt:
				if e.collab.Encrypt != nil {
					postConfirm = e.collab.Encrypt.EncryptSendSupport
				}

			case OptLFlow:
				postConfirm = e.notifyFlowStat
			}
		}
	}

	r.hisState = optWill
	if postConfirm != nil {
		postConfirm()
	}
	_ = ctx
}

// ReceiveWont processes a peer WONT.
func (e *Engine) ReceiveWont(ctx context.Context, opt byte) {
	logging.Debug("telnetd: received WONT opt=%d", opt)
	r := &e.opts[opt]

	if r.doDontResp != 0 {
		r.doDontResp--
		if r.doDontResp != 0 && r.hisState == optWont {
			r.doDontResp--
		}
	}

	if r.doDontResp == 0 {
		if r.hisWantState == optWill {
			// It is always OK to change to the negative state.
			switch opt {
			case OptEcho:
				e.not42 = true

			case OptBinary:
				if e.collab.TTY != nil {
					e.collab.TTY.SetBinaryIn(false)
				}

			case OptLinemode:
				if e.lmodetype == RealLinemode {
					e.notifyLinemodeWont()
				}

			case OptTM:
				// Short-circuit: don't respond with DONT TM, just record
				// that we're back to WONT.
				r.hisWantState = optWont
				r.hisState = optWont
				return

			case OptLFlow:
				// We won't support flow control after all; tell the peer
				// its flow chars can't be changed.
				if e.collab.SLC != nil {
					e.collab.SLC.SetFlowSLCChangeable(false)
				}

			case OptAuthentication:
				if e.collab.Auth != nil {
					e.collab.Auth.AuthFinished(true)
				}

			case OptTType:
				e.notifyStat(OptTType, 0, 0)
			case OptTSpeed:
				e.notifyStat(OptTSpeed, 0, 0)
			case OptXDisploc:
				e.notifyStat(OptXDisploc, 0, 0)
			case OptOldEnviron:
				e.notifyStat(OptOldEnviron, 0, 0)
			case OptNewEnviron:
				e.notifyStat(OptNewEnviron, 0, 0)
			}

			r.hisWantState = optWont
			if r.hisState == optWill {
				e.SendDont(opt, false)
			}
		} else {
			switch opt {
			case OptTM:
				if e.lmodetype < NoAutoKludge {
					e.lmodetype = NoLinemode
					e.notifyStat(OptLinemode, 0, 0)
					e.SendWill(OptSGA, true)
					e.SendWill(OptEcho, true)
				}
			case OptAuthentication:
				if e.collab.Auth != nil {
					e.collab.Auth.AuthFinished(true)
				}
			}
		}
	}
	r.hisState = optWont
	_ = ctx
}

// ReceiveDo processes a peer DO.
func (e *Engine) ReceiveDo(ctx context.Context, opt byte) {
	logging.Debug("telnetd: received DO opt=%d", opt)
	r := &e.opts[opt]

	if r.willWontResp != 0 {
		r.willWontResp--
		if r.willWontResp != 0 && r.myState == optWill {
			r.willWontResp--
		}
	}

	if r.willWontResp == 0 && r.myWantState == optWont {
		changeOK := false

		switch opt {
		case OptEcho:
			if e.lmodetype == NoLinemode && e.collab.TTY != nil {
				e.collab.TTY.SetEcho(true)
			}
			changeOK = true

		case OptBinary:
			if e.collab.TTY != nil {
				e.collab.TTY.SetBinaryOut(true)
			}
			changeOK = true

		case OptSGA:
			// If kludge linemode is in use, a DO SGA is the peer asking us
			// to turn linemode off.
			if e.lmodetype == KludgeLinemode {
				e.notifyStat(OptLinemode, 0, 0)
				if e.linemode {
					// Linemode didn't actually turn off; refuse SGA too.
					break
				}
			}
			changeOK = true

		case OptStatus:
			changeOK = true

		case OptTM:
			// Special case for TM: send a WILL, but pretend we sent a WONT.
			e.SendWill(opt, false)
			r.myWantState = optWont
			r.myState = optWont
			return

		case OptLogout:
			r.myWantState = optWill
			e.SendWill(OptLogout, false)
			r.myState = optWill
			if e.collab.Net != nil {
				e.collab.Net.FlushNet()
			}
			if e.collab.Control != nil {
				e.collab.Control.Cleanup(ctx, "peer sent DO LOGOUT")
			}
			return

		case OptEncrypt:
			changeOK = e.collab.Encrypt != nil
		}

		if changeOK {
			r.myWantState = optWill
			e.SendWill(opt, false)
		} else {
			r.willWontResp++
			e.SendWont(opt, false)
		}
	}
	r.myState = optWill
}

// ReceiveDont processes a peer DONT.
func (e *Engine) ReceiveDont(ctx context.Context, opt byte) {
	logging.Debug("telnetd: received DONT opt=%d", opt)
	r := &e.opts[opt]

	if r.willWontResp != 0 {
		r.willWontResp--
		if r.willWontResp != 0 && r.myState == optWont {
			r.willWontResp--
		}
	}

	if r.willWontResp == 0 && r.myWantState == optWill {
		switch opt {
		case OptBinary:
			if e.collab.TTY != nil {
				e.collab.TTY.SetBinaryOut(false)
			}

		case OptEcho:
			if e.lmodetype != RealLinemode && e.lmodetype != KludgeLinemode {
				if e.collab.TTY != nil {
					e.collab.TTY.SetEcho(false)
				}
			}

		case OptSGA:
			if e.lmodetype == KludgeLinemode || e.lmodetype == KludgeOK {
				e.lmodetype = KludgeLinemode
				e.notifyStat(OptLinemode, 1, 0)
			}
		}

		r.myWantState = optWont
		if r.myState == optWill {
			e.SendWont(opt, false)
		}
	}
	r.myState = optWont
	_ = ctx
}

func (e *Engine) notifyStat(opt byte, v1, v2 int) {
	if e.collab.Stat != nil {
		e.collab.Stat.ClientStat(opt, v1, v2)
	}
}

func (e *Engine) notifyLinemodeWill() {
	e.notifyStat(OptLinemode, 1, 0)
}

func (e *Engine) notifyLinemodeWont() {
	e.notifyStat(OptLinemode, 0, 0)
}

func (e *Engine) notifyFlowStat() {
	e.notifyStat(OptLFlow, boolToInt(e.flowmode), e.restartAny)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
