package telnetd

import "context"

// NetWriter is the network-output collaborator: appending bytes to the
// outbound queue, and the AO/DM urgent-data flow control primitives.
type NetWriter interface {
	// WriteNet appends bytes to the network send queue.
	WriteNet(p []byte) (int, error)
	// FlushNet blocks until anything queued has been handed to the socket.
	FlushNet() error
	// ClearNet discards anything queued but not yet sent (used by AO).
	ClearNet()
	// SetUrgent marks the most recently written byte as TCP urgent data
	// (called right after AO's IAC DM is written, to deliver it out-of-band).
	SetUrgent()
}

// PTYWriter is the PTY-egress collaborator.
type PTYWriter interface {
	// WritePTY emits a single byte of session output to the pseudo-terminal.
	WritePTY(b byte) error
	// FlushPTY best-effort flushes buffered PTY output.
	FlushPTY()
	// SendEOF delivers end-of-file to the process attached to the PTY.
	SendEOF() error
}

// TTYControl is the PTY termios collaborator.
type TTYControl interface {
	// SetBinaryIn/SetBinaryOut toggle 8-bit transparency in each direction.
	SetBinaryIn(on bool)
	SetBinaryOut(on bool)
	// SetEcho toggles local echo of PTY input at the terminal driver.
	SetEcho(on bool)
	// CRLFTranslate reports whether the terminal driver itself maps a bare
	// CR+NUL pair to newline.
	CRLFTranslate() bool
}

// SignalSender delivers the signals the IAC command table can provoke
// (IP, BREAK/ABORT, SUSP) to the process attached to the PTY.
type SignalSender interface {
	SendInterrupt()
	SendQuit()
	SendSuspend()
	SendInfo() bool // returns false if SIGINFO-on-AYT isn't supported, so the engine falls back to "[Yes]"
}

// ClientStatNotifier receives option/suboption state changes that the
// surrounding session cares about: NAWS size, TSPEED, LINEMODE mode changes.
type ClientStatNotifier interface {
	ClientStat(opt byte, v1, v2 int)
}

// SLCManager is the Set Local Character sub-table manager. The suboption
// decoder hands it the raw LM_SLC payload; the status reporter asks it to
// serialize the table back out.
type SLCManager interface {
	StartSLC(fresh bool)
	DoOptSLC(payload []byte)
	EndSLC() []byte
	SendSLC()
	// SetFlowSLCChangeable marks whether the XON/XOFF SLC entries may be
	// remapped by the peer, toggled by LFLOW's WILL/WONT side effects.
	SetFlowSLCChangeable(changeable bool)
}

// AuthCallbacks is the pluggable AUTHENTICATION (RFC 2941) collaborator.
// A nil AuthCallbacks is a valid "authentication not supported" configuration.
type AuthCallbacks interface {
	AuthRequest()
	AuthIs(payload []byte)
	AuthName(payload []byte)
	AuthFinished(reject bool)
}

// EncryptCallbacks is the pluggable ENCRYPT (RFC 2946) collaborator. A nil
// EncryptCallbacks is a valid "encryption not supported" configuration.
type EncryptCallbacks interface {
	EncryptSendSupport()
	EncryptSupport(payload []byte)
	EncryptIs(payload []byte)
	EncryptReply(payload []byte)
	EncryptStart(payload []byte)
	EncryptEnd()
	EncryptRequestStart(payload []byte)
	EncryptRequestEnd()
	EncryptEncKeyID(payload []byte)
	EncryptDecKeyID(payload []byte)
}

// netAware is implemented by an AuthCallbacks/EncryptCallbacks built before
// its Conn exists (typically inside a Config.NewCollaborators callback),
// letting NewConn hand it the NetWriter it needs once the Conn is built.
type netAware interface {
	SetNetWriter(NetWriter)
}

// SessionController terminates the session, analogous to a SIGHUP cleanup
// handler.
type SessionController interface {
	Cleanup(ctx context.Context, reason string)
}
