package telnetd

// lmodeType is the escalating kludge-linemode ladder a TM probe climbs
// during negotiation. The numeric ordering (NoLinemode < NoAutoKludge <
// KludgeOK < KludgeLinemode < RealLinemode) is load-bearing: the `<`
// comparisons in ReceiveWill/ReceiveWont depend on it.
type lmodeType int

const (
	NoLinemode lmodeType = iota
	NoAutoKludge
	KludgeOK
	KludgeLinemode
	RealLinemode
)

func (l lmodeType) String() string {
	switch l {
	case NoLinemode:
		return "NO_LINEMODE"
	case NoAutoKludge:
		return "NO_AUTOKLUDGE"
	case KludgeOK:
		return "KLUDGE_OK"
	case KludgeLinemode:
		return "KLUDGE_LINEMODE"
	case RealLinemode:
		return "REAL_LINEMODE"
	default:
		return "?"
	}
}

// recvState is the receive tokenizer's state.
type recvState int

const (
	stData recvState = iota
	stIAC
	stCR
	stSB
	stSE
	stWill
	stWont
	stDo
	stDont
)

// Collaborators bundles every external interface the engine may invoke.
// Any field may be nil; nil AuthCallbacks/EncryptCallbacks simply means
// authentication/encryption negotiation is not offered on this connection.
type Collaborators struct {
	Net     NetWriter
	PTY     PTYWriter
	TTY     TTYControl
	Signals SignalSender
	Stat    ClientStatNotifier
	SLC     SLCManager
	Auth    AuthCallbacks
	Encrypt EncryptCallbacks
	Control SessionController

	// EnableCP437, if set before calling NewConn, wraps the PTY output
	// path in a selective CP437 transliterator (see cp437.go), for
	// legacy DOS terminal types. Off by default.
	EnableCP437 bool
}

// Engine is the per-connection TELNET protocol state: one option table, one
// tokenizer state, one suboption buffer, one set of session flags, all
// threaded explicitly with no static storage and no sharing across
// connections.
type Engine struct {
	opts optionTable

	state    recvState
	sbOption byte
	sb       []byte // suboption accumulation buffer, capacity 512

	// ENVIRON/OLD-ENVIRON tag parsing is invoked with these tag identities;
	// for NEW_ENVIRON they're always EnvVar/EnvValue, for OLD_ENVIRON they
	// are resolved once via the reversed-tag heuristic (environ.go).
	envVarTag   int // -1 until resolved
	envValueTag int

	// Session flags.
	linemode     bool
	lmodetype    lmodeType
	not42        bool
	flowmode     bool
	restartAny   int // -1 = unset, 0 = RESTART_XON, 1 = RESTART_ANY
	editmode     byte
	useEditMode  byte
	synching     bool
	terminalType string
	environVars  []EnvVar

	collab Collaborators
}

const subbufCap = 512

// NewEngine creates a fresh per-connection protocol engine. not42 starts
// true: assume the peer is not a 4.2BSD client with its ECHO-option quirks
// until proven otherwise.
func NewEngine(collab Collaborators) *Engine {
	return &Engine{
		state:       stData,
		sb:          make([]byte, 0, subbufCap),
		envVarTag:   -1,
		envValueTag: -1,
		not42:       true,
		restartAny:  -1,
		collab:      collab,
	}
}

// SetSignals wires the SignalSender collaborator after the fact, for the
// common case where the process that should receive IP/BREAK/SUSP (a
// shell spawned via StartShell) doesn't exist yet when the Engine is built.
func (e *Engine) SetSignals(s SignalSender) { e.collab.Signals = s }

func (e *Engine) hisState(opt byte) tristate     { return e.opts[opt].hisState }
func (e *Engine) hisWantState(opt byte) tristate { return e.opts[opt].hisWantState }
func (e *Engine) myState(opt byte) tristate      { return e.opts[opt].myState }
func (e *Engine) myWantState(opt byte) tristate  { return e.opts[opt].myWantState }

// TerminalType returns the most recently negotiated TTYPE string, or "" if
// none has been received yet.
func (e *Engine) TerminalType() string { return e.terminalType }

// Linemode reports whether the peer's most recent LINEMODE MODE suboption
// had the EDIT bit set. Kludge linemode (the TM probe) does not change it.
func (e *Engine) Linemode() bool { return e.linemode }

// EnvironVars returns the most recently received ENVIRON/OLD-ENVIRON
// variable set, or nil if none has been received yet.
func (e *Engine) EnvironVars() []EnvVar { return e.environVars }
