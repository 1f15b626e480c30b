package telnetd

import (
	"bytes"
	"log"

	"github.com/stlalpha/telnetd/internal/auth"
)

// Authentication mechanism/type octets (RFC 2941 §2). This server offers a
// single mechanism: a minimal NULL-style exchange (RFC 1416) carrying
// "name\x00password" as the IS payload, which is all the bcrypt-backed
// internal/auth.Store needs to decide accept/reject.
const (
	authTypeNull byte = 0

	authModeClient byte = 0x00

	authCodeAccept byte = 0
	authCodeReject byte = 1
)

// PasswordAuth is the default AuthCallbacks collaborator: it requests the
// NULL mechanism, parses the client's IS payload as a NUL-separated
// name/password pair, and checks it against an internal/auth.Store.
//
// PasswordAuth is typically constructed by a Config.NewCollaborators
// callback, before the Conn (and therefore the NetWriter it needs to send
// SEND/IS frames) exists. NewConn resolves that via SetNetWriter once the
// Conn is built, recognizing the netAware interface (collaborators.go).
type PasswordAuth struct {
	net   NetWriter
	store *auth.Store
	done  func(name string, ok bool)
}

// NewPasswordAuth returns an AuthCallbacks that verifies credentials against
// store. done, if non-nil, is called once with the verification result.
func NewPasswordAuth(store *auth.Store, done func(name string, ok bool)) *PasswordAuth {
	return &PasswordAuth{store: store, done: done}
}

// SetNetWriter supplies the NetWriter this collaborator sends its
// SEND/IS frames through, satisfying the netAware interface.
func (a *PasswordAuth) SetNetWriter(net NetWriter) { a.net = net }

// AuthRequest sends IAC SB AUTHENTICATION SEND <type> <modifiers> IAC SE,
// advertising the single NULL mechanism this server supports.
func (a *PasswordAuth) AuthRequest() {
	if a.net == nil {
		return
	}
	frame := []byte{IAC, SB, OptAuthentication, TelQualSend, authTypeNull, authModeClient, IAC, SE}
	if _, err := a.net.WriteNet(frame); err != nil {
		log.Printf("WARN: telnetd: failed to send AUTHENTICATION SEND: %v", err)
		return
	}
	a.net.FlushNet()
}

// AuthIs parses payload as <type> <modifiers> name \x00 password and
// replies with an IS accept/reject octet.
func (a *PasswordAuth) AuthIs(payload []byte) {
	if len(payload) < 3 {
		a.reject("")
		return
	}
	if payload[0] != authTypeNull {
		a.reject("")
		return
	}
	cred := payload[2:]
	i := bytes.IndexByte(cred, 0)
	if i < 0 {
		a.reject("")
		return
	}
	name := string(cred[:i])
	password := string(cred[i+1:])

	ok, err := a.store.Verify(name, password)
	if err != nil && err != auth.ErrNoSuchAccount {
		log.Printf("WARN: telnetd: credential verification error for %q: %v", name, err)
	}
	if ok {
		a.accept(name)
	} else {
		a.reject(name)
	}
}

// AuthName records the account name a client sends ahead of AuthIs; this
// server only acts once the credential itself arrives in AuthIs.
func (a *PasswordAuth) AuthName(payload []byte) {}

// AuthFinished is invoked by the engine itself when the peer sends WONT
// AUTHENTICATION, rather than by this collaborator, so there is nothing to
// do here beyond logging.
func (a *PasswordAuth) AuthFinished(reject bool) {
	if reject {
		log.Printf("INFO: telnetd: authentication aborted before completion")
	}
}

func (a *PasswordAuth) accept(name string) {
	if a.net != nil {
		a.net.WriteNet([]byte{IAC, SB, OptAuthentication, TelQualIs, authTypeNull, authCodeAccept, IAC, SE})
		a.net.FlushNet()
	}
	log.Printf("INFO: telnetd: authentication succeeded for %q", name)
	if a.done != nil {
		a.done(name, true)
	}
}

func (a *PasswordAuth) reject(name string) {
	if a.net != nil {
		a.net.WriteNet([]byte{IAC, SB, OptAuthentication, TelQualIs, authTypeNull, authCodeReject, IAC, SE})
		a.net.FlushNet()
	}
	log.Printf("INFO: telnetd: authentication failed for %q", name)
	if a.done != nil {
		a.done(name, false)
	}
}

var _ AuthCallbacks = (*PasswordAuth)(nil)
