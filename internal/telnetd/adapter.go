package telnetd

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gliderlabs/ssh"
	"github.com/google/uuid"
)

// sessionContext implements both context.Context and the narrow subset of
// ssh.Context a Session needs to hand its caller.
type sessionContext struct {
	ctx        context.Context
	cancel     context.CancelFunc
	sessionID  string
	remoteAddr net.Addr
	localAddr  net.Addr
	mu         sync.Mutex
	values     map[interface{}]interface{}
}

func (c *sessionContext) Value(key interface{}) interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.values[key]; ok {
		return v
	}
	return c.ctx.Value(key)
}

func (c *sessionContext) Deadline() (time.Time, bool)  { return c.ctx.Deadline() }
func (c *sessionContext) Done() <-chan struct{}        { return c.ctx.Done() }
func (c *sessionContext) Err() error                   { return c.ctx.Err() }
func (c *sessionContext) Lock()                        { c.mu.Lock() }
func (c *sessionContext) Unlock()                      { c.mu.Unlock() }
func (c *sessionContext) User() string                 { return "" } // telnet forces manual login
func (c *sessionContext) SessionID() string            { return c.sessionID }
func (c *sessionContext) ClientVersion() string         { return "telnet" }
func (c *sessionContext) ServerVersion() string         { return "telnetd" }
func (c *sessionContext) RemoteAddr() net.Addr          { return c.remoteAddr }
func (c *sessionContext) LocalAddr() net.Addr           { return c.localAddr }
func (c *sessionContext) Permissions() *ssh.Permissions { return nil }
func (c *sessionContext) SetValue(key, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}

// Session adapts a negotiated Conn to gliderlabs/ssh's Session interface so
// that a shell/menu handler written against ssh.Session runs unmodified
// over a raw telnet transport. Session identifiers use uuid.NewString for
// global uniqueness rather than a process-local counter.
type Session struct {
	conn  *Conn
	ctx   *sessionContext
	winCh chan ssh.Window
	ptyMu sync.Mutex
	pty   ssh.Pty
}

// NewSession wraps a negotiated Conn.
func NewSession(conn *Conn) *Session {
	ctx, cancel := context.WithCancel(context.Background())

	sessCtx := &sessionContext{
		ctx:        ctx,
		cancel:     cancel,
		sessionID:  uuid.NewString(),
		remoteAddr: conn.conn.RemoteAddr(),
		localAddr:  conn.conn.LocalAddr(),
		values:     make(map[interface{}]interface{}),
	}

	w, h := conn.Size()
	s := &Session{
		conn:  conn,
		ctx:   sessCtx,
		winCh: make(chan ssh.Window, 1),
		pty: ssh.Pty{
			Term:   conn.TerminalType(),
			Window: ssh.Window{Width: w, Height: h},
		},
	}
	s.winCh <- ssh.Window{Width: w, Height: h}

	go func() {
		for win := range conn.Windows() {
			s.ptyMu.Lock()
			s.pty.Window = ssh.Window{Width: win.Width, Height: win.Height}
			s.ptyMu.Unlock()
			select {
			case s.winCh <- ssh.Window{Width: win.Width, Height: win.Height}:
			default:
			}
		}
	}()

	return s
}

func (s *Session) Read(p []byte) (int, error)  { return s.conn.Read(p) }
func (s *Session) Write(p []byte) (int, error) { return s.conn.Write(p) }

func (s *Session) Close() error {
	s.ctx.cancel()
	return s.conn.Close()
}

func (s *Session) CloseWrite() error { return nil }

func (s *Session) SendRequest(name string, wantReply bool, payload []byte) (bool, error) {
	return false, fmt.Errorf("SendRequest not supported on telnet")
}

func (s *Session) Stderr() io.ReadWriter          { return s }
func (s *Session) User() string                   { return "" }
func (s *Session) RemoteAddr() net.Addr           { return s.conn.conn.RemoteAddr() }
func (s *Session) LocalAddr() net.Addr            { return s.conn.conn.LocalAddr() }
func (s *Session) Environ() []string              { return environToStrings(s.conn.engine.EnvironVars()) }
func (s *Session) Command() []string              { return []string{} }
func (s *Session) RawCommand() string              { return "" }
func (s *Session) Subsystem() string               { return "" }
func (s *Session) PublicKey() ssh.PublicKey        { return nil }
func (s *Session) Context() ssh.Context            { return s.ctx }
func (s *Session) SessionID() string               { return s.ctx.SessionID() }
func (s *Session) Permissions() ssh.Permissions     { return ssh.Permissions{} }

func (s *Session) Pty() (ssh.Pty, <-chan ssh.Window, bool) {
	s.ptyMu.Lock()
	pty := s.pty
	s.ptyMu.Unlock()
	return pty, s.winCh, true
}

func (s *Session) Exit(code int) error { return s.Close() }

// Conn returns the underlying protocol-engine connection, for callers that
// need reaper registration or raw size/idle queries alongside the
// ssh.Session surface.
func (s *Session) Conn() *Conn { return s.conn }
func (s *Session) Signals(c chan<- ssh.Signal) {}
func (s *Session) Break(c chan<- bool)         {}

// SetReadInterrupt lets door/menu I/O goroutines unblock a pending Read
// without consuming data.
func (s *Session) SetReadInterrupt(ch <-chan struct{}) {
	s.conn.SetReadInterrupt(ch)
}

func environToStrings(vars []EnvVar) []string {
	if len(vars) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name+"="+v.Value)
	}
	return out
}
