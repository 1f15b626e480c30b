package telnetd

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
)

// SessionHandler is called once negotiation has completed for a new telnet
// session.
type SessionHandler func(*Session)

// Config holds telnet server configuration.
type Config struct {
	Port           int
	Host           string
	SessionHandler SessionHandler

	// NewCollaborators, if set, is called once per accepted connection to
	// obtain the Auth/Encrypt/Signals collaborators for that session (the
	// Net/PTY/TTY fields are always supplied by Conn itself, and
	// Stat/SLC/Control get Conn-provided defaults when left nil). Leave nil
	// to run with authentication and encryption
	// disabled and signals discarded.
	NewCollaborators func(remoteAddr string) Collaborators
}

// Server is a telnet server that listens for TCP connections and wraps
// each with protocol-engine handling before calling SessionHandler.
type Server struct {
	listener net.Listener
	config   Config
	mu       sync.Mutex
}

// NewServer creates a new telnet server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.SessionHandler == nil {
		return nil, fmt.Errorf("session handler is required")
	}
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	return &Server{config: cfg}, nil
}

// ListenAndServe starts listening for telnet connections and blocks.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	log.Printf("INFO: Telnet server listening on %s", addr)

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.listener == nil
			s.mu.Unlock()
			if closed {
				return nil
			}
			log.Printf("ERROR: Telnet accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection negotiates options on a freshly accepted connection and
// hands the resulting Session to the configured SessionHandler. Per spec
// §5/§7, a panic anywhere below this point is an internal invariant
// violation, not a reason to bring the rest of the server down with it: it
// is recovered, logged, and only this one connection is lost.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	log.Printf("INFO: Telnet connection from %s", remoteAddr)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Telnet panic handling %s: %v", remoteAddr, r)
		}
		conn.Close()
		log.Printf("INFO: Telnet connection closed from %s", remoteAddr)
	}()

	var collab Collaborators
	if s.config.NewCollaborators != nil {
		collab = s.config.NewCollaborators(remoteAddr)
	}

	c := NewConn(conn, collab)

	ctx := context.Background()
	if err := c.Negotiate(ctx); err != nil {
		log.Printf("ERROR: Telnet negotiation failed for %s: %v", remoteAddr, err)
		return
	}

	w, h := c.Size()
	log.Printf("INFO: Telnet session from %s - terminal type %q, size %dx%d", remoteAddr, c.TerminalType(), w, h)

	s.config.SessionHandler(NewSession(c))
}

// Close shuts down the telnet server.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		err := s.listener.Close()
		s.listener = nil
		return err
	}
	return nil
}
