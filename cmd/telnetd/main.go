// Command telnetd runs the standalone TELNET protocol daemon: it accepts
// connections, negotiates options, and attaches each session to a login
// shell over a PTY, following cmd/vision3/main.go's flag/config/log
// wiring but built around internal/telnetd instead of the SSH server.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/stlalpha/telnetd/internal/auth"
	"github.com/stlalpha/telnetd/internal/config"
	"github.com/stlalpha/telnetd/internal/logging"
	"github.com/stlalpha/telnetd/internal/reaper"
	"github.com/stlalpha/telnetd/internal/telnetd"
)

var (
	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("4")).
			Padding(0, 2)

	fieldStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.json")
	shellPath := flag.String("shell", defaultShell(), "program to attach to each session's PTY")
	debug := flag.Bool("debug", false, "enable verbose protocol-negotiation tracing")
	flag.Parse()
	logging.DebugEnabled = *debug

	cfgMu := &sync.RWMutex{}
	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		log.Fatalf("ERROR: failed to load config: %v", err)
	}

	watcher, err := config.NewWatcher(*configPath, &cfg, cfgMu)
	if err != nil {
		log.Printf("WARN: config hot-reload disabled: %v", err)
	} else {
		defer watcher.Stop()
	}

	creds := auth.NewStore()
	if pass := os.Getenv("TELNETD_SYSOP_PASSWORD"); pass != "" {
		if err := creds.SetPassword("sysop", pass); err != nil {
			log.Fatalf("ERROR: failed to set sysop credential: %v", err)
		}
	}

	idleTimeout := time.Duration(cfg.SessionIdleTimeoutMinutes) * time.Minute
	sessionReaper := reaper.New(idleTimeout)
	sessionReaper.Start()
	defer sessionReaper.Stop()

	srv, err := telnetd.NewServer(telnetd.Config{
		Host:             cfg.Host,
		Port:             cfg.Port,
		SessionHandler:   newSessionHandler(sessionReaper, *shellPath),
		NewCollaborators: newCollaborators(creds, cfg),
	})
	if err != nil {
		log.Fatalf("ERROR: failed to construct telnet server: %v", err)
	}

	printBanner(cfg)

	if err := srv.ListenAndServe(); err != nil {
		log.Fatalf("ERROR: telnet server exited: %v", err)
	}
}

// newCollaborators builds the per-connection Auth collaborator and CP437
// setting, toggled at runtime by the config flags rather than at compile
// time. No Encrypt collaborator is built.
func newCollaborators(creds *auth.Store, cfg config.ServerConfig) func(remoteAddr string) telnetd.Collaborators {
	return func(remoteAddr string) telnetd.Collaborators {
		var collab telnetd.Collaborators
		collab.EnableCP437 = cfg.EnableCP437
		if cfg.EnableAuthentication {
			collab.Auth = telnetd.NewPasswordAuth(creds, func(name string, ok bool) {
				if ok {
					log.Printf("INFO: %s authenticated as %q", remoteAddr, name)
				} else {
					log.Printf("WARN: %s failed authentication as %q", remoteAddr, name)
				}
			})
		}
		return collab
	}
}

// newSessionHandler attaches shellPath to each negotiated session's PTY and
// tracks it with the idle reaper until the shell exits.
func newSessionHandler(r *reaper.Reaper, shellPath string) telnetd.SessionHandler {
	return func(sess *telnetd.Session) {
		conn := sess.Conn()
		id := sess.SessionID()

		r.Register(id, conn, conn.RemoteAddr().String())
		defer r.Forget(id)

		proc, err := telnetd.StartShell(sess, shellPath)
		if err != nil {
			log.Printf("ERROR: failed to start shell for %s: %v", conn.RemoteAddr(), err)
			return
		}
		conn.SetSignals(telnetd.NewSessionSignals(proc))

		if err := proc.Wait(); err != nil {
			log.Printf("INFO: shell for %s exited: %v", conn.RemoteAddr(), err)
		}
	}
}

func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func printBanner(cfg config.ServerConfig) {
	fmt.Println(bannerStyle.Render("telnetd"))
	fmt.Println(fieldStyle.Render(fmt.Sprintf("listening on %s:%d", cfg.Host, cfg.Port)))
	if cfg.SessionIdleTimeoutMinutes > 0 {
		fmt.Println(fieldStyle.Render(fmt.Sprintf("idle timeout: %d min", cfg.SessionIdleTimeoutMinutes)))
	}
}
