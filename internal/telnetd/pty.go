package telnetd

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
	"github.com/gliderlabs/ssh"
	"golang.org/x/term"
)

// ShellProcess spawns a local command attached to a real PTY and pumps
// bytes between it and an ssh.Session (which *Session satisfies), following
// internal/menu/door_handler.go's pty.StartWithSize/io.Copy pair-of-
// goroutines pattern. It exists so the protocol engine above has something
// concrete to drive once negotiation completes — the generic analogue of
// that file's door-game launcher, with the dropfile generation and BBS
// menu plumbing stripped out.
type ShellProcess struct {
	cmd  *exec.Cmd
	ptmx *os.File
}

// StartShell launches name with args attached to a PTY sized from sess's
// negotiated window, and begins pumping sess<->PTY in background goroutines.
// Wait blocks until the process exits and I/O pumps have drained.
func StartShell(sess *Session, name string, args ...string) (*ShellProcess, error) {
	cmd := exec.Command(name, args...)

	sshPty, winCh, isPty := sess.Pty()
	size := &pty.Winsize{Rows: 24, Cols: 80}
	if isPty {
		size.Rows = uint16(sshPty.Window.Height)
		size.Cols = uint16(sshPty.Window.Width)
	}
	cmd.Env = append(os.Environ(), fmt.Sprintf("TERM=%s", sshPty.Term))

	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return nil, fmt.Errorf("telnetd: failed to start pty for %q: %w", name, err)
	}

	if fd := int(ptmx.Fd()); fd >= 0 {
		if _, err := term.MakeRaw(fd); err != nil {
			log.Printf("WARN: telnetd: failed to put PTY into raw mode: %v", err)
		}
	}

	p := &ShellProcess{cmd: cmd, ptmx: ptmx}

	resizeStop := make(chan struct{})
	go func() {
		for {
			select {
			case win, ok := <-winCh:
				if !ok {
					return
				}
				pty.Setsize(ptmx, &pty.Winsize{Rows: uint16(win.Height), Cols: uint16(win.Width)})
			case <-resizeStop:
				return
			}
		}
	}()

	readInterrupt := make(chan struct{})
	sess.SetReadInterrupt(readInterrupt)

	inputDone := make(chan struct{})
	outputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		_, err := io.Copy(ptmx, sess)
		if err != nil && err != io.EOF && !errors.Is(err, os.ErrClosed) {
			log.Printf("WARN: telnetd: error copying session input to PTY: %v", err)
		}
	}()
	go func() {
		defer close(outputDone)
		_, err := io.Copy(sess, ptmx)
		if err != nil && err != io.EOF && !errors.Is(err, os.ErrClosed) {
			log.Printf("WARN: telnetd: error copying PTY output to session: %v", err)
		}
	}()

	go func() {
		cmd.Wait()
		close(resizeStop)
		close(readInterrupt)
		<-inputDone
		sess.SetReadInterrupt(nil)
		ptmx.Close()
	}()

	return p, nil
}

// Signal forwards an OS signal to the spawned process group, used to
// deliver the IP/BRK/SUSP telnet commands the tokenizer recognizes.
func (p *ShellProcess) Signal(sig os.Signal) error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(sig)
}

// Wait blocks until the process has exited.
func (p *ShellProcess) Wait() error { return p.cmd.Wait() }

// NewSessionSignals returns a SignalSender that forwards IP/BREAK/SUSP to
// proc as SIGINT/SIGQUIT/SIGTSTP.
func NewSessionSignals(proc *ShellProcess) SignalSender {
	return &posixSignals{proc: proc}
}

type posixSignals struct {
	proc *ShellProcess
}

func (s *posixSignals) SendInterrupt() { s.proc.Signal(os.Interrupt) }
func (s *posixSignals) SendQuit()      { s.proc.Signal(syscall.SIGQUIT) }
func (s *posixSignals) SendSuspend()   { s.proc.Signal(syscall.SIGTSTP) }
func (s *posixSignals) SendInfo() bool { return false }

var _ ssh.Session = (*Session)(nil)
