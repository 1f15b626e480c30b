package telnetd

import (
	"github.com/stlalpha/telnetd/internal/terminalio"
)

// CP437PTY wraps a PTYWriter with the selective CP437 transliterator; NewConn
// installs it when Collaborators.EnableCP437 is set, whatever terminal type
// the peer reports. It buffers decoded
// bytes and flushes them through the transliterator on FlushPTY, following
// terminalio.SelectiveCP437Writer's whole-chunk Write contract (it needs to
// see more than one byte at a time to tell text from ANSI escapes apart).
type CP437PTY struct {
	next PTYWriter
	w    *terminalio.SelectiveCP437Writer
	buf  []byte
}

// NewCP437PTY wraps next so that everything written through it is
// transliterated to CP437 before reaching the real PTY/network sink.
func NewCP437PTY(next PTYWriter) *CP437PTY {
	return &CP437PTY{
		next: next,
		w:    terminalio.NewSelectiveCP437Writer(ptyWriterAdapter{next}),
	}
}

func (c *CP437PTY) WritePTY(b byte) error {
	c.buf = append(c.buf, b)
	if len(c.buf) < 256 {
		return nil
	}
	return c.FlushPTYErr()
}

// FlushPTYErr flushes buffered bytes through the transliterator, returning
// any write error; FlushPTY (the PTYWriter method) discards it to match the
// interface's signature, logging nothing since the underlying writer's own
// error handling already does that.
func (c *CP437PTY) FlushPTYErr() error {
	if len(c.buf) == 0 {
		return nil
	}
	_, err := c.w.Write(c.buf)
	c.buf = c.buf[:0]
	return err
}

func (c *CP437PTY) FlushPTY() {
	c.FlushPTYErr()
	c.next.FlushPTY()
}

func (c *CP437PTY) SendEOF() error {
	c.FlushPTYErr()
	return c.next.SendEOF()
}

// ptyWriterAdapter lets a PTYWriter (byte-at-a-time) satisfy io.Writer
// (chunked), which is what terminalio.SelectiveCP437Writer writes through.
type ptyWriterAdapter struct{ pw PTYWriter }

func (a ptyWriterAdapter) Write(p []byte) (int, error) {
	for _, b := range p {
		if err := a.pw.WritePTY(b); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}
