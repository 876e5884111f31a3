// Package session runs the shells behind terminal items. A session owns
// one pty and retains a bounded tail of output lines for document views;
// raw input is written straight through.
package session

import (
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// maxLines bounds the retained output tail per session.
const maxLines = 200

var (
	csiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	oscPattern = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
)

type Options struct {
	Shell string // falls back to $SHELL, then /bin/sh
	Dir   string
	Cols  int
	Rows  int

	// Notify fires after new output lands; OnExit fires once when the
	// shell terminates. Both may be nil and are called off the caller's
	// goroutine.
	Notify func()
	OnExit func()
}

// Session manages a pseudo-terminal connection to a shell.
type Session struct {
	cmd  *exec.Cmd
	ptmx *os.File

	notify func()
	onExit func()

	mu      sync.Mutex
	lines   []string
	partial string
	exited  bool
}

// Start launches the shell on a fresh pty sized to the view.
func Start(opts Options) (*Session, error) {
	shell := opts.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}

	cmd := exec.Command(shell)
	cmd.Dir = opts.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color", "TABDECK=1")
	// New session so the shell is independent of the parent terminal.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	cols, rows := opts.Cols, opts.Rows
	if cols < 1 {
		cols = 80
	}
	if rows < 1 {
		rows = 24
	}
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
	if err != nil {
		return nil, err
	}

	s := &Session{
		cmd:    cmd,
		ptmx:   ptmx,
		notify: opts.Notify,
		onExit: opts.OnExit,
	}
	go s.readLoop()
	return s, nil
}

func (s *Session) readLoop() {
	buf := make([]byte, 4096)
	for {
		n, err := s.ptmx.Read(buf)
		if n > 0 {
			s.appendOutput(buf[:n])
			if s.notify != nil {
				s.notify()
			}
		}
		if err != nil {
			break
		}
	}
	s.cmd.Wait()

	s.mu.Lock()
	s.exited = true
	s.mu.Unlock()
	if s.onExit != nil {
		s.onExit()
	}
}

// appendOutput folds a raw chunk into the line tail. Escape sequences are
// stripped and carriage returns keep only the final overwrite, which is
// enough fidelity for a preview.
func (s *Session) appendOutput(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := s.partial + string(chunk)
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	s.partial = parts[len(parts)-1]

	for _, ln := range parts[:len(parts)-1] {
		if i := strings.LastIndexByte(ln, '\r'); i >= 0 {
			ln = ln[i+1:]
		}
		s.lines = append(s.lines, scrub(ln))
	}
	if over := len(s.lines) - maxLines; over > 0 {
		s.lines = append([]string(nil), s.lines[over:]...)
	}
}

func scrub(line string) string {
	line = csiPattern.ReplaceAllString(line, "")
	line = oscPattern.ReplaceAllString(line, "")
	return line
}

// Tail returns up to n trailing output lines, oldest first. The current
// unfinished line is included so prompts show up.
func (s *Session) Tail(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.lines
	if cur := scrub(strings.TrimRight(s.partial, "\r")); cur != "" {
		all = append(append([]string(nil), s.lines...), cur)
	}
	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	return append([]string(nil), all...)
}

func (s *Session) Write(p []byte) (int, error) {
	return s.ptmx.Write(p)
}

func (s *Session) Resize(cols, rows int) error {
	if cols < 1 || rows < 1 {
		return nil
	}
	return pty.Setsize(s.ptmx, &pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)})
}

func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.exited
}

// Close tears the session down. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()

	if !exited && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	return s.ptmx.Close()
}
