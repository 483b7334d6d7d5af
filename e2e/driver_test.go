//go:build e2e && unix

package e2e

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/creack/pty"
)

const ringSize = 1 << 20 // 1 MiB of scrollback

// binPath is set by TestMain
var binPath = "gitorbit_e2e"

const (
	KeyEnter = "\r"
	KeyCtrlC = "\x03"
	KeySpace = " "
	KeyDown  = "j"
	KeyQuit  = "q"
	KeyDiff  = "D"
	KeyLog   = "L"
	KeyFetch = "f"
	KeyTab   = "\t"
)

// ansiRe matches CSI, OSC, charset and keypad sequences plus carriage returns
var ansiRe = regexp.MustCompile(
	`(?:\x1b\[[0-9;?]*[ -/]*[@-~])|` +
		`(?:\x1b\][^\x07]*\x07)|` +
		`(?:\x1b[\(\)][A-Za-z])|` +
		`(?:\x1b=|\x1b>)|` +
		`\r`,
)

// Terminal drives one gitorbit process attached to a pseudo terminal
type Terminal struct {
	t   *testing.T
	env *Env

	pty *os.File
	tty *os.File
	cmd *exec.Cmd

	mu   sync.Mutex
	buf  []byte
	head int
	full bool
}

// Env is an isolated home directory with its own config and app data
type Env struct {
	t    *testing.T
	Home string
}

// NewEnv creates an empty home directory for one test
func NewEnv(t *testing.T) *Env {
	t.Helper()
	return &Env{t: t, Home: t.TempDir()}
}

func (e *Env) environ() []string {
	return append(os.Environ(),
		"TERM=xterm-256color",
		"LC_ALL=C",
		"LANG=C",
		"HOME="+e.Home,
		"XDG_CONFIG_HOME="+filepath.Join(e.Home, ".config"),
		"GIT_CONFIG_GLOBAL=/dev/null",
	)
}

// Run executes gitorbit without a terminal and returns its combined output
func (e *Env) Run(args ...string) (string, error) {
	e.t.Helper()
	cmd := exec.Command(binPath, args...)
	cmd.Env = e.environ()
	cmd.Dir = e.Home
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// MustRun is Run failing the test on error
func (e *Env) MustRun(args ...string) string {
	e.t.Helper()
	out, err := e.Run(args...)
	if err != nil {
		e.t.Fatalf("gitorbit %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// Start launches the interactive UI in a 120x40 pseudo terminal
func (e *Env) Start(args ...string) *Terminal {
	e.t.Helper()
	term := &Terminal{t: e.t, env: e, buf: make([]byte, ringSize)}

	term.cmd = exec.Command(binPath, args...)
	term.cmd.Env = e.environ()
	term.cmd.Dir = e.Home

	p, tty, err := pty.Open()
	if err != nil {
		e.t.Fatalf("failed to open pty: %v", err)
	}
	if err := pty.Setsize(p, &pty.Winsize{Rows: 40, Cols: 120}); err != nil {
		e.t.Fatalf("failed to size pty: %v", err)
	}
	term.pty, term.tty = p, tty
	term.cmd.Stdin, term.cmd.Stdout, term.cmd.Stderr = tty, tty, tty

	if err := term.cmd.Start(); err != nil {
		p.Close()
		tty.Close()
		e.t.Fatalf("failed to start gitorbit: %v", err)
	}
	term.startReader()
	e.t.Cleanup(term.Close)
	return term
}

func (tm *Terminal) startReader() {
	go func() {
		chunk := make([]byte, 8192)
		for {
			n, err := tm.pty.Read(chunk)
			if n > 0 {
				tm.mu.Lock()
				for i := 0; i < n; i++ {
					tm.buf[tm.head] = chunk[i]
					tm.head = (tm.head + 1) % ringSize
					if tm.head == 0 {
						tm.full = true
					}
				}
				tm.mu.Unlock()
			}
			if err != nil {
				return
			}
		}
	}()
}

// Send writes keystrokes to the program
func (tm *Terminal) Send(keys string) {
	tm.t.Helper()
	if _, err := tm.pty.Write([]byte(keys)); err != nil {
		tm.t.Fatalf("failed to send %q: %v", keys, err)
	}
}

// Snapshot returns everything written so far
func (tm *Terminal) Snapshot() string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if !tm.full {
		return string(tm.buf[:tm.head])
	}
	out := make([]byte, ringSize)
	copy(out, tm.buf[tm.head:])
	copy(out[ringSize-tm.head:], tm.buf[:tm.head])
	return string(out)
}

// Plain is Snapshot without escape sequences
func (tm *Terminal) Plain() string {
	return ansiRe.ReplaceAllString(tm.Snapshot(), "")
}

// WaitFor polls the plain output until pred holds or timeout passes
func (tm *Terminal) WaitFor(pred func(string) bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if pred(tm.Plain()) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// See waits up to three seconds for text to appear
func (tm *Terminal) See(text string) bool {
	tm.t.Helper()
	return tm.WaitFor(func(s string) bool { return strings.Contains(s, text) }, 3*time.Second)
}

// SeeAfter waits for text written after the mark returned by Mark
func (tm *Terminal) SeeAfter(mark int, text string, timeout time.Duration) bool {
	tm.t.Helper()
	return tm.WaitFor(func(s string) bool {
		if mark > len(s) {
			mark = 0
		}
		return strings.Contains(s[mark:], text)
	}, timeout)
}

// Mark returns the current length of the plain output
func (tm *Terminal) Mark() int {
	return len(tm.Plain())
}

// Tail returns the last n bytes of plain output for failure messages
func (tm *Terminal) Tail(n int) string {
	s := tm.Plain()
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}

// Wait waits for the program to exit
func (tm *Terminal) Wait(timeout time.Duration) error {
	done := make(chan error, 1)
	go func() { done <- tm.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("gitorbit did not exit within %s", timeout)
	}
}

// Close hangs up the terminal and kills the process
func (tm *Terminal) Close() {
	if tm.pty != nil {
		_ = tm.pty.Close()
		tm.pty = nil
	}
	if tm.tty != nil {
		_ = tm.tty.Close()
		tm.tty = nil
	}
	if tm.cmd != nil && tm.cmd.Process != nil {
		_ = tm.cmd.Process.Kill()
		_, _ = tm.cmd.Process.Wait()
	}
}
