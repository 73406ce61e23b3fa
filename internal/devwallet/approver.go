package devwallet

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/term"
)

var ErrNotInteractive = errors.New("approver needs an interactive terminal")

// Prompt is one request waiting for the user's decision.
type Prompt struct {
	ID      string
	Method  string
	Summary string
	Details map[string]string
}

func newPrompt(method, summary string, details map[string]string) Prompt {
	return Prompt{
		ID:      uuid.NewString(),
		Method:  method,
		Summary: summary,
		Details: details,
	}
}

// Approver decides prompts. Returning false rejects the request (4001).
type Approver interface {
	Approve(ctx context.Context, p Prompt) (bool, error)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, p Prompt) (bool, error)

func (f ApproverFunc) Approve(ctx context.Context, p Prompt) (bool, error) { return f(ctx, p) }

// StaticApprover answers every prompt the same way.
type StaticApprover bool

const (
	AutoApprove StaticApprover = true
	AutoReject  StaticApprover = false
)

func (a StaticApprover) Approve(context.Context, Prompt) (bool, error) { return bool(a), nil }

// TerminalApprover asks on a terminal and waits for y/n.
// A single goroutine owns the input; lines typed while no prompt is shown are dropped.
type TerminalApprover struct {
	out   io.Writer
	lines chan string

	// readErr is set before lines is closed.
	readErr error
}

// NewTerminalApprover uses stdin/stderr. Fails when stdin is not a terminal.
func NewTerminalApprover() (*TerminalApprover, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, ErrNotInteractive
	}
	return NewLineApprover(os.Stdin, os.Stderr), nil
}

// NewLineApprover reads answers from in and writes prompts to out.
func NewLineApprover(in io.Reader, out io.Writer) *TerminalApprover {
	a := &TerminalApprover{out: out, lines: make(chan string, 1)}
	go a.readLines(bufio.NewReader(in))
	return a
}

func (a *TerminalApprover) readLines(r *bufio.Reader) {
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			a.lines <- line
		}
		if err != nil {
			a.readErr = err
			close(a.lines)
			return
		}
	}
}

// discardTypeAhead drops answers read before the prompt was shown.
func (a *TerminalApprover) discardTypeAhead() {
	for {
		select {
		case _, ok := <-a.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (a *TerminalApprover) Approve(ctx context.Context, p Prompt) (bool, error) {
	a.discardTypeAhead()

	_, _ = fmt.Fprintf(a.out, "\n=== Wallet request %s ===\n", p.Method)
	_, _ = fmt.Fprintf(a.out, "%s\n", p.Summary)

	keys := make([]string, 0, len(p.Details))
	for k := range p.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		_, _ = fmt.Fprintf(a.out, "  %-10s %s\n", k+":", p.Details[k])
	}
	_, _ = fmt.Fprintf(a.out, "  id: %s\n", p.ID)
	_, _ = fmt.Fprint(a.out, "Approve? [y/N]: ")

	select {
	case <-ctx.Done():
		_, _ = fmt.Fprintln(a.out)
		return false, ctx.Err()
	case line, ok := <-a.lines:
		if !ok {
			if errors.Is(a.readErr, io.EOF) {
				return false, nil
			}
			return false, errors.Wrap(a.readErr, "read answer")
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		default:
			return false, nil
		}
	}
}
