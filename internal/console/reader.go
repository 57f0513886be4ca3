package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"

	"github.com/giantswarm/cacheserver/internal/fault"
)

// PromptLabel is the label of the interactive prompt.
const PromptLabel = "command"

// ErrCanceled is returned by a Reader when the operator cancels input
// (Ctrl+C, Ctrl+D or end of input). The console treats it as quit.
const ErrCanceled = fault.Sentinel("console input canceled")

// Reader reads one operator command.
type Reader interface {
	ReadCommand() (string, error)
}

// ReaderFunc adapts a function to Reader.
type ReaderFunc func() (string, error)

// ReadCommand calls f().
func (f ReaderFunc) ReadCommand() (string, error) {
	return f()
}

// LineReader reads newline-terminated commands from a non-interactive
// stream.
type LineReader struct {
	sc *bufio.Scanner
}

// NewLineReader reads commands from r.
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{sc: bufio.NewScanner(r)}
}

// ReadCommand returns the next line. End of input is ErrCanceled.
func (l *LineReader) ReadCommand() (string, error) {
	if l.sc.Scan() {
		return l.sc.Text(), nil
	}
	if err := l.sc.Err(); err != nil {
		return "", fmt.Errorf("read command: %w", err)
	}
	return "", ErrCanceled
}

// PromptReader reads commands from an interactive terminal, showing
// "command> ".
type PromptReader struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewPromptReader returns a PromptReader on the given terminal streams. Nil
// streams use the process stdin and stdout.
func NewPromptReader(stdin io.ReadCloser, stdout io.WriteCloser) *PromptReader {
	return &PromptReader{stdin: stdin, stdout: stdout}
}

// ReadCommand shows the prompt and returns the entered line.
func (p *PromptReader) ReadCommand() (string, error) {
	prompt := promptui.Prompt{
		Label: PromptLabel,
		Templates: &promptui.PromptTemplates{
			Prompt:  "{{ . }}> ",
			Valid:   "{{ . }}> ",
			Invalid: "{{ . }}> ",
			Success: "{{ . }}> ",
		},
		Stdin:  p.stdin,
		Stdout: p.stdout,
	}
	cmd, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) || errors.Is(err, promptui.ErrAbort) {
			return "", ErrCanceled
		}
		return "", fmt.Errorf("read command: %w", err)
	}
	return cmd, nil
}

// NewStdinReader returns a PromptReader when stdin is a terminal and a
// LineReader otherwise.
func NewStdinReader() Reader {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return NewPromptReader(nil, nil)
	}
	return NewLineReader(os.Stdin)
}
