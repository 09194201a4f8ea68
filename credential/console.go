package credential

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"
)

// Console is the interactive terminal the prompt loop talks to.
type Console interface {
	WriteLine(text string)
	AskHidden(prompt string) (string, error)
	Choose(prompt string, options []string) (string, error)
}

// TerminalConsole reads from a terminal or a plain stream. Hidden input is
// only possible when the input is a terminal.
type TerminalConsole struct {
	reader *bufio.Reader
	out    io.Writer
	fd     int
	isTerm bool
}

// NewTerminalConsole creates a console on in/out, masking input when in
// is a terminal.
func NewTerminalConsole(in *os.File, out io.Writer) *TerminalConsole {
	fd := int(in.Fd())
	return &TerminalConsole{
		reader: bufio.NewReader(in),
		out:    out,
		fd:     fd,
		isTerm: term.IsTerminal(fd),
	}
}

// NewConsole creates a console on an arbitrary stream (no masking).
func NewConsole(in io.Reader, out io.Writer) *TerminalConsole {
	return &TerminalConsole{
		reader: bufio.NewReader(in),
		out:    out,
		fd:     -1,
	}
}

// WriteLine implements Console.
func (c *TerminalConsole) WriteLine(text string) {
	fmt.Fprintln(c.out, text)
}

// AskHidden implements Console.
func (c *TerminalConsole) AskHidden(prompt string) (string, error) {
	fmt.Fprintf(c.out, "%s: ", prompt)
	if c.isTerm {
		data, err := term.ReadPassword(c.fd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("read hidden input: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	return c.readLine()
}

// Choose implements Console. The answer may be an option's number or its
// exact text.
func (c *TerminalConsole) Choose(prompt string, options []string) (string, error) {
	fmt.Fprintln(c.out, prompt)
	for i, opt := range options {
		fmt.Fprintf(c.out, "  [%d] %s\n", i+1, opt)
	}
	fmt.Fprint(c.out, "> ")
	answer, err := c.readLine()
	if err != nil {
		return "", err
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], nil
	}
	for _, opt := range options {
		if opt == answer {
			return opt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrNoChoice, answer)
}

func (c *TerminalConsole) readLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
