// Package prompt provides interactive CLI prompts for user input.
package prompt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/thoreinstein/clawmgr/internal/errors"
)

// Sentinel errors for prompts.
var (
	ErrNoChoices          = errors.New("nothing to select from")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrSelectionCancelled = errors.New("selection cancelled")
)

// Prompter reads answers from a reader and writes questions to a writer.
type Prompter struct {
	reader *bufio.Reader
	writer io.Writer
}

// New creates a Prompter on stdin and stdout.
func New() *Prompter {
	return NewWithIO(os.Stdin, os.Stdout)
}

// NewWithIO creates a Prompter with custom reader and writer for testing.
func NewWithIO(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(r), writer: w}
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		if errors.Is(err, io.EOF) {
			return "", ErrSelectionCancelled
		}
		return "", errors.Wrap(err, "reading input")
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks a yes/no question. An empty answer or EOF means no.
func (p *Prompter) Confirm(question string) (bool, error) {
	fmt.Fprintf(p.writer, "%s [y/N]: ", question)
	answer, err := p.readLine()
	if errors.Is(err, ErrSelectionCancelled) {
		fmt.Fprintln(p.writer)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// Select asks the user to pick one of choices by number and returns its
// index. A single choice is returned without prompting; an empty answer
// picks the first.
func (p *Prompter) Select(question string, choices []string) (int, error) {
	switch len(choices) {
	case 0:
		return 0, ErrNoChoices
	case 1:
		return 0, nil
	}

	fmt.Fprintln(p.writer, question)
	for i, c := range choices {
		fmt.Fprintf(p.writer, "  [%d] %s\n", i+1, c)
	}
	fmt.Fprint(p.writer, "Select [1]: ")

	input, err := p.readLine()
	if err != nil {
		return 0, err
	}
	if input == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(input)
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidSelection, "%q is not a number", input)
	}
	if n < 1 || n > len(choices) {
		return 0, errors.Wrapf(ErrInvalidSelection, "%d is out of range [1-%d]", n, len(choices))
	}
	return n - 1, nil
}
