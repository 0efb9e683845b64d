// Package confirm provides the operator confirmation gate consulted
// before any write.
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// ErrNotInteractive is returned when a terminal prompt is required but
// the input is not a terminal.
var ErrNotInteractive = errors.New("confirmation requires an interactive terminal, pass --yes to skip it")

// Confirmer asks a yes/no question and blocks until it is answered.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// Func adapts a function to Confirmer.
type Func func(message string) (bool, error)

func (f Func) Confirm(message string) (bool, error) {
	return f(message)
}

// Always answers every question with answer.
func Always(answer bool) Confirmer {
	return Func(func(string) (bool, error) { return answer, nil })
}

// Recorder answers with Answer and remembers every message it was asked.
type Recorder struct {
	Answer   bool
	Messages []string
}

func (r *Recorder) Confirm(message string) (bool, error) {
	r.Messages = append(r.Messages, message)
	return r.Answer, nil
}

// Terminal prompts on Out and reads the answer from In.
type Terminal struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

// NewTerminal returns a Terminal on the process's stdin and stderr.
// It fails with ErrNotInteractive when stdin is not a terminal.
func NewTerminal() (*Terminal, error) {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil, ErrNotInteractive
	}
	return &Terminal{In: os.Stdin, Out: os.Stderr}, nil
}

// Confirm prints message with a [y/N] suffix and waits for an answer.
// Anything but yes or no asks again. End of input counts as no.
func (t *Terminal) Confirm(message string) (bool, error) {
	if t.reader == nil {
		t.reader = bufio.NewReader(t.In)
	}
	for {
		if _, err := fmt.Fprintf(t.Out, "%s [y/N] ", message); err != nil {
			return false, err
		}
		line, err := t.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		case "":
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(t.Out)
			}
			return false, nil
		}
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		fmt.Fprintln(t.Out, "Please answer yes or no.")
	}
}
