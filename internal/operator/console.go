package operator

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// Console prompts a human at the terminal using readline.
type Console struct {
	rl *readline.Instance
}

// NewConsole opens a readline instance over stdin/stdout.
func NewConsole() (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("open readline: %w", err)
	}
	return &Console{rl: rl}, nil
}

// Close releases the terminal.
func (c *Console) Close() error { return c.rl.Close() }

// Prompt prints the checkpoint message and reads one reply line. Ctrl-C and
// EOF both count as cancellation.
func (c *Console) Prompt(ctx context.Context, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintln(c.rl.Stdout(), message)
	line, err := c.rl.Readline()
	switch err {
	case nil:
		return strings.TrimSpace(line), nil
	case readline.ErrInterrupt, io.EOF:
		return "", ErrCancelled
	default:
		return "", fmt.Errorf("read operator reply: %w", err)
	}
}
