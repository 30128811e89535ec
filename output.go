package bridge

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jetkvm/chatpad-bridge/internal/chatpad"
	"github.com/jetkvm/chatpad-bridge/internal/uinput"
)

// outputBackend types resolved key text somewhere.
type outputBackend interface {
	Name() string
	TypeText(text string) error
	GetLastUserInputTime() time.Time
	Close() error
}

// initOutputBackend prefers a uinput virtual keyboard and falls back to the console.
func initOutputBackend(kind string) outputBackend {
	switch kind {
	case "none":
		return &discardBackend{}
	case "console":
		return newConsoleBackend(os.Stdout)
	}

	if kind == "uinput" || uinput.Available() {
		outputLogger.Info().Msg("Initializing uinput backend")
		u, err := uinput.NewBackend(outputLogger)
		if err == nil {
			return &uinputOutput{u}
		}
		outputLogger.Warn().Err(err).Msg("uinput init failed, falling back to console backend")
	}

	outputLogger.Info().Msg("Initializing console backend")
	return newConsoleBackend(os.Stdout)
}

type uinputOutput struct {
	*uinput.Backend
}

func (u *uinputOutput) Name() string { return "uinput" }

func (u *uinputOutput) TypeText(text string) error { return u.TypeString(text) }

var consoleReplacer = strings.NewReplacer(
	string(chatpad.KeyEnter), "\n",
	string(chatpad.KeyBackspace), "\b \b",
	string(chatpad.KeyLeft), "\x1b[D",
	string(chatpad.KeyRight), "\x1b[C",
)

// consoleBackend writes the character stream to a terminal.
type consoleBackend struct {
	mu            sync.Mutex
	w             io.Writer
	lastUserInput time.Time
}

func newConsoleBackend(w io.Writer) *consoleBackend {
	return &consoleBackend{w: w, lastUserInput: time.Now()}
}

func (c *consoleBackend) Name() string { return "console" }

func (c *consoleBackend) TypeText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := io.WriteString(c.w, consoleReplacer.Replace(text))
	c.lastUserInput = time.Now()
	return err
}

func (c *consoleBackend) GetLastUserInputTime() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUserInput
}

func (c *consoleBackend) Close() error { return nil }

type discardBackend struct{}

func (discardBackend) Name() string                    { return "none" }
func (discardBackend) TypeText(string) error           { return nil }
func (discardBackend) GetLastUserInputTime() time.Time { return time.Time{} }
func (discardBackend) Close() error                    { return nil }
