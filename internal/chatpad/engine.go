package chatpad

import (
	"context"
	"errors"
	"iter"
	"os"
	"strconv"
	"time"
	"unicode"

	"github.com/rs/zerolog"
)

var defaultLogger = zerolog.New(os.Stdout).With().Timestamp().Str("subsystem", "chatpad").Logger()

const resyncTimeout = 100 * time.Millisecond

type EventType int

const (
	EventReady EventType = iota + 1
	EventKey
	EventModifier
	EventCapsLock
)

func (t EventType) String() string {
	switch t {
	case EventReady:
		return "ready"
	case EventKey:
		return "key"
	case EventModifier:
		return "modifier"
	case EventCapsLock:
		return "caps_lock"
	}
	return "invalid"
}

// Event is what the engine hands to its Sink.
type Event struct {
	Type     EventType
	Key      KeyEvent // EventKey and EventModifier
	Polls    uint64
	CapsLock bool
}

// Sink receives engine events on the polling goroutine. It must not block.
type Sink interface {
	HandleEvent(ev Event)
}

type SinkFunc func(ev Event)

func (f SinkFunc) HandleEvent(ev Event) { f(ev) }

// Options tune behaviour beyond the base protocol. The zero value speaks the
// protocol exactly as the pad expects.
type Options struct {
	// InitAttempts is how many times the init command is sent while the pad
	// stays silent. Values below 1 mean one attempt.
	InitAttempts int
	// VerifyChecksum drops heartbeat and key frames whose bytes do not sum to zero.
	VerifyChecksum bool
	// Resync realigns the stream after an unrecognized frame that contains a header byte.
	Resync bool
	// CapsLockChord makes Shift+Orange toggle caps lock.
	CapsLockChord bool
}

// State is the session state owned by the polling loop.
type State struct {
	Polls    uint64
	Ready    bool
	Show     bool
	CapsLock bool
}

// Tick describes one iteration of the polling loop.
type Tick struct {
	Index  uint64
	Synced bool
	Kind   FrameKind
	Frame  Frame
}

// Engine drives a single chatpad over a Transport. It is not safe for
// concurrent use; the goroutine that polls it owns it.
type Engine struct {
	t     Transport
	sink  Sink
	opts  Options
	l     *zerolog.Logger
	state State
	sleep func(context.Context, time.Duration) error
}

func NewEngine(t Transport, sink Sink, opts Options, logger *zerolog.Logger) *Engine {
	if logger == nil {
		logger = &defaultLogger
	}
	if sink == nil {
		sink = SinkFunc(func(Event) {})
	}
	return &Engine{
		t:     t,
		sink:  sink,
		opts:  opts,
		l:     logger,
		state: State{Show: true},
		sleep: sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// State returns a copy of the current session state.
func (e *Engine) State() State { return e.state }

func (e *Engine) write(data []byte) error {
	if err := e.t.Write(data); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

func (e *Engine) read(n int, timeout time.Duration) ([]byte, error) {
	data, err := e.t.Read(n, timeout)
	if err != nil && !errors.Is(err, ErrTimeout) {
		return nil, &TransportError{Op: "read", Err: err}
	}
	return data, nil
}

// Initialize sends the init command and waits briefly for any answer. The
// answer is not inspected.
func (e *Engine) Initialize(ctx context.Context) error {
	attempts := max(e.opts.InitAttempts, 1)
	for i := 1; ; i++ {
		if err := e.write(initCommand[:]); err != nil {
			return err
		}
		resp, err := e.read(1, InitTimeout)
		if err != nil {
			return err
		}
		if len(resp) > 0 || i >= attempts {
			e.l.Debug().Int("attempt", i).Int("response_bytes", len(resp)).Msg("init sent")
			return nil
		}
		e.l.Warn().Int("attempt", i).Msg("no response to init, retrying")
		if err := e.sleep(ctx, initRetryDelay); err != nil {
			return err
		}
	}
}

// Sync sends the keep-alive command. The pad stops reporting without it.
func (e *Engine) Sync() error {
	return e.write(syncCommand[:])
}

// NextFrame reads one frame. ok is false when a full frame did not arrive in time.
func (e *Engine) NextFrame() (f Frame, ok bool, err error) {
	data, err := e.read(FrameSize, PollTimeout)
	if err != nil || len(data) < FrameSize {
		return f, false, err
	}
	f, ok = FrameFrom(data[:FrameSize])
	return f, ok, nil
}

// Step runs one poll: sync on cadence, read a frame, apply it.
func (e *Engine) Step() (Tick, error) {
	tick := Tick{Index: e.state.Polls}
	if e.state.Polls%SyncInterval == 0 {
		if err := e.Sync(); err != nil {
			return tick, err
		}
		tick.Synced = true
	}
	e.state.Polls++

	f, ok, err := e.NextFrame()
	if err != nil || !ok {
		return tick, err
	}
	tick.Frame = f
	tick.Kind = f.Kind()

	if e.opts.VerifyChecksum && (tick.Kind == FrameHeartbeat || tick.Kind == FrameKeyReport) && !f.ChecksumOK() {
		e.l.Warn().Str("codes", f.Hex()).Msg("checksum failed")
		tick.Kind = FrameMalformed
		return tick, nil
	}

	switch tick.Kind {
	case FrameHeartbeat:
		e.heartbeat()
	case FrameKeyReport:
		e.keyReport(f)
	case FrameMalformed:
		e.l.Warn().Str("codes", f.Hex()).Msg("malformed key report")
	case FrameUnrecognized:
		e.l.Warn().Str("codes", f.Hex()).Msg("unrecognized frame")
		if e.opts.Resync {
			return tick, e.resync(f)
		}
	}
	return tick, nil
}

func (e *Engine) heartbeat() {
	if !e.state.Ready {
		e.state.Ready = true
		e.l.Info().Uint64("polls", e.state.Polls).Msg("chatpad ready")
		e.sink.HandleEvent(Event{Type: EventReady, Polls: e.state.Polls})
	}
	e.state.Show = true
}

func (e *Engine) keyReport(f Frame) {
	if !e.state.Show {
		return
	}
	e.state.Show = false

	report, err := ParseKeyReport(f)
	if err != nil || report.Idle() {
		return
	}

	if e.opts.CapsLockChord && report.Modifier == modCapsLockChord {
		e.state.CapsLock = !e.state.CapsLock
		e.l.Info().Bool("caps_lock", e.state.CapsLock).Msg("caps lock toggled")
		e.sink.HandleEvent(Event{Type: EventCapsLock, Polls: e.state.Polls, CapsLock: e.state.CapsLock})
		return
	}

	key := e.applyCapsLock(Decode(report.Code, report.Modifier))
	e.l.Info().
		Str("mod", fmtHex(byte(report.Modifier))).
		Str("btn", fmtHex(byte(report.Code))).
		Str("key", key.Quoted()).
		Msg("key report")

	ev := Event{Type: EventKey, Key: key, Polls: e.state.Polls, CapsLock: e.state.CapsLock}
	if report.Code == 0 {
		ev.Type = EventModifier
	}
	e.sink.HandleEvent(ev)
}

func (e *Engine) applyCapsLock(k KeyEvent) KeyEvent {
	if !e.state.CapsLock || k.Kind != KindChar || !unicode.IsLetter(k.Char) {
		return k
	}
	if k.Modifier != ModNone && k.Modifier != ModShift {
		return k
	}
	if unicode.IsUpper(k.Char) {
		k.Char = unicode.ToLower(k.Char)
	} else {
		k.Char = unicode.ToUpper(k.Char)
	}
	return k
}

// resync drops the tail of a frame that started inside f so the next read
// begins on a frame boundary.
func (e *Engine) resync(f Frame) error {
	off := f.resyncOffset()
	if off == 0 {
		return nil
	}
	data, err := e.read(off, resyncTimeout)
	if err != nil {
		return err
	}
	if len(data) != off {
		e.l.Debug().Int("attempted", off).Int("actual", len(data)).Msg("failed to resync")
		return nil
	}
	e.l.Trace().Int("skipped", off).Msg("resynced")
	return nil
}

// Ticks yields poll iterations until ctx is done or the transport fails. The
// sequence shares the engine's state, so ranging over it again continues the
// same session rather than restarting it.
func (e *Engine) Ticks(ctx context.Context) iter.Seq2[Tick, error] {
	return func(yield func(Tick, error) bool) {
		for ctx.Err() == nil {
			tick, err := e.Step()
			if !yield(tick, err) || err != nil {
				return
			}
		}
	}
}

// Run initializes the pad and polls it until ctx is cancelled or the
// transport fails.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Initialize(ctx); err != nil {
		return err
	}
	for _, err := range e.Ticks(ctx) {
		if err != nil {
			return err
		}
	}
	return ctx.Err()
}

func fmtHex(b byte) string { return strconv.FormatUint(uint64(b), 16) }
