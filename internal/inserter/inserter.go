// Filename: internal/inserter/inserter.go
package inserter

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ghosttype-cli/internal/textproc"
)

// Surface is the externally supplied editable destination the executor types
// into. Implementations wrap a live browser tab (CDP) or a no-op dry-run
// target; the executor never assumes more than this contract.
type Surface interface {
	// Focus gives the surface input focus. A surface that cannot accept
	// focus is unusable and the run errors out before typing starts.
	Focus(ctx context.Context) error

	// ExecCommand runs a named structured edit command ("insertText",
	// "insertParagraph", "paste", ...) and returns the command's own
	// reported success.
	ExecCommand(ctx context.Context, command, value string) (bool, error)

	// DispatchKey sends one synthetic key event to the surface's preferred
	// dispatch target (inner document body, else the focus target, else the
	// top-level document).
	DispatchKey(ctx context.Context, ev KeyEvent) error

	// DispatchInput synthesizes a raw text-insertion input event. Last
	// resort, only used in multi-method mode.
	DispatchInput(ctx context.Context, text string) error
}

// Clipboard is the optional asynchronous clipboard provider. A nil Clipboard
// disables the clipboard mechanism entirely; the chain degrades gracefully.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
	ReadText(ctx context.Context) (string, error)
}

// KeyEventType distinguishes the three events of a synthetic key triplet.
type KeyEventType string

const (
	KeyDown  KeyEventType = "keydown"
	KeyPress KeyEventType = "keypress"
	KeyUp    KeyEventType = "keyup"
)

// KeyEvent is an agnostic synthetic key event. For printable characters Ch
// carries the rune and Key is empty; for named keys (Enter, shortcut letters
// under Ctrl) Key carries the identity.
type KeyEvent struct {
	Type KeyEventType
	Ch   rune
	Key  string
	Ctrl bool
}

// Mechanism identifies which insertion technique realized (or attempted) a
// character.
type Mechanism int

const (
	MechanismNone Mechanism = iota
	MechanismEditCommand
	MechanismClipboard
	MechanismKeyEvents
	MechanismInputEvent
)

// String returns a short mechanism name for logs and events.
func (m Mechanism) String() string {
	switch m {
	case MechanismEditCommand:
		return "edit_command"
	case MechanismClipboard:
		return "clipboard"
	case MechanismKeyEvents:
		return "key_events"
	case MechanismInputEvent:
		return "input_event"
	}
	return "none"
}

// Outcome reports the result of one character-insert attempt. It is not
// persisted, only surfaced to logs and progress observers.
type Outcome struct {
	Succeeded bool
	Mechanism Mechanism
}

// Policy controls chain traversal. SingleMethod (the default) stops at the
// first mechanism that succeeds; disabling it attempts the entire chain,
// which is useful for diagnosing uncooperative surfaces.
type Policy struct {
	SingleMethod bool
}

// shortcutKeys maps a style to its conventional editor shortcut letter,
// dispatched with the control modifier held.
var shortcutKeys = map[textproc.FormatKind]string{
	textproc.Bold:      "b",
	textproc.Italic:    "i",
	textproc.Underline: "u",
}

// defaultFormatSettle is how long the executor waits after a format toggle so
// the host surface can apply the style before the next character lands.
const defaultFormatSettle = 120 * time.Millisecond

// Executor realizes single typing instructions against a Surface using an
// ordered fallback chain. No mechanism failure is fatal: the executor always
// returns some outcome and the caller advances regardless.
type Executor struct {
	clipboard    Clipboard
	logger       *zap.Logger
	formatSettle time.Duration
}

// Option customizes an Executor.
type Option func(*Executor)

// WithClipboard installs the optional clipboard provider.
func WithClipboard(c Clipboard) Option {
	return func(e *Executor) { e.clipboard = c }
}

// WithFormatSettle overrides the post-toggle settle delay. Tests set it to
// zero.
func WithFormatSettle(d time.Duration) Option {
	return func(e *Executor) { e.formatSettle = d }
}

// New creates an Executor. logger may not be nil; pass zap.NewNop() when
// logging is unwanted.
func New(logger *zap.Logger, opts ...Option) *Executor {
	e := &Executor{
		logger:       logger,
		formatSettle: defaultFormatSettle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InsertChar attempts the mechanism chain for one character. In single-method
// mode the chain stops at the first success; otherwise every reachable
// mechanism is attempted and the first success is reported. An exhausted
// chain is logged and reported, never raised as an error.
func (e *Executor) InsertChar(ctx context.Context, ch rune, surface Surface, policy Policy) Outcome {
	outcome := Outcome{Mechanism: MechanismNone}

	record := func(m Mechanism, ok bool) {
		if ok && !outcome.Succeeded {
			outcome.Succeeded = true
			outcome.Mechanism = m
		}
	}

	// 1. Structured edit command.
	record(MechanismEditCommand, e.tryEditCommand(ctx, ch, surface))
	if outcome.Succeeded && policy.SingleMethod {
		return outcome
	}

	// 2. Clipboard round-trip. Single non-line-break characters only, and
	// only when a clipboard provider is available at all.
	if ch != '\n' && e.clipboard != nil {
		record(MechanismClipboard, e.tryClipboard(ctx, ch, surface))
		if outcome.Succeeded && policy.SingleMethod {
			return outcome
		}
	}

	// 3. Synthetic key-event triplet. Its effect cannot be observed, so it
	// always counts as attempted.
	e.dispatchKeyTriplet(ctx, ch, surface)
	record(MechanismKeyEvents, true)
	if policy.SingleMethod {
		return outcome
	}

	// 4. Raw input-event dispatch, reachable only in multi-method mode.
	if err := surface.DispatchInput(ctx, string(ch)); err != nil {
		e.logger.Debug("input event dispatch failed", zap.Error(err))
	} else {
		record(MechanismInputEvent, true)
	}

	if !outcome.Succeeded {
		e.logger.Debug("insertion chain exhausted", zap.String("char", string(ch)))
	}
	return outcome
}

// ToggleFormat flips one inline style via a control-modified shortcut key and
// waits a short settle delay so the surface can apply the style. Best effort;
// the outcome is not load-bearing for sequencing.
func (e *Executor) ToggleFormat(ctx context.Context, kind textproc.FormatKind, surface Surface) error {
	key, ok := shortcutKeys[kind]
	if !ok {
		return nil
	}
	for _, t := range []KeyEventType{KeyDown, KeyPress, KeyUp} {
		ev := KeyEvent{Type: t, Key: key, Ctrl: true}
		if err := surface.DispatchKey(ctx, ev); err != nil {
			e.logger.Debug("format shortcut dispatch failed",
				zap.String("format", kind.String()), zap.Error(err))
			break
		}
	}
	return sleep(ctx, e.formatSettle)
}

// tryEditCommand asks the surface to run its native insert operation. Line
// breaks prefer insertParagraph with a raw insertLineBreak fallback.
func (e *Executor) tryEditCommand(ctx context.Context, ch rune, surface Surface) bool {
	if ch == '\n' {
		if ok, err := surface.ExecCommand(ctx, "insertParagraph", ""); err == nil && ok {
			return true
		}
		ok, err := surface.ExecCommand(ctx, "insertLineBreak", "")
		if err != nil {
			e.logger.Debug("line break command failed", zap.Error(err))
			return false
		}
		return ok
	}
	ok, err := surface.ExecCommand(ctx, "insertText", string(ch))
	if err != nil {
		e.logger.Debug("insertText command failed", zap.Error(err))
		return false
	}
	return ok
}

// tryClipboard writes the character to the shared clipboard and asks the
// surface to paste it.
func (e *Executor) tryClipboard(ctx context.Context, ch rune, surface Surface) bool {
	if err := e.clipboard.WriteText(ctx, string(ch)); err != nil {
		e.logger.Debug("clipboard write failed", zap.Error(err))
		return false
	}
	ok, err := surface.ExecCommand(ctx, "paste", "")
	if err != nil {
		e.logger.Debug("paste command failed", zap.Error(err))
		return false
	}
	return ok
}

// dispatchKeyTriplet sends keydown/keypress/keyup for ch. Line breaks use the
// Enter key identity.
func (e *Executor) dispatchKeyTriplet(ctx context.Context, ch rune, surface Surface) {
	for _, t := range []KeyEventType{KeyDown, KeyPress, KeyUp} {
		ev := KeyEvent{Type: t, Ch: ch}
		if ch == '\n' {
			ev.Ch = 0
			ev.Key = "Enter"
		}
		if err := surface.DispatchKey(ctx, ev); err != nil {
			e.logger.Debug("key event dispatch failed",
				zap.String("type", string(t)), zap.Error(err))
			return
		}
	}
}

// sleep blocks for d while honoring context cancellation.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
