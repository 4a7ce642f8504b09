// Filename: internal/engine/engine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/ghosttype-cli/internal/inserter"
	"github.com/xkilldash9x/ghosttype-cli/internal/textproc"
)

// State is the lifecycle state of a run.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StatePaused
	StateCompleted
	StateErrored
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	}
	return "unknown"
}

// WPM bounds accepted by Start.
const (
	MinWPM = 10
	MaxWPM = 200
)

// minDelay bounds worst-case throughput regardless of configuration, so the
// host surface is never starved.
const minDelay = 50 * time.Millisecond

// defaultFocusSettle is the pause between confirming focus on the target
// surface and typing the first character.
const defaultFocusSettle = 300 * time.Millisecond

var (
	// ErrNoSurface means the target surface could not be acquired. It is
	// the one condition that errors a run instead of degrading.
	ErrNoSurface = errors.New("no usable target surface")
	// ErrEmptyText means there is nothing to type after normalization.
	ErrEmptyText = errors.New("empty text")
	// ErrInvalidWPM means the requested rate is outside [MinWPM, MaxWPM].
	ErrInvalidWPM = errors.New("words-per-minute out of range")
)

// Settings carries everything a start command needs.
type Settings struct {
	Text               string
	WPM                int
	PreserveFormatting bool
	NaturalVariation   bool
	SingleMethod       bool
}

// Validate checks the start-command preconditions.
func (s Settings) Validate() error {
	if s.WPM < MinWPM || s.WPM > MaxWPM {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidWPM, s.WPM, MinWPM, MaxWPM)
	}
	if strings.TrimSpace(s.Text) == "" {
		return ErrEmptyText
	}
	return nil
}

// Run is one playback session over an instruction stream. It is created by
// Start, mutated only by the engine's pacing loop, and discarded on any
// terminal transition. The cursor is the single source of truth for
// position: pause and resume never lose or replay an instruction.
type Run struct {
	ID       string
	stream   textproc.Stream
	settings Settings

	mu        sync.Mutex
	cursor    int
	state     State
	pausedCh  chan struct{} // closed when a pause is requested
	resumedCh chan struct{} // closed when a resume is requested

	cancel context.CancelFunc
	done   chan struct{}
}

// State returns the current lifecycle state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Cursor returns the index of the next unconsumed instruction.
func (r *Run) Cursor() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}

// Len returns the instruction stream length.
func (r *Run) Len() int { return len(r.stream) }

// Done is closed when the run's pacing loop has exited.
func (r *Run) Done() <-chan struct{} { return r.done }

func (r *Run) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
}

// pause flips Running to Paused and signals the loop to cancel its pending
// wake-up. Any other source state makes this a no-op.
func (r *Run) pause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return false
	}
	r.state = StatePaused
	r.resumedCh = make(chan struct{})
	close(r.pausedCh)
	return true
}

// resume flips Paused back to Running. Any other source state is ignored.
func (r *Run) resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StatePaused {
		return false
	}
	r.state = StateRunning
	r.pausedCh = make(chan struct{})
	close(r.resumedCh)
	return true
}

func (r *Run) pauseSignal() <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pausedCh
}

// awaitResume blocks until resume is invoked or the run is cancelled.
func (r *Run) awaitResume(ctx context.Context) error {
	r.mu.Lock()
	ch := r.resumedCh
	r.mu.Unlock()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// next returns the instruction under the cursor, or false when the stream is
// exhausted.
func (r *Run) next() (textproc.Instruction, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cursor >= len(r.stream) {
		return textproc.Instruction{}, false
	}
	return r.stream[r.cursor], true
}

// advance increments the cursor and returns its new value.
func (r *Run) advance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cursor++
	return r.cursor
}

// Engine owns run lifecycle and pacing. Exactly one run is active at a time;
// starting a new run first terminates the previous one. All mutation of the
// active run happens on its single pacing goroutine, one instruction per
// wake-up, resumable at the exact cursor.
type Engine struct {
	logger      *zap.Logger
	reporter    Reporter
	exec        *inserter.Executor
	limiter     *rate.Limiter
	rng         *rand.Rand
	focusSettle time.Duration

	mu     sync.Mutex
	active *Run
}

// Option customizes an Engine.
type Option func(*Engine)

// WithSeed makes jitter reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rng = rand.New(rand.NewSource(seed)) }
}

// WithFocusSettle overrides the pre-typing settle delay. Tests set it to
// zero.
func WithFocusSettle(d time.Duration) Option {
	return func(e *Engine) { e.focusSettle = d }
}

// New creates an Engine around an insertion executor and a reporter.
func New(logger *zap.Logger, reporter Reporter, exec *inserter.Executor, opts ...Option) *Engine {
	e := &Engine{
		logger:      logger,
		reporter:    reporter,
		exec:        exec,
		limiter:     rate.NewLimiter(rate.Every(minDelay), 1),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		focusSettle: defaultFocusSettle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start validates settings, builds the instruction stream, acquires the
// surface and begins a run. An already-active run is terminated first.
func (e *Engine) Start(ctx context.Context, settings Settings, surface inserter.Surface) (*Run, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	e.Stop()

	stripped := settings.Text
	var events map[int][]textproc.FormatEvent
	if settings.PreserveFormatting {
		stripped, events = textproc.ParseMarkup(settings.Text)
	}
	canonical := textproc.Normalize(stripped)
	if canonical == "" {
		return nil, ErrEmptyText
	}
	stream := textproc.BuildStream(canonical, events)

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		ID:       uuid.NewString(),
		stream:   stream,
		settings: settings,
		state:    StateRunning,
		pausedCh: make(chan struct{}),
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	if err := surface.Focus(runCtx); err != nil {
		cancel()
		run.setState(StateErrored)
		close(run.done)
		e.reporter.Error(run.ID, "no usable target surface: "+err.Error())
		return nil, fmt.Errorf("%w: %v", ErrNoSurface, err)
	}

	e.mu.Lock()
	e.active = run
	e.mu.Unlock()

	e.logger.Info("run started",
		zap.String("run_id", run.ID),
		zap.Int("instructions", len(stream)),
		zap.Int("wpm", settings.WPM),
		zap.Bool("natural_variation", settings.NaturalVariation),
		zap.Bool("single_method", settings.SingleMethod),
	)

	go e.loop(runCtx, run, surface)
	return run, nil
}

// Pause suspends the active run. A no-op outside the Running state.
func (e *Engine) Pause() {
	if run := e.activeRun(); run != nil && run.pause() {
		e.logger.Info("run paused", zap.String("run_id", run.ID), zap.Int("cursor", run.Cursor()))
	}
}

// Resume continues a paused run at the exact cursor. A no-op outside the
// Paused state.
func (e *Engine) Resume() {
	if run := e.activeRun(); run != nil && run.resume() {
		e.logger.Info("run resumed", zap.String("run_id", run.ID), zap.Int("cursor", run.Cursor()))
	}
}

// Stop tears down the active run, if any, and waits for its loop to exit.
// Always legal.
func (e *Engine) Stop() {
	run := e.activeRun()
	if run == nil {
		return
	}
	run.cancel()
	<-run.done
	e.mu.Lock()
	if e.active == run {
		e.active = nil
	}
	e.mu.Unlock()
}

// Active returns the current run, or nil.
func (e *Engine) Active() *Run { return e.activeRun() }

func (e *Engine) activeRun() *Run {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// loop is the pacing state machine: one instruction per wake-up, the next
// wake-up scheduled only after the current one completes.
func (e *Engine) loop(ctx context.Context, run *Run, surface inserter.Surface) {
	defer close(run.done)

	// Let the surface settle after acquiring focus before the first
	// character is typed.
	if err := e.waitPausable(ctx, run, e.focusSettle); err != nil {
		e.finishStopped(run)
		return
	}

	for {
		instr, ok := run.next()
		if !ok {
			run.setState(StateCompleted)
			e.logger.Info("run completed", zap.String("run_id", run.ID))
			e.reporter.Completed(run.ID)
			return
		}

		e.execute(ctx, run, instr, surface)

		cur := run.advance()
		total := run.Len()
		e.reporter.Progress(run.ID, Progress{
			Current:    cur,
			Total:      total,
			Percentage: 100 * float64(cur) / float64(total),
		})

		if err := e.limiter.Wait(ctx); err != nil {
			e.finishStopped(run)
			return
		}
		if err := e.waitPausable(ctx, run, e.calculateDelay(run.settings)); err != nil {
			e.finishStopped(run)
			return
		}
	}
}

// execute performs one instruction. Mechanism failures are logged, never
// fatal; the run advances regardless.
func (e *Engine) execute(ctx context.Context, run *Run, instr textproc.Instruction, surface inserter.Surface) {
	switch instr.Kind {
	case textproc.FormatToggle:
		if err := e.exec.ToggleFormat(ctx, instr.Format, surface); err != nil {
			e.logger.Debug("format toggle interrupted",
				zap.String("run_id", run.ID),
				zap.String("format", instr.Format.String()),
				zap.Error(err))
		}
	case textproc.CharInsert:
		outcome := e.exec.InsertChar(ctx, instr.Ch, surface, inserter.Policy{
			SingleMethod: run.settings.SingleMethod,
		})
		if !outcome.Succeeded {
			// Documented best-effort semantics: the character is simply
			// not guaranteed inserted.
			e.logger.Warn("character not inserted",
				zap.String("run_id", run.ID),
				zap.String("char", string(instr.Ch)),
				zap.Int("cursor", run.Cursor()))
		}
	}
}

// waitPausable sleeps for d, cancelling the pending wake-up if a pause
// arrives and scheduling a fresh delay once resumed.
func (e *Engine) waitPausable(ctx context.Context, run *Run, d time.Duration) error {
	for {
		if run.State() == StatePaused {
			if err := run.awaitResume(ctx); err != nil {
				return err
			}
			d = e.calculateDelay(run.settings)
		}
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-run.pauseSignal():
			timer.Stop()
			if err := run.awaitResume(ctx); err != nil {
				return err
			}
			d = e.calculateDelay(run.settings)
		case <-timer.C:
			return nil
		}
	}
}

// finishStopped marks a cancelled run Idle and reports the stop, unless the
// run already reached a terminal state.
func (e *Engine) finishStopped(run *Run) {
	if s := run.State(); s == StateCompleted || s == StateErrored {
		return
	}
	run.setState(StateIdle)
	e.logger.Info("run stopped", zap.String("run_id", run.ID), zap.Int("cursor", run.Cursor()))
	e.reporter.Stopped(run.ID)
}

// calculateDelay computes the inter-instruction delay: a 5-character word at
// the configured WPM, an optional uniform jitter in [0.7, 1.3], clamped to a
// 50 ms floor regardless of configuration.
func (e *Engine) calculateDelay(s Settings) time.Duration {
	ms := 60000.0 / float64(s.WPM*5)
	if s.NaturalVariation {
		ms *= 0.7 + e.rng.Float64()*0.6
	}
	if ms < 50 {
		ms = 50
	}
	return time.Duration(ms * float64(time.Millisecond))
}
