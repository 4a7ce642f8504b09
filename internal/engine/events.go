// Filename: internal/engine/events.go
package engine

import (
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

// Progress is emitted after every consumed instruction.
type Progress struct {
	Current    int     `json:"current"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// Reporter observes a run. The engine invokes it on every instruction and on
// every lifecycle transition; consumers (a UI, a log, an event stream) stay
// entirely outside the engine.
type Reporter interface {
	Progress(runID string, p Progress)
	Completed(runID string)
	Stopped(runID string)
	Error(runID string, msg string)
}

// NopReporter discards all events.
type NopReporter struct{}

func (NopReporter) Progress(string, Progress) {}
func (NopReporter) Completed(string)          {}
func (NopReporter) Stopped(string)            {}
func (NopReporter) Error(string, string)      {}

// LogReporter mirrors run events into a zap logger. Progress is logged at
// debug level to keep the console quiet during long runs.
type LogReporter struct {
	Logger *zap.Logger
}

func (r *LogReporter) Progress(runID string, p Progress) {
	r.Logger.Debug("progress",
		zap.String("run_id", runID),
		zap.Int("current", p.Current),
		zap.Int("total", p.Total),
		zap.Float64("percentage", p.Percentage),
	)
}

func (r *LogReporter) Completed(runID string) {
	r.Logger.Info("run completed", zap.String("run_id", runID))
}

func (r *LogReporter) Stopped(runID string) {
	r.Logger.Info("run stopped", zap.String("run_id", runID))
}

func (r *LogReporter) Error(runID string, msg string) {
	r.Logger.Error("run error", zap.String("run_id", runID), zap.String("message", msg))
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// streamEvent is the NDJSON wire shape consumed by external UIs.
type streamEvent struct {
	Type       string  `json:"type"`
	RunID      string  `json:"run_id"`
	Current    int     `json:"current,omitempty"`
	Total      int     `json:"total,omitempty"`
	Percentage float64 `json:"percentage,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// StreamReporter writes one JSON object per event to w (NDJSON). The mutex
// guards against interleaving when terminal events arrive from a command
// goroutine while the run loop is still emitting progress.
type StreamReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStreamReporter wraps w in an NDJSON event reporter.
func NewStreamReporter(w io.Writer) *StreamReporter {
	return &StreamReporter{w: w}
}

func (r *StreamReporter) emit(ev streamEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = json.NewEncoder(r.w).Encode(ev) // Encode appends the newline NDJSON needs.
}

func (r *StreamReporter) Progress(runID string, p Progress) {
	r.emit(streamEvent{Type: "progress", RunID: runID, Current: p.Current, Total: p.Total, Percentage: p.Percentage})
}

func (r *StreamReporter) Completed(runID string) {
	r.emit(streamEvent{Type: "completed", RunID: runID})
}

func (r *StreamReporter) Stopped(runID string) {
	r.emit(streamEvent{Type: "stopped", RunID: runID})
}

func (r *StreamReporter) Error(runID string, msg string) {
	r.emit(streamEvent{Type: "error", RunID: runID, Message: msg})
}

// MultiReporter fans events out to several reporters in order.
type MultiReporter []Reporter

func (m MultiReporter) Progress(runID string, p Progress) {
	for _, r := range m {
		r.Progress(runID, p)
	}
}

func (m MultiReporter) Completed(runID string) {
	for _, r := range m {
		r.Completed(runID)
	}
}

func (m MultiReporter) Stopped(runID string) {
	for _, r := range m {
		r.Stopped(runID)
	}
}

func (m MultiReporter) Error(runID string, msg string) {
	for _, r := range m {
		r.Error(runID, msg)
	}
}
