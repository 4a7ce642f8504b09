// Filename: internal/observability/logger_test.go
package observability

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/xkilldash9x/ghosttype-cli/internal/config"
)

// syncBuffer is an in-memory WriteSyncer for capturing log output.
type syncBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func TestInitializeConsole(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	cfg := config.Default().Logger
	cfg.Level = "debug"
	Initialize(cfg, buf)

	logger := GetLogger()
	logger.Info("hello from test")
	logger.Debug("debug visible")

	out := buf.String()
	assert.Contains(t, out, "hello from test")
	assert.Contains(t, out, "debug visible")
	// Named logger prefixes the service name.
	assert.Contains(t, out, "ghosttype.")
	// Console levels are colorized per the default palette.
	assert.Contains(t, out, colorGreen+"INFO"+colorReset)
	assert.Contains(t, out, colorCyan+"DEBUG"+colorReset)
}

func TestInitializeJSON(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	cfg := config.Default().Logger
	cfg.Format = "json"
	Initialize(cfg, buf)

	GetLogger().Info("structured entry")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &entry))
	assert.Equal(t, "structured entry", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "ghosttype", entry["logger"])
}

func TestInitializeRespectsLevel(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	cfg := config.Default().Logger
	cfg.Level = "warn"
	Initialize(cfg, buf)

	logger := GetLogger()
	logger.Info("suppressed")
	logger.Warn("emitted")

	out := buf.String()
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, "emitted")
}

func TestInitializeBadLevelFallsBackToInfo(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	buf := &syncBuffer{}
	cfg := config.Default().Logger
	cfg.Level = "chatty"
	Initialize(cfg, buf)

	logger := GetLogger()
	logger.Debug("below default")
	logger.Info("at default")

	out := buf.String()
	assert.NotContains(t, out, "below default")
	assert.Contains(t, out, "at default")
}

func TestInitializeRunsOnce(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	first := &syncBuffer{}
	second := &syncBuffer{}
	Initialize(config.Default().Logger, first)
	Initialize(config.Default().Logger, second)

	GetLogger().Info("single sink")

	assert.Contains(t, first.String(), "single sink")
	assert.Empty(t, second.String())
}

func TestGetLoggerFallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)

	logger := GetLogger()
	require.NotNil(t, logger)
	// Must not panic before initialization.
	logger.Debug("pre-init logging is safe")
}

func TestLevelEncoderUnknownColorIsPlain(t *testing.T) {
	enc := levelEncoder(config.ColorConfig{Info: "polka-dot"})

	rec := &appendRecorder{}
	enc(zapcore.InfoLevel, rec)

	require.Len(t, rec.values, 1)
	assert.Equal(t, "INFO", rec.values[0])
}

// appendRecorder captures AppendString calls from a level encoder.
type appendRecorder struct {
	zapcore.PrimitiveArrayEncoder
	values []string
}

func (r *appendRecorder) AppendString(s string) { r.values = append(r.values, s) }
