// Filename: internal/surface/dryrun.go
package surface

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/ghosttype-cli/internal/inserter"
)

// DryRun is a no-op surface that records what would have been typed. It lets
// an operator check pacing and markup handling without a browser attached.
type DryRun struct {
	logger *zap.Logger
}

// NewDryRun creates a dry-run surface logging through logger.
func NewDryRun(logger *zap.Logger) *DryRun {
	return &DryRun{logger: logger}
}

func (d *DryRun) Focus(ctx context.Context) error {
	d.logger.Info("dry-run: focus acquired")
	return nil
}

func (d *DryRun) ExecCommand(ctx context.Context, command, value string) (bool, error) {
	d.logger.Debug("dry-run: edit command",
		zap.String("command", command), zap.String("value", value))
	return true, nil
}

func (d *DryRun) DispatchKey(ctx context.Context, ev inserter.KeyEvent) error {
	d.logger.Debug("dry-run: key event",
		zap.String("type", string(ev.Type)),
		zap.String("key", ev.Key),
		zap.Bool("ctrl", ev.Ctrl))
	return nil
}

func (d *DryRun) DispatchInput(ctx context.Context, text string) error {
	d.logger.Debug("dry-run: input event", zap.String("text", text))
	return nil
}
