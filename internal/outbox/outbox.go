// Package outbox spools drained messages to local storage as JSON lines.
// The spool file rotates over time and old files are purged, so data
// survives a crash until it ages out. Uplink is left to whatever tails the
// spool.
package outbox

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Guliveer/vitalis/secagent/internal/config"
	"github.com/Guliveer/vitalis/secagent/internal/list"
	"github.com/Guliveer/vitalis/secagent/internal/logging"
	"github.com/Guliveer/vitalis/secagent/internal/models"
)

// Outbox writes one message per line.
type Outbox struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	logger *zap.Logger
	line   bytes.Buffer

	messages int64
	bytes    int64
}

// New opens the rotating spool described by cfg.
func New(cfg config.OutboxConfig, logger *zap.Logger) (*Outbox, error) {
	writer, err := logging.NewRotator(cfg.Path, cfg.Rotation, cfg.MaxAge)
	if err != nil {
		return nil, fmt.Errorf("opening outbox: %w", err)
	}
	o := NewWriter(writer, logger)
	o.closer = writer
	return o, nil
}

// NewWriter spools to w. Close does not close w.
func NewWriter(w io.Writer, logger *zap.Logger) *Outbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Outbox{w: w, logger: logger.Named("outbox")}
}

// Store writes every message in out, in order. A message that fails to
// write does not stop the others.
func (o *Outbox) Store(out *list.List[*models.Message]) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs error
	out.Foreach(func(m *models.Message) {
		errs = multierr.Append(errs, o.write(m))
	})
	if errs != nil {
		o.logger.Warn("Failed to spool messages", zap.Error(errs))
	}
	return errs
}

// write emits m and its line break in one Write, so a rotation never splits
// a line.
func (o *Outbox) write(m *models.Message) error {
	o.line.Reset()
	if _, err := m.WriteTo(&o.line); err != nil {
		return err
	}
	o.line.WriteByte('\n')
	n, err := o.w.Write(o.line.Bytes())
	if err != nil {
		return fmt.Errorf("writing message: %w", err)
	}
	o.messages++
	o.bytes += int64(n)
	return nil
}

// Stats returns how many messages and bytes were spooled.
func (o *Outbox) Stats() (messages, bytes int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.messages, o.bytes
}

// Close releases the spool file.
func (o *Outbox) Close() error {
	if o.closer == nil {
		return nil
	}
	return o.closer.Close()
}
