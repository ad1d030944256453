// Package logging builds the agent logger: human-readable console output
// teed with JSON lines written to a time-rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Guliveer/vitalis/secagent/internal/config"
)

// RotationPattern turns a log path into its rotatelogs pattern:
// "logs/agent.log" becomes "logs/agent.%Y%m%d%H%M.log".
func RotationPattern(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".%Y%m%d%H%M" + ext
}

// NewRotator opens a rotatelogs writer for path.
func NewRotator(path string, rotation, maxAge config.Duration) (*rotatelogs.RotateLogs, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	opts := []rotatelogs.Option{rotatelogs.WithRotationTime(rotation.Duration)}
	if maxAge.Duration > 0 {
		opts = append(opts, rotatelogs.WithMaxAge(maxAge.Duration))
	}
	return rotatelogs.New(RotationPattern(path), opts...)
}

// New creates the logger described by cfg. Console output goes to console
// (os.Stdout when nil). The returned closer releases the log file.
func New(cfg config.LoggingConfig, console io.Writer) (*zap.Logger, io.Closer, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("log level: %w", err)
	}
	if console == nil {
		console = os.Stdout
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(console), level),
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		writer, err := NewRotator(cfg.File, cfg.Rotation, cfg.MaxAge)
		if err != nil {
			return nil, nil, err
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(writer), level))
		closer = writer
	}

	return zap.New(zapcore.NewTee(cores...)), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
