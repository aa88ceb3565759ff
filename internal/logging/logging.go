// Package logging builds the process logger: logr on top of a zap console
// core writing to stderr.
package logging

import (
	"io"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configure New.
type Options struct {
	// Debug enables V(1) messages.
	Debug bool
	// Output defaults to os.Stderr.
	Output io.Writer
	// JSON switches from the console encoder to JSON lines.
	JSON bool
}

// New returns a logger and a flush function to call before exit.
func New(opts Options) (logr.Logger, func()) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encCfg.CallerKey = ""
	encCfg.StacktraceKey = ""
	encoder := zapcore.NewConsoleEncoder(encCfg)
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}

	// logr V(n) maps to zap level -n.
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if opts.Debug {
		level.SetLevel(zapcore.Level(-1))
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(out), level)
	zl := zap.New(core)
	return zapr.NewLogger(zl), func() { _ = zl.Sync() }
}
