package lava

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/lava/gpucore"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

// liveDevices are devices of open simulations, kept so that SetLogger
// reaches them.
var (
	liveMu      sync.Mutex
	liveDevices = map[gpucore.Device]int{}
)

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for lava and the devices of all open
// simulations. By default, lava produces no log output.
//
// SetLogger is safe for concurrent use. Pass nil to restore the default
// silent behavior.
//
// Log levels used by lava:
//   - [slog.LevelDebug]: buffer allocation, kernel creation, recorded lists
//   - [slog.LevelInfo]: lifecycle events (storage seeded, restart, resize)
//   - [slog.LevelWarn]: non-fatal issues (frame skipped while a slot is in flight)
//
// Example:
//
//	lava.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	liveMu.Lock()
	defer liveMu.Unlock()
	for dev := range liveDevices {
		propagateLogger(dev, l)
	}
}

// Logger returns the current logger used by lava.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

func propagateLogger(dev gpucore.Device, l *slog.Logger) {
	if ls, ok := dev.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}

func trackDevice(dev gpucore.Device) {
	liveMu.Lock()
	defer liveMu.Unlock()
	liveDevices[dev]++
	propagateLogger(dev, Logger())
}

func untrackDevice(dev gpucore.Device) {
	liveMu.Lock()
	defer liveMu.Unlock()
	if liveDevices[dev] <= 1 {
		delete(liveDevices, dev)
		return
	}
	liveDevices[dev]--
}
