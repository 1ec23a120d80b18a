package filters

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
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

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for filters and the devices it drives.
// By default, filters produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by filters:
//   - [slog.LevelDebug]: per-pass dispatch details, pipeline creation, surface release
//   - [slog.LevelInfo]: device selection
//   - [slog.LevelWarn]: non-fatal issues (resource release errors)
//
// Example:
//
//	// Enable debug-level logging for full diagnostics:
//	filters.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)

	// Propagate to every open device that supports logging.
	devicesMu.Lock()
	defer devicesMu.Unlock()
	for ls := range devices {
		ls.SetLogger(l)
	}
}

// Logger returns the current logger used by filters.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by devices that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// devices tracks the loggable devices of open compute contexts so that
// SetLogger reaches them.
var (
	devicesMu sync.Mutex
	devices   = make(map[loggerSetter]int)
)

// trackDevice passes the current logger to a device and remembers it for
// later SetLogger calls. Contexts sharing a device are reference counted.
func trackDevice(d any) {
	ls, ok := d.(loggerSetter)
	if !ok {
		return
	}
	devicesMu.Lock()
	defer devicesMu.Unlock()
	devices[ls]++
	ls.SetLogger(Logger())
}

// untrackDevice forgets a device tracked by trackDevice.
func untrackDevice(d any) {
	ls, ok := d.(loggerSetter)
	if !ok {
		return
	}
	devicesMu.Lock()
	defer devicesMu.Unlock()
	if devices[ls]--; devices[ls] <= 0 {
		delete(devices, ls)
	}
}
