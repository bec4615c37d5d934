package pkg

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Component identifies a subsystem for log filtering.
type Component uint8

// Bridge component identifiers.
const (
	ComponentBridge Component = iota
	ComponentCodec
	ComponentUSB
	ComponentSerial
	ComponentHAL
	ComponentHost
	numComponents
)

var componentNames = [numComponents]string{
	ComponentBridge: "bridge",
	ComponentCodec:  "codec",
	ComponentUSB:    "usb",
	ComponentSerial: "serial",
	ComponentHAL:    "hal",
	ComponentHost:   "host",
}

func (c Component) String() string {
	if c < numComponents {
		return componentNames[c]
	}
	return fmt.Sprintf("component(%d)", uint8(c))
}

// LogFormat specifies the output format for logging.
type LogFormat int

// Log format options.
const (
	LogFormatText LogFormat = iota // Text format (default)
	LogFormatJSON                  // JSON format
)

// loggerSet is the root logger plus one child per component, built together
// so a log call never allocates a child.
type loggerSet struct {
	root      *slog.Logger
	component [numComponents]*slog.Logger
}

var (
	logLevel = new(slog.LevelVar)
	loggers  atomic.Pointer[loggerSet]
)

func init() {
	logLevel.Set(slog.LevelWarn)
	SetLogFormat(LogFormatText)
}

// SetLogLevel sets the minimum log level for all bridge logging. It applies to
// loggers built by this package; a logger installed with SetLogger keeps the
// level of its own handler.
func SetLogLevel(level slog.Level) {
	logLevel.Set(level)
}

// GetLogLevel returns the current minimum log level.
func GetLogLevel() slog.Level {
	return logLevel.Level()
}

// ParseLogLevel converts a level name (debug, info, warn, error) to a
// slog.Level.
func ParseLogLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("log level %q: %w", name, ErrInvalidParameter)
	}
	return level, nil
}

// Logger returns the logger currently in use.
func Logger() *slog.Logger {
	return loggers.Load().root
}

// SetLogger replaces the logger used by every component.
func SetLogger(logger *slog.Logger) {
	set := &loggerSet{root: logger}
	for c := range numComponents {
		set.component[c] = logger.With("component", componentNames[c])
	}
	loggers.Store(set)
}

// SetLogFormat installs a logger writing to os.Stderr in the given format at
// the current log level.
func SetLogFormat(format LogFormat) {
	opts := &slog.HandlerOptions{Level: logLevel}
	switch format {
	case LogFormatJSON:
		SetLogger(slog.New(slog.NewJSONHandler(os.Stderr, opts)))
	default:
		SetLogger(slog.New(slog.NewTextHandler(os.Stderr, opts)))
	}
}

// NewLogger creates a text logger writing to w. A nil opts uses the package
// log level.
func NewLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// NewJSONLogger creates a JSON logger writing to w. A nil opts uses the
// package log level.
func NewJSONLogger(w io.Writer, opts *slog.HandlerOptions) *slog.Logger {
	if opts == nil {
		opts = &slog.HandlerOptions{Level: logLevel}
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// DebugEnabled reports whether debug records would be emitted. The pipelines
// check it before formatting per-packet attributes.
func DebugEnabled() bool {
	return GetLogLevel() <= slog.LevelDebug
}

// LogDebug logs a debug message with the given component.
func LogDebug(component Component, msg string, args ...any) {
	logger(component).Debug(msg, args...)
}

// LogInfo logs an info message with the given component.
func LogInfo(component Component, msg string, args ...any) {
	logger(component).Info(msg, args...)
}

// LogWarn logs a warning message with the given component.
func LogWarn(component Component, msg string, args ...any) {
	logger(component).Warn(msg, args...)
}

// LogError logs an error message with the given component.
func LogError(component Component, msg string, args ...any) {
	logger(component).Error(msg, args...)
}

func logger(component Component) *slog.Logger {
	set := loggers.Load()
	if component < numComponents {
		return set.component[component]
	}
	return set.root.With("component", component.String())
}
