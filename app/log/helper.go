package log

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/rs/zerolog"
)

// Level is the logging level shared by zerolog and the Kratos filter.
type Level int32

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func (l Level) kratos() log.Level {
	switch l {
	case DebugLevel:
		return log.LevelDebug
	case WarnLevel:
		return log.LevelWarn
	case ErrorLevel:
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// ParseLevel converts debug, info, warn or error to a Level; anything else is InfoLevel.
func ParseLevel(s string) Level {
	return parseLevel(s)
}

// SetLevel sets zerolog's global level. The Kratos filter follows on the next install.
func SetLevel(level Level) {
	switch level {
	case DebugLevel:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case WarnLevel:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case ErrorLevel:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// GetLevel returns zerolog's global level as a Level.
func GetLevel() Level {
	switch zerolog.GlobalLevel() {
	case zerolog.DebugLevel, zerolog.TraceLevel:
		return DebugLevel
	case zerolog.WarnLevel:
		return WarnLevel
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// helperStore holds the current *log.Helper; nil until a logger is installed.
var helperStore atomic.Pointer[log.Helper]

// SetLogger installs logger as the process logger. Passing nil silences logging.
func SetLogger(logger log.Logger) {
	if logger == nil {
		helperStore.Store(nil)
		return
	}
	helperStore.Store(log.NewHelper(logger))
}

// Logger returns the installed logger, or nil.
func Logger() log.Logger {
	if h := helperStore.Load(); h != nil {
		return h.Logger()
	}
	return nil
}

func helper() *log.Helper {
	return helperStore.Load()
}

func Debugf(format string, a ...any) {
	if h := helper(); h != nil {
		h.Debugf(format, a...)
	}
}

func Debugw(keyvals ...any) {
	if h := helper(); h != nil {
		h.Debugw(keyvals...)
	}
}

func Info(a ...any) {
	if h := helper(); h != nil {
		h.Info(a...)
	}
}

func Infof(format string, a ...any) {
	if h := helper(); h != nil {
		h.Infof(format, a...)
	}
}

func Infow(keyvals ...any) {
	if h := helper(); h != nil {
		h.Infow(keyvals...)
	}
}

func InfowCtx(ctx context.Context, keyvals ...any) {
	if h := helper(); h != nil {
		h.WithContext(ctx).Infow(keyvals...)
	}
}

func Warnf(format string, a ...any) {
	if h := helper(); h != nil {
		h.Warnf(format, a...)
	}
}

func Warnw(keyvals ...any) {
	if h := helper(); h != nil {
		h.Warnw(keyvals...)
	}
}

func Error(a ...any) {
	if h := helper(); h != nil {
		h.Error(a...)
	}
}

func Errorf(format string, a ...any) {
	if h := helper(); h != nil {
		h.Errorf(format, a...)
	}
}

func Errorw(keyvals ...any) {
	if h := helper(); h != nil {
		h.Errorw(keyvals...)
	}
}

func ErrorwCtx(ctx context.Context, keyvals ...any) {
	if h := helper(); h != nil {
		h.WithContext(ctx).Errorw(keyvals...)
	}
}
