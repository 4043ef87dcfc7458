package log

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/rs/zerolog"
)

// zeroLogLogger adapts a zerolog.Logger to the Kratos log.Logger interface.
type zeroLogLogger struct {
	logger zerolog.Logger
}

// Log maps the Kratos level onto zerolog, lifts "msg" into the message and routes
// err/error values through zerolog's error field.
func (l zeroLogLogger) Log(level log.Level, keyvals ...any) error {
	if len(keyvals)%2 != 0 {
		keyvals = append(keyvals, "BAD_VALUE")
	}

	var event *zerolog.Event
	switch level {
	case log.LevelDebug:
		event = l.logger.Debug()
	case log.LevelInfo:
		event = l.logger.Info()
	case log.LevelWarn:
		event = l.logger.Warn()
	case log.LevelError:
		event = l.logger.Error()
	case log.LevelFatal:
		event = l.logger.Fatal()
	default:
		event = l.logger.Warn().Interface("original_level", level)
	}
	if event == nil {
		return nil
	}

	var msg string
	for i := 0; i < len(keyvals); i += 2 {
		key, ok := keyvals[i].(string)
		if !ok {
			key = fmt.Sprintf("BAD_KEY_%d", i)
		}
		val := keyvals[i+1]

		switch key {
		case "msg":
			if s, ok := val.(string); ok {
				msg = s
			} else {
				msg = fmt.Sprint(val)
			}
			continue
		case "err", "error":
			if e, ok := val.(error); ok {
				event = event.Err(e)
				continue
			}
		}
		event = event.Interface(key, val)
	}

	if level >= log.LevelError {
		if stack := captureStack(); stack != "" {
			event = event.Str("stack", stack)
		}
	}

	event.Msg(msg)
	return nil
}
