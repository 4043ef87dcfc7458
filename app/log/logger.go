// Package log provides the logging component of renderpool: a Kratos logger backed by zerolog,
// with console output, optional rotating file output and a level filter that can be changed
// at runtime.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	kconf "github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-lynx/renderpool/app/conf"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const configKey = "renderpool.log"

var (
	callerSkipDefault = 5

	// guards the zerolog timestamp location
	tzMu  sync.RWMutex
	tzLoc = time.Local
)

// InitLogger initializes the logging component from the renderpool.log section of cfg and
// watches that section for level changes. A nil cfg uses the defaults.
func InitLogger(name, host, version string, cfg kconf.Config) error {
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	var lc conf.Log
	if cfg != nil {
		if err := cfg.Value(configKey).Scan(&lc); err != nil {
			lc = conf.Log{Level: "info"}
		}
	}

	base, err := newBase(&lc)
	if err != nil {
		return err
	}
	apply := func(c *conf.Log) {
		setTimezone(c.Timezone)
		setStackEnabled(c.Stack)
		lvl := parseLevel(c.GetLevel())
		SetLevel(lvl)
		install(base, lvl, c.GetCallerSkip(), name, host, version)
	}
	apply(&lc)

	if cfg != nil {
		if err := cfg.Watch(configKey, func(_ string, v kconf.Value) {
			var nc conf.Log
			if err := v.Scan(&nc); err != nil {
				return
			}
			apply(&nc)
			Infof("logging configuration reloaded, level=%s", nc.GetLevel())
		}); err != nil {
			Debugf("log configuration watch unavailable: %v", err)
		}
	}

	Infow("msg", "renderpool logging component initialized", "level", lc.GetLevel())
	return nil
}

// InitWith initializes the logging component from an already parsed section.
func InitWith(name, host, version string, lc *conf.Log) error {
	if lc == nil {
		lc = &conf.Log{}
	}
	base, err := newBase(lc)
	if err != nil {
		return err
	}
	setTimezone(lc.Timezone)
	setStackEnabled(lc.Stack)
	lvl := parseLevel(lc.GetLevel())
	SetLevel(lvl)
	install(base, lvl, lc.GetCallerSkip(), name, host, version)
	return nil
}

// newBase builds the zerolog sink: console and/or a lumberjack-rotated file.
func newBase(lc *conf.Log) (zeroLogLogger, error) {
	var writers []io.Writer
	if lc.GetConsoleOutput() {
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				zerolog.CallerFieldName,
				zerolog.MessageFieldName,
			},
		})
	}
	if path := lc.GetFilePath(); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return zeroLogLogger{}, fmt.Errorf("failed to create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    lc.MaxSizeMb,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAgeDays,
			Compress:   lc.Compress,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, os.Stderr)
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFunc = func() time.Time {
		tzMu.RLock()
		defer tzMu.RUnlock()
		return time.Now().In(tzLoc)
	}
	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger()
	return zeroLogLogger{logger: zl}, nil
}

// install swaps the process logger.
func install(base log.Logger, lvl Level, callerSkip int, name, host, version string) {
	if callerSkip <= 0 {
		callerSkip = callerSkipDefault
	}
	logger := log.With(
		log.NewFilter(base, log.FilterLevel(lvl.kratos())),
		"caller", Caller(callerSkip),
		"service.id", host,
		"service.name", name,
		"service.version", version,
	)
	SetLogger(logger)
}

func setTimezone(tz string) {
	loc := time.Local
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	tzMu.Lock()
	tzLoc = loc
	tzMu.Unlock()
}

// Caller returns a log.Valuer reporting the source location depth frames up.
//
// Example output: "extension/registrar.go:42"
func Caller(depth int) log.Valuer {
	if depth < 0 {
		depth = 0
	}
	return func(context.Context) any {
		_, file, line, ok := runtime.Caller(depth)
		if !ok {
			return "unknown:0"
		}
		return trimFilePath(file, 2) + ":" + strconv.Itoa(line)
	}
}

// trimFilePath keeps the last depth components of file.
func trimFilePath(file string, depth int) string {
	if file == "" || depth <= 0 {
		return "unknown"
	}
	file = strings.ReplaceAll(file, "\\", "/")
	parts := strings.Split(file, "/")
	if len(parts) <= depth {
		return file
	}
	return strings.Join(parts[len(parts)-depth:], "/")
}
