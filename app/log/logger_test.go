package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-lynx/renderpool/app/conf"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals(t *testing.T) {
	t.Helper()
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(prev)
		SetLogger(nil)
		setStackEnabled(false)
	})
}

func TestZeroLogAdapter(t *testing.T) {
	resetGlobals(t)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	var buf bytes.Buffer
	l := zeroLogLogger{logger: zerolog.New(&buf)}
	require.NoError(t, l.Log(log.LevelWarn, "msg", "scan failed", "dir", "/tmp/lib", "err", errors.New("boom")))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "warn", got["level"])
	assert.Equal(t, "scan failed", got["message"])
	assert.Equal(t, "/tmp/lib", got["dir"])
	assert.Equal(t, "boom", got["error"])
}

func TestZeroLogAdapter_OddKeyvalsAndFilteredLevel(t *testing.T) {
	resetGlobals(t)
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	l := zeroLogLogger{logger: zerolog.New(&buf)}
	require.NoError(t, l.Log(log.LevelDebug, "msg", "hidden"))
	assert.Zero(t, buf.Len())

	require.NoError(t, l.Log(log.LevelInfo, "dangling"))
	assert.Contains(t, buf.String(), "BAD_VALUE")
}

func TestZeroLogAdapter_StackAtErrorLevel(t *testing.T) {
	resetGlobals(t)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	setStackEnabled(true)

	var buf bytes.Buffer
	l := zeroLogLogger{logger: zerolog.New(&buf)}
	require.NoError(t, l.Log(log.LevelError, "msg", "failed"))
	assert.Contains(t, buf.String(), `"stack"`)

	buf.Reset()
	require.NoError(t, l.Log(log.LevelInfo, "msg", "fine"))
	assert.NotContains(t, buf.String(), `"stack"`)
}

func TestHelpersAreNoopsWithoutLogger(t *testing.T) {
	resetGlobals(t)
	SetLogger(nil)
	assert.Nil(t, Logger())
	assert.NotPanics(t, func() {
		Infof("x %d", 1)
		Warnw("k", "v")
		Errorw("k", "v")
		Debugw("k", "v")
	})
}

func TestHelpersUseInstalledLogger(t *testing.T) {
	resetGlobals(t)
	var buf bytes.Buffer
	SetLogger(log.NewStdLogger(&buf))

	Infow("msg", "engine ready", "kind", "html")
	Errorf("attempt %d failed", 2)
	out := buf.String()
	assert.Contains(t, out, "engine ready")
	assert.Contains(t, out, "kind=html")
	assert.Contains(t, out, "attempt 2 failed")
}

func TestInitWith_WritesFile(t *testing.T) {
	resetGlobals(t)
	off := false
	path := filepath.Join(t.TempDir(), "logs", "renderpool.log")
	require.NoError(t, InitWith("renderpool", "host-1", "v1", &conf.Log{
		Level:         "debug",
		ConsoleOutput: &off,
		FilePath:      path,
	}))
	assert.Equal(t, DebugLevel, GetLevel())

	Debugw("msg", "populating pool", "capacity", 4)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "populating pool")
	assert.Contains(t, line, `"service.name":"renderpool"`)
	assert.Contains(t, line, `"service.id":"host-1"`)
	assert.Contains(t, line, "logger_test.go")
}

func TestInitWith_LevelFilter(t *testing.T) {
	resetGlobals(t)
	off := false
	path := filepath.Join(t.TempDir(), "renderpool.log")
	require.NoError(t, InitWith("renderpool", "h", "v", &conf.Log{
		Level:         "error",
		ConsoleOutput: &off,
		FilePath:      path,
	}))
	Infow("msg", "dropped")
	Errorw("msg", "kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestInitLogger_RequiresName(t *testing.T) {
	assert.Error(t, InitLogger("", "h", "v", nil))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, WarnLevel, ParseLevel("warn"))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("verbose"))
}

func TestTrimFilePath(t *testing.T) {
	assert.Equal(t, "extension/registrar.go", trimFilePath("/src/renderpool/extension/registrar.go", 2))
	assert.Equal(t, "a.go", trimFilePath("a.go", 2))
	assert.Equal(t, "unknown", trimFilePath("", 2))
	assert.Equal(t, "pkg/x.go", trimFilePath(`C:\src\pkg\x.go`, 2))
	assert.True(t, strings.HasSuffix(trimFilePath("/a/b/c/d.go", 3), "b/c/d.go"))
}
