package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "renderpool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	bc := Default()
	require.NoError(t, bc.Validate())
	assert.Equal(t, 4, bc.Renderpool.Pool.Capacity)
	assert.Equal(t, 1, bc.Renderpool.Engine.Attempts)
	assert.True(t, bc.Renderpool.Log.GetConsoleOutput())
	assert.Equal(t, "revealjs", bc.Renderpool.Exec.Backends["reveal"])
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
renderpool:
  application:
    name: editor
  pool:
    capacity: 2
  engine:
    attempts: 3
    await_timeout: 45s
    thread_safe: true
  extensions:
    tool: asciidoctorj
    patterns: ["*.rb"]
  cache:
    forget_failures: true
  exec:
    backends:
      html: xhtml5
  log:
    level: debug
    console_output: false
`)
	cfg, bc, err := Load(path)
	require.NoError(t, err)
	defer cfg.Close()

	r := bc.Renderpool
	assert.Equal(t, "editor", r.Application.Name)
	assert.Equal(t, "dev", r.Application.Version)
	assert.Equal(t, 2, r.Pool.Capacity)
	assert.Equal(t, 2, r.Pool.Attempts)
	assert.Equal(t, 3, r.Engine.Attempts)
	assert.True(t, r.Engine.ThreadSafe)
	assert.False(t, r.Engine.BlockOnFailure)
	d, err := r.Engine.AwaitTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, d)
	assert.Equal(t, "asciidoctorj", r.Extensions.Tool)
	assert.Equal(t, 2, r.Extensions.Depth)
	assert.Equal(t, []string{"*.rb"}, r.Extensions.Patterns)
	assert.True(t, r.Cache.ForgetFailures)
	assert.Equal(t, "xhtml5", r.Exec.Backends["html"])
	assert.Equal(t, "docbook5", r.Exec.Backends["nonhtml"])
	assert.Equal(t, "debug", r.Log.GetLevel())
	assert.False(t, r.Log.GetConsoleOutput())
}

func TestLoad_MissingRootKeyUsesDefaults(t *testing.T) {
	path := writeConfig(t, "other:\n  key: value\n")
	cfg, bc, err := Load(path)
	require.NoError(t, err)
	defer cfg.Close()
	def := Default()
	require.NoError(t, def.Validate())
	assert.Equal(t, def.Renderpool.Pool, bc.Renderpool.Pool)
	assert.Equal(t, 4, bc.Renderpool.Pool.Attempts)
}

func TestLoad_Errors(t *testing.T) {
	_, _, err := Load("")
	assert.Error(t, err)

	_, _, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)

	cases := map[string]string{
		"timeout":  "renderpool:\n  engine:\n    await_timeout: soon\n",
		"level":    "renderpool:\n  log:\n    level: chatty\n",
		"pattern":  "renderpool:\n  extensions:\n    patterns: [\"[.rb\"]\n",
		"capacity": "renderpool:\n  pool:\n    capacity: -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestFromConfigNil(t *testing.T) {
	bc, err := FromConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "renderpool", bc.Renderpool.Application.Name)
}
