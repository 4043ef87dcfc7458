package extensions

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-lynx/renderpool/cmd/renderpool/internal/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runIn(t *testing.T, dir string) string {
	t.Helper()
	base.WorkDir = dir
	t.Cleanup(func() { base.WorkDir = "" })
	var out bytes.Buffer
	CmdExtensions.SetOut(&out)
	require.NoError(t, run(CmdExtensions, nil))
	return out.String()
}

func TestListsExtensions(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(dir, ".asciidoctor", "lib")
	require.NoError(t, os.MkdirAll(filepath.Join(lib, "nested"), 0o755))
	for _, f := range []string{"a.rb", "nested/b.jar", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(lib, f), nil, 0o644))
	}

	out := runIn(t, dir)
	assert.Contains(t, out, filepath.Join(lib, "a.rb"))
	assert.Contains(t, out, filepath.Join(lib, "nested", "b.jar"))
	assert.NotContains(t, out, "notes.txt")
	assert.Contains(t, out, "2 extension(s)")
}

func TestMissingPluginDirectory(t *testing.T) {
	out := runIn(t, t.TempDir())
	assert.Contains(t, out, "No plugin directory")
}
