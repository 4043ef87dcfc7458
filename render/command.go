package render

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandDrawer pipes diagram source through an external drawer such as plantuml -pipe and
// reads the image from stdout. The format is passed as -t<format>.
type CommandDrawer struct {
	Command string
	Args    []string
}

func (d CommandDrawer) Draw(ctx context.Context, source string, format Format, workDir string) ([]byte, error) {
	args := append(append([]string(nil), d.Args...), "-t"+string(format))
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, d.Command, args...)
	cmd.Dir = workDir
	cmd.Stdin = strings.NewReader(source)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", d.Command, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
