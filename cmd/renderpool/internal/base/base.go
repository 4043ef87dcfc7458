// Package base holds what every renderpool subcommand shares: configuration loading, logger
// setup and orchestrator wiring.
package base

import (
	"fmt"
	"os"
	"path/filepath"

	kconf "github.com/go-kratos/kratos/v2/config"
	"github.com/go-lynx/renderpool"
	"github.com/go-lynx/renderpool/app/conf"
	"github.com/go-lynx/renderpool/app/log"
	"github.com/go-lynx/renderpool/engine/exec"
	"github.com/go-lynx/renderpool/extension"
)

var (
	// ConfPath is the --conf flag.
	ConfPath string
	// LogLevel is the --log-level flag; empty keeps the configured level.
	LogLevel string
	// WorkDir is the --workdir flag; empty means the current directory.
	WorkDir string
)

// Load reads the configuration named by --conf, or the defaults when it is empty. The returned
// config.Config is nil for defaults; close it otherwise.
func Load() (kconf.Config, *conf.Bootstrap, error) {
	if ConfPath == "" {
		bc := conf.Default()
		if err := bc.Validate(); err != nil {
			return nil, nil, err
		}
		return nil, bc, nil
	}
	return conf.Load(ConfPath)
}

// Setup loads the configuration and initializes logging. Call the returned function when done.
func Setup() (*conf.Bootstrap, func(), error) {
	cfg, bc, err := Load()
	if err != nil {
		return nil, nil, err
	}
	closer := func() {
		if cfg != nil {
			_ = cfg.Close()
		}
	}

	app := bc.Renderpool.Application
	host := app.Host
	if h, err := os.Hostname(); err == nil && host == "localhost" {
		host = h
	}
	if LogLevel != "" || cfg == nil {
		if LogLevel != "" {
			bc.Renderpool.Log.Level = LogLevel
		}
		err = log.InitWith(app.Name, host, app.Version, &bc.Renderpool.Log)
	} else {
		err = log.InitLogger(app.Name, host, app.Version, cfg)
	}
	if err != nil {
		closer()
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return bc, closer, nil
}

// Dir returns the absolute working directory from --workdir.
func Dir() (string, error) {
	dir := WorkDir
	if dir == "" {
		var err error
		if dir, err = os.Getwd(); err != nil {
			return "", err
		}
	}
	return filepath.Abs(dir)
}

// Orchestrator builds a command-backed orchestrator rooted at the working directory.
func Orchestrator(bc *conf.Bootstrap) (*renderpool.Orchestrator, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return renderpool.New(
		exec.NewConstructor(bc.Renderpool.Exec),
		renderpool.WithConfig(bc),
		renderpool.WithResolver(extension.StaticDir(dir)),
	)
}
