package conf

import (
	"errors"
	"fmt"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
)

// Load reads the configuration file or directory at path. The returned config.Config stays
// open so that callers can Watch it; close it when done.
func Load(path string) (config.Config, *Bootstrap, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("configuration path is empty: please specify it via --conf")
	}

	cfg := config.New(config.WithSource(file.NewSource(path)))
	if err := cfg.Load(); err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}

	bc, err := FromConfig(cfg)
	if err != nil {
		_ = cfg.Close()
		return nil, nil, err
	}
	return cfg, bc, nil
}

// FromConfig scans the renderpool key of cfg over the defaults and validates the result.
// A missing renderpool key yields the defaults.
func FromConfig(cfg config.Config) (*Bootstrap, error) {
	bc := Default()
	if cfg != nil {
		if err := cfg.Value("renderpool").Scan(&bc.Renderpool); err != nil && !errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("failed to parse renderpool configuration: %w", err)
		}
	}
	if err := bc.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return bc, nil
}
