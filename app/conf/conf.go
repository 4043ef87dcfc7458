// Package conf holds the renderpool configuration tree (root key "renderpool").
package conf

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Bootstrap is the top-level configuration document.
type Bootstrap struct {
	Renderpool Renderpool `json:"renderpool" yaml:"renderpool"`
}

// Renderpool groups every section of the configuration.
type Renderpool struct {
	Application Application `json:"application" yaml:"application"`
	Pool        Pool        `json:"pool" yaml:"pool"`
	Engine      Engine      `json:"engine" yaml:"engine"`
	Extensions  Extensions  `json:"extensions" yaml:"extensions"`
	Cache       Cache       `json:"cache" yaml:"cache"`
	Diagram     Diagram     `json:"diagram" yaml:"diagram"`
	Exec        Exec        `json:"exec" yaml:"exec"`
	Log         Log         `json:"log" yaml:"log"`
}

// Application identifies the running process in logs.
type Application struct {
	Name    string `json:"name" yaml:"name"`
	Host    string `json:"host" yaml:"host"`
	Version string `json:"version" yaml:"version"`
}

// Pool configures the generic engine pool.
type Pool struct {
	// Capacity bounds the number of idle generic engines.
	Capacity int `json:"capacity" yaml:"capacity"`
	// Attempts is how many constructions the background populator tries; defaults to Capacity.
	Attempts int `json:"attempts" yaml:"attempts"`
}

// Engine configures the four specialized engines.
type Engine struct {
	// Attempts is the number of construction attempts per kind.
	Attempts int `json:"attempts" yaml:"attempts"`
	// BlockOnFailure keeps a kind's gate closed after its last failed attempt, so waiters
	// block until their own deadline. The default opens the gate with an error instead.
	BlockOnFailure bool `json:"block_on_failure" yaml:"block_on_failure"`
	// ThreadSafe declares the wrapped converter safe for concurrent use; otherwise every
	// specialized instance is serialized.
	ThreadSafe bool `json:"thread_safe" yaml:"thread_safe"`
	// AwaitTimeout bounds how long accessors wait for a kind, e.g. "30s". Empty waits forever.
	AwaitTimeout string `json:"await_timeout" yaml:"await_timeout"`
}

// AwaitTimeoutDuration parses AwaitTimeout; empty means zero (no timeout).
func (e Engine) AwaitTimeoutDuration() (time.Duration, error) {
	if e.AwaitTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(e.AwaitTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid engine.await_timeout %q: %w", e.AwaitTimeout, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid engine.await_timeout %q: negative", e.AwaitTimeout)
	}
	return d, nil
}

// Extensions configures user extension discovery.
type Extensions struct {
	Tool     string   `json:"tool" yaml:"tool"`
	Depth    int      `json:"depth" yaml:"depth"`
	Patterns []string `json:"patterns" yaml:"patterns"`
}

// CacheSize sizes one ristretto cache.
type CacheSize struct {
	NumCounters int64 `json:"num_counters" yaml:"num_counters"`
	MaxCost     int64 `json:"max_cost" yaml:"max_cost"`
	Metrics     bool  `json:"metrics" yaml:"metrics"`
}

// Cache configures the render caches.
type Cache struct {
	Fingerprints CacheSize `json:"fingerprints" yaml:"fingerprints"`
	Binaries     CacheSize `json:"binaries" yaml:"binaries"`
	// ForgetFailures stops failed renders from updating the fingerprint cache, so an
	// identical retry renders again. Off by default: a failed attempt is remembered.
	ForgetFailures bool `json:"forget_failures" yaml:"forget_failures"`
}

// Diagram configures diagram rendering.
type Diagram struct {
	// CacheMarker marks targets whose output goes to the binary cache instead of disk.
	CacheMarker string `json:"cache_marker" yaml:"cache_marker"`
	// DPI is injected into PlantUML and Graphviz sources that do not set one; 0 disables it.
	DPI int `json:"dpi" yaml:"dpi"`
	// Scale is the default ditaa scale.
	Scale int `json:"scale" yaml:"scale"`
	// Command draws diagrams read from stdin, e.g. plantuml -pipe.
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args" yaml:"args"`
}

// Exec configures the command-backed engine.
type Exec struct {
	Command   string            `json:"command" yaml:"command"`
	Args      []string          `json:"args" yaml:"args"`
	ProbeArgs []string          `json:"probe_args" yaml:"probe_args"`
	Backends  map[string]string `json:"backends" yaml:"backends"`
	// Env is appended to the process environment as KEY=VALUE entries.
	Env []string `json:"env" yaml:"env"`
}

// Log configures the logging component.
type Log struct {
	Level         string `json:"level" yaml:"level"`
	ConsoleOutput *bool  `json:"console_output,omitempty" yaml:"console_output,omitempty"`
	FilePath      string `json:"file_path" yaml:"file_path"`
	MaxSizeMb     int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups    int    `json:"max_backups" yaml:"max_backups"`
	MaxAgeDays    int    `json:"max_age_days" yaml:"max_age_days"`
	Compress      bool   `json:"compress" yaml:"compress"`
	CallerSkip    int    `json:"caller_skip" yaml:"caller_skip"`
	Timezone      string `json:"timezone" yaml:"timezone"`
	Stack         bool   `json:"stack" yaml:"stack"`
}

func (l *Log) GetLevel() string {
	if l == nil || l.Level == "" {
		return "info"
	}
	return l.Level
}

// GetConsoleOutput defaults to true when unset.
func (l *Log) GetConsoleOutput() bool {
	if l == nil || l.ConsoleOutput == nil {
		return true
	}
	return *l.ConsoleOutput
}

func (l *Log) GetFilePath() string {
	if l == nil {
		return ""
	}
	return l.FilePath
}

func (l *Log) GetCallerSkip() int {
	if l == nil {
		return 0
	}
	return l.CallerSkip
}

// Default returns the configuration used when no file is given.
func Default() *Bootstrap {
	return &Bootstrap{Renderpool: Renderpool{
		Application: Application{Name: "renderpool", Host: "localhost", Version: "dev"},
		Pool:        Pool{Capacity: 4},
		Engine:      Engine{Attempts: 1},
		Extensions: Extensions{
			Tool:     "asciidoctor",
			Depth:    2,
			Patterns: []string{"*.rb", "*.jar"},
		},
		Cache: Cache{
			Fingerprints: CacheSize{NumCounters: 1e5, MaxCost: 1 << 24},
			Binaries:     CacheSize{NumCounters: 1e4, MaxCost: 1 << 28},
		},
		Diagram: Diagram{
			CacheMarker: "/afx/cache",
			DPI:         300,
			Scale:       1,
			Command:     "plantuml",
			Args:        []string{"-pipe"},
		},
		Exec: Exec{
			Command:   "asciidoctor",
			ProbeArgs: []string{"--version"},
			Backends: map[string]string{
				"plain":   "html5",
				"html":    "html5",
				"nonhtml": "docbook5",
				"reveal":  "revealjs",
				"generic": "html5",
			},
		},
		Log: Log{Level: "info"},
	}}
}

// Validate fills zero values with defaults and rejects invalid settings.
func (b *Bootstrap) Validate() error {
	def := Default().Renderpool
	r := &b.Renderpool

	if r.Application.Name == "" {
		r.Application.Name = def.Application.Name
	}
	if r.Application.Host == "" {
		r.Application.Host = def.Application.Host
	}
	if r.Application.Version == "" {
		r.Application.Version = def.Application.Version
	}

	if r.Pool.Capacity < 0 {
		return fmt.Errorf("pool.capacity must not be negative, got %d", r.Pool.Capacity)
	}
	if r.Pool.Capacity == 0 {
		r.Pool.Capacity = def.Pool.Capacity
	}
	if r.Pool.Attempts <= 0 {
		r.Pool.Attempts = r.Pool.Capacity
	}

	if r.Engine.Attempts <= 0 {
		r.Engine.Attempts = def.Engine.Attempts
	}
	if _, err := r.Engine.AwaitTimeoutDuration(); err != nil {
		return err
	}

	if r.Extensions.Tool == "" {
		r.Extensions.Tool = def.Extensions.Tool
	}
	if r.Extensions.Depth <= 0 {
		r.Extensions.Depth = def.Extensions.Depth
	}
	if len(r.Extensions.Patterns) == 0 {
		r.Extensions.Patterns = def.Extensions.Patterns
	}
	for _, p := range r.Extensions.Patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid extensions.patterns entry %q", p)
		}
	}

	if r.Cache.Fingerprints.NumCounters <= 0 {
		r.Cache.Fingerprints.NumCounters = def.Cache.Fingerprints.NumCounters
	}
	if r.Cache.Fingerprints.MaxCost <= 0 {
		r.Cache.Fingerprints.MaxCost = def.Cache.Fingerprints.MaxCost
	}
	if r.Cache.Binaries.NumCounters <= 0 {
		r.Cache.Binaries.NumCounters = def.Cache.Binaries.NumCounters
	}
	if r.Cache.Binaries.MaxCost <= 0 {
		r.Cache.Binaries.MaxCost = def.Cache.Binaries.MaxCost
	}

	if r.Diagram.CacheMarker == "" {
		r.Diagram.CacheMarker = def.Diagram.CacheMarker
	}
	if r.Diagram.DPI < 0 {
		return fmt.Errorf("diagram.dpi must not be negative, got %d", r.Diagram.DPI)
	}
	if r.Diagram.Scale <= 0 {
		r.Diagram.Scale = def.Diagram.Scale
	}
	if r.Diagram.Command == "" {
		r.Diagram.Command = def.Diagram.Command
		if len(r.Diagram.Args) == 0 {
			r.Diagram.Args = def.Diagram.Args
		}
	}

	if r.Exec.Command == "" {
		r.Exec.Command = def.Exec.Command
	}
	if len(r.Exec.ProbeArgs) == 0 {
		r.Exec.ProbeArgs = def.Exec.ProbeArgs
	}
	if r.Exec.Backends == nil {
		r.Exec.Backends = map[string]string{}
	}
	for kind, backend := range def.Exec.Backends {
		if _, ok := r.Exec.Backends[kind]; !ok {
			r.Exec.Backends[kind] = backend
		}
	}

	switch r.Log.GetLevel() {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level %q", r.Log.Level)
	}
	return nil
}
