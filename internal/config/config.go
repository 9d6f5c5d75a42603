package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/dusk-indust/enigma/internal/agent"
	"github.com/dusk-indust/enigma/internal/logging"
)

// Config holds service settings loaded from enigma.yml and the environment.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`
	MCP     MCPConfig     `yaml:"mcp"`
	Agents  []agent.Spec  `yaml:"agents"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr,omitempty"`
	ReadTimeout     time.Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"writeTimeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// TracingConfig selects the span exporter. Exporter is one of none, stdout
// or otlp.
type TracingConfig struct {
	Exporter    string `yaml:"exporter,omitempty"`
	Endpoint    string `yaml:"endpoint,omitempty"`
	ServiceName string `yaml:"serviceName,omitempty"`
}

type MCPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Default returns the configuration used when no file is present: one echo
// agent served on :8000.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Tracing: TracingConfig{
			Exporter:    "none",
			ServiceName: "enigma",
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
		Agents: []agent.Spec{
			{
				Kind:        agent.KindEcho,
				Name:        agent.DefaultEchoName,
				Description: agent.DefaultEchoDescription,
			},
		},
	}
}

// Load reads the config file at path. An empty path looks for enigma.yml or
// enigma.yaml in the working directory and returns the defaults if neither
// exists. Values in the file are layered over Default, then environment
// overrides are applied.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		for _, name := range []string{"enigma.yml", "enigma.yaml"} {
			if _, err := os.Stat(name); err == nil {
				path = name
				break
			}
		}
	}

	if path != "" {
		data, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from ENIGMA_* variables using lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ENIGMA_ADDR"); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup("ENIGMA_LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup("ENIGMA_LOG_FORMAT"); ok && v != "" {
		c.Log.Format = v
	}
	if v, ok := lookup("ENIGMA_TRACING_EXPORTER"); ok && v != "" {
		c.Tracing.Exporter = v
	}
	if v, ok := lookup("ENIGMA_OTLP_ENDPOINT"); ok && v != "" {
		c.Tracing.Endpoint = v
	}
	if v, ok := lookup("ENIGMA_MCP_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ENIGMA_MCP_ENABLED: %w", err)
		}
		c.MCP.Enabled = enabled
	}
	return nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	switch c.Tracing.Exporter {
	case "", "none", "stdout":
	case "otlp":
		if c.Tracing.Endpoint == "" {
			errs = append(errs, errors.New("tracing.endpoint is required for the otlp exporter"))
		}
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter %q is not one of none, stdout, otlp", c.Tracing.Exporter))
	}

	if c.MCP.Enabled {
		if err := validateMCPPath(c.MCP.Path); err != nil {
			errs = append(errs, fmt.Errorf("mcp.path %q %w", c.MCP.Path, err))
		}
	}

	seen := make(map[string]bool, len(c.Agents))
	for i, spec := range c.Agents {
		if spec.Name == "" {
			errs = append(errs, fmt.Errorf("agents[%d]: name is required", i))
			continue
		}
		if seen[spec.Name] {
			errs = append(errs, fmt.Errorf("agents[%d]: duplicate name %q", i, spec.Name))
		}
		seen[spec.Name] = true
		if !agent.IsKnownKind(spec.Kind) {
			errs = append(errs, fmt.Errorf("agents[%d]: unknown kind %q", i, spec.Kind))
		}
	}

	return errors.Join(errs...)
}

// reservedPaths are served by the HTTP API and cannot host the MCP handler.
var reservedPaths = []string{"/", "/healthz", "/agents"}

// validateMCPPath rejects paths that would collide with API routes once
// mounted on the mux. Wildcards are not allowed.
func validateMCPPath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return errors.New("must start with /")
	}
	if strings.ContainsAny(path, "{}") || strings.IndexFunc(path, unicode.IsSpace) >= 0 {
		return errors.New("must not contain wildcards or whitespace")
	}
	for _, p := range reservedPaths {
		if path == p || path == p+"/" {
			return fmt.Errorf("conflicts with %s", p)
		}
	}
	if strings.HasPrefix(path, "/agents/") {
		return errors.New("conflicts with /agents")
	}
	return nil
}
