package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultRunner is the Processing command-line runner.
	DefaultRunner = "processing-java"

	// DefaultGracePeriod is how long Stop waits after SIGTERM before SIGKILL.
	DefaultGracePeriod = 5 * time.Second

	// DefaultListenPort is the UDP port the OSC listener binds.
	DefaultListenPort = 9000

	// DefaultPeer is where outbound OSC messages are sent.
	DefaultPeer = "127.0.0.1:12000"

	// DefaultSketchExt marks a directory as a runnable sketch.
	DefaultSketchExt = ".pde"
)

// DefaultArgs are passed to the runner; {sketch} is replaced with the sketch directory.
var DefaultArgs = []string{"--sketch={sketch}", "--run"}

// Config holds persistent configuration loaded from ~/.sketchrun/config.yaml.
type Config struct {
	Sketchbook  string   `yaml:"sketchbook"`
	SketchExt   string   `yaml:"sketch_ext,omitempty"`
	Runner      string   `yaml:"runner,omitempty"`
	Args        []string `yaml:"args,omitempty"`
	GracePeriod Duration `yaml:"grace_period,omitempty"`
	LogLevel    string   `yaml:"log_level,omitempty"`
	LogLines    int      `yaml:"log_lines,omitempty"`
	OSC         OSC      `yaml:"osc"`
}

// OSC configures the control message bridge.
type OSC struct {
	Listen int    `yaml:"listen,omitempty"`
	Peer   string `yaml:"peer,omitempty"`
}

// Duration wraps time.Duration for YAML unmarshaling from strings like "5s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// DefaultPath returns the default config file path: ~/.sketchrun/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".sketchrun", "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns the defaults and no error. An empty or all-comment file
// also yields the defaults. Unset fields are filled with defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Sketchbook == "" {
		c.Sketchbook = "~/sketchbook"
	}
	if c.SketchExt == "" {
		c.SketchExt = DefaultSketchExt
	}
	if c.Runner == "" {
		c.Runner = DefaultRunner
	}
	if len(c.Args) == 0 {
		c.Args = append([]string(nil), DefaultArgs...)
	}
	if c.GracePeriod.Duration <= 0 {
		c.GracePeriod.Duration = DefaultGracePeriod
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogLines <= 0 {
		c.LogLines = 1000
	}
	if c.OSC.Listen == 0 {
		c.OSC.Listen = DefaultListenPort
	}
	if c.OSC.Peer == "" {
		c.OSC.Peer = DefaultPeer
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.SketchExt, ".") {
		return fmt.Errorf("sketch_ext %q must start with a dot", c.SketchExt)
	}
	if c.OSC.Listen < 0 || c.OSC.Listen > 65535 {
		return fmt.Errorf("osc.listen %d is not a valid port", c.OSC.Listen)
	}
	if _, _, err := SplitPeer(c.OSC.Peer); err != nil {
		return fmt.Errorf("osc.peer: %w", err)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error, got %q", c.LogLevel)
	}
	return nil
}

// ListenAddr returns the UDP address the OSC listener binds.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.OSC.Listen)
}

// SplitPeer parses a host:port peer address.
func SplitPeer(peer string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(peer)
	if err != nil {
		return "", 0, fmt.Errorf("invalid peer %q: %w", peer, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid peer port %q", portStr)
	}
	if host == "" {
		host = "127.0.0.1"
	}
	return host, port, nil
}
