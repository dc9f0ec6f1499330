package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"genart/internal/domain"
	"genart/internal/schedule"
	"genart/internal/status"
)

// FileName is the config file looked up in the workspace.
const FileName = "genart.yml"

// Config models genart.yml.
type Config struct {
	Gallery struct {
		Root       string        `yaml:"root"`
		Revalidate time.Duration `yaml:"revalidate"`
	} `yaml:"gallery"`
	Status struct {
		URL       string        `yaml:"url"`
		Interval  time.Duration `yaml:"interval"`
		Timeout   time.Duration `yaml:"timeout"`
		IdleAgent string        `yaml:"idle_agent"`
	} `yaml:"status"`
	Schedule struct {
		Cycle string `yaml:"cycle"`
	} `yaml:"schedule"`
	Server struct {
		Addr     string `yaml:"addr"`
		BasePath string `yaml:"base_path"`
	} `yaml:"server"`
	Site struct {
		Title   string `yaml:"title"`
		Tagline string `yaml:"tagline"`
	} `yaml:"site"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	cfg, err := FromFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config %s not found; create one with genart config init", path)
	}
	return cfg, err
}

// LoadOptional returns the defaults if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	cfg, err := FromFile(Path(workspace))
	if os.IsNotExist(err) {
		return Default(), nil
	}
	return cfg, err
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gallery.Root) == "" {
		return fmt.Errorf("config.gallery.root is required")
	}
	if c.Gallery.Revalidate < 0 {
		return fmt.Errorf("config.gallery.revalidate must not be negative")
	}
	if c.Status.URL != "" {
		u, err := url.Parse(c.Status.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("config.status.url must be an absolute http(s) URL")
		}
	}
	if c.Status.Interval <= 0 {
		return fmt.Errorf("config.status.interval must be positive")
	}
	if c.Status.Timeout <= 0 {
		return fmt.Errorf("config.status.timeout must be positive")
	}
	if strings.TrimSpace(c.Status.IdleAgent) == "" {
		return fmt.Errorf("config.status.idle_agent is required")
	}
	if _, err := schedule.Parse(c.Schedule.Cycle); err != nil {
		return fmt.Errorf("config.schedule.cycle: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("config.server.addr is required")
	}
	if !strings.HasPrefix(c.Server.BasePath, "/") {
		return fmt.Errorf("config.server.base_path must start with /")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config.log.level must be one of debug, info, warn, error")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config.log.format must be json or console")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, FileName)
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// Default returns the default Config.
func Default() *Config {
	var cfg Config
	_ = yaml.NewDecoder(bytes.NewBufferString(defaultTemplate)).Decode(&cfg)
	return &cfg
}

// FromYAML parses and validates config from raw YAML bytes. Keys left out
// keep their default values.
func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// ToYAML renders the effective config.
func (c *Config) ToYAML() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var defaultTemplate = fmt.Sprintf(`gallery:
  # One folder per date holding period_<N>.json sidecars plus .png and .py companions.
  root: public/gallery
  # How long a scan of the gallery is reused before the tree is read again.
  revalidate: 60s

status:
  # Remote status document published by the generator. Empty disables the banner.
  url: ""
  interval: %s
  timeout: 4s
  idle_agent: %s

schedule:
  # Generation cycle, used to show the next run when the status omits it.
  cycle: %q

server:
  addr: 127.0.0.1:8080
  base_path: /v0

site:
  title: Generative Art Engine
  tagline: Autonomous artwork generated every 6 hours by AI agents

log:
  level: info
  format: json
`, status.DefaultInterval, domain.DefaultIdleAgent, schedule.DefaultCycle)
