package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shellbot-ai/shellbot/internal/permission"
)

// Permissions is the on-disk shape of the command policy.
type Permissions struct {
	Allow []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	Deny  []string `json:"deny,omitempty" yaml:"deny,omitempty"`
	// AskIfUnspecified selects the default verdict for unlisted commands:
	// ask when true (the default), deny when false.
	AskIfUnspecified *bool `json:"ask_if_unspecified,omitempty" yaml:"ask_if_unspecified,omitempty"`
}

// AskDefault resolves the tri-state field to its effective value.
func (p Permissions) AskDefault() bool {
	return p.AskIfUnspecified == nil || *p.AskIfUnspecified
}

// Executor configures how authorized commands are run.
type Executor struct {
	// TimeoutSeconds bounds a single command run. Zero means the default.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	// AllowedPaths are doublestar globs; file-modifying commands touching
	// paths outside every glob are refused before execution.
	AllowedPaths []string `json:"allowed_paths,omitempty" yaml:"allowed_paths,omitempty"`
}

// Audit configures the decision audit log.
type Audit struct {
	Enabled bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Dir     string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Config is the full shellbot configuration.
type Config struct {
	LogLevel    string      `json:"log_level,omitempty" yaml:"log_level,omitempty"`
	Permissions Permissions `json:"permissions" yaml:"permissions"`
	Executor    Executor    `json:"executor,omitempty" yaml:"executor,omitempty"`
	Audit       Audit       `json:"audit,omitempty" yaml:"audit,omitempty"`

	// path is the file the config was loaded from, and the target Save
	// writes back to.
	path string
}

// Path returns the file the configuration was loaded from. For a default
// configuration it is the global path a first Save would create.
func (c *Config) Path() string {
	return c.path
}

// Policy compiles the configured permissions into an evaluable policy.
func (c *Config) Policy() *permission.Policy {
	return permission.NewPolicy(c.Permissions.Allow, c.Permissions.Deny, c.Permissions.AskDefault())
}

// Load reads configuration from the first file found (priority order):
//  1. SHELLBOT_CONFIG file override
//  2. Project config (<directory>/.shellbot/shellbot.{json,jsonc,yaml,yml})
//  3. Global config (~/.config/shellbot/shellbot.{json,jsonc,yaml,yml})
//
// When no file exists the safe default policy is returned, pointed at the
// global path so "always" decisions still persist.
func Load(directory string) (*Config, error) {
	if override := os.Getenv("SHELLBOT_CONFIG"); override != "" {
		return LoadFile(override)
	}

	var candidates []string
	if directory != "" {
		projectDir := ProjectConfigDir(directory)
		for _, name := range configNames() {
			candidates = append(candidates, filepath.Join(projectDir, name))
		}
	}
	globalDir := GetPaths().Config
	for _, name := range configNames() {
		candidates = append(candidates, filepath.Join(globalDir, name))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}

	cfg := &Config{
		Permissions: DefaultPermissions(),
		path:        GlobalConfigPath(),
	}
	return cfg, nil
}

// LoadFile reads and parses one configuration file. The format follows the
// extension: .yaml/.yml parse as YAML, everything else as JSON with comments.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := &Config{path: path}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	return cfg, nil
}

// Save writes the configuration back to its file, temp-file + rename so a
// concurrent reader never sees a partial write.
func Save(cfg *Config) error {
	if cfg.path == "" {
		cfg.path = GlobalConfigPath()
	}

	dir := filepath.Dir(cfg.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(cfg.path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := cfg.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, cfg.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename config: %w", err)
	}

	return nil
}

func configNames() []string {
	return []string{"shellbot.json", "shellbot.jsonc", "shellbot.yaml", "shellbot.yml"}
}

// Store persists policy changes back to the loaded configuration file. It
// implements the engine's persistence collaborator.
type Store struct {
	mu  sync.Mutex
	cfg *Config
}

// NewStore creates a store writing through to cfg's file.
func NewStore(cfg *Config) *Store {
	return &Store{cfg: cfg}
}

// SavePolicy replaces the configured rule lists and writes the file.
func (s *Store) SavePolicy(allow, deny []string, askIfUnspecified bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cfg.Permissions.Allow = allow
	s.cfg.Permissions.Deny = deny
	s.cfg.Permissions.AskIfUnspecified = &askIfUnspecified
	return Save(s.cfg)
}
