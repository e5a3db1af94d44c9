// Package config loads and persists the workbench configuration.
//
// Values are resolved in the usual order: built-in defaults, then the YAML
// config file (./parastream.yaml or an explicit --config path), then
// PARASTREAM_* environment variables. A .env file in the working directory is
// honoured before the environment is read.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const DefaultFile = "parastream.yaml"

// Model describes the local model host and how the workbench talks to it.
type Model struct {
	Host           string        `mapstructure:"host" json:"host"`
	Port           int           `mapstructure:"port" json:"port"`
	Autostart      bool          `mapstructure:"autostart" json:"autostart"`
	StartCommand   []string      `mapstructure:"start_command" json:"startCommand"`
	RunCommand     string        `mapstructure:"run_command" json:"runCommand"`
	DefaultModel   string        `mapstructure:"default_model" json:"defaultModel"`
	StartupTimeout time.Duration `mapstructure:"startup_timeout" json:"startupTimeout"`
	InvokeTimeout  time.Duration `mapstructure:"invoke_timeout" json:"invokeTimeout"`
	Concurrency    int           `mapstructure:"concurrency" json:"concurrency"`
}

// Addr returns the host:port the model host listens on.
func (m Model) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// Chunk holds the translation batching caps.
type Chunk struct {
	MaxParagraphs int `mapstructure:"max_paragraphs" json:"maxParagraphs"`
	MaxChars      int `mapstructure:"max_chars" json:"maxChars"`
}

// Settings is one immutable view of the configuration. Handlers take a
// Snapshot at the start of a request; concurrent requests may observe
// different snapshots if the configuration changes in between.
type Settings struct {
	ListenPort int    `mapstructure:"listen_port" json:"listenPort"`
	LogLevel   string `mapstructure:"log_level" json:"logLevel"`
	DBPath     string `mapstructure:"db_path" json:"dbPath"`
	NoCache    bool   `mapstructure:"no_cache" json:"noCache"`
	Model      Model  `mapstructure:"model" json:"model"`
	Chunk      Chunk  `mapstructure:"chunk" json:"chunk"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_port", 8090)
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "./data/parastream.db")
	v.SetDefault("no_cache", false)

	v.SetDefault("model.host", "127.0.0.1")
	v.SetDefault("model.port", 11434)
	v.SetDefault("model.autostart", false)
	v.SetDefault("model.start_command", []string{"ollama", "serve"})
	v.SetDefault("model.run_command", "ollama")
	v.SetDefault("model.default_model", "llama3.2")
	v.SetDefault("model.startup_timeout", 20*time.Second)
	v.SetDefault("model.invoke_timeout", 120*time.Second)
	v.SetDefault("model.concurrency", 2)

	v.SetDefault("chunk.max_paragraphs", 4)
	v.SetDefault("chunk.max_chars", 3000)
}

// Normalize clamps nonsensical values to usable ones.
func (s *Settings) Normalize() {
	if s.Model.Concurrency < 1 {
		s.Model.Concurrency = 1
	}
	if s.Chunk.MaxParagraphs < 1 {
		s.Chunk.MaxParagraphs = 1
	}
	if s.Chunk.MaxChars < 1 {
		s.Chunk.MaxChars = 1
	}
	if s.Model.StartupTimeout <= 0 {
		s.Model.StartupTimeout = 20 * time.Second
	}
	if s.Model.InvokeTimeout <= 0 {
		s.Model.InvokeTimeout = 120 * time.Second
	}
}

// Manager owns the live configuration. Reads hand out value copies, so a
// Snapshot is safe to keep for the duration of a request.
type Manager struct {
	mu   sync.RWMutex
	v    *viper.Viper
	path string
	cur  Settings
}

// Load reads the configuration. path may be empty, in which case the default
// file is used when present and silently skipped when absent.
func Load(path string) (*Manager, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PARASTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if path == "" {
		path = DefaultFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		// A missing default file is fine; an explicitly named one is not.
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	s.Normalize()

	return &Manager{v: v, path: path, cur: s}, nil
}

// Snapshot returns the current settings by value.
func (m *Manager) Snapshot() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cur
}

// Update applies fn to a copy of the current settings, normalizes the result,
// installs it as the new current configuration, and returns it.
func (m *Manager) Update(fn func(*Settings)) Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := m.cur
	fn(&next)
	next.Normalize()
	m.cur = next
	return next
}

// Persist writes the current settings to the config file.
func (m *Manager) Persist() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.v.Set("listen_port", m.cur.ListenPort)
	m.v.Set("log_level", m.cur.LogLevel)
	m.v.Set("db_path", m.cur.DBPath)
	m.v.Set("no_cache", m.cur.NoCache)
	m.v.Set("model.host", m.cur.Model.Host)
	m.v.Set("model.port", m.cur.Model.Port)
	m.v.Set("model.autostart", m.cur.Model.Autostart)
	m.v.Set("model.start_command", m.cur.Model.StartCommand)
	m.v.Set("model.run_command", m.cur.Model.RunCommand)
	m.v.Set("model.default_model", m.cur.Model.DefaultModel)
	m.v.Set("model.startup_timeout", m.cur.Model.StartupTimeout.String())
	m.v.Set("model.invoke_timeout", m.cur.Model.InvokeTimeout.String())
	m.v.Set("model.concurrency", m.cur.Model.Concurrency)
	m.v.Set("chunk.max_paragraphs", m.cur.Chunk.MaxParagraphs)
	m.v.Set("chunk.max_chars", m.cur.Chunk.MaxChars)

	if err := m.v.WriteConfigAs(m.path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", m.path, err)
	}
	return nil
}
