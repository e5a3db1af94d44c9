package server

import (
	"fmt"
	"time"

	"parastream/internal/config"
)

// configView is the wire shape of the configuration. Durations travel as Go
// duration strings ("20s"), not nanosecond counts.
type configView struct {
	ListenPort int          `json:"listenPort"`
	LogLevel   string       `json:"logLevel"`
	DBPath     string       `json:"dbPath"`
	NoCache    bool         `json:"noCache"`
	Model      modelView    `json:"model"`
	Chunk      config.Chunk `json:"chunk"`
}

type modelView struct {
	Host           string   `json:"host"`
	Port           int      `json:"port"`
	Autostart      bool     `json:"autostart"`
	StartCommand   []string `json:"startCommand"`
	RunCommand     string   `json:"runCommand"`
	DefaultModel   string   `json:"defaultModel"`
	StartupTimeout string   `json:"startupTimeout"`
	InvokeTimeout  string   `json:"invokeTimeout"`
	Concurrency    int      `json:"concurrency"`
}

func viewOf(s config.Settings) configView {
	return configView{
		ListenPort: s.ListenPort,
		LogLevel:   s.LogLevel,
		DBPath:     s.DBPath,
		NoCache:    s.NoCache,
		Model: modelView{
			Host:           s.Model.Host,
			Port:           s.Model.Port,
			Autostart:      s.Model.Autostart,
			StartCommand:   s.Model.StartCommand,
			RunCommand:     s.Model.RunCommand,
			DefaultModel:   s.Model.DefaultModel,
			StartupTimeout: s.Model.StartupTimeout.String(),
			InvokeTimeout:  s.Model.InvokeTimeout.String(),
			Concurrency:    s.Model.Concurrency,
		},
		Chunk: s.Chunk,
	}
}

// configUpdate is a partial configuration change; nil fields are left as-is.
type configUpdate struct {
	ListenPort *int         `json:"listenPort"`
	LogLevel   *string      `json:"logLevel"`
	DBPath     *string      `json:"dbPath"`
	NoCache    *bool        `json:"noCache"`
	Model      *modelUpdate `json:"model"`
	Chunk      *chunkUpdate `json:"chunk"`
	Persist    bool         `json:"persist"`
}

type modelUpdate struct {
	Host           *string `json:"host"`
	Port           *int    `json:"port"`
	Autostart      *bool   `json:"autostart"`
	DefaultModel   *string `json:"defaultModel"`
	StartupTimeout *string `json:"startupTimeout"`
	InvokeTimeout  *string `json:"invokeTimeout"`
	Concurrency    *int    `json:"concurrency"`
}

type chunkUpdate struct {
	MaxParagraphs *int `json:"maxParagraphs"`
	MaxChars      *int `json:"maxChars"`
}

func (u *configUpdate) validate() error {
	if u.Model == nil {
		return nil
	}
	for name, d := range map[string]*string{
		"startupTimeout": u.Model.StartupTimeout,
		"invokeTimeout":  u.Model.InvokeTimeout,
	} {
		if d == nil {
			continue
		}
		if _, err := time.ParseDuration(*d); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	if u.Model.Concurrency != nil && *u.Model.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	return nil
}

func (u *configUpdate) apply(s *config.Settings) {
	if u.ListenPort != nil {
		s.ListenPort = *u.ListenPort
	}
	if u.LogLevel != nil {
		s.LogLevel = *u.LogLevel
	}
	if u.DBPath != nil {
		s.DBPath = *u.DBPath
	}
	if u.NoCache != nil {
		s.NoCache = *u.NoCache
	}
	if m := u.Model; m != nil {
		if m.Host != nil {
			s.Model.Host = *m.Host
		}
		if m.Port != nil {
			s.Model.Port = *m.Port
		}
		if m.Autostart != nil {
			s.Model.Autostart = *m.Autostart
		}
		if m.DefaultModel != nil {
			s.Model.DefaultModel = *m.DefaultModel
		}
		if m.StartupTimeout != nil {
			if d, err := time.ParseDuration(*m.StartupTimeout); err == nil {
				s.Model.StartupTimeout = d
			}
		}
		if m.InvokeTimeout != nil {
			if d, err := time.ParseDuration(*m.InvokeTimeout); err == nil {
				s.Model.InvokeTimeout = d
			}
		}
		if m.Concurrency != nil {
			s.Model.Concurrency = *m.Concurrency
		}
	}
	if c := u.Chunk; c != nil {
		if c.MaxParagraphs != nil {
			s.Chunk.MaxParagraphs = *c.MaxParagraphs
		}
		if c.MaxChars != nil {
			s.Chunk.MaxChars = *c.MaxChars
		}
	}
}
