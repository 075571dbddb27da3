package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds all configurable probekit settings.
type Config struct {
	DefaultPort     int    `json:"default_port"`     // collector port when start_session omits one
	LogFile         string `json:"log_file"`         // append-only log store, relative to the working dir
	DefaultLanguage string `json:"default_language"` // emission for unrecognized file extensions
	DisableWatch    bool   `json:"disable_watch"`    // turn off external-edit staleness detection
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		DefaultPort:     7921,
		LogFile:         filepath.Join(".probekit", "debug.log"),
		DefaultLanguage: "javascript",
	}
}

// LoadGlobal reads ~/.config/probekit/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// GlobalPath returns the global config file location.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "probekit", "config.json"), nil
}

// LoadProject reads .probekitrc in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".probekitrc", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()

	for _, layer := range []*Config{global, project} {
		if layer == nil {
			continue
		}
		if layer.DefaultPort != 0 {
			result.DefaultPort = layer.DefaultPort
		}
		if layer.LogFile != "" {
			result.LogFile = layer.LogFile
		}
		if layer.DefaultLanguage != "" {
			result.DefaultLanguage = layer.DefaultLanguage
		}
		if layer.DisableWatch {
			result.DisableWatch = true
		}
	}

	return result
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
