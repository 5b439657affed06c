package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSettingsFile is where the interactive entry point persists
// connection settings between runs.
const DefaultSettingsFile = "settings.yaml"

// DefaultBlacklist excludes field tables that only hold theme plumbing or
// revision copies. The LIKE-based table discovery treats underscores as
// wildcards, so revision tables match the node__ pattern and must be
// filtered here.
var DefaultBlacklist = []string{"_zen_", "_revision"}

// Settings holds everything a run needs. Values from the settings file are
// overridden by CLI flags.
type Settings struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`

	// Types lists the content types to export in batch mode.
	Types []string `yaml:"types"`
	// ContainerTypes lists content types whose parent placement splits
	// around a child's content instead of preceding it entirely.
	ContainerTypes []string `yaml:"container_types"`
	// Blacklist holds substrings that exclude a discovered field table.
	Blacklist []string `yaml:"blacklist"`

	OutputDir string `yaml:"output_dir"`
	Workers   int    `yaml:"workers"`
	OnError   string `yaml:"on_error"`
	Plaintext bool   `yaml:"plaintext"`
}

// DefaultSettings mirrors a stock Drupal 9 site: pages and articles,
// page as the only container type.
func DefaultSettings() Settings {
	return Settings{
		Driver:         "mysql",
		Host:           "localhost",
		Types:          []string{"page", "article"},
		ContainerTypes: []string{"page"},
		Blacklist:      DefaultBlacklist,
		OutputDir:      "export",
		Workers:        1,
		OnError:        "abort",
	}
}

// LoadSettings reads the settings file. A missing file is not an error; the
// defaults are returned so a first run can prompt for the rest.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("failed to parse settings: %w", err)
	}
	if len(s.Blacklist) == 0 {
		s.Blacklist = DefaultBlacklist
	}
	return s, nil
}

// Save writes the settings file. Callers decide whether the password goes in.
func (s Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}
