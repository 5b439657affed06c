package models

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestLoadSettingsMissingFile(t *testing.T) {
	s, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadSettings() error = %v, missing file should use defaults", err)
	}

	want := DefaultSettings()
	if s.Driver != want.Driver || s.Host != want.Host {
		t.Errorf("LoadSettings() = %+v, want defaults", s)
	}
	if !slices.Equal(s.Types, want.Types) {
		t.Errorf("Types = %v, want %v", s.Types, want.Types)
	}
	if !slices.Equal(s.Blacklist, DefaultBlacklist) {
		t.Errorf("Blacklist = %v, want %v", s.Blacklist, DefaultBlacklist)
	}
	if s.OnError != "abort" || s.Workers != 1 {
		t.Errorf("OnError = %q Workers = %d, want abort 1", s.OnError, s.Workers)
	}
}

func TestSettingsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := DefaultSettings()
	s.Database = "drupal"
	s.User = "reader"
	s.Password = "secret"
	s.Types = []string{"page"}
	s.ContainerTypes = []string{"page", "landing"}
	s.Workers = 4
	s.Plaintext = true

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if loaded.Database != "drupal" || loaded.User != "reader" || loaded.Password != "secret" {
		t.Errorf("loaded = %+v, want saved connection values", loaded)
	}
	if !slices.Equal(loaded.ContainerTypes, s.ContainerTypes) {
		t.Errorf("ContainerTypes = %v, want %v", loaded.ContainerTypes, s.ContainerTypes)
	}
	if loaded.Workers != 4 || !loaded.Plaintext {
		t.Errorf("Workers = %d Plaintext = %v, want 4 true", loaded.Workers, loaded.Plaintext)
	}
}

func TestLoadSettingsBlacklistDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "driver: sqlite\ndatabase: dump.db\ntypes: [page]\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write settings: %v", err)
	}

	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	if s.Driver != "sqlite" || s.Database != "dump.db" {
		t.Errorf("loaded = %+v, want file values", s)
	}
	if !slices.Equal(s.Blacklist, DefaultBlacklist) {
		t.Errorf("Blacklist = %v, want default when the file omits it", s.Blacklist)
	}
}
