package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "folio")
	path := writeConfig(t, "name: ${SAMPLE_NAME}\nport: 8080\n")

	var s sample
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "folio" || s.Port != 8080 {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	path := writeConfig(t, "name: other\n")
	s := sample{Name: "x", Port: 1}
	if err := Load(path, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Port != 1 || s.Name != "other" {
		t.Errorf("got %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &s); err == nil {
		t.Error("expected error for missing file")
	}
	if err := Load(writeConfig(t, "port: [\n"), &s); err == nil {
		t.Error("expected parse error")
	}
	err := Load(writeConfig(t, "port: 0\n"), &s)
	if err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("validation err = %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	s := sample{Port: 8080}
	loaded, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"), &s)
	if err != nil || loaded {
		t.Errorf("missing file: loaded=%v err=%v", loaded, err)
	}

	bad := sample{}
	if _, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"), &bad); err == nil {
		t.Error("defaults must still be validated")
	}

	loaded, err = LoadOrDefault(writeConfig(t, "port: 9000\n"), &s)
	if err != nil || !loaded || s.Port != 9000 {
		t.Errorf("present file: loaded=%v err=%v s=%+v", loaded, err, s)
	}
}
