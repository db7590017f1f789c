package config

import (
	"errors"
	"os"
	"path/filepath"
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

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SHELF_TEST_NAME", "library")
	path := writeFile(t, "name: ${SHELF_TEST_NAME}\nport: 9000\n")

	var cfg sample
	if err := Load(path, &cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Name != "library" || cfg.Port != 9000 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_RunsValidator(t *testing.T) {
	path := writeFile(t, "name: x\nport: 0\n")
	var cfg sample
	if err := Load(path, &cfg); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadOrDefault_MissingFileKeepsDefaults(t *testing.T) {
	cfg := sample{Name: "default", Port: 8080}
	if err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Name != "default" || cfg.Port != 8080 {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadOrDefault_ValidatesDefaults(t *testing.T) {
	cfg := sample{Name: "default"}
	if err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"), &cfg); err == nil {
		t.Fatal("expected validation error for invalid defaults")
	}
}

func TestLoadOrDefault_OverlaysFile(t *testing.T) {
	path := writeFile(t, "port: 9100\n")
	cfg := sample{Name: "default", Port: 8080}
	if err := LoadOrDefault(path, &cfg); err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Name != "default" || cfg.Port != 9100 {
		t.Errorf("cfg = %+v", cfg)
	}
}
