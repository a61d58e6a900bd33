package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"cards/internal/config"
)

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CARDS_TEST_VALUE=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARDS_TEST_VALUE", "")
	os.Unsetenv("CARDS_TEST_VALUE")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("CARDS_TEST_VALUE"); got != "from-file" {
		t.Errorf("CARDS_TEST_VALUE = %q, want from-file", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing env file should be ignored, got %v", err)
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("DATA_BACKEND", "memory")
	t.Setenv("PORT", "9000")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig: %v", err)
	}
	if cfg.Port != "9000" {
		t.Errorf("Port = %s, want 9000", cfg.Port)
	}

	t.Setenv("PORT", "nope")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Error("expected validation error for bad port")
	}
}

func TestInitStore(t *testing.T) {
	cfg := &config.Config{DataBackend: "memory", LogLevel: "error", LogFormat: "text"}
	logger := SetupLogger(cfg)

	res, err := InitStore(context.Background(), logger, cfg)
	if err != nil {
		t.Fatalf("InitStore: %v", err)
	}
	defer res.Cleanup()
	if err := res.Store.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}

	if _, err := InitStore(context.Background(), logger, &config.Config{DataBackend: "postgres"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
