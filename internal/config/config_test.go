package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.WatchlistIDs()) == 0 {
		t.Error("default watchlist should not be empty")
	}
}

func TestFromYAMLRejectsBadWatchlist(t *testing.T) {
	_, err := FromYAML([]byte("watchlist:\n  - not-a-bill\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFromYAMLRejectsModelWithoutName(t *testing.T) {
	_, err := FromYAML([]byte("model:\n  endpoint: https://api.example.com/v1/chat\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.BaseURL == "" {
		t.Error("expected default provider base url")
	}
}

func TestLoadReadsWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	yml := "provider:\n  base_url: https://example.com/data\nwatchlist:\n  - PL 1/2024\n"
	if err := os.WriteFile(filepath.Join(dir, "billcast.yml"), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.BaseURL != "https://example.com/data" {
		t.Errorf("base url = %q", cfg.Provider.BaseURL)
	}
	ids := cfg.WatchlistIDs()
	if len(ids) != 1 || ids[0].Key() != "PL_1_2024" {
		t.Errorf("watchlist = %+v", ids)
	}
}

func TestModelConfigured(t *testing.T) {
	cfg := Default()
	if cfg.ModelConfigured() {
		t.Error("default model should be unconfigured")
	}
	cfg.Model.Endpoint = "https://api.example.com/v1/chat"
	cfg.Model.Name = "gpt-4o-mini"
	cfg.Model.APIKey = "k"
	if !cfg.ModelConfigured() {
		t.Error("expected configured model")
	}
}
