package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Path != "agentdex.db" {
		t.Errorf("expected default database path, got %q", cfg.Database.Path)
	}
	if cfg.Cache.SearchEntries != 500 || cfg.Cache.SearchTTLSec != 30 {
		t.Errorf("unexpected search cache defaults: %+v", cfg.Cache)
	}
	if cfg.Breaker.Search.FailureThreshold != 5 || cfg.Breaker.Search.CooldownSec != 30 {
		t.Errorf("unexpected search breaker defaults: %+v", cfg.Breaker.Search)
	}
	if cfg.Breaker.Suggest.FailureThreshold != 8 || cfg.Breaker.Suggest.CooldownSec != 15 {
		t.Errorf("unexpected suggest breaker defaults: %+v", cfg.Breaker.Suggest)
	}
	if cfg.RateLimit.Anonymous != 60 || cfg.RateLimit.Authenticated != 120 {
		t.Errorf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
	if cfg.Search.DefaultPageSize != 20 || cfg.Search.MaxPageSize != 50 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}
	if cfg.Suggest.MinResults != 3 || cfg.Suggest.MaxResults != 8 {
		t.Errorf("unexpected suggest defaults: %+v", cfg.Suggest)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:     HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Database: DatabaseConfig{Path: "/var/lib/agentdex/index.db"},
		Cache:    CacheConfig{SearchEntries: 1000, SearchTTLSec: 60, SuggestEntries: 400, SuggestTTLSec: 45},
		Suggest:  SuggestConfig{MinResults: 2, MaxResults: 10},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Database.Path != "/var/lib/agentdex/index.db" {
		t.Errorf("expected custom database path, got %q", cfg.Database.Path)
	}
	if cfg.Cache.SearchEntries != 1000 {
		t.Errorf("expected SearchEntries=1000, got %d", cfg.Cache.SearchEntries)
	}
	if cfg.Suggest.MinResults != 2 || cfg.Suggest.MaxResults != 10 {
		t.Errorf("unexpected suggest config: %+v", cfg.Suggest)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_SuggestBoundsInverted(t *testing.T) {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Suggest: SuggestConfig{MinResults: 9, MaxResults: 8},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for min_results > max_results")
	}
}

func TestValidate_PageSizeInverted(t *testing.T) {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 8080},
		Search: SearchConfig{DefaultPageSize: 60, MaxPageSize: 50},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for default_page_size > max_page_size")
	}
}

func TestValidate_AuthTierBelowAnonymous(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 8080},
		RateLimit: RateLimitConfig{Anonymous: 100, Authenticated: 50, WindowSec: 60},
	}
	cfg.ApplyDefaults()

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for authenticated budget below anonymous")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("AGENTDEX_DB", "/data/index.db")

	in := []byte("path: ${AGENTDEX_DB}\nredis: ${AGENTDEX_REDIS:-localhost:6379}\n")
	out := string(expandEnvVars(in))

	want := "path: /data/index.db\nredis: localhost:6379\n"
	if out != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", out, want)
	}
}

func TestHeuristicsWatcherDefaults(t *testing.T) {
	w, err := NewHeuristicsWatcher("", zap.NewNop())
	if err != nil {
		t.Fatalf("NewHeuristicsWatcher: %v", err)
	}

	h := w.Heuristics()
	if len(h.StopWords) == 0 || len(h.QuestionWords) == 0 {
		t.Error("expected built-in keyword tables")
	}
}

func TestHeuristicsWatcherLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	content := "technical_tokens: [sdk, grpc]\nprotocol_names: [mcp, a2a, acp]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write heuristics: %v", err)
	}

	w, err := NewHeuristicsWatcher(path, zap.NewNop())
	if err != nil {
		t.Fatalf("NewHeuristicsWatcher: %v", err)
	}

	h := w.Heuristics()
	if len(h.TechnicalTokens) != 2 || h.TechnicalTokens[0] != "sdk" {
		t.Errorf("technical tokens = %v", h.TechnicalTokens)
	}
	if len(h.ProtocolNames) != 3 {
		t.Errorf("protocol names = %v", h.ProtocolNames)
	}
	// Unset sections keep the built-ins.
	if len(h.StopWords) == 0 {
		t.Error("expected built-in stop words preserved")
	}
}

func TestHeuristicsWatcherRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "heuristics.yaml")
	if err := os.WriteFile(path, []byte("technical_tokens: [unclosed"), 0o600); err != nil {
		t.Fatalf("write heuristics: %v", err)
	}

	if _, err := NewHeuristicsWatcher(path, zap.NewNop()); err == nil {
		t.Fatal("expected error for malformed heuristics file")
	}
}
