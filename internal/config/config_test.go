package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "")
	t.Setenv("APP_ENV", "")

	cfg := Load()
	if cfg.Port == "" {
		t.Fatalf("expected a default port")
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token TTL 480 minutes, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.ReportCacheTTLSeconds != 60 {
		t.Fatalf("expected default report cache TTL 60 seconds, got %d", cfg.ReportCacheTTLSeconds)
	}
	if cfg.Production() {
		t.Fatalf("expected non-production by default")
	}
}

func TestProductionFlagIsCaseInsensitive(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	cfg := Load()
	if !cfg.Production() {
		t.Fatalf("expected Production() to be true for APP_ENV=Production")
	}
}
