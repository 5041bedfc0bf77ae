package main

import (
	"testing"

	"warungpos/internal/config"
)

func TestValidateSecurityConfigRejectsWeakProductionSetup(t *testing.T) {
	cfg := config.Config{AppEnv: "production", AuthSecret: "short", DatabaseURL: "postgres://localhost/warungpos"}
	if err := validateSecurityConfig(cfg); err == nil {
		t.Fatalf("expected weak production secret to be rejected")
	}

	cfg = config.Config{AppEnv: "production", AuthSecret: "0123456789abcdef0123456789abcdef"}
	if err := validateSecurityConfig(cfg); err == nil {
		t.Fatalf("expected production without DATABASE_URL to be rejected")
	}
}

func TestValidateSecurityConfigIsPermissiveInDevelopment(t *testing.T) {
	if err := validateSecurityConfig(config.Config{AppEnv: "development"}); err != nil {
		t.Fatalf("expected development config to pass, got %v", err)
	}
}

func TestValidateSecurityConfigAcceptsStrongProductionSetup(t *testing.T) {
	cfg := config.Config{
		AppEnv:      "production",
		AuthSecret:  "0123456789abcdef0123456789abcdef",
		DatabaseURL: "postgres://localhost/warungpos",
	}
	if err := validateSecurityConfig(cfg); err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}
