package config

import (
	"os"
	"testing"
)

func TestLoadUsesDefaultsWhenNoOverrideOrEnv(t *testing.T) {
	cfg := Load(Config{})
	want := Defaults()
	if cfg != want {
		t.Fatalf("expected defaults, got %+v want %+v", cfg, want)
	}
}

func TestLoadOverrideTakesPrecedenceOverEnv(t *testing.T) {
	os.Setenv("DRAWCAST_ADDR", ":9999")
	defer os.Unsetenv("DRAWCAST_ADDR")

	cfg := Load(Config{Addr: ":1234"})
	if cfg.Addr != ":1234" {
		t.Fatalf("expected override to win, got %q", cfg.Addr)
	}
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	os.Setenv("DRAWCAST_SCRIPT", "custom.lua")
	defer os.Unsetenv("DRAWCAST_SCRIPT")

	cfg := Load(Config{})
	if cfg.ScriptPath != "custom.lua" {
		t.Fatalf("expected env override, got %q", cfg.ScriptPath)
	}
}

func TestLoadDebugMCPEnvFlag(t *testing.T) {
	os.Setenv("DRAWCAST_DEBUG_MCP", "1")
	defer os.Unsetenv("DRAWCAST_DEBUG_MCP")

	cfg := Load(Config{})
	if !cfg.DebugMCP {
		t.Fatalf("expected debug mcp enabled via env")
	}
}
