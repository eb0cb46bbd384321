// Package config resolves drawcast's runtime settings from flags,
// environment variables, and built-in defaults, in that precedence order.
package config

import "os"

// Config is the resolved set of settings the server runs with.
type Config struct {
	Addr        string // HTTP listen address, e.g. ":3425"
	ScriptPath  string // path to the Lua game script
	BasePath    string // static client asset directory
	DebugMCP    bool   // whether to expose the /mcp debug endpoint
	LogLevel    string
}

// Defaults returns the built-in fallback settings.
func Defaults() Config {
	return Config{
		Addr:       ":3425",
		ScriptPath: "scripts/demo.lua",
		BasePath:   "client",
		DebugMCP:   false,
		LogLevel:   "info",
	}
}

// Load resolves a Config starting from Defaults, overridden by environment
// variables, in turn overridden by any non-zero-value fields in override
// (typically populated from CLI flags).
func Load(override Config) Config {
	cfg := Defaults()

	cfg.Addr = envOr("DRAWCAST_ADDR", cfg.Addr)
	cfg.ScriptPath = envOr("DRAWCAST_SCRIPT", cfg.ScriptPath)
	cfg.BasePath = envOr("DRAWCAST_BASE_PATH", cfg.BasePath)
	cfg.LogLevel = envOr("DRAWCAST_LOG_LEVEL", cfg.LogLevel)
	if os.Getenv("DRAWCAST_DEBUG_MCP") == "1" {
		cfg.DebugMCP = true
	}

	if override.Addr != "" {
		cfg.Addr = override.Addr
	}
	if override.ScriptPath != "" {
		cfg.ScriptPath = override.ScriptPath
	}
	if override.BasePath != "" {
		cfg.BasePath = override.BasePath
	}
	if override.LogLevel != "" {
		cfg.LogLevel = override.LogLevel
	}
	if override.DebugMCP {
		cfg.DebugMCP = true
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
