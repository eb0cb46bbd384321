// Command drawcast runs the multiplayer server-rendered game engine: a
// fixed-rate tick loop driving a hot-reloadable Lua game script, served to
// browsers over WebRTC (preferred) or WebSocket (fallback).
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/evanreyes/drawcast/internal/logger"
)

func main() {
	root := &cobra.Command{
		Use:   "drawcast",
		Short: "A multiplayer-first, server-rendered game engine with Lua scripting",
	}

	root.AddCommand(serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func mustInitLogger(level string) {
	if err := logger.Init(level); err != nil {
		os.Exit(1)
	}
}
