package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/evanreyes/drawcast/internal/config"
	"github.com/evanreyes/drawcast/internal/debugapi"
	"github.com/evanreyes/drawcast/internal/delivery"
	"github.com/evanreyes/drawcast/internal/engine"
	"github.com/evanreyes/drawcast/internal/host"
	"github.com/evanreyes/drawcast/internal/logger"
	"github.com/evanreyes/drawcast/internal/session"
	"github.com/evanreyes/drawcast/internal/signaling"
)

func serveCmd() *cobra.Command {
	var addrFlag, scriptFlag, basePathFlag, logLevelFlag string
	var debugMCPFlag bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the game server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load(config.Config{
				Addr:       addrFlag,
				ScriptPath: scriptFlag,
				BasePath:   basePathFlag,
				LogLevel:   logLevelFlag,
				DebugMCP:   debugMCPFlag,
			})

			mustInitLogger(cfg.LogLevel)

			loader, initialHost, err := host.NewLoader(cfg.ScriptPath)
			if err != nil {
				return fmt.Errorf("load game script: %w", err)
			}
			defer loader.Close()

			reg := session.NewRegistry()
			loop := engine.NewLoop(initialHost, loader, reg)

			sigHandler := signaling.NewHandler(reg)
			sigHandler.OnSessionReady = func(sess *session.Session) {
				coordinator, err := delivery.NewCoordinator(sess)
				if err != nil {
					logger.Error("failed to start delivery coordinator", "session", sess.ID, "error", err)
					return
				}
				go coordinator.Run()
			}

			mux := http.NewServeMux()
			mux.Handle("/ws", sigHandler)
			mux.HandleFunc("GET /healthz", signaling.HealthHandler)
			if cfg.DebugMCP {
				mux.Handle("/mcp", debugapi.NewHandler(loop))
			}
			if cfg.BasePath != "" {
				mux.Handle("/", http.FileServer(http.Dir(cfg.BasePath)))
			}

			httpSrv := &http.Server{Addr: cfg.Addr, Handler: mux}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			go loop.Run(ctx)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("drawcast listening", "addr", cfg.Addr)
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				logger.Info("shutting down")
				return httpSrv.Close()
			case err := <-errCh:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addrFlag, "addr", "", "listen address (default :3425)")
	cmd.Flags().StringVar(&scriptFlag, "script", "", "path to the Lua game script")
	cmd.Flags().StringVar(&basePathFlag, "base-path", "", "static client asset directory")
	cmd.Flags().StringVar(&logLevelFlag, "log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&debugMCPFlag, "debug-mcp", false, "expose the /mcp debug endpoint")

	return cmd
}
