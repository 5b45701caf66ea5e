package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fpang/camera-sim/internal/cli"
	"github.com/fpang/camera-sim/internal/config"
	"github.com/fpang/camera-sim/internal/logging"
	"github.com/fpang/camera-sim/internal/metrics"
	"github.com/fpang/camera-sim/internal/session"
	"github.com/fpang/camera-sim/internal/studio"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "camera-mcp",
	Short: "MCP server exposing the simulated camera as tools",
	Long: `Camera MCP serves the Model Context Protocol over stdio so an MCP
client can take pictures, switch lenses and page through the session
gallery. Captures are enhanced with a Gemini image model in the background.

Example client configuration:
  {"command": "camera-mcp", "args": ["--source", "ffmpeg"]}`,
	Args: cobra.NoArgs,
	RunE: runMain,
}

func init() {
	config.RegisterCaptureFlags(rootCmd.Flags())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	initStart := time.Now()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	logging.Init(cfg.LogLevel)
	// stdout carries the protocol.
	metrics.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	enhancer := cli.InitEnhancer(ctx, cfg)
	surface, err := cli.NewSurface(cfg)
	if err != nil {
		return err
	}
	defer surface.Close()
	if err := surface.Start(ctx); err != nil {
		log.Warn().Err(err).Msg("Camera unavailable at startup")
	}

	st := studio.New(surface, session.NewStore(), enhancer)
	server := newMCPServer(surface, st)

	logging.NewStartupLogger("camera-mcp").
		Version(version).
		Device(cfg.Source, cfg.Device).
		Model("enhance", enhancer.Model()).
		Feature("enhancement", enhancer.Available()).
		Config("transport", "stdio").
		InitDuration(time.Since(initStart)).
		Log()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
