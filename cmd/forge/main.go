// Package main provides the CLI entry point for forge-core, the agent
// execution substrate: an LLM tool-use loop with permission gating, hook
// dispatch, session persistence, sub-agent spawning, and declarative
// multi-agent workflows.
//
// # Basic Usage
//
// Run a single turn against a session:
//
//	forge run --session s1 --message "summarize this repo"
//
// Execute a declarative workflow:
//
//	forge workflow run --file workflows/release.yaml
//
// List, resume, or delete persisted sessions:
//
//	forge sessions list
//	forge sessions resume --id s1
//	forge sessions delete --id s1
//
// Host the event bus WebSocket exporter (requires event_bus.enabled: true
// in config):
//
//	forge serve
//
// # Environment Variables
//
//   - FORGE_CONFIG: path to the YAML configuration file (default: forge.yaml)
//   - ANTHROPIC_API_KEY: Anthropic API key for Claude models
//   - OPENAI_API_KEY: OpenAI API key for GPT models
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during build.
//
//	go build -ldflags "-X main.version=v1.0.0 -X main.commit=$(git rev-parse HEAD) -X main.date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main so tests can drive it without an os.Exit path.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "forge",
		Short: "forge-core - agent execution substrate",
		Long: `forge-core runs an LLM tool-use loop behind a permission and hook
layer, persists session state crash-safely, and orchestrates sub-agents
and declarative multi-step workflows.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildRunCmd(),
		buildChatCmd(),
		buildWorkflowCmd(),
		buildSessionsCmd(),
		buildCancelCmd(),
		buildServeCmd(),
	)

	return rootCmd
}

func defaultConfigPath() string {
	if p := os.Getenv("FORGE_CONFIG"); p != "" {
		return p
	}
	return "forge.yaml"
}
