package main

import (
	"github.com/spf13/cobra"
)

// =============================================================================
// Run Command
// =============================================================================

func buildRunCmd() *cobra.Command {
	var (
		configPath string
		sessionID  string
		message    string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send a message through the agent runtime for a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, configPath, sessionID, message)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to run the turn against (required)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "User message to send (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("session"))
	cobra.CheckErr(cmd.MarkFlagRequired("message"))
	return cmd
}

// =============================================================================
// Workflow Commands
// =============================================================================

func buildWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workflow",
		Short: "Execute and resume declarative multi-agent workflows",
	}
	cmd.AddCommand(buildWorkflowRunCmd(), buildWorkflowResumeCmd())
	return cmd
}

func buildWorkflowRunCmd() *cobra.Command {
	var (
		configPath string
		file       string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Validate and execute a workflow definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflowRun(cmd, configPath, file)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the workflow definition YAML file (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("file"))
	return cmd
}

func buildWorkflowResumeCmd() *cobra.Command {
	var (
		configPath string
		workflowID string
	)
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume a checkpointed workflow run",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflowResume(cmd, configPath, workflowID)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&workflowID, "id", "", "Workflow ID to resume (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("id"))
	return cmd
}

// =============================================================================
// Sessions Commands
// =============================================================================

func buildSessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List, resume, and delete persisted sessions",
	}
	cmd.AddCommand(buildSessionsListCmd(), buildSessionsResumeCmd(), buildSessionsDeleteCmd())
	return cmd
}

func buildSessionsListCmd() *cobra.Command {
	var (
		configPath string
		agentID    string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List session summaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsList(cmd, configPath, agentID)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&agentID, "agent", "", "Filter by agent ID (empty matches all)")
	return cmd
}

func buildSessionsResumeCmd() *cobra.Command {
	var (
		configPath string
		id         string
	)
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Print a persisted session by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsResume(cmd, configPath, id)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&id, "id", "", "Session ID to load (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("id"))
	return cmd
}

func buildSessionsDeleteCmd() *cobra.Command {
	var (
		configPath string
		id         string
	)
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a persisted session by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionsDelete(cmd, configPath, id)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&id, "id", "", "Session ID to delete (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("id"))
	return cmd
}

// =============================================================================
// Chat Command
// =============================================================================

func buildChatCmd() *cobra.Command {
	var (
		configPath string
		sessionID  string
		message    string
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Send a message through the multi-agent peer-handoff orchestrator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, configPath, sessionID, message)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to run the turn against (required)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "User message to send (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("session"))
	cobra.CheckErr(cmd.MarkFlagRequired("message"))
	return cmd
}

// =============================================================================
// Serve Command
// =============================================================================

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a long-lived host process exposing the event bus WebSocket exporter",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath(), "Path to YAML configuration file")
	return cmd
}

// =============================================================================
// Cancel Command
// =============================================================================

func buildCancelCmd() *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a tracked sub-agent run by ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCancel(cmd, id)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "Task run ID to cancel (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("id"))
	return cmd
}
