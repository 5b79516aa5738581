package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/forge-ai/forge-core/internal/config"
	"github.com/forge-ai/forge-core/internal/container"
	"github.com/forge-ai/forge-core/pkg/models"
)

// =============================================================================
// Run Handler
// =============================================================================

func runRun(cmd *cobra.Command, configPath, sessionID, message string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer c.Close(cmd.Context())

	result, err := c.Run(cmd.Context(), sessionID, message)
	if err != nil {
		return fmt.Errorf("run turn: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Reply)
	return nil
}

// =============================================================================
// Chat Handler
// =============================================================================

func runChat(cmd *cobra.Command, configPath, sessionID, message string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer c.Close(cmd.Context())

	result, err := c.RunMultiagent(cmd.Context(), sessionID, message)
	if err != nil {
		return fmt.Errorf("run multiagent turn: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), result.Reply)
	return nil
}

// =============================================================================
// Workflow Handlers
// =============================================================================

func runWorkflowRun(cmd *cobra.Command, configPath, file string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer c.Close(cmd.Context())

	state, err := c.RunWorkflow(cmd.Context(), file)
	if err != nil {
		return fmt.Errorf("run workflow: %w", err)
	}
	printWorkflowState(cmd, state)
	return nil
}

func runWorkflowResume(cmd *cobra.Command, configPath, workflowID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer c.Close(cmd.Context())

	state, err := c.ResumeWorkflow(cmd.Context(), workflowID)
	if err != nil {
		return fmt.Errorf("resume workflow: %w", err)
	}
	printWorkflowState(cmd, state)
	return nil
}

func printWorkflowState(cmd *cobra.Command, state *models.WorkflowState) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "workflow: %s\nstatus: %s\n", state.WorkflowID, state.Status)
	if state.Error != "" {
		fmt.Fprintf(out, "error: %s\n", state.Error)
	}
	if len(state.StepResults) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSUCCESS\tDURATION\tERROR")
	for id, result := range state.StepResults {
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\n", id, result.Success, result.Duration, result.Error)
	}
	w.Flush()
}

// =============================================================================
// Sessions Handlers
// =============================================================================

func runSessionsList(cmd *cobra.Command, configPath, agentID string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer c.Close(cmd.Context())

	sessionList, err := c.ListSessions(cmd.Context(), agentID)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessionList) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAGENT\tCHANNEL\tTITLE\tUPDATED")
	for _, s := range sessionList {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.AgentID, s.Channel, s.Title, s.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runSessionsResume(cmd *cobra.Command, configPath, id string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer c.Close(cmd.Context())

	session, err := c.ResumeSession(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("resume session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "id: %s\nagent: %s\nchannel: %s\ntitle: %s\nrecovered: %t\nupdated: %s\n",
		session.ID, session.AgentID, session.Channel, session.Title, session.Recovered, session.UpdatedAt.Format(time.RFC3339))
	return nil
}

func runSessionsDelete(cmd *cobra.Command, configPath, id string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer c.Close(cmd.Context())

	if err := c.DeleteSession(cmd.Context(), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted session %s\n", id)
	return nil
}

// =============================================================================
// Cancel Handler
// =============================================================================

// runCancel builds a fresh container and asks its Task manager to cancel
// id. Since sub-agent runs live only in the process that spawned them,
// this only has an effect against a long-running host such as a server
// command sharing the same container; a plain CLI invocation will find
// no matching run and report false.
func runCancel(cmd *cobra.Command, id string) error {
	cfg, err := config.Load(defaultConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.New(cfg)
	if err != nil {
		return fmt.Errorf("build container: %w", err)
	}
	defer c.Close(cmd.Context())

	cancelled := c.CancelTask(id)
	fmt.Fprintf(cmd.OutOrStdout(), "cancelled: %t\n", cancelled)
	return nil
}
