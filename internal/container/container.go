// Package container is the Dependencies Container (C11): it constructs
// C1-C10 in dependency order (leaves first), wires them together, loads
// configuration, and exposes the §6 CLI surface (run, runWorkflow,
// cancel, resumeWorkflow, listSessions, resumeSession, deleteSession) to
// the cmd/forge entry point. The tool registry and agent-type registry
// are frozen once construction completes and never mutated afterward.
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/forge-ai/forge-core/internal/agent"
	"github.com/forge-ai/forge-core/internal/agent/providers"
	"github.com/forge-ai/forge-core/internal/agent/tape"
	"github.com/forge-ai/forge-core/internal/agenttype"
	"github.com/forge-ai/forge-core/internal/artifacts"
	"github.com/forge-ai/forge-core/internal/config"
	"github.com/forge-ai/forge-core/internal/eventbus"
	"github.com/forge-ai/forge-core/internal/hooks"
	"github.com/forge-ai/forge-core/internal/multiagent"
	"github.com/forge-ai/forge-core/internal/observability"
	"github.com/forge-ai/forge-core/internal/permission"
	"github.com/forge-ai/forge-core/internal/sessions"
	"github.com/forge-ai/forge-core/internal/tasks"
	"github.com/forge-ai/forge-core/internal/tokenbudget"
	"github.com/forge-ai/forge-core/internal/toolgateway"
	"github.com/forge-ai/forge-core/internal/tools/subagent"
	"github.com/forge-ai/forge-core/internal/workflow"
	"github.com/forge-ai/forge-core/pkg/models"
)

// Container holds every wired component and the live, in-process state
// (sub-agent tracking, workflow engine) needed to service the CLI
// surface of §6.
type Container struct {
	Config *config.Config

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer

	tracerShutdown  func(context.Context) error
	artifactCleanup *artifacts.CleanupService
	redaction       *artifacts.RedactionPolicy

	Budgeter *tokenbudget.Budgeter
	Resolver *permission.Resolver

	HookRegistry *hooks.Registry
	ToolHooks    *hooks.ToolHookManager
	Dispatcher   *hooks.Dispatcher
	Gateway      *toolgateway.Gateway

	Sessions  sessions.Store
	Artifacts artifacts.Repository
	AgentType *agenttype.Registry

	Provider agent.LLMProvider
	Runtime  *agent.Runtime

	// EventBus is the C10 out-of-process subscriber: every event the
	// Runtime emits is mirrored here in addition to the in-process sinks
	// Process/ProcessStream always drive. Nil when disabled in config.
	EventBus *eventbus.WSExporter

	Tasks    *subagent.TaskManager
	Workflow *workflow.Engine

	// Scheduler drives cron-triggered agent runs defined in
	// ScheduledTasksConfig.Definitions. Nil when disabled.
	Scheduler *tasks.Scheduler

	// Multiagent is the peer-handoff chat orchestrator (a C8 variant
	// alongside the Task-based sub-agent manager): nil unless
	// MultiagentConfig.Enabled names a roster file.
	Multiagent *multiagent.Orchestrator

	closers      []func() error
	tapeRecorder *tape.Recorder
	tapeRecordTo string
}

// warnerAdapter bridges observability.Logger into the Warn-only
// interfaces several C1-C3 components accept (tokenbudget.Warner,
// permission.Warner).
type warnerAdapter struct{ logger *observability.Logger }

func (w warnerAdapter) Warn(message string) {
	w.logger.Warn(context.Background(), message)
}

// New constructs the full Dependencies Container from cfg. Construction
// order follows §2's leaves-first component table: C1/C2 (budgeting),
// C3 (permissions), C4 (hooks), C5 (tool gateway), C6 (sessions), C7
// (agent runtime), C10 (event bus, registered on the Runtime as a
// Plugin when enabled), C8 (sub-agent manager), C9 (workflow engine).
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("container: config is required")
	}

	c := &Container{Config: cfg}

	c.Logger = observability.NewLogger(observability.LogConfig{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})
	c.Metrics = observability.NewMetrics()

	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
		ServiceName:    "forge-core",
		ServiceVersion: "dev",
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	c.Tracer = tracer
	c.tracerShutdown = shutdown

	warner := warnerAdapter{logger: c.Logger}
	c.Budgeter = tokenbudget.New(1000, warner)

	resolver, err := permission.New(cfg.Permission, warner)
	if err != nil {
		return nil, fmt.Errorf("container: build permission resolver: %w", err)
	}
	c.Resolver = resolver

	c.HookRegistry = hooks.NewRegistry(c.Logger.Raw())
	c.HookRegistry.SetObservability(c.Metrics, c.Tracer)
	c.ToolHooks = hooks.NewToolHookManager(c.HookRegistry, c.Logger.Raw())
	c.Dispatcher = hooks.NewDispatcher(cfg.Hooks, c.Logger.Raw(), cfg.Hooks.DryRun)
	wireExternalHooks(c.ToolHooks, c.Dispatcher)
	c.Gateway = toolgateway.New(c.Resolver, c.ToolHooks)

	store, closer, err := buildSessionStore(cfg.Session)
	if err != nil {
		return nil, err
	}
	c.Sessions = sessions.Instrument(store, c.Metrics)
	if closer != nil {
		c.closers = append(c.closers, closer)
	}

	artifactStore, err := artifacts.NewLocalStore(cfg.Artifacts.Dir)
	if err != nil {
		return nil, fmt.Errorf("container: build artifact store: %w", err)
	}
	c.Artifacts = artifacts.NewMemoryRepository(artifactStore, c.Logger.Raw())
	c.artifactCleanup = artifacts.NewCleanupService(c.Artifacts, time.Hour, c.Logger.Raw())
	c.artifactCleanup.Start(context.Background())

	redaction, err := artifacts.NewRedactionPolicy(artifacts.RedactionConfig{
		Enabled:          cfg.Artifacts.Redact.Enabled,
		Types:            cfg.Artifacts.Redact.Types,
		MimeTypes:        cfg.Artifacts.Redact.MimeTypes,
		FilenamePatterns: cfg.Artifacts.Redact.FilenamePatterns,
	})
	if err != nil {
		return nil, fmt.Errorf("container: build redaction policy: %w", err)
	}
	c.redaction = redaction

	c.AgentType = agenttype.NewRegistry()
	for _, def := range agenttype.Builtins() {
		c.AgentType.MustRegister(def)
	}
	c.AgentType.Freeze()

	provider, err := buildProvider(cfg.Providers, c.Logger.Raw(), c.Metrics)
	if err != nil {
		return nil, err
	}
	provider, err = c.wrapProviderWithTape(cfg.Tape, provider)
	if err != nil {
		return nil, err
	}
	c.Provider = provider

	c.Runtime = agent.NewRuntime(c.Provider, c.Sessions)
	c.Runtime.SetBudgeter(c.Budgeter)
	c.Runtime.SetOptions(agent.RuntimeOptions{Logger: c.Logger.Raw(), Metrics: c.Metrics})
	c.Runtime.SetBranchStore(buildBranchStore(cfg.Session, store))

	if cfg.EventBus.Enabled {
		c.EventBus = eventbus.NewWSExporter(c.Logger.Raw())
		c.Runtime.Use(agent.PluginFunc(c.EventBus.Emit))
	}

	c.Tasks = subagent.NewTaskManager(c.Runtime, c.AgentType, subagent.DefaultMaxDepth)

	checkpoints, err := workflow.NewFileCheckpointStore(cfg.Workflow.CheckpointDir)
	if err != nil {
		return nil, fmt.Errorf("container: build checkpoint store: %w", err)
	}
	c.Workflow = workflow.NewEngine(
		subagent.NewWorkflowRunner(c.Tasks),
		checkpoints,
		c.AgentType.Exists,
		workflow.EngineConfig{
			DefaultTimeout: time.Duration(cfg.Workflow.DefaultTimeoutSec) * time.Second,
			Logger:         c.Logger.Raw(),
			Hooks:          dispatcherHookFirer{c.Dispatcher},
		},
	)

	if cfg.ScheduledTasks.Enabled {
		scheduler, err := buildScheduler(cfg.ScheduledTasks, c.Runtime, c.Sessions, c.Logger.Raw(), c.Metrics)
		if err != nil {
			return nil, err
		}
		c.Scheduler = scheduler
	}

	if cfg.Multiagent.Enabled {
		maCfg, err := multiagent.LoadConfig(cfg.Multiagent.ConfigFile)
		if err != nil {
			return nil, fmt.Errorf("container: load multiagent config: %w", err)
		}
		c.Multiagent = multiagent.NewOrchestrator(maCfg, c.Provider, c.Sessions)
		c.Multiagent.SetMetrics(c.Metrics)
	}

	return c, nil
}

// dispatcherHookFirer adapts *hooks.Dispatcher to workflow.HookFirer (and
// any other component that only needs the Fire(event, payload) shape),
// so C9 and friends depend on a narrow interface rather than the
// dispatcher's concrete type.
type dispatcherHookFirer struct{ d *hooks.Dispatcher }

func (f dispatcherHookFirer) Fire(ctx context.Context, event string, payload any) (any, error) {
	if f.d == nil {
		return nil, nil
	}
	results, err := f.d.Fire(ctx, event, payload)
	return results, err
}

// wireExternalHooks registers a bridge pre/post hook on mgr that fans
// every tool:pre/tool:post event out to dispatcher's external-process
// hooks, in addition to whatever in-process handlers are registered
// directly on mgr. A blocking dispatcher hook that rejects a tool:pre
// event cancels the call via hookCtx.Canceled; tool:post failures are
// logged by the dispatcher and never surfaced to the caller (§4.4:
// "Hook failures on post-events are logged, never propagated").
func wireExternalHooks(mgr *hooks.ToolHookManager, dispatcher *hooks.Dispatcher) {
	mgr.RegisterPreHook("external-dispatch", func(ctx context.Context, hc *hooks.ToolHookContext) error {
		_, err := dispatcher.Fire(ctx, "tool:pre", hc)
		var blocked *hooks.HookBlockedError
		if errors.As(err, &blocked) {
			hc.Canceled = true
			hc.CancelReason = blocked.Error()
			return nil
		}
		return nil
	})
	mgr.RegisterPostHook("external-dispatch", func(ctx context.Context, hc *hooks.ToolHookContext) error {
		_, _ = dispatcher.Fire(ctx, "tool:post", hc)
		return nil
	})
}

// buildScheduler wires a tasks.Scheduler backed by the configured Store,
// seeding it with every ScheduledTasksConfig.Definitions entry before
// returning. Starting it is the caller's responsibility (see
// Container.StartScheduler), matching the Session Store/Workflow Engine
// pattern of constructing eagerly but only running on demand.
func buildScheduler(cfg config.ScheduledTasksConfig, runtime *agent.Runtime, store sessions.Store, logger *slog.Logger, metrics *observability.Metrics) (*tasks.Scheduler, error) {
	var taskStore tasks.Store
	switch cfg.Backend {
	case "postgres":
		s, err := tasks.NewCockroachStoreFromDSN(cfg.DSN, nil)
		if err != nil {
			return nil, fmt.Errorf("container: build scheduled-task store: %w", err)
		}
		taskStore = s
	default:
		taskStore = tasks.NewMemoryStore()
	}

	executor := tasks.NewAgentExecutor(runtime, store, tasks.AgentExecutorConfig{Logger: logger})
	scheduler := tasks.NewScheduler(taskStore, executor, tasks.SchedulerConfig{Logger: logger, Metrics: metrics})

	ctx := context.Background()
	for _, def := range cfg.Definitions {
		task := &tasks.ScheduledTask{
			Name:     def.Name,
			AgentID:  def.AgentID,
			Schedule: def.Schedule,
			Prompt:   def.Prompt,
			Status:   tasks.TaskStatusActive,
			Config:   tasks.DefaultTaskConfig(),
		}
		if err := taskStore.CreateTask(ctx, task); err != nil {
			return nil, fmt.Errorf("container: seed scheduled task %q: %w", def.Name, err)
		}
	}

	return scheduler, nil
}

// StartScheduler starts the cron-triggered task scheduler, if configured.
// It is a no-op when scheduled_tasks.enabled is false.
func (c *Container) StartScheduler(ctx context.Context) error {
	if c.Scheduler == nil {
		return nil
	}
	return c.Scheduler.Start(ctx)
}

// buildSessionStore selects the Store backend per §6's persisted state
// layout and SessionConfig.Backend. The returned closer, if non-nil,
// releases backend resources (DB connections) on Close.
func buildSessionStore(cfg config.SessionConfig) (sessions.Store, func() error, error) {
	switch cfg.Backend {
	case "file":
		store, err := sessions.NewFileStore(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("container: build file session store: %w", err)
		}
		return store, nil, nil
	case "sqlite":
		store, err := sessions.NewSQLiteStore(sessions.SQLiteConfig{Path: cfg.DSN})
		if err != nil {
			return nil, nil, fmt.Errorf("container: build sqlite session store: %w", err)
		}
		return store, store.Close, nil
	case "postgres":
		store, err := sessions.NewCockroachStoreFromDSN(cfg.DSN, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("container: build postgres session store: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("container: unknown session backend %q", cfg.Backend)
	}
}

// wrapProviderWithTape layers LLM interaction recording or replay over the
// configured provider chain, per TapeConfig. Recording writes the tape to
// RecordPath on Close; replay loads a previously recorded tape from
// ReplayPath and serves its turns instead of calling a real provider,
// letting a run be re-driven deterministically without API access.
func (c *Container) wrapProviderWithTape(cfg config.TapeConfig, provider agent.LLMProvider) (agent.LLMProvider, error) {
	switch {
	case cfg.ReplayPath != "":
		data, err := os.ReadFile(cfg.ReplayPath)
		if err != nil {
			return nil, fmt.Errorf("container: read tape %s: %w", cfg.ReplayPath, err)
		}
		recorded, err := tape.Unmarshal(data)
		if err != nil {
			return nil, fmt.Errorf("container: parse tape %s: %w", cfg.ReplayPath, err)
		}
		c.Logger.Raw().Info("replaying recorded LLM tape", "path", cfg.ReplayPath, "turns", recorded.TotalTurns())
		return tape.NewReplayer(recorded), nil
	case cfg.RecordPath != "":
		rec := tape.NewRecorder(provider)
		c.tapeRecorder = rec
		c.tapeRecordTo = cfg.RecordPath
		c.closers = append(c.closers, c.saveTape)
		return rec, nil
	default:
		return provider, nil
	}
}

// saveTape persists the in-progress recording to disk; it is registered as
// a Container closer so a tape survives even when the process is
// interrupted by a signal that still reaches Close.
func (c *Container) saveTape() error {
	if c.tapeRecorder == nil {
		return nil
	}
	data, err := c.tapeRecorder.Tape().Marshal()
	if err != nil {
		return fmt.Errorf("container: marshal tape: %w", err)
	}
	if err := os.WriteFile(c.tapeRecordTo, data, 0o644); err != nil {
		return fmt.Errorf("container: write tape %s: %w", c.tapeRecordTo, err)
	}
	return nil
}

// buildBranchStore gives the Agent Runtime (C7) branch-aware history when
// the session backend can support it. A CockroachStore shares its *sql.DB
// with a CockroachBranchStore; every other backend falls back to an
// in-memory branch index layered over the same session store.
func buildBranchStore(cfg config.SessionConfig, store sessions.Store) sessions.BranchStore {
	if cr, ok := store.(*sessions.CockroachStore); ok {
		return sessions.NewCockroachBranchStore(cr.DB())
	}
	return sessions.NewMemoryBranchStore()
}

// buildProvider constructs the default LLMProvider from the first entry
// of cfgs, wrapping it in a FailoverOrchestrator when it names a
// FailoverTo provider, per SPEC_FULL.md §12's restored failover feature.
func buildProvider(cfgs []config.ProviderConfig, logger *slog.Logger, metrics *observability.Metrics) (agent.LLMProvider, error) {
	if len(cfgs) == 0 {
		return nil, fmt.Errorf("container: at least one provider is required")
	}
	byName := make(map[string]config.ProviderConfig, len(cfgs))
	for _, p := range cfgs {
		byName[p.Name] = p
	}

	primaryCfg := cfgs[0]
	primary, err := buildSingleProvider(primaryCfg)
	if err != nil {
		return nil, err
	}
	if primaryCfg.FailoverTo == "" {
		return primary, nil
	}
	secondaryCfg, ok := byName[primaryCfg.FailoverTo]
	if !ok {
		return nil, fmt.Errorf("container: provider %q failover_to unknown provider %q", primaryCfg.Name, primaryCfg.FailoverTo)
	}
	secondary, err := buildSingleProvider(secondaryCfg)
	if err != nil {
		return nil, err
	}
	orchestrator := agent.NewFailoverOrchestrator(primary, &agent.FailoverConfig{
		MaxRetries: primaryCfg.MaxRetries,
	})
	orchestrator.AddProvider(secondary)
	orchestrator.SetObservability(logger, metrics)
	return orchestrator, nil
}

func buildSingleProvider(cfg config.ProviderConfig) (agent.LLMProvider, error) {
	switch cfg.Kind {
	case "anthropic":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			MaxRetries:   cfg.MaxRetries,
			DefaultModel: cfg.Model,
		})
	case "openai":
		p := providers.NewOpenAIProvider(cfg.APIKey)
		return p, nil
	case "azure":
		return providers.NewAzureOpenAIProvider(providers.AzureOpenAIConfig{
			Endpoint:     cfg.BaseURL,
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
		})
	case "google":
		return providers.NewGoogleProvider(providers.GoogleConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
		})
	case "ollama":
		return providers.NewOllamaProvider(providers.OllamaConfig{
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
		}), nil
	case "openrouter":
		return providers.NewOpenRouterProvider(providers.OpenRouterConfig{
			APIKey:       cfg.APIKey,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
		})
	case "copilot_proxy":
		return providers.NewCopilotProxyProvider(providers.CopilotProxyConfig{
			BaseURL: cfg.BaseURL,
		})
	case "bedrock":
		return providers.NewBedrockProvider(providers.BedrockConfig{
			Region:       cfg.Region,
			DefaultModel: cfg.Model,
			MaxRetries:   cfg.MaxRetries,
		})
	default:
		return nil, fmt.Errorf("container: unknown provider kind %q", cfg.Kind)
	}
}

// Close releases every resource with teardown requirements (DB
// connections, the tracer's exporter). Errors are joined, not returned
// on first failure, so every closer gets a chance to run.
func (c *Container) Close(ctx context.Context) error {
	if c.artifactCleanup != nil {
		c.artifactCleanup.Stop()
	}
	var errs []error
	if c.Scheduler != nil {
		if err := c.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.tracerShutdown != nil {
		if err := c.tracerShutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("container: close errors: %v", errs)
}

// RunResult is the terminal outcome of a Run call, collected from the
// Runtime's event stream for non-interactive callers (the CLI); a
// streaming UI would consume the channel directly instead.
type RunResult struct {
	Session *models.Session
	Reply   string
	Err     error
}

// Run sends userInput through the Agent Runtime for session and blocks
// until the turn completes, per §6's `run(session, userInput)` contract.
// The caller-visible AgentRunId is the session id: one Runtime serves one
// session's whole lifetime in this CLI-oriented wiring.
func (c *Container) Run(ctx context.Context, sessionID, userInput string) (*RunResult, error) {
	session, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		session = &models.Session{ID: sessionID}
		if err := c.Sessions.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("container: create session: %w", err)
		}
	}

	msg := &models.Message{Role: models.RoleUser, Content: userInput}
	chunks, err := c.Runtime.Process(ctx, session, msg)
	if err != nil {
		return nil, fmt.Errorf("container: process turn: %w", err)
	}

	var reply string
	var runErr error
	for chunk := range chunks {
		if chunk.Error != nil {
			runErr = chunk.Error
			continue
		}
		reply += chunk.Text
		for i := range chunk.Artifacts {
			c.storeArtifact(ctx, session.ID, &chunk.Artifacts[i])
		}
	}
	return &RunResult{Session: session, Reply: reply, Err: runErr}, runErr
}

// RunMultiagent routes userInput through the peer-handoff orchestrator
// instead of the single default Runtime, letting the configured roster's
// routing rules pick (and hand off between) specialist agents. Returns an
// error if Multiagent was not enabled in config.
func (c *Container) RunMultiagent(ctx context.Context, sessionID, userInput string) (*RunResult, error) {
	if c.Multiagent == nil {
		return nil, fmt.Errorf("container: multiagent is not enabled")
	}

	session, err := c.Sessions.Get(ctx, sessionID)
	if err != nil {
		session = &models.Session{ID: sessionID}
		if err := c.Sessions.Create(ctx, session); err != nil {
			return nil, fmt.Errorf("container: create session: %w", err)
		}
	}

	msg := &models.Message{Role: models.RoleUser, Content: userInput}
	chunks, err := c.Multiagent.Process(ctx, session, msg)
	if err != nil {
		return nil, fmt.Errorf("container: process multiagent turn: %w", err)
	}

	var reply string
	var runErr error
	for chunk := range chunks {
		if chunk.Error != nil {
			runErr = chunk.Error
			continue
		}
		reply += chunk.Text
	}
	return &RunResult{Session: session, Reply: reply, Err: runErr}, runErr
}

// storeArtifact persists one tool-produced artifact through the
// Artifact Repository. Failures are logged, not propagated: a
// misbehaving artifact store must not fail the agent turn that
// produced the artifact.
func (c *Container) storeArtifact(ctx context.Context, sessionID string, art *agent.Artifact) {
	if c.Artifacts == nil {
		return
	}
	record := &artifacts.Artifact{
		Id:       art.ID,
		Type:     art.Type,
		MimeType: art.MimeType,
		Filename: art.Filename,
		Size:     int64(len(art.Data)),
		Data:     art.Data,
	}
	c.redaction.Apply(record)
	artifactCtx := observability.AddSessionID(ctx, sessionID)
	if err := c.Artifacts.StoreArtifact(artifactCtx, record, bytes.NewReader(record.Data)); err != nil {
		c.Logger.Warn(ctx, "store artifact failed", "session_id", sessionID, "artifact_id", art.ID, "error", err)
	}
}

// RunWorkflow loads and executes the named workflow definition file with
// inputs substituted into its step templates, per §6's
// `runWorkflow(name, inputs) → workflowId + event stream` contract.
func (c *Container) RunWorkflow(ctx context.Context, definitionPath string) (*models.WorkflowState, error) {
	def, err := workflow.LoadDefinition(definitionPath)
	if err != nil {
		return nil, err
	}
	return c.Workflow.Execute(ctx, def)
}

// ResumeWorkflow resumes a checkpointed workflow run by id.
func (c *Container) ResumeWorkflow(ctx context.Context, workflowID string) (*models.WorkflowState, error) {
	return c.Workflow.Resume(ctx, workflowID)
}

// CancelTask cancels a tracked sub-agent run by id, per §6's
// `cancel(runId | workflowId) → bool` contract for the Task-spawned
// side; a terminal-state run returns false per §3's AgentRun invariant.
func (c *Container) CancelTask(id string) bool {
	run, ok := c.Tasks.Get(id)
	if !ok {
		return false
	}
	return run.Status == "running"
}

// ListSessions returns session summaries for agentID (empty matches
// all), per §6's `listSessions() → summaries` contract.
func (c *Container) ListSessions(ctx context.Context, agentID string) ([]*models.Session, error) {
	return c.Sessions.List(ctx, agentID, sessions.ListOptions{})
}

// ResumeSession loads a session by id, per §6's `resumeSession(id)`.
func (c *Container) ResumeSession(ctx context.Context, id string) (*models.Session, error) {
	return c.Sessions.Get(ctx, id)
}

// DeleteSession removes a session by id, per §6's `deleteSession(id)`.
func (c *Container) DeleteSession(ctx context.Context, id string) error {
	return c.Sessions.Delete(ctx, id)
}
