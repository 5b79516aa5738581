package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application metrics
// for the agent execution substrate.
//
// The metrics system is built on Prometheus and tracks:
//   - Agent Runtime (C7) run and LLM call performance
//   - Tool Gateway (C5) execution patterns and latencies
//   - Permission Resolver (C3) decisions
//   - Hook Dispatcher (C4) invocations
//   - Context Truncator (C2) pruning activity
//   - Sub-Agent Manager (C8) spawns
//   - Workflow Engine (C9) step execution
//   - Event Bus (C10) publish volume
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.RunStarted()
//	defer metrics.RunFinished("completed", time.Since(start).Seconds())
type Metrics struct {
	// RunCounter counts agent runs by terminal status.
	// Labels: status (completed|cancelled|timed_out|error)
	RunCounter *prometheus.CounterVec

	// RunDuration measures end-to-end run latency in seconds.
	// Buckets: 0.5s, 1s, 2s, 5s, 10s, 30s, 60s, 120s, 300s
	RunDuration *prometheus.HistogramVec

	// ActiveRuns is a gauge tracking in-flight agent runs.
	ActiveRuns prometheus.Gauge

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider, model and status.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption by section.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// LLMCostUSD tracks estimated cost in USD.
	// Labels: provider, model
	LLMCostUSD *prometheus.CounterVec

	// ToolExecutionCounter counts Tool Gateway invocations.
	// Labels: tool_name, status (success|error|denied)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	ToolExecutionDuration *prometheus.HistogramVec

	// PermissionDecisionCounter counts Permission Resolver (C3) verdicts.
	// Labels: tool_name, decision (allow|deny|ask)
	PermissionDecisionCounter *prometheus.CounterVec

	// HookDispatchCounter counts Hook Dispatcher (C4) invocations.
	// Labels: event, outcome (ran|blocked|error|timeout)
	HookDispatchCounter *prometheus.CounterVec

	// HookDispatchDuration measures hook execution latency in seconds.
	// Labels: event
	HookDispatchDuration *prometheus.HistogramVec

	// ContextTruncationCounter counts Context Truncator (C2) passes that
	// actually dropped or summarized content.
	// Labels: strategy
	ContextTruncationCounter *prometheus.CounterVec

	// ContextWindowUsed tracks context window utilization per request.
	// Labels: provider, model
	ContextWindowUsed *prometheus.HistogramVec

	// FailoverCounter counts Agent Runtime provider failovers.
	// Labels: from_provider, to_provider, reason
	FailoverCounter *prometheus.CounterVec

	// CircuitBreakerState is a gauge of open circuit breakers per provider (1=open, 0=closed).
	// Labels: provider
	CircuitBreakerState *prometheus.GaugeVec

	// SubagentSpawnCounter counts Sub-Agent Manager (C8) spawns.
	// Labels: profile, status (started|completed|failed|killed)
	SubagentSpawnCounter *prometheus.CounterVec

	// SubagentDepth tracks the deepest concurrently active sub-agent nesting level.
	SubagentDepth prometheus.Gauge

	// WorkflowStepCounter counts Workflow Engine (C9) step executions.
	// Labels: workflow, step_kind, status (success|failed|skipped)
	WorkflowStepCounter *prometheus.CounterVec

	// ScheduledTaskCounter counts scheduled task executions driven by
	// the cron-style task scheduler.
	// Labels: status (succeeded|failed|timed_out)
	ScheduledTaskCounter *prometheus.CounterVec

	// EventBusPublishCounter counts Event Bus (C10) publishes by topic.
	// Labels: topic
	EventBusPublishCounter *prometheus.CounterVec

	// EventBusSubscriberLag measures time between publish and subscriber delivery.
	// Labels: topic
	EventBusSubscriberLag *prometheus.HistogramVec

	// SessionStoreOpCounter counts Session Store (C6) operations.
	// Labels: operation (load|save|append|compact), status
	SessionStoreOpCounter *prometheus.CounterVec

	// ErrorCounter tracks errors by component and error type.
	// Labels: component, error_type
	ErrorCounter *prometheus.CounterVec

	// ActiveSessions is a gauge tracking sessions with an open Runtime.Process call.
	ActiveSessions prometheus.Gauge

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// DatabaseQueryDuration measures database query latency.
	// Labels: operation, table
	DatabaseQueryDuration *prometheus.HistogramVec

	// DatabaseQueryCounter counts database queries.
	// Labels: operation, table, status
	DatabaseQueryCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
// This should be called once at application startup, by the Dependencies
// Container (C11).
func NewMetrics() *Metrics {
	return &Metrics{
		RunCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_runs_total",
				Help: "Total number of agent runs by terminal status",
			},
			[]string{"status"},
		),

		RunDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_run_duration_seconds",
				Help:    "Duration of an agent run in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"status"},
		),

		ActiveRuns: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "forge_active_runs",
			Help: "Current number of in-flight agent runs",
		}),

		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		LLMCostUSD: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_llm_cost_usd_total",
				Help: "Estimated LLM API cost in USD",
			},
			[]string{"provider", "model"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_tool_executions_total",
				Help: "Total number of Tool Gateway executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		PermissionDecisionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_permission_decisions_total",
				Help: "Total number of Permission Resolver decisions by tool and verdict",
			},
			[]string{"tool_name", "decision"},
		),

		HookDispatchCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_hook_dispatches_total",
				Help: "Total number of Hook Dispatcher invocations by event and outcome",
			},
			[]string{"event", "outcome"},
		),

		HookDispatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_hook_dispatch_duration_seconds",
				Help:    "Duration of hook command execution in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
			[]string{"event"},
		),

		ContextTruncationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_context_truncations_total",
				Help: "Total number of Context Truncator passes that modified history, by strategy",
			},
			[]string{"strategy"},
		),

		ContextWindowUsed: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_context_window_tokens",
				Help:    "Context window tokens used per request",
				Buckets: []float64{1000, 4000, 8000, 16000, 32000, 64000, 128000, 200000},
			},
			[]string{"provider", "model"},
		),

		FailoverCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_provider_failovers_total",
				Help: "Total number of provider failovers by source, destination and reason",
			},
			[]string{"from_provider", "to_provider", "reason"},
		),

		CircuitBreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forge_provider_circuit_open",
				Help: "Whether a provider's circuit breaker is currently open (1) or closed (0)",
			},
			[]string{"provider"},
		),

		SubagentSpawnCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_subagent_spawns_total",
				Help: "Total number of Sub-Agent Manager spawns by profile and status",
			},
			[]string{"profile", "status"},
		),

		SubagentDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "forge_subagent_max_depth",
			Help: "Deepest concurrently active sub-agent nesting level",
		}),

		WorkflowStepCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_workflow_steps_total",
				Help: "Total number of Workflow Engine step executions by workflow, kind and status",
			},
			[]string{"workflow", "step_kind", "status"},
		),

		ScheduledTaskCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_scheduled_task_runs_total",
				Help: "Total number of scheduled task executions by status",
			},
			[]string{"status"},
		),

		EventBusPublishCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_event_bus_publishes_total",
				Help: "Total number of Event Bus publishes by topic",
			},
			[]string{"topic"},
		),

		EventBusSubscriberLag: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_event_bus_subscriber_lag_seconds",
				Help:    "Time between an event's publish and a subscriber's delivery",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"topic"},
		),

		SessionStoreOpCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_session_store_ops_total",
				Help: "Total number of Session Store operations by kind and status",
			},
			[]string{"operation", "status"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),

		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "forge_active_sessions",
			Help: "Current number of sessions with an in-flight Runtime.Process call",
		}),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),

		DatabaseQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forge_database_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation", "table"},
		),

		DatabaseQueryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forge_database_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"operation", "table", "status"},
		),
	}
}

// RunStarted increments the active run gauge. Call before Runtime.Process begins its loop.
func (m *Metrics) RunStarted() {
	m.ActiveRuns.Inc()
}

// RunFinished decrements the active run gauge and records the run's terminal status and duration.
func (m *Metrics) RunFinished(status string, durationSeconds float64) {
	m.ActiveRuns.Dec()
	m.RunCounter.WithLabelValues(status).Inc()
	m.RunDuration.WithLabelValues(status).Observe(durationSeconds)
}

// RecordLLMRequest records metrics for a single LLM completion call.
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordLLMCost records estimated API cost for a completion.
func (m *Metrics) RecordLLMCost(provider, model string, costUSD float64) {
	m.LLMCostUSD.WithLabelValues(provider, model).Add(costUSD)
}

// RecordToolExecution records a Tool Gateway (C5) execution outcome.
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordPermissionDecision records a Permission Resolver (C3) verdict.
func (m *Metrics) RecordPermissionDecision(toolName, decision string) {
	m.PermissionDecisionCounter.WithLabelValues(toolName, decision).Inc()
}

// RecordHookDispatch records a Hook Dispatcher (C4) invocation.
func (m *Metrics) RecordHookDispatch(event, outcome string, durationSeconds float64) {
	m.HookDispatchCounter.WithLabelValues(event, outcome).Inc()
	m.HookDispatchDuration.WithLabelValues(event).Observe(durationSeconds)
}

// RecordContextTruncation records that the Context Truncator (C2) dropped or
// summarized history under a given strategy.
func (m *Metrics) RecordContextTruncation(strategy string) {
	m.ContextTruncationCounter.WithLabelValues(strategy).Inc()
}

// RecordContextWindow records context window utilization for a request.
func (m *Metrics) RecordContextWindow(provider, model string, tokensUsed int) {
	m.ContextWindowUsed.WithLabelValues(provider, model).Observe(float64(tokensUsed))
}

// RecordFailover records the Agent Runtime switching from one provider to another.
func (m *Metrics) RecordFailover(fromProvider, toProvider, reason string) {
	m.FailoverCounter.WithLabelValues(fromProvider, toProvider, reason).Inc()
}

// SetCircuitBreakerOpen records whether a provider's circuit breaker is open.
func (m *Metrics) SetCircuitBreakerOpen(provider string, open bool) {
	v := 0.0
	if open {
		v = 1.0
	}
	m.CircuitBreakerState.WithLabelValues(provider).Set(v)
}

// RecordSubagentSpawn records a Sub-Agent Manager (C8) spawn outcome.
func (m *Metrics) RecordSubagentSpawn(profile, status string) {
	m.SubagentSpawnCounter.WithLabelValues(profile, status).Inc()
}

// SetSubagentDepth records the current deepest active sub-agent nesting level.
func (m *Metrics) SetSubagentDepth(depth int) {
	m.SubagentDepth.Set(float64(depth))
}

// RecordWorkflowStep records a Workflow Engine (C9) step execution.
func (m *Metrics) RecordWorkflowStep(workflow, stepKind, status string) {
	m.WorkflowStepCounter.WithLabelValues(workflow, stepKind, status).Inc()
}

// RecordScheduledTaskRun records a scheduled task execution outcome.
func (m *Metrics) RecordScheduledTaskRun(status string) {
	m.ScheduledTaskCounter.WithLabelValues(status).Inc()
}

// RecordEventBusPublish records an Event Bus (C10) publish and the slowest
// subscriber's delivery lag for that publish.
func (m *Metrics) RecordEventBusPublish(topic string, maxSubscriberLagSeconds float64) {
	m.EventBusPublishCounter.WithLabelValues(topic).Inc()
	if maxSubscriberLagSeconds > 0 {
		m.EventBusSubscriberLag.WithLabelValues(topic).Observe(maxSubscriberLagSeconds)
	}
}

// RecordSessionStoreOp records a Session Store (C6) operation outcome.
func (m *Metrics) RecordSessionStoreOp(operation, status string) {
	m.SessionStoreOpCounter.WithLabelValues(operation, status).Inc()
}

// RecordError increments the error counter for a given component and error type.
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// SessionStarted increments the active sessions gauge.
func (m *Metrics) SessionStarted() {
	m.ActiveSessions.Inc()
}

// SessionEnded decrements the active sessions gauge.
func (m *Metrics) SessionEnded() {
	m.ActiveSessions.Dec()
}

// RecordHTTPRequest records metrics for an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}

// RecordDatabaseQuery records metrics for a database query.
func (m *Metrics) RecordDatabaseQuery(operation, table, status string, durationSeconds float64) {
	m.DatabaseQueryCounter.WithLabelValues(operation, table, status).Inc()
	m.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(durationSeconds)
}
