// Package toolgateway is the single choke point every tool invocation
// passes through. It wraps an agent.Tool with schema validation,
// permission resolution, and pre/post hook dispatch, and is itself an
// agent.Tool — so a gateway-wrapped tool can be registered into an
// agent.ToolRegistry exactly like a bare one, and every call the Agent
// Runtime routes through the registry gets the same treatment without
// the runtime needing to know the gateway exists.
package toolgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/forge-ai/forge-core/internal/agent"
	"github.com/forge-ai/forge-core/internal/hooks"
	"github.com/forge-ai/forge-core/internal/observability"
	"github.com/forge-ai/forge-core/internal/permission"
)

// ErrApprovalRequired is returned by Execute when the permission resolver
// answers Ask and the call has no synchronous approval path. The caller
// (typically the Agent Runtime's ASK handling) is expected to resolve
// this through its own approval flow rather than treat it as a tool
// failure.
var ErrApprovalRequired = fmt.Errorf("toolgateway: approval required")

// Gateway compiles and caches JSON Schemas and wraps tools with
// validation, permission, and hook enforcement. Resolver and HookMgr may
// be nil, in which case that step is skipped for every wrapped tool.
type Gateway struct {
	resolver *permission.Resolver
	hookMgr  *hooks.ToolHookManager

	mu          sync.Mutex
	compiled    map[string]*jsonschema.Schema
	schemaBytes map[string]string
}

// New creates a Gateway. resolver and hookMgr are optional.
func New(resolver *permission.Resolver, hookMgr *hooks.ToolHookManager) *Gateway {
	return &Gateway{
		resolver:    resolver,
		hookMgr:     hookMgr,
		compiled:    make(map[string]*jsonschema.Schema),
		schemaBytes: make(map[string]string),
	}
}

// Wrap returns an agent.Tool that performs schema validation, a
// permission check, and pre/post hook dispatch around tool's Execute.
func (g *Gateway) Wrap(tool agent.Tool) agent.Tool {
	return &gatewayTool{gw: g, inner: tool}
}

// WrapAll wraps every tool in tools, preserving order.
func (g *Gateway) WrapAll(tools ...agent.Tool) []agent.Tool {
	wrapped := make([]agent.Tool, len(tools))
	for i, t := range tools {
		wrapped[i] = g.Wrap(t)
	}
	return wrapped
}

// RegisterAll wraps each tool and registers it into registry, so every
// call the registry dispatches goes through the gateway.
func (g *Gateway) RegisterAll(registry *agent.ToolRegistry, tools ...agent.Tool) {
	for _, t := range g.WrapAll(tools...) {
		registry.Register(t)
	}
}

type gatewayTool struct {
	gw    *Gateway
	inner agent.Tool
}

func (t *gatewayTool) Name() string            { return t.inner.Name() }
func (t *gatewayTool) Description() string     { return t.inner.Description() }
func (t *gatewayTool) Schema() json.RawMessage { return t.inner.Schema() }

func (t *gatewayTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	name := t.inner.Name()

	if err := t.gw.validate(t.inner, params); err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("invalid tool parameters: %v", err), IsError: true}, nil
	}

	principal := observability.GetSessionID(ctx)
	if t.gw.resolver != nil {
		decision := t.gw.resolver.Check(principal, name, argsMap(params))
		switch decision.Level {
		case permission.Deny:
			return &agent.ToolResult{Content: fmt.Sprintf("tool call denied: %s", decision.Reason), IsError: true}, nil
		case permission.Ask:
			return nil, ErrApprovalRequired
		}
	}

	hookCtx := &hooks.ToolHookContext{
		ToolName:   name,
		ToolCallID: observability.GetToolCallID(ctx),
		Input:      params,
		SessionKey: principal,
	}

	if t.gw.hookMgr != nil {
		if err := t.gw.hookMgr.TriggerPreExecution(ctx, hookCtx); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("pre-execution hook failed: %v", err), IsError: true}, nil
		}
		if hookCtx.Canceled {
			return &agent.ToolResult{Content: hookCtx.CancelReason, IsError: true}, nil
		}
		if hookCtx.Modified {
			params = hookCtx.Input
		}
	}

	start := time.Now()
	result, err := t.inner.Execute(ctx, params)
	hookCtx.Duration = time.Since(start)
	if result != nil {
		hookCtx.Output = result.Content
	}
	hookCtx.Error = err

	if t.gw.hookMgr != nil {
		if perr := t.gw.hookMgr.TriggerPostExecution(ctx, hookCtx); perr != nil {
			return result, fmt.Errorf("post-execution hook failed: %w", perr)
		}
	}
	return result, err
}

// validate compiles (and caches) the tool's schema and validates params
// against it. A tool with an empty schema accepts any params.
func (g *Gateway) validate(tool agent.Tool, params json.RawMessage) error {
	schema := tool.Schema()
	if len(schema) == 0 {
		return nil
	}

	compiled, err := g.compileFor(tool.Name(), schema)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if len(params) == 0 {
		v = map[string]any{}
	} else {
		dec := json.NewDecoder(bytes.NewReader(params))
		dec.UseNumber()
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode params: %w", err)
		}
	}

	return compiled.Validate(v)
}

func (g *Gateway) compileFor(name string, schema json.RawMessage) (*jsonschema.Schema, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.compiled[name]; ok && g.schemaBytes[name] == string(schema) {
		return existing, nil
	}

	url := "mem://" + name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(schema)); err != nil {
		return nil, err
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, err
	}

	g.compiled[name] = compiled
	g.schemaBytes[name] = string(schema)
	return compiled, nil
}

// argsMap best-effort decodes params into a map for the permission
// resolver's argument-pattern matching. A non-object payload (or invalid
// JSON) yields a nil map rather than an error: permission rules that
// only match on tool name still apply.
func argsMap(params json.RawMessage) map[string]any {
	if len(params) == 0 {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(params, &m); err != nil {
		return nil
	}
	return m
}
