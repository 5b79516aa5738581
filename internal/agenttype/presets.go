package agenttype

import "github.com/forge-ai/forge-core/pkg/models"

// defaultCaps is the resource envelope applied to a preset unless it
// overrides specific fields below.
func defaultCaps(maxTokens, maxToolCalls, maxIterations, maxWallSeconds int) models.ResourceCaps {
	return models.ResourceCaps{
		MaxTokens:      maxTokens,
		MaxToolCalls:   maxToolCalls,
		MaxIterations:  maxIterations,
		MaxWallSeconds: maxWallSeconds,
	}
}

// Builtins returns the ~20 built-in AgentTypeDefinition presets shipped
// with forge-core, grounded on the tool groups of
// internal/tools/policy/groups.go and the specialist-agent naming
// conventions of internal/multiagent.
func Builtins() []models.AgentTypeDefinition {
	return []models.AgentTypeDefinition{
		{
			Name:           "general-purpose",
			Description:    "Unrestricted agent for open-ended tasks that don't fit a specialist preset.",
			PromptTemplate: "You are a general-purpose assistant. Complete the task thoroughly and report back a concise summary.",
			AllowedTools:   []string{"group:nexus"},
			ResourceCaps:   defaultCaps(100_000, 50, 25, 600),
		},
		{
			Name:           "code-review",
			Description:    "Reviews a diff or file set for correctness, security, and style issues.",
			PromptTemplate: "You are a meticulous code reviewer. Read the changed files, identify concrete defects, and report findings with file:line references. Do not modify files.",
			AllowedTools:   []string{"read", "group:web"},
			ResourceCaps:   defaultCaps(60_000, 30, 20, 300),
		},
		{
			Name:           "coder",
			Description:    "Implements a described change across the workspace.",
			PromptTemplate: "You are an implementation agent. Make the requested code change, keeping edits minimal and consistent with the surrounding style.",
			AllowedTools:   []string{"group:fs", "group:runtime"},
			ResourceCaps:   defaultCaps(120_000, 60, 30, 900),
		},
		{
			Name:           "tester",
			Description:    "Writes or runs tests for a given change.",
			PromptTemplate: "You are a test-writing agent. Add or update tests for the described change and run them if a runtime tool is available.",
			AllowedTools:   []string{"group:fs", "group:runtime"},
			ResourceCaps:   defaultCaps(80_000, 40, 25, 600),
		},
		{
			Name:           "debugger",
			Description:    "Root-causes a failing test or reported bug.",
			PromptTemplate: "You are a debugging agent. Reproduce the failure, isolate the root cause, and propose a fix. Prefer small, targeted diagnostics over broad exploration.",
			AllowedTools:   []string{"group:fs", "group:runtime", "group:memory"},
			ResourceCaps:   defaultCaps(100_000, 50, 30, 900),
		},
		{
			Name:           "researcher",
			Description:    "Gathers information from the web and local memory to answer a question.",
			PromptTemplate: "You are a research agent. Gather evidence from the web and memory tools, then synthesize a cited answer.",
			AllowedTools:   []string{"group:web", "group:memory", "read"},
			ResourceCaps:   defaultCaps(80_000, 40, 20, 600),
		},
		{
			Name:           "planner",
			Description:    "Breaks a large task into an ordered plan without executing it.",
			PromptTemplate: "You are a planning agent. Decompose the task into ordered, concrete steps. Do not execute the steps yourself.",
			AllowedTools:   []string{"read", "group:memory"},
			ResourceCaps:   defaultCaps(40_000, 10, 10, 180),
		},
		{
			Name:           "summarizer",
			Description:    "Produces a concise summary of a long document or conversation.",
			PromptTemplate: "You are a summarization agent. Produce a faithful, concise summary preserving key decisions and open questions.",
			AllowedTools:   []string{"read"},
			ResourceCaps:   defaultCaps(30_000, 5, 5, 120),
		},
		{
			Name:           "docs-writer",
			Description:    "Writes or updates documentation for a change.",
			PromptTemplate: "You are a documentation agent. Write clear, accurate docs for the described change, matching the repository's existing doc style.",
			AllowedTools:   []string{"group:fs"},
			ResourceCaps:   defaultCaps(60_000, 25, 15, 300),
		},
		{
			Name:           "security-auditor",
			Description:    "Audits code for security vulnerabilities.",
			PromptTemplate: "You are a security auditor. Review the code for injection, auth, secrets-handling, and other OWASP-class issues. Report findings, do not fix them.",
			AllowedTools:   []string{"read", "group:web"},
			ResourceCaps:   defaultCaps(80_000, 30, 20, 300),
		},
		{
			Name:           "refactorer",
			Description:    "Improves code structure without changing behavior.",
			PromptTemplate: "You are a refactoring agent. Improve structure, naming, and duplication without changing observable behavior. Keep a test suite green if one is available.",
			AllowedTools:   []string{"group:fs", "group:runtime"},
			ResourceCaps:   defaultCaps(100_000, 50, 25, 600),
		},
		{
			Name:           "migration-assistant",
			Description:    "Applies a mechanical migration (API rename, dependency bump) across many files.",
			PromptTemplate: "You are a migration agent. Apply the described mechanical change consistently across all affected files.",
			AllowedTools:   []string{"group:fs", "group:runtime"},
			ResourceCaps:   defaultCaps(150_000, 80, 40, 1200),
		},
		{
			Name:           "data-analyst",
			Description:    "Analyzes structured data and reports findings.",
			PromptTemplate: "You are a data analysis agent. Inspect the provided data, compute the requested statistics, and report findings plainly.",
			AllowedTools:   []string{"read", "group:runtime"},
			ResourceCaps:   defaultCaps(80_000, 30, 20, 300),
		},
		{
			Name:           "release-notes-writer",
			Description:    "Drafts release notes from a set of merged changes.",
			PromptTemplate: "You are a release-notes agent. Summarize the provided changes for an external audience, grouped by feature/fix/breaking-change.",
			AllowedTools:   []string{"read"},
			ResourceCaps:   defaultCaps(40_000, 10, 10, 180),
		},
		{
			Name:           "triage",
			Description:    "Classifies and prioritizes an incoming issue or alert.",
			PromptTemplate: "You are a triage agent. Classify severity, likely cause, and owning area; do not attempt a fix.",
			AllowedTools:   []string{"read", "group:memory"},
			ResourceCaps:   defaultCaps(20_000, 5, 5, 60),
		},
		{
			Name:           "dependency-auditor",
			Description:    "Reviews dependency manifests for outdated or risky packages.",
			PromptTemplate: "You are a dependency-auditor agent. Inspect manifest files and report outdated, vulnerable, or unused dependencies.",
			AllowedTools:   []string{"read", "group:web"},
			ResourceCaps:   defaultCaps(40_000, 15, 10, 180),
		},
		{
			Name:           "browser-operator",
			Description:    "Drives a browser to verify a UI change end to end.",
			PromptTemplate: "You are a browser-operator agent. Drive the application through the browser tool to verify the described behavior.",
			AllowedTools:   []string{"group:ui", "read"},
			ResourceCaps:   defaultCaps(60_000, 40, 25, 600),
		},
		{
			Name:           "commit-message-writer",
			Description:    "Writes a commit message for a staged diff.",
			PromptTemplate: "You are a commit-message agent. Write a concise, conventional commit message describing the staged diff.",
			AllowedTools:   []string{"read"},
			ResourceCaps:   defaultCaps(10_000, 2, 3, 30),
		},
		{
			Name:           "scheduler-operator",
			Description:    "Manages cron-scheduled tasks and workflow triggers on the operator's behalf.",
			PromptTemplate: "You are a scheduling agent. Create, inspect, or cancel scheduled tasks as requested.",
			AllowedTools:   []string{"group:automation", "read"},
			ResourceCaps:   defaultCaps(20_000, 10, 10, 60),
		},
		{
			Name:           "incident-responder",
			Description:    "Coordinates an incident response: gathers signal, proposes mitigations.",
			PromptTemplate: "You are an incident-response agent. Gather diagnostic signal, propose mitigations ranked by risk, and page a human before anything destructive.",
			AllowedTools:   []string{"read", "group:runtime", "group:memory", "group:messaging"},
			ResourceCaps:   defaultCaps(100_000, 40, 25, 600),
		},
	}
}

// NewDefaultRegistry builds and freezes a Registry populated with
// Builtins. It panics on internal inconsistency (duplicate preset names),
// which would be a programming error in this package, not a runtime fault.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	for _, def := range Builtins() {
		reg.MustRegister(def)
	}
	reg.Freeze()
	return reg
}
