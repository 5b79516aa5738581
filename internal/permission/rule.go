package permission

import (
	"fmt"
	"regexp"

	"github.com/forge-ai/forge-core/internal/config"
)

// Source identifies which rule file a Rule came from. precedence ranks
// sources from most to least authoritative: a session rule always beats
// a project, user, or default rule regardless of pattern specificity.
type Source int

const (
	SourceSession Source = iota
	SourceProject
	SourceUser
	SourceDefault
)

func (s Source) String() string {
	switch s {
	case SourceSession:
		return "session"
	case SourceProject:
		return "project"
	case SourceUser:
		return "user"
	default:
		return "default"
	}
}

// Rule is one compiled, source-attributed permission rule.
type Rule struct {
	ID       string
	Source   Source
	ToolName string
	Pattern  string
	Level    Level
	ArgRegex string

	compiledArg *regexp.Regexp // nil if ArgRegex is empty or failed to compile
	inert       bool           // true when ArgRegex failed to compile; rule never matches
	inertReason string
}

// specificity ranks how narrowly a rule targets a tool call, used to
// break ties between rules from the same source. A longer literal
// pattern and the presence of an argument regex both count as more
// specific than a bare tool-name or wildcard match.
func (r *Rule) specificity() int {
	pattern := r.Pattern
	if pattern == "" {
		pattern = r.ToolName
	}
	score := len(pattern)
	if r.ArgRegex != "" {
		score += 1000
	}
	if pattern == "*" {
		score = 0
	}
	return score
}

// compileRule builds a Rule from a config.PermissionRule attributed to
// source. A regex compile failure renders the rule permanently inert
// (it never matches) rather than aborting resolver construction; the
// caller is expected to surface inertReason as a warning.
func compileRule(id string, src Source, cfg config.PermissionRule, argRegex string) *Rule {
	level, ok := levelFromDecision(cfg.Decision)
	if !ok {
		level = Ask
	}
	r := &Rule{
		ID:       id,
		Source:   src,
		ToolName: cfg.ToolName,
		Pattern:  cfg.Pattern,
		Level:    level,
		ArgRegex: argRegex,
	}
	if argRegex != "" {
		compiled, err := regexp.Compile(argRegex)
		if err != nil {
			r.inert = true
			r.inertReason = fmt.Sprintf("rule %s: invalid arg pattern %q: %v", id, argRegex, err)
			return r
		}
		r.compiledArg = compiled
	}
	return r
}
