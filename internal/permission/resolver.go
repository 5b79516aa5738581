package permission

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/forge-ai/forge-core/internal/config"
)

// Warner receives non-fatal warnings, such as a rule rendered inert by an
// invalid argument pattern. Callers typically back this with the Event
// Bus's Warning event.
type Warner interface {
	Warn(message string)
}

type nopWarner struct{}

func (nopWarner) Warn(string) {}

// ruleFile is the on-disk shape of a session/project/user rules file.
type ruleFile struct {
	Rules []config.PermissionRule `yaml:"rules"`
}

// LoadRuleFile reads a permission rule file. A missing file is not an
// error: it simply contributes no rules for that source.
func LoadRuleFile(path string) ([]config.PermissionRule, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("permission: read %s: %w", path, err)
	}
	var f ruleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("permission: parse %s: %w", path, err)
	}
	return f.Rules, nil
}

// Resolver answers permission checks by consulting rules from four
// sources in session > project > user > default precedence, and enforces
// a sliding-window denial lockout on top of the rule-based outcome.
type Resolver struct {
	mu      sync.RWMutex
	rules   map[Source][]*Rule
	limiter *denialLimiter
	warner  Warner
	nextID  func() string
}

// New builds a Resolver from cfg's default rules plus whatever rules are
// present at its session/project/user rule-file paths. warner may be nil.
func New(cfg config.PermissionConfig, warner Warner) (*Resolver, error) {
	if warner == nil {
		warner = nopWarner{}
	}
	r := &Resolver{
		rules:   make(map[Source][]*Rule),
		limiter: newDenialLimiter(time.Duration(cfg.DenialWindowSeconds)*time.Second, cfg.MaxDenialsPerWindow),
		warner:  warner,
		nextID:  func() string { return uuid.NewString() },
	}

	for i, raw := range cfg.Defaults {
		r.addCompiled(SourceDefault, fmt.Sprintf("default-%d", i), raw)
	}

	sources := []struct {
		path string
		src  Source
	}{
		{cfg.SessionRulesPath, SourceSession},
		{cfg.ProjectRulesPath, SourceProject},
		{cfg.UserRulesPath, SourceUser},
	}
	for _, s := range sources {
		rawRules, err := LoadRuleFile(s.path)
		if err != nil {
			return nil, err
		}
		for i, raw := range rawRules {
			r.addCompiled(s.src, fmt.Sprintf("%s-%d", s.src, i), raw)
		}
	}
	return r, nil
}

func (r *Resolver) addCompiled(src Source, id string, raw config.PermissionRule) {
	rule := compileRule(id, src, raw, raw.ArgPattern)
	if rule.inert {
		r.warner.Warn(rule.inertReason)
	}
	r.rules[src] = append(r.rules[src], rule)
}

// Check resolves the permission decision for toolName invoked with args.
// principal identifies the caller for rate-limiting purposes (typically a
// session ID).
func (r *Resolver) Check(principal, toolName string, args map[string]any) Decision {
	if r.limiter.lockedOut(principal, toolName) {
		return Decision{Level: Deny, Reason: "rate-limited: too many recent denials"}
	}

	r.mu.RLock()
	candidates := r.matchingRules(toolName, args)
	r.mu.RUnlock()

	decision := r.decide(candidates)
	if decision.Level == Deny {
		r.limiter.recordDenial(principal, toolName)
	}
	return decision
}

// matchingRules collects every rule across all sources whose tool pattern
// and argument pattern both match. Caller must hold at least a read lock.
func (r *Resolver) matchingRules(toolName string, args map[string]any) []*Rule {
	var out []*Rule
	for _, src := range []Source{SourceSession, SourceProject, SourceUser, SourceDefault} {
		for _, rule := range r.rules[src] {
			if rule.inert {
				continue
			}
			pattern := rule.Pattern
			if pattern == "" {
				pattern = rule.ToolName
			}
			if pattern == "" || !matchToolName(pattern, toolName) {
				continue
			}
			if !rule.matchArgs(args) {
				continue
			}
			out = append(out, rule)
		}
	}
	return out
}

// decide picks the winning rule among candidates: the lowest-numbered
// (most authoritative) source wins; within a source, the most specific
// rule wins; a Deny wins any remaining tie. No candidates defaults to Ask.
func (r *Resolver) decide(candidates []*Rule) Decision {
	if len(candidates) == 0 {
		return Decision{Level: Ask, Reason: "no matching rule"}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.specificity() != b.specificity() {
			return a.specificity() > b.specificity()
		}
		// Equal precedence and specificity: Deny wins the tie.
		return a.Level == Deny && b.Level != Deny
	})

	winner := candidates[0]
	// Among ties with the winner's precedence+specificity, prefer Deny.
	for _, c := range candidates[1:] {
		if c.Source != winner.Source || c.specificity() != winner.specificity() {
			break
		}
		if c.Level == Deny {
			winner = c
			break
		}
	}

	return Decision{
		Level:       winner.Level,
		MatchedRule: winner,
		Reason:      fmt.Sprintf("matched %s rule %q (pattern %q)", winner.Source, winner.ID, winner.Pattern),
	}
}

// RecordDenial manually charges a denial against principal+toolName's
// rate-limit window, for callers (such as the Tool Gateway) that reject a
// call after Check already returned Ask or Allow — for example when a
// human explicitly rejects an Ask prompt.
func (r *Resolver) RecordDenial(principal, toolName string) {
	r.limiter.recordDenial(principal, toolName)
}

// AddSessionRule appends a rule to the session source atomically and
// returns its assigned ID.
func (r *Resolver) AddSessionRule(raw config.PermissionRule) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID()
	r.addCompiled(SourceSession, id, raw)
	return id
}

// RemoveSessionRule removes a previously added session rule by ID. It
// reports whether a rule was found and removed.
func (r *Resolver) RemoveSessionRule(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rules := r.rules[SourceSession]
	for i, rule := range rules {
		if rule.ID == id {
			r.rules[SourceSession] = append(rules[:i], rules[i+1:]...)
			return true
		}
	}
	return false
}
