package permission

import (
	"path"
	"strings"
)

// matchToolName reports whether pattern selects toolName. It supports the
// same small wildcard vocabulary as the tool group resolver it was
// adapted from: a bare "*" matches everything, a trailing ".*" matches a
// namespace prefix, and anything else must match exactly.
func matchToolName(pattern, toolName string) bool {
	if pattern == "*" || pattern == toolName {
		return true
	}
	if strings.HasSuffix(pattern, ".*") {
		prefix := strings.TrimSuffix(pattern, "*")
		return strings.HasPrefix(toolName, prefix)
	}
	return false
}

// matchArgs reports whether a rule's compiled argument pattern matches
// args. A rule with no argument pattern matches any arguments. Path-typed
// argument values are normalized (resolved against "." and "..", trailing
// slash stripped) before matching so a pattern written against a clean
// path cannot be evaded with "../" traversal or a trailing separator.
func (r *Rule) matchArgs(args map[string]any) bool {
	if r.inert {
		return false
	}
	if r.compiledArg == nil {
		return true
	}
	for _, v := range args {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if r.compiledArg.MatchString(normalizeArgValue(s)) {
			return true
		}
	}
	return false
}

// normalizeArgValue cleans a string argument as a filesystem path would
// be cleaned, so "a/../../etc/passwd" and "a/etc/passwd/" compare the
// same as "etc/passwd" against an argument pattern. Values that are not
// path-shaped are returned unchanged by path.Clean (it is a no-op on a
// string with no separators).
func normalizeArgValue(s string) string {
	if s == "" {
		return s
	}
	cleaned := path.Clean(s)
	return strings.TrimSuffix(cleaned, "/")
}
