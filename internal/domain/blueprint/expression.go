package blueprint

import (
	"regexp"
	"strings"
)

var exprPattern = regexp.MustCompile(`\$\{\{(.+?)\}\}`)

// Scope is the root of a variable expression path.
type Scope string

const (
	ScopeEnvConfig    Scope = "env.config"
	ScopeEntityConfig Scope = "entity.config"
	ScopeDependencies Scope = "dependencies"
	ScopeUnknown      Scope = ""
)

// AllScopes lists every scope an expression may use.
var AllScopes = []Scope{ScopeEnvConfig, ScopeEntityConfig, ScopeDependencies}

// Reference is one parsed ${{ ... }} occurrence.
type Reference struct {
	Raw   string // the full match including delimiters
	Path  string // trimmed scope path
	Scope Scope
	Name  string // input name, for env.config and entity.config

	// Dependency references only.
	DependencyID string
	Field        string
}

// Malformed reports a dependencies reference that is not of the form
// dependencies.<id>.output.<field>.
func (r Reference) Malformed() bool {
	return r.Scope == ScopeDependencies && (r.DependencyID == "" || r.Field == "")
}

// HasExpression reports whether s embeds a variable expression.
func HasExpression(s string) bool {
	return exprPattern.MatchString(s)
}

// Expressions extracts every reference embedded in s.
func Expressions(s string) []Reference {
	matches := exprPattern.FindAllStringSubmatch(s, -1)
	refs := make([]Reference, 0, len(matches))
	for _, match := range matches {
		refs = append(refs, ParseReference(match[0], match[1]))
	}
	return refs
}

// ParseReference classifies the inner path of an expression.
func ParseReference(raw, inner string) Reference {
	path := strings.TrimSpace(inner)
	ref := Reference{Raw: raw, Path: path}
	switch {
	case strings.HasPrefix(path, string(ScopeEnvConfig)+"."):
		ref.Scope = ScopeEnvConfig
		ref.Name = strings.TrimPrefix(path, string(ScopeEnvConfig)+".")
	case strings.HasPrefix(path, string(ScopeEntityConfig)+"."):
		ref.Scope = ScopeEntityConfig
		ref.Name = strings.TrimPrefix(path, string(ScopeEntityConfig)+".")
	case strings.HasPrefix(path, string(ScopeDependencies)+"."):
		ref.Scope = ScopeDependencies
		parts := strings.SplitN(strings.TrimPrefix(path, string(ScopeDependencies)+"."), ".", 3)
		if len(parts) == 3 && parts[0] != "" && parts[1] == "output" && parts[2] != "" {
			ref.DependencyID = parts[0]
			ref.Field = parts[2]
		}
	default:
		ref.Scope = ScopeUnknown
	}
	return ref
}

// Wrap turns a scope path into an expression: "env.config.x" -> "${{env.config.x}}".
// Text that already is an expression is returned unchanged.
func Wrap(path string) string {
	path = strings.TrimSpace(path)
	if HasExpression(path) {
		return path
	}
	return "${{" + path + "}}"
}

// EnvRef returns the expression reading a blueprint input.
func EnvRef(name string) string {
	return Wrap(string(ScopeEnvConfig) + "." + name)
}

// EntityRef returns the expression reading an entity-scoped input.
func EntityRef(name string) string {
	return Wrap(string(ScopeEntityConfig) + "." + name)
}

// DependencyRef returns the expression reading an output of a dependency.
func DependencyRef(depID, field string) string {
	return Wrap(string(ScopeDependencies) + "." + depID + ".output." + field)
}
