package shared

import (
	"context"
	"slices"
	"strings"
)

// Scope is the caller's project authorization, resolved per request and
// passed explicitly to operations that narrow results.
type Scope struct {
	UserID       string
	Role         string
	ProjectIDs   []string
	Unrestricted bool
}

// Allows reports whether projectID is visible within the scope.
func (s Scope) Allows(projectID string) bool {
	if s.Unrestricted {
		return true
	}
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return false
	}
	return slices.Contains(s.ProjectIDs, projectID)
}

// ParseProjectIDs splits a comma separated project list, dropping blanks.
func ParseProjectIDs(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

type scopeContextKey struct{}

// ContextWithScope stores the scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}
