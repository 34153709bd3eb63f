package auth

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
)

const (
	ScopeChat   = "chat"
	ScopeModels = "models"
)

// Identity is the authenticated caller. CallerID names the caller's chart
// directory.
type Identity struct {
	CallerID string
	Scopes   []string
}

func (i Identity) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

// NewStaticAPIKeyValidator parses "key:caller:scope|scope,..." entries.
func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:caller:scope|scope", entry)
		}
		key := strings.TrimSpace(parts[0])
		caller := strings.TrimSpace(parts[1])
		if key == "" || caller == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/caller", entry)
		}
		if _, exists := validator.keys[key]; exists {
			return nil, fmt.Errorf("duplicate static key entry for caller %q", caller)
		}
		var scopes []string
		for _, scope := range strings.Split(parts[2], "|") {
			scope = strings.ToLower(strings.TrimSpace(scope))
			if scope == "" || slices.Contains(scopes, scope) {
				continue
			}
			scopes = append(scopes, scope)
		}
		if len(scopes) == 0 {
			return nil, fmt.Errorf("invalid static key entry %q: at least one scope is required", entry)
		}
		sort.Strings(scopes)
		validator.keys[key] = Identity{CallerID: caller, Scopes: scopes}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Len() int {
	return len(v.keys)
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
