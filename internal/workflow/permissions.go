package workflow

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Permission levels accepted for a scope.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
	PermissionNone  = "none"
)

var knownPermissionScopes = map[string]struct{}{
	"actions":             {},
	"attestations":        {},
	"checks":              {},
	"contents":            {},
	"deployments":         {},
	"discussions":         {},
	"id-token":            {},
	"issues":              {},
	"models":              {},
	"packages":            {},
	"pages":               {},
	"pull-requests":       {},
	"repository-projects": {},
	"security-events":     {},
	"statuses":            {},
}

// Permissions models the permissions key: either a blanket grant
// ("read-all"/"write-all") or a scope-to-level mapping such as
// {id-token: write}.
type Permissions struct {
	All    string
	Scopes map[string]string
}

// UnmarshalYAML decodes the scalar and mapping forms.
func (p *Permissions) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&p.All)
	}
	return node.Decode(&p.Scopes)
}

// IsZero reports whether no permissions were declared.
func (p Permissions) IsZero() bool {
	return p.All == "" && len(p.Scopes) == 0
}

// Level returns the effective level for a scope, empty when not granted.
func (p Permissions) Level(scope string) string {
	switch p.All {
	case "read-all":
		return PermissionRead
	case "write-all":
		return PermissionWrite
	}
	return p.Scopes[scope]
}

// ScopeNames returns the declared scopes in sorted order.
func (p Permissions) ScopeNames() []string {
	names := make([]string, 0, len(p.Scopes))
	for name := range p.Scopes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p Permissions) validate() error {
	switch p.All {
	case "", "read-all", "write-all":
	default:
		return fmt.Errorf("unknown blanket grant %q", p.All)
	}
	if p.All != "" && len(p.Scopes) > 0 {
		return fmt.Errorf("blanket grant and scope mapping are mutually exclusive")
	}
	for _, scope := range p.ScopeNames() {
		if _, ok := knownPermissionScopes[scope]; !ok {
			return fmt.Errorf("unknown scope %q", scope)
		}
		switch p.Scopes[scope] {
		case PermissionRead, PermissionWrite, PermissionNone:
		default:
			return fmt.Errorf("scope %s has unknown level %q", scope, p.Scopes[scope])
		}
	}
	return nil
}
