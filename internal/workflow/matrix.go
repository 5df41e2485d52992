package workflow

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Matrix declares the per-job parameter space: named axes plus include and
// exclude adjustments.
type Matrix struct {
	Axes    map[string][]any
	Include []map[string]any
	Exclude []map[string]any
}

// UnmarshalYAML splits the matrix mapping into axes and the reserved
// include/exclude keys.
func (m *Matrix) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("workflow: matrix must be a mapping")
	}
	m.Axes = map[string][]any{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return err
		}
		valueNode := node.Content[i+1]
		switch key {
		case "include":
			if err := valueNode.Decode(&m.Include); err != nil {
				return fmt.Errorf("workflow: matrix include: %w", err)
			}
		case "exclude":
			if err := valueNode.Decode(&m.Exclude); err != nil {
				return fmt.Errorf("workflow: matrix exclude: %w", err)
			}
		default:
			var values []any
			if err := valueNode.Decode(&values); err != nil {
				return fmt.Errorf("workflow: matrix axis %s must be a sequence", key)
			}
			m.Axes[key] = values
		}
	}
	return nil
}

// IsZero reports whether the matrix declares nothing at all.
func (m Matrix) IsZero() bool {
	return len(m.Axes) == 0 && len(m.Include) == 0 && len(m.Exclude) == 0
}

// AxisNames returns the axis names in sorted order.
func (m Matrix) AxisNames() []string {
	names := make([]string, 0, len(m.Axes))
	for name := range m.Axes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m Matrix) validate() error {
	for _, name := range m.AxisNames() {
		if len(m.Axes[name]) == 0 {
			return fmt.Errorf("matrix axis %s is empty", name)
		}
	}
	return nil
}

// Expand enumerates the matrix combinations: the cartesian product of all
// axes, minus exclusions, plus include entries. An include whose axis-keyed
// values match an existing combination augments it with the extra keys; one
// that matches nothing is appended as a standalone combination. Ordering is
// deterministic: axes iterate in sorted name order.
func (m Matrix) Expand() []map[string]any {
	combos := []map[string]any{{}}
	for _, name := range m.AxisNames() {
		values := m.Axes[name]
		next := make([]map[string]any, 0, len(combos)*len(values))
		for _, combo := range combos {
			for _, value := range values {
				grown := cloneCombo(combo)
				grown[name] = value
				next = append(next, grown)
			}
		}
		combos = next
	}
	if len(m.Axes) == 0 {
		combos = nil
	}

	if len(m.Exclude) > 0 {
		kept := combos[:0]
		for _, combo := range combos {
			if !matchesAnyFilter(m.Exclude, combo) {
				kept = append(kept, combo)
			}
		}
		combos = kept
	}

	for _, include := range m.Include {
		matched := false
		for _, combo := range combos {
			if comboSubsumes(combo, include, m.Axes) {
				matched = true
				for key, value := range include {
					if _, isAxis := m.Axes[key]; !isAxis {
						combo[key] = value
					}
				}
			}
		}
		if !matched {
			combos = append(combos, cloneCombo(include))
		}
	}
	return combos
}

// Count reports the number of combinations Expand would return.
func (m Matrix) Count() int {
	return len(m.Expand())
}

func matchesAnyFilter(filters []map[string]any, combo map[string]any) bool {
	for _, filter := range filters {
		if len(filter) == 0 {
			continue
		}
		all := true
		for key, want := range filter {
			have, ok := combo[key]
			if !ok || fmt.Sprint(have) != fmt.Sprint(want) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// comboSubsumes reports whether every axis-keyed value of include matches the
// combination. Includes with no axis keys apply to every combination.
func comboSubsumes(combo, include map[string]any, axes map[string][]any) bool {
	for key, want := range include {
		if _, isAxis := axes[key]; !isAxis {
			continue
		}
		have, ok := combo[key]
		if !ok || fmt.Sprint(have) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func cloneCombo(combo map[string]any) map[string]any {
	clone := make(map[string]any, len(combo))
	for key, value := range combo {
		clone[key] = value
	}
	return clone
}
