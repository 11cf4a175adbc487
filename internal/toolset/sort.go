package toolset

import (
	"fmt"
	"strings"
)

// CycleError reports a dependency cycle as the ordered chain that closes it,
// e.g. "crm -> sales -> crm".
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclic toolset dependency: %s", strings.Join(e.Chain, " -> "))
}

// topologicalOrder sorts toolsets so that every dependency is registered
// before its dependents, using a depth-first walk that tracks the current
// call stack to detect cycles the same way a recursive loader would detect
// a self-referential include.
func topologicalOrder(toolsets []Toolset) ([]Toolset, error) {
	byName := make(map[string]Toolset, len(toolsets))
	for _, ts := range toolsets {
		byName[ts.Metadata().Name] = ts
	}

	var (
		visited  = map[string]bool{}
		onStack  = map[string]bool{}
		stack    []string
		ordered  []Toolset
	)

	var visit func(name string) error
	visit = func(name string) error {
		if visited[name] {
			return nil
		}
		if onStack[name] {
			chain := append(append([]string{}, stack...), name)
			return &CycleError{Chain: chain}
		}

		ts, ok := byName[name]
		if !ok {
			// A dependency on a toolset that was never declared is a
			// prerequisite failure, not a cycle; it surfaces later as a
			// SkipUnregisteredDep when the dependent is gated.
			return nil
		}

		onStack[name] = true
		stack = append(stack, name)

		for _, dep := range ts.Metadata().DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		onStack[name] = false
		visited[name] = true
		ordered = append(ordered, ts)
		return nil
	}

	for _, ts := range toolsets {
		if err := visit(ts.Metadata().Name); err != nil {
			return nil, err
		}
	}

	return ordered, nil
}
