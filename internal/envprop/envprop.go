// Package envprop prepares the environment handed to the spawned child.
// The parent's variables pass through in their original order, TERM is
// removed so the child picks the emulated console's own terminal type, and
// the bridge's debug switches are forwarded only when actually set.
package envprop

import (
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Variables the bridge consumes itself but still forwards to the child so
// nested invocations inherit the same diagnostics settings.
var forwarded = []string{"TERMBRIDGE_DEBUG", "TERMBRIDGE_SHOW_CONSOLE"}

// dropped variables describe the parent terminal, which the child does not
// run under.
var dropped = map[string]bool{"TERM": true}

// Build filters environ (in os.Environ form, "KEY=VALUE") into the child's
// environment, preserving the original variable order. getenv supplies the
// forwarded diagnostics switches; pass os.Getenv outside tests.
func Build(environ []string, getenv func(string) string) []string {
	env := orderedmap.New[string, string](orderedmap.WithCapacity[string, string](len(environ)))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		if dropped[key] {
			continue
		}
		env.Set(key, value)
	}
	for _, key := range forwarded {
		if value := getenv(key); value != "" {
			if _, present := env.Get(key); !present {
				env.Set(key, value)
			}
		}
	}

	out := make([]string, 0, env.Len())
	for pair := env.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key+"="+pair.Value)
	}
	return out
}
