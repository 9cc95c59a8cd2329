package harness

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

var (
	validName   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	placeholder = regexp.MustCompile(`\$\{([^}]*)\}`)
)

// substituter expands ${name} placeholders from a scenario's addresses.
type substituter struct {
	addresses map[string]string
}

func (s substituter) expand(v string) (string, error) {
	var missing []string
	out := placeholder.ReplaceAllStringFunc(v, func(m string) string {
		name := m[2 : len(m)-1]
		addr, ok := s.addresses[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return addr
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("undefined address %q in %q", missing[0], v)
	}
	return out, nil
}

func (s substituter) expandTags(tags map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		ev, err := s.expand(v)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", k, err)
		}
		out[k] = ev
	}
	return out, nil
}

// expandValue walks a decoded YAML value, expanding strings and map keys.
func (s substituter) expandValue(v any) (any, error) {
	switch val := v.(type) {
	case string:
		return s.expand(val)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			ek, err := s.expand(k)
			if err != nil {
				return nil, err
			}
			ev, err := s.expandValue(inner)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[ek] = ev
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			ev, err := s.expandValue(inner)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = ev
		}
		return out, nil
	default:
		return v, nil
	}
}

// symbolizer folds addresses back into ${name} form for traces.
type symbolizer struct {
	r *strings.Replacer
}

func newSymbolizer(addresses map[string]string) symbolizer {
	names := make([]string, 0, len(addresses))
	for name := range addresses {
		names = append(names, name)
	}
	// Longest address first so one address never clobbers a longer one
	// that contains it.
	slices.SortFunc(names, func(a, b string) int {
		if c := cmp.Compare(len(addresses[b]), len(addresses[a])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, addresses[name], "${"+name+"}")
	}
	return symbolizer{r: strings.NewReplacer(pairs...)}
}

func (s symbolizer) str(v string) string {
	return s.r.Replace(v)
}

func (s symbolizer) tags(tags map[string]string) map[string]any {
	out := make(map[string]any, len(tags))
	for k, v := range tags {
		out[s.str(k)] = s.str(v)
	}
	return out
}
