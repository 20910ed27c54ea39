package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoSources is returned when the source file defines no sources.
var ErrNoSources = errors.New("no sources configured")

// Sources maps a group name to the ordered source names in that group.
type Sources map[string][]string

// LoadSources reads the group file at path. The file may be JSON or YAML.
func LoadSources(path string) (Sources, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}
	return ParseSources(data)
}

// ParseSources decodes a group file and validates it.
func ParseSources(data []byte) (Sources, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}

	s := make(Sources, len(raw))
	for group, names := range raw {
		group = strings.TrimSpace(group)
		if group == "" {
			return nil, fmt.Errorf("empty group name")
		}
		for _, n := range names {
			n = strings.TrimSpace(n)
			if n == "" {
				return nil, fmt.Errorf("empty source name in group %q", group)
			}
			// A repeated source would weigh its posts twice within the group.
			if slices.Contains(s[group], n) {
				continue
			}
			s[group] = append(s[group], n)
		}
	}
	if len(s.Names()) == 0 {
		return nil, ErrNoSources
	}
	return s, nil
}

// Names returns every source across all groups, deduplicated and sorted.
func (s Sources) Names() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, names := range s {
		for _, n := range names {
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Group returns the sources of the named group.
func (s Sources) Group(name string) ([]string, bool) {
	names, ok := s[name]
	return names, ok
}

// Groups returns the group names in sorted order.
func (s Sources) Groups() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}
