// Package source resolves the list of hostnames to check. Local file and
// single-domain modes are direct providers, remote backends are picked from a
// registry by name.
package source

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Provider delivers an ordered list of hostnames to check
type Provider interface {
	Fetch(ctx context.Context) ([]string, error)
}

// File reads hostnames from a local file, one per line. Lines are returned
// as-is, blank-line handling is up to the caller.
type File struct {
	Path string
}

// Fetch returns all lines of the file
func (f *File) Fetch(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(f.Path) // nolint gosec
	if err != nil {
		return nil, fmt.Errorf("can't read domain list %s: %w", f.Path, err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	return lines, nil
}

// Static wraps a fixed set of hostnames, used for the single-domain mode
type Static struct {
	Domains []string
}

// Fetch returns the wrapped hostnames
func (s *Static) Fetch(_ context.Context) ([]string, error) {
	return s.Domains, nil
}

// Registry maps backend names to providers. Selection is a plain lookup,
// unknown names are configuration errors.
type Registry map[string]Provider

// Lookup returns the provider registered under name
func (r Registry) Lookup(name string) (Provider, error) {
	p, ok := r[name]
	if !ok {
		known := make([]string, 0, len(r))
		for k := range r {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown backend %q, supported: %s", name, strings.Join(known, ", "))
	}
	return p, nil
}
