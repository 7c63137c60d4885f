// Package source resolves source IDs to logfile URLs.
package source

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/webzook/wintail/internal/config"
	"github.com/webzook/wintail/pkg/wintail"
)

// EnvPrefix is the prefix of the per-source URL override variables,
// e.g. WINTAIL_SOURCE_WEBZOOK.
const EnvPrefix = "WINTAIL_SOURCE_"

// Resolver maps source IDs to URLs.
//
// Priority:
//  1. the ID itself, if it is an absolute http(s) URL and URL IDs are
//     allowed
//  2. the WINTAIL_SOURCE_<ID> environment variable
//  3. the configured [[sources]] entry
//
// Resolver implements wintail.Resolver.
type Resolver struct {
	sources     map[string]string
	getenv      func(string) string
	allowURLIDs bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithURLIDs controls whether an http(s) URL is accepted as its own source
// ID. It is on by default. Resolvers reachable by remote clients must turn
// it off so callers cannot choose arbitrary fetch targets.
func WithURLIDs(allow bool) Option {
	return func(r *Resolver) {
		r.allowURLIDs = allow
	}
}

// New builds a Resolver from configured sources.
func New(sources []config.Source, opts ...Option) *Resolver {
	m := make(map[string]string, len(sources))
	for _, s := range sources {
		m[s.ID] = s.URL
	}
	r := &Resolver{sources: m, getenv: os.Getenv, allowURLIDs: true}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve returns the logfile URL for sourceID. Unknown IDs wrap
// wintail.ErrUnknownSource.
func (r *Resolver) Resolve(sourceID string) (string, error) {
	if sourceID == "" {
		return "", fmt.Errorf("%w: empty source id", wintail.ErrUnknownSource)
	}
	if isHTTPURL(sourceID) {
		if !r.allowURLIDs {
			return "", fmt.Errorf("%w: url source ids are not accepted here", wintail.ErrUnknownSource)
		}
		return sourceID, nil
	}
	if v := r.getenv(EnvVar(sourceID)); v != "" {
		if !isHTTPURL(v) {
			return "", fmt.Errorf("%w: %s is not an http(s) url", wintail.ErrUnknownSource, EnvVar(sourceID))
		}
		return v, nil
	}
	if u, ok := r.sources[sourceID]; ok {
		return u, nil
	}
	return "", fmt.Errorf("%w: %q", wintail.ErrUnknownSource, sourceID)
}

// IDs returns the configured source IDs, sorted.
func (r *Resolver) IDs() []string {
	ids := make([]string, 0, len(r.sources))
	for id := range r.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// EnvVar returns the override variable name for sourceID. Characters
// outside [A-Z0-9] become underscores.
func EnvVar(sourceID string) string {
	var b strings.Builder
	b.WriteString(EnvPrefix)
	for _, c := range strings.ToUpper(sourceID) {
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			b.WriteRune(c)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
