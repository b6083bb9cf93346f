package property

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/authlink/authlink/internal/domain"
)

// Extractor returns the string form of one user attribute. Time-valued
// attributes serialize to RFC 3339 in UTC so the representation is stable
// across hosts and timezones.
type Extractor func(u *domain.User) string

// extractors maps configurable property names to their extractors. Names
// may be dotted; a dotted name is just a registry key, there is no runtime
// reflection walking the struct.
var extractors = map[string]Extractor{
	"id":           func(u *domain.User) string { return u.ID },
	"email":        func(u *domain.User) string { return u.Email },
	"passwordHash": func(u *domain.User) string { return u.PasswordHash },
	"lastAuthenticatedAt": func(u *domain.User) string {
		if u.LastAuthenticatedAt == nil {
			return ""
		}
		return u.LastAuthenticatedAt.UTC().Format(time.RFC3339)
	},
	"meta.createdAt": func(u *domain.User) string { return u.CreatedAt.UTC().Format(time.RFC3339) },
	"meta.updatedAt": func(u *domain.User) string { return u.UpdatedAt.UTC().Format(time.RFC3339) },
}

// Resolver resolves a configured, ordered list of property names against a
// user. The order is fixed at construction and must match between signing
// and verification, so it is validated once here instead of on every link.
type Resolver struct {
	names []string
	funcs []Extractor
}

// NewResolver validates the configured names against the registry. An
// unknown name is a configuration error and fails fast.
func NewResolver(names []string) (*Resolver, error) {
	r := &Resolver{
		names: make([]string, 0, len(names)),
		funcs: make([]Extractor, 0, len(names)),
	}
	for _, name := range names {
		ex, ok := extractors[name]
		if !ok {
			return nil, fmt.Errorf("unknown signature property %q (known: %s)", name, knownNames())
		}
		r.names = append(r.names, name)
		r.funcs = append(r.funcs, ex)
	}
	return r, nil
}

// Resolve returns the property values for u in configured order.
func (r *Resolver) Resolve(u *domain.User) []string {
	values := make([]string, len(r.funcs))
	for i, ex := range r.funcs {
		values[i] = ex(u)
	}
	return values
}

// Names returns the configured property names in order.
func (r *Resolver) Names() []string {
	return r.names
}

func knownNames() string {
	names := make([]string, 0, len(extractors))
	for name := range extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
