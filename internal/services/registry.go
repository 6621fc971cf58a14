package services

import (
	"fmt"
	"sort"

	"github.com/desertthunder/anisync/internal/shared"
)

// CatalogFactory builds a catalog client for an access token.
type CatalogFactory func(token string) Catalog

// CatalogRegistry maps media server usernames to catalog clients, with an optional fallback for everyone else.
type CatalogRegistry struct {
	users    map[string]Catalog
	fallback Catalog
}

// NewCatalogRegistry builds one client per configured user token, plus a fallback for globalToken when set.
func NewCatalogRegistry(userTokens map[string]string, globalToken string, factory CatalogFactory) *CatalogRegistry {
	r := &CatalogRegistry{users: make(map[string]Catalog, len(userTokens))}
	for user, token := range userTokens {
		if token == "" {
			continue
		}
		r.users[user] = factory(token)
	}
	if globalToken != "" {
		r.fallback = factory(globalToken)
	}
	return r
}

// Register sets the client used for username.
func (r *CatalogRegistry) Register(username string, catalog Catalog) {
	r.users[username] = catalog
}

// For returns the client for username, or the fallback.
func (r *CatalogRegistry) For(username string) (Catalog, error) {
	if c, ok := r.users[username]; ok {
		return c, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrUnknownUser, username)
}

// Users lists usernames with their own token, sorted.
func (r *CatalogRegistry) Users() []string {
	users := make([]string, 0, len(r.users))
	for u := range r.users {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// HasFallback reports whether unknown users are served by the global token.
func (r *CatalogRegistry) HasFallback() bool {
	return r.fallback != nil
}
