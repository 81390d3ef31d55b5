package registry

import "context"

// Registry records every physical key a cache wrote so pattern removal can
// enumerate them. Entries are kept in write order and never deduplicated.
// Use Store (default) to keep the list inside the cache backend itself, or
// Redis for an atomic list when the backend is Redis.
type Registry interface {
	// Append records one physical key.
	Append(ctx context.Context, physicalKey string) error
	// Keys returns every recorded key; missing registry => empty.
	Keys(ctx context.Context) ([]string, error)
	// Prune drops every occurrence of the given keys.
	Prune(ctx context.Context, physicalKeys []string) error
}
