// Package metacache implements a namespaced cache over a primitive
// get/set/replace/delete store (memcached by default) and adds what the store
// does not offer: per-key modification metadata and glob-style bulk removal.
//
// Components:
//   - Provider: byte store with TTL (memcached, Redis, Ristretto, BigCache).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Registry: append-only list of written keys, enabling RemovePattern.
//     Stored in the backend by default, optional Redis list.
//
// Keys, for prefix P:
//
//	P<key>             - data entries
//	P_metadata:<key>   - metadata record {lastModified, timeout}, same TTL as data
//	P_metadata         - key registry (only with StoreCacheInfo), no TTL
//
// Consistency is best-effort. Set issues separate backend calls for the
// metadata record, the registry append and the data entry; a failure or crash
// in between leaves them out of step. The backend-stored registry is a
// read-modify-write and concurrent writers can drop each other's entries.
// Clean(CleanAll) flushes the whole backend, every prefix included.
//
// Usage:
//
//	p, _ := memcached.New(memcached.Config{Servers: []memcached.Server{{Host: "10.0.0.5"}}})
//	cache, _ := metacache.New[User](metacache.Options[User]{
//	    Prefix:         "app:user:",
//	    Provider:       p,
//	    Codec:          codec.JSON[User]{},
//	    StoreCacheInfo: true,
//	})
//	_, _ = cache.Set(ctx, "42", u, time.Hour)
//	_, _ = cache.RemovePattern(ctx, "4*")
package metacache
