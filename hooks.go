package metacache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// The metadata record for a Set could not be written; the data write
	// still proceeds, so LastModified/Timeout may be stale or 0.
	MetadataWriteFailed(storageKey string, err error)

	// The registry append for a Set failed; RemovePattern will not see the key.
	RegistryAppendFailed(storageKey string, err error)

	// Replace found no entry (or failed) and Set created it instead.
	ReplaceMissed(storageKey string)

	// Provider returned ok=false on Set (backpressure/eviction).
	ProviderSetRejected(storageKey string)

	// A stored payload could not be decoded and was reported as a miss.
	DecodeFailed(storageKey string, err error)

	// RemovePattern finished. scanned counts distinct registry keys.
	PatternRemoved(pattern string, scanned, removed int)

	// Clean(CleanAll) flushed the backend. prefix is the caller's prefix,
	// not the scope of the flush.
	Flushed(prefix string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) MetadataWriteFailed(string, error)  {}
func (NopHooks) RegistryAppendFailed(string, error) {}
func (NopHooks) ReplaceMissed(string)               {}
func (NopHooks) ProviderSetRejected(string)         {}
func (NopHooks) DecodeFailed(string, error)         {}
func (NopHooks) PatternRemoved(string, int, int)    {}
func (NopHooks) Flushed(string)                     {}
