// Package cache implements the query cache and lock manager.
//
// A Manager maps session IDs to cache entries. Each entry holds the canonical
// query definition, the execution tracker and, once ready, the result.
//
// All decisions about an entry (is it cached, is it running, who starts it)
// are taken under one mutex scoped to the whole cache. The mutex only guards
// in-memory metadata; the backend call of a started execution happens after
// Begin returns.
//
// # Eviction
//
// Entries idle longer than the TTL are removed lazily, on the next access of
// the cache. A capacity bound and the memory budget of the resource
// controller evict least recently used entries. Executions that are still
// running are never evicted; their idle clock starts once they finish.
package cache
