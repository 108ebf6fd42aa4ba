// Package registry maps selectors to handler registrations and resolves
// event keys to the registrations whose selector matches.
//
// # Lookup tiers
//
// Exact selectors are indexed by their key. A lookup whose key has an
// exact bucket is answered from that bucket alone; pattern registrations
// are not consulted and the pattern cache is left untouched.
//
// Every other key is resolved against the pattern cache. On a miss the
// registry scans all registrations in insertion order and caches the
// result when at least one registration matched. Misses are not cached.
//
// # Invalidation
//
// Adding or removing a pattern registration sets a single stale flag. The
// next pattern lookup drops the whole cache before proceeding, so a write
// costs one flag store and the cache never returns a result computed
// before the write.
//
// # Locking
//
// One sync.RWMutex guards the registration list, the exact index and the
// cache. Lookups run under the read lock and escalate to the write lock
// only to reset or populate the cache, re-checking the reason for the
// escalation once the write lock is held.
//
//	reg := registry.New[Handler]()
//	r, _ := reg.Register(selector.MustExact("order.created"), h)
//	matches, _ := reg.Select("order.created")
//	r.Cancel()
package registry
