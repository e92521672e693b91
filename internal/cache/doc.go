// Package cache holds the normalized in-memory entity graph for one account
// session: account, sites, devices, and vehicles.
//
// Entity state is an open-ended attribute map (attribute name to tagged
// Value) rather than a fixed struct, so new service fields survive without
// code changes. All writes are merge-only and additive: a merge overwrites
// exactly the keys present in the update and leaves every other cached key
// untouched. Merges for the same entity key are serialized, merges for
// different entities may run concurrently, and readers always observe a
// fully merged entity.
//
// Cache lifetime is bound to the process; nothing is persisted and entities
// are never evicted. Callers detect vanished entities by diffing the seen
// sets between refresh cycles.
package cache
