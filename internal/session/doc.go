// Package session implements the session stores behind the session strategies.
//
// Stores compose rather than inherit:
//
//	MemoryStore                       process-local map, guarded by a RWMutex
//	PersistentStore                   durable records via a ports.SessionRepository
//	ExpiringStore{Inner: <any store>} rejects sessions older than a fixed lifetime
//
// Lookups that find nothing (unknown, expired, malformed IDs) return sentinel errors
// that IsAbsent reports as absence. Anything else is a backing-store fault.
package session
