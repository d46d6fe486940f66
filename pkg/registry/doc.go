// Package registry stores completed charger registrations, keyed by serial
// number.
//
// The onboarding flow consumes the registry through a two-method surface
// (Exists, Put). Put is the per-serial critical section: when two
// onboarding attempts race on the same serial number, exactly one Put
// succeeds and the loser gets ErrDuplicate. Records hold an opaque
// credential reference, never the raw password.
//
// Two implementations ship here: MemoryRegistry for tests and
// single-process hubs, and FileRegistry for durable JSON-file storage.
package registry
