// Package onboarding implements the charger onboarding state machine: the
// path from a user's "add this charger" intent to a committed,
// de-duplicated registration.
//
// # Flow
//
// One Flow is one onboarding session:
//
//	Start -> AwaitingInput -> Authenticating -> Validating -> Committing -> Completed
//
// with Aborted reachable from every non-terminal state. A flow started from
// a discovered candidate presents the zeroconf_confirm step (host
// pre-filled, only the password is requested); the manual path presents the
// user step (host and password together).
//
// Connectivity and authentication failures loop back to AwaitingInput with
// an error code - they are typically transient or a typo, so the user
// resubmits. A missing serial number or an existing registration aborts the
// attempt: no amount of resubmission changes either, the user must act
// outside the flow.
//
// # Presentation boundary
//
// The flow emits opaque tokens only: step identifiers (user,
// zeroconf_confirm), error codes (cannot_connect, invalid_auth, unknown)
// and abort reasons (already_configured, no_serial_number). Translation to
// human-readable text is entirely the presentation layer's job.
//
// # Concurrency
//
// A flow advances only in response to its caller; it holds at most one
// outstanding network call. Independent flows share nothing but the
// registry, whose Put provides the per-serial critical section: two
// concurrent attempts resolving to the same serial number cannot both
// commit.
package onboarding
