// Package audit provides a machine-readable trail of onboarding attempts.
//
// Every onboarding attempt emits lifecycle events: started, authentication
// outcomes, completion or abort. Events are separate from operational
// logging (slog) - the trail is a complete record of who tried to pair what,
// when, and how it ended, suitable for later analysis.
//
// # Basic Usage
//
// Applications configure auditing by providing a Trail implementation:
//
//	// For development: log to console via slog
//	cfg.Audit = audit.NewSlogTrail(slog.Default())
//
//	// For production: write to binary file
//	cfg.Audit, _ = audit.NewFileTrail("/var/log/voltlink/onboarding.vlog")
//
//	// Both: use MultiTrail
//	cfg.Audit = audit.NewMultiTrail(
//	    audit.NewSlogTrail(slog.Default()),
//	    fileTrail,
//	)
//
// # File Format
//
// Trail files use CBOR encoding with .vlog extension. Reader streams them
// back with optional filtering.
package audit
