package onboarding

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voltlink/voltlink-go/pkg/audit"
	"github.com/voltlink/voltlink-go/pkg/charger"
	"github.com/voltlink/voltlink-go/pkg/discovery"
	"github.com/voltlink/voltlink-go/pkg/registry"
)

// Config configures a Flow.
type Config struct {
	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Audit receives lifecycle events for the attempt.
	// If nil, auditing is disabled.
	Audit audit.Trail
}

// Flow is one onboarding attempt. It is created per session, advances only
// in response to Start/Submit/Abandon, and is discarded once it reaches a
// terminal state. A flow holds at most one outstanding network call;
// independent flows share only the registry.
type Flow struct {
	id     string
	auth   Authenticator
	store  registry.Store
	logger *slog.Logger
	trail  audit.Trail

	mu        sync.Mutex
	state     State
	step      Step
	candidate discovery.Candidate
	code      ErrorCode
	reason    AbortReason
	record    *registry.Record
	abandoned bool
}

// NewFlow creates a flow over the given device client and registration
// store.
func NewFlow(auth Authenticator, store registry.Store, config Config) *Flow {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	trail := config.Audit
	if trail == nil {
		trail = audit.NoopTrail{}
	}

	return &Flow{
		id:     uuid.NewString(),
		auth:   auth,
		store:  store,
		logger: logger,
		trail:  trail,
		state:  StateStart,
		step:   StepUser,
	}
}

// ID returns the attempt identifier.
func (f *Flow) ID() string {
	return f.id
}

// Start initializes the flow. A discovered candidate with a host selects
// the zeroconf_confirm step (host pre-filled, only the password is
// requested); nil or a host-less candidate selects the manual user step.
func (f *Flow) Start(candidate *discovery.Candidate) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateStart {
		return f.snapshot(), ErrAlreadyStarted
	}

	if candidate != nil {
		f.candidate = *candidate
	}
	if candidate != nil && candidate.Host != "" && candidate.Source == discovery.SourceDiscovered {
		f.step = StepZeroconfConfirm
	} else {
		f.step = StepUser
	}

	f.state = StateAwaitingInput
	f.logger.Debug("flow started", "step", string(f.step))
	f.emit(audit.Event{Kind: audit.KindStarted, Host: f.candidate.Host})
	return f.snapshot(), nil
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns a snapshot of the flow.
func (f *Flow) Result() Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot()
}

// Submit drives one pass through the machine with the user's input:
// authenticate, validate the identity, check for duplicates and commit.
// Recoverable failures return the flow to AwaitingInput with an error code
// set; terminal failures leave it Aborted with a reason. The returned
// error reports flow misuse only - device and registry outcomes are
// reported through the Result tokens.
func (f *Flow) Submit(ctx context.Context, input Input) (Result, error) {
	f.mu.Lock()
	if f.state.Terminal() {
		res := f.snapshot()
		f.mu.Unlock()
		return res, ErrFlowTerminal
	}
	if f.state != StateAwaitingInput {
		res := f.snapshot()
		f.mu.Unlock()
		return res, ErrNotAwaitingInput
	}

	candidate := f.inputCandidate(input)
	if candidate.Host == "" || input.Password == "" {
		// Never enter Authenticating on incomplete input.
		res := f.snapshot()
		f.mu.Unlock()
		return res, ErrIncompleteInput
	}

	f.state = StateAuthenticating
	f.code = CodeNone
	f.mu.Unlock()

	credential := charger.NewCredential(input.Password)
	defer credential.Clear()

	f.logger.Debug("authenticating", "host", candidate.Host)
	identity, err := f.auth.Authenticate(ctx, candidate, credential)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.abandoned {
		return f.snapshot(), ErrFlowTerminal
	}

	if err != nil {
		f.state = StateAwaitingInput
		f.code = classify(err)
		f.logger.Debug("authentication failed", "code", string(f.code))
		f.emit(audit.Event{Kind: audit.KindAuthFailed, Host: candidate.Host, ErrorCode: string(f.code)})
		return f.snapshot(), nil
	}

	f.state = StateValidating

	if identity.SerialNumber == "" {
		// Unrecoverable within this attempt: resubmitting the same input
		// cannot produce a serial number.
		f.abort(ReasonNoSerialNumber)
		f.emit(audit.Event{Kind: audit.KindAborted, Host: candidate.Host, AbortReason: string(f.reason)})
		return f.snapshot(), nil
	}

	exists, err := f.store.Exists(identity.SerialNumber)
	if err != nil {
		f.abortUnknown("duplicate check failed", err)
		f.emit(audit.Event{Kind: audit.KindAborted, Host: candidate.Host, SerialNumber: identity.SerialNumber, ErrorCode: string(f.code)})
		return f.snapshot(), nil
	}
	if exists {
		f.abort(ReasonAlreadyConfigured)
		f.emit(audit.Event{Kind: audit.KindAborted, Host: candidate.Host, SerialNumber: identity.SerialNumber, AbortReason: string(f.reason)})
		return f.snapshot(), nil
	}

	f.state = StateCommitting

	credRef, err := registry.NewCredentialRef(input.Password, identity.SerialNumber)
	if err != nil {
		f.abortUnknown("credential reference derivation failed", err)
		f.emit(audit.Event{Kind: audit.KindAborted, Host: candidate.Host, SerialNumber: identity.SerialNumber, ErrorCode: string(f.code)})
		return f.snapshot(), nil
	}

	record := registry.Record{
		SerialNumber:  identity.SerialNumber,
		Host:          candidate.Host,
		Port:          candidate.Port,
		Capabilities:  identity.Capabilities,
		CredentialRef: credRef,
		AddedAt:       time.Now(),
	}

	switch err := f.store.Put(record); {
	case errors.Is(err, registry.ErrDuplicate):
		// Lost the commit race to a concurrent attempt.
		f.abort(ReasonAlreadyConfigured)
		f.emit(audit.Event{Kind: audit.KindAborted, Host: candidate.Host, SerialNumber: identity.SerialNumber, AbortReason: string(f.reason)})
	case err != nil:
		f.abortUnknown("registry write failed", err)
		f.emit(audit.Event{Kind: audit.KindAborted, Host: candidate.Host, SerialNumber: identity.SerialNumber, ErrorCode: string(f.code)})
	default:
		f.state = StateCompleted
		f.record = &record
		f.logger.Info("charger onboarded", "serial", record.SerialNumber, "host", record.Host)
		f.emit(audit.Event{Kind: audit.KindCompleted, Host: record.Host, SerialNumber: record.SerialNumber})
	}

	return f.snapshot(), nil
}

// Abandon ends the attempt from any non-terminal state. Commit is the only
// mutating step and it is atomic, so abandonment leaves no durable state.
func (f *Flow) Abandon() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state.Terminal() {
		return
	}

	f.abandoned = true
	f.state = StateAborted
	f.logger.Debug("flow abandoned")
	f.emit(audit.Event{Kind: audit.KindAbandoned})
}

// emit records an audit event stamped with the attempt identity.
// Called with f.mu held.
func (f *Flow) emit(event audit.Event) {
	event.Timestamp = time.Now()
	event.AttemptID = f.id
	event.Step = string(f.step)
	f.trail.Record(event)
}

// inputCandidate resolves the candidate for this submission. On the
// confirm step the discovered candidate supplies host and port; the manual
// step takes them from the input, falling back to a pre-filled candidate.
// Called with f.mu held.
func (f *Flow) inputCandidate(input Input) discovery.Candidate {
	if f.step == StepZeroconfConfirm {
		return f.candidate
	}
	if input.Host == "" && f.candidate.Host != "" {
		return f.candidate
	}
	return discovery.Manual(input.Host, input.Port)
}

// abort moves to the terminal Aborted state with a reason token.
// Called with f.mu held.
func (f *Flow) abort(reason AbortReason) {
	f.state = StateAborted
	f.reason = reason
	f.logger.Debug("flow aborted", "reason", string(reason))
}

// abortUnknown moves to Aborted carrying the unknown error code, used for
// registry faults during validation or commit.
// Called with f.mu held.
func (f *Flow) abortUnknown(msg string, err error) {
	f.state = StateAborted
	f.code = CodeUnknown
	f.logger.Warn(msg, "error", err)
}

// snapshot builds a Result from the current state.
// Called with f.mu held.
func (f *Flow) snapshot() Result {
	res := Result{
		State:       f.state,
		Step:        f.step,
		ErrorCode:   f.code,
		AbortReason: f.reason,
		Record:      f.record,
	}
	if f.state == StateAwaitingInput {
		res.Fields = RequiredFields(f.step)
	}
	return res
}

// classify resolves a device-client error into an opaque error code. No
// raw transport detail crosses the presentation boundary.
func classify(err error) ErrorCode {
	switch {
	case errors.Is(err, charger.ErrConnectivity):
		return CodeCannotConnect
	case errors.Is(err, charger.ErrAuth):
		return CodeInvalidAuth
	default:
		return CodeUnknown
	}
}
