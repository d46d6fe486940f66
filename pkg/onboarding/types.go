package onboarding

import (
	"context"
	"errors"

	"github.com/voltlink/voltlink-go/pkg/charger"
	"github.com/voltlink/voltlink-go/pkg/discovery"
	"github.com/voltlink/voltlink-go/pkg/registry"
)

// Flow errors. These indicate misuse of the flow by the caller, not
// device or registry behavior - those resolve into error codes and abort
// reasons instead.
var (
	ErrFlowTerminal     = errors.New("flow already reached a terminal state")
	ErrNotAwaitingInput = errors.New("flow is not awaiting input")
	ErrAlreadyStarted   = errors.New("flow already started")
	ErrIncompleteInput  = errors.New("required input fields missing")
)

// State is the onboarding state machine state.
type State uint8

const (
	// StateStart - flow created but not started.
	StateStart State = iota

	// StateAwaitingInput - waiting for the user to supply input.
	StateAwaitingInput

	// StateAuthenticating - a login call to the charger is outstanding.
	StateAuthenticating

	// StateValidating - checking the returned identity and duplicates.
	StateValidating

	// StateCommitting - writing the registration record.
	StateCommitting

	// StateCompleted - terminal: registration committed.
	StateCompleted

	// StateAborted - terminal: attempt ended without a registration.
	StateAborted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStart:
		return "START"
	case StateAwaitingInput:
		return "AWAITING_INPUT"
	case StateAuthenticating:
		return "AUTHENTICATING"
	case StateValidating:
		return "VALIDATING"
	case StateCommitting:
		return "COMMITTING"
	case StateCompleted:
		return "COMPLETED"
	case StateAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether no further transitions occur from this state.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAborted
}

// Step identifies the input step presented to the user. Opaque token;
// the presentation layer owns translation.
type Step string

const (
	// StepUser - manual entry: host and password are requested together.
	StepUser Step = "user"

	// StepZeroconfConfirm - discovered candidate: the host is pre-filled
	// and only the password is requested.
	StepZeroconfConfirm Step = "zeroconf_confirm"
)

// Field names an input field a step requires.
type Field string

const (
	FieldHost     Field = "host"
	FieldPassword Field = "password"
)

// RequiredFields returns the input fields a step requires.
func RequiredFields(step Step) []Field {
	switch step {
	case StepZeroconfConfirm:
		return []Field{FieldPassword}
	default:
		return []Field{FieldHost, FieldPassword}
	}
}

// ErrorCode is a recoverable-failure token attached when the flow returns
// to AwaitingInput.
type ErrorCode string

const (
	// CodeNone - no error.
	CodeNone ErrorCode = ""

	// CodeCannotConnect - the charger was unreachable.
	CodeCannotConnect ErrorCode = "cannot_connect"

	// CodeInvalidAuth - the charger rejected the password.
	CodeInvalidAuth ErrorCode = "invalid_auth"

	// CodeUnknown - any other failure.
	CodeUnknown ErrorCode = "unknown"
)

// AbortReason is a terminal-failure token attached when the flow aborts.
type AbortReason string

const (
	// ReasonNone - not aborted, or abandoned by the user.
	ReasonNone AbortReason = ""

	// ReasonAlreadyConfigured - the identity is already registered.
	ReasonAlreadyConfigured AbortReason = "already_configured"

	// ReasonNoSerialNumber - the device supplied no usable identity.
	ReasonNoSerialNumber AbortReason = "no_serial_number"
)

// Input is one user submission: the fields for the current step.
// Host and Port are ignored on the zeroconf_confirm step, where the
// candidate supplies them.
type Input struct {
	Host     string
	Port     uint16
	Password string
}

// Result is a snapshot of the flow after an operation: the current state
// and step, the error code or abort reason as opaque tokens, and the
// committed record once the flow completes.
type Result struct {
	State       State
	Step        Step
	Fields      []Field
	ErrorCode   ErrorCode
	AbortReason AbortReason
	Record      *registry.Record
}

// Authenticator is the device-client surface the flow consumes.
// It is satisfied by *charger.Client.
type Authenticator interface {
	Authenticate(ctx context.Context, candidate discovery.Candidate, credential *charger.Credential) (*charger.Identity, error)
}

// Compile-time check: *charger.Client implements Authenticator.
var _ Authenticator = (*charger.Client)(nil)
