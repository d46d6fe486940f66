package charger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/voltlink/voltlink-go/pkg/discovery"
)

// Well-known charger constants.
const (
	// DefaultServicePort is the well-known VoltLink login port.
	DefaultServicePort uint16 = 8743

	// DefaultConnectTimeout bounds the whole authenticate round trip when
	// the caller's context carries no deadline.
	DefaultConnectTimeout = 10 * time.Second

	// MaxMessageSize caps inbound message bodies.
	MaxMessageSize = 65536
)

// Client errors. ErrConnectivity, ErrAuth and ErrMalformed classify the
// three outcomes callers dispatch on; validation errors indicate caller
// bugs, not device behavior.
var (
	ErrConnectivity      = errors.New("charger unreachable")
	ErrAuth              = errors.New("charger rejected credentials")
	ErrMalformed         = errors.New("malformed charger response")
	ErrMissingHost       = errors.New("candidate host is empty")
	ErrMissingCredential = errors.New("credential is empty")
)

// Credential is a user-supplied charger password. It is held in memory for
// the duration of one authentication attempt; Clear zeroizes the backing
// storage and must be called on every exit path.
type Credential struct {
	secret []byte
}

// NewCredential wraps a password for one onboarding attempt.
func NewCredential(password string) *Credential {
	return &Credential{secret: []byte(password)}
}

// Empty reports whether the credential carries no secret.
func (c *Credential) Empty() bool {
	return c == nil || len(c.secret) == 0
}

// Clear zeroizes the secret. The credential is unusable afterwards.
func (c *Credential) Clear() {
	if c == nil {
		return
	}
	for i := range c.secret {
		c.secret[i] = 0
	}
	c.secret = nil
}

// password returns the secret for transmission.
func (c *Credential) password() string {
	if c == nil {
		return ""
	}
	return string(c.secret)
}

// Identity is the stable device identity returned by a successful login.
type Identity struct {
	// SerialNumber uniquely identifies the charger. Non-empty on any
	// well-formed response; callers must treat an empty serial as an
	// unusable identity.
	SerialNumber string

	// Capabilities are the charger's advertised capability flags.
	Capabilities []string
}

// Config configures a charger client.
type Config struct {
	// Port is the charger service port used when a candidate does not
	// carry one (default: 8743).
	Port uint16

	// ConnectTimeout bounds the authenticate round trip (default: 10s).
	ConnectTimeout time.Duration

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// Client performs the one-shot login exchange with a charger.
type Client struct {
	config Config
	logger *slog.Logger
}

// NewClient creates a new charger client.
func NewClient(config Config) *Client {
	if config.Port == 0 {
		config.Port = DefaultServicePort
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = DefaultConnectTimeout
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{config: config, logger: logger}
}

// Authenticate opens a connection to the candidate, submits the credential
// once and returns the charger's identity. The credential is not retained.
//
// Failures are classified: transport problems wrap ErrConnectivity, a
// rejected password wraps ErrAuth, and any response that cannot be parsed
// into a well-formed identity wraps ErrMalformed.
func (c *Client) Authenticate(ctx context.Context, candidate discovery.Candidate, credential *Credential) (*Identity, error) {
	if candidate.Host == "" {
		return nil, ErrMissingHost
	}
	if credential.Empty() {
		return nil, ErrMissingCredential
	}

	// Apply timeout from config if context doesn't have one
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}

	address := candidate.Addr(c.config.Port)
	c.logger.Debug("authenticating against charger", "address", address, "source", candidate.Source.String())

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnectivity, address, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	req := &LoginRequest{
		MsgType:  MsgLoginRequest,
		Password: credential.password(),
	}
	if err := writeMessage(conn, req); err != nil {
		return nil, fmt.Errorf("%w: send login: %v", ErrConnectivity, err)
	}

	msg, err := readMessageWithContext(ctx, conn)
	if err != nil {
		if errors.Is(err, ErrInvalidMessage) {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return nil, fmt.Errorf("%w: read login response: %v", ErrConnectivity, err)
	}

	switch m := msg.(type) {
	case *LoginSuccess:
		c.logger.Debug("charger accepted login", "serial", m.Serial)
		return &Identity{
			SerialNumber: m.Serial,
			Capabilities: m.Capabilities,
		}, nil

	case *LoginReject:
		if m.Code == RejectInvalidAuth {
			return nil, fmt.Errorf("%w: %s", ErrAuth, m.Message)
		}
		return nil, fmt.Errorf("charger refused login: code %d: %s", m.Code, m.Message)

	default:
		return nil, fmt.Errorf("%w: unexpected message type %T", ErrMalformed, msg)
	}
}

// Wire protocol helpers

// writeMessage writes a length-prefixed CBOR message to the connection.
func writeMessage(conn net.Conn, msg interface{}) error {
	data, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	// Write length prefix (4 bytes, big-endian)
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(data)))

	if _, err := conn.Write(length); err != nil {
		return fmt.Errorf("failed to write length: %w", err)
	}

	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("failed to write data: %w", err)
	}

	return nil
}

// readMessage reads a length-prefixed CBOR message from the connection.
func readMessage(conn net.Conn) (interface{}, error) {
	// Read length prefix
	length := make([]byte, 4)
	if _, err := io.ReadFull(conn, length); err != nil {
		return nil, fmt.Errorf("failed to read length: %w", err)
	}

	msgLen := binary.BigEndian.Uint32(length)
	if msgLen > MaxMessageSize {
		return nil, fmt.Errorf("%w: message too large: %d bytes", ErrInvalidMessage, msgLen)
	}

	data := make([]byte, msgLen)
	if _, err := io.ReadFull(conn, data); err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return DecodeMessage(data)
}

// readMessageWithContext reads a message with context cancellation support.
func readMessageWithContext(ctx context.Context, conn net.Conn) (interface{}, error) {
	type result struct {
		msg interface{}
		err error
	}
	resultCh := make(chan result, 1)

	go func() {
		msg, err := readMessage(conn)
		resultCh <- result{msg, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-resultCh:
		return r.msg, r.err
	}
}
