package charger

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
)

// SimulatorConfig configures a charger simulator.
type SimulatorConfig struct {
	// ListenAddress is the address to listen on (default "127.0.0.1:0").
	ListenAddress string

	// Password is the charger's login password.
	Password string

	// Serial is the serial number reported after a successful login.
	// An empty serial is allowed: it simulates firmware that authenticates
	// but reports no usable identity.
	Serial string

	// Capabilities are the capability flags reported after login.
	Capabilities []string

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger
}

// Simulator is a minimal VoltLink charger endpoint: it accepts login
// connections and answers with the configured identity. Used by the
// simulator binary and by end-to-end tests; it implements only the login
// exchange, not the charging protocol.
type Simulator struct {
	config SimulatorConfig
	logger *slog.Logger

	mu sync.Mutex
	ln net.Listener
	wg sync.WaitGroup
}

// NewSimulator creates a charger simulator.
func NewSimulator(config SimulatorConfig) *Simulator {
	if config.ListenAddress == "" {
		config.ListenAddress = "127.0.0.1:0"
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Simulator{config: config, logger: logger}
}

// Start begins accepting login connections.
func (s *Simulator) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln != nil {
		return errors.New("simulator already started")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		return fmt.Errorf("simulator listen: %w", err)
	}
	s.ln = ln

	s.wg.Add(1)
	go s.acceptLoop(ln)

	s.logger.Info("charger simulator listening", "address", ln.Addr().String(), "serial", s.config.Serial)
	return nil
}

// Host returns the listening host.
func (s *Simulator) Host() string {
	host, _, _ := net.SplitHostPort(s.addr())
	return host
}

// Port returns the listening port.
func (s *Simulator) Port() uint16 {
	_, portStr, _ := net.SplitHostPort(s.addr())
	port, _ := strconv.ParseUint(portStr, 10, 16)
	return uint16(port)
}

func (s *Simulator) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// Stop closes the listener and waits for in-flight connections.
func (s *Simulator) Stop() {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()

	if ln != nil {
		ln.Close()
	}
	s.wg.Wait()
}

func (s *Simulator) acceptLoop(ln net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn serves exactly one login exchange, then closes.
func (s *Simulator) handleConn(conn net.Conn) {
	defer conn.Close()

	msg, err := readMessage(conn)
	if err != nil {
		s.logger.Debug("simulator dropped connection", "error", err)
		return
	}

	req, ok := msg.(*LoginRequest)
	if !ok {
		writeMessage(conn, &LoginReject{
			MsgType: MsgLoginReject,
			Code:    RejectInternal,
			Message: "expected login request",
		})
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(s.config.Password)) != 1 {
		s.logger.Debug("simulator rejected login")
		writeMessage(conn, &LoginReject{
			MsgType: MsgLoginReject,
			Code:    RejectInvalidAuth,
			Message: "invalid password",
		})
		return
	}

	s.logger.Debug("simulator accepted login", "serial", s.config.Serial)
	writeMessage(conn, &LoginSuccess{
		MsgType:      MsgLoginSuccess,
		Serial:       s.config.Serial,
		Capabilities: s.config.Capabilities,
	})
}
