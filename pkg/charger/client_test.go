package charger_test

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/voltlink/voltlink-go/pkg/charger"
	"github.com/voltlink/voltlink-go/pkg/discovery"
)

// startSimulator runs a charger simulator for the duration of the test.
func startSimulator(t *testing.T, cfg charger.SimulatorConfig) *charger.Simulator {
	t.Helper()
	sim := charger.NewSimulator(cfg)
	if err := sim.Start(); err != nil {
		t.Fatalf("simulator start failed: %v", err)
	}
	t.Cleanup(sim.Stop)
	return sim
}

func TestAuthenticateSuccess(t *testing.T) {
	sim := startSimulator(t, charger.SimulatorConfig{
		Password:     "correct",
		Serial:       "PBL123",
		Capabilities: []string{"charging", "metering"},
	})

	client := charger.NewClient(charger.Config{ConnectTimeout: 2 * time.Second})
	cred := charger.NewCredential("correct")
	defer cred.Clear()

	identity, err := client.Authenticate(context.Background(),
		discovery.Manual(sim.Host(), sim.Port()), cred)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if identity.SerialNumber != "PBL123" {
		t.Errorf("serial = %q, want %q", identity.SerialNumber, "PBL123")
	}
	if len(identity.Capabilities) != 2 {
		t.Errorf("capabilities = %v", identity.Capabilities)
	}
}

func TestAuthenticateRejected(t *testing.T) {
	sim := startSimulator(t, charger.SimulatorConfig{
		Password: "correct",
		Serial:   "PBL123",
	})

	client := charger.NewClient(charger.Config{ConnectTimeout: 2 * time.Second})
	cred := charger.NewCredential("wrong")
	defer cred.Clear()

	_, err := client.Authenticate(context.Background(),
		discovery.Manual(sim.Host(), sim.Port()), cred)
	if !errors.Is(err, charger.ErrAuth) {
		t.Errorf("error = %v, want ErrAuth", err)
	}
}

func TestAuthenticateConnectionRefused(t *testing.T) {
	// Reserve a port, then close it so the dial is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close()

	client := charger.NewClient(charger.Config{ConnectTimeout: 2 * time.Second})
	cred := charger.NewCredential("any")
	defer cred.Clear()

	_, err = client.Authenticate(context.Background(),
		discovery.Manual(addr.IP.String(), uint16(addr.Port)), cred)
	if !errors.Is(err, charger.ErrConnectivity) {
		t.Errorf("error = %v, want ErrConnectivity", err)
	}
}

// TestAuthenticateMalformedResponse verifies that a response that cannot be
// parsed surfaces as ErrMalformed, not as auth or connectivity.
func TestAuthenticateMalformedResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Drain the request frame, then answer with framed garbage.
		length := make([]byte, 4)
		if _, err := conn.Read(length); err != nil {
			return
		}
		body := make([]byte, binary.BigEndian.Uint32(length))
		conn.Read(body)

		garbage := []byte{0xff, 0x00, 0x13}
		binary.BigEndian.PutUint32(length, uint32(len(garbage)))
		conn.Write(length)
		conn.Write(garbage)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	client := charger.NewClient(charger.Config{ConnectTimeout: 2 * time.Second})
	cred := charger.NewCredential("any")
	defer cred.Clear()

	_, err = client.Authenticate(context.Background(),
		discovery.Manual(addr.IP.String(), uint16(addr.Port)), cred)
	if !errors.Is(err, charger.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

// TestAuthenticateEmptySerial verifies that the client passes through an
// empty serial number untouched - judging it is the onboarding flow's job.
func TestAuthenticateEmptySerial(t *testing.T) {
	sim := startSimulator(t, charger.SimulatorConfig{
		Password: "correct",
		Serial:   "",
	})

	client := charger.NewClient(charger.Config{ConnectTimeout: 2 * time.Second})
	cred := charger.NewCredential("correct")
	defer cred.Clear()

	identity, err := client.Authenticate(context.Background(),
		discovery.Manual(sim.Host(), sim.Port()), cred)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if identity.SerialNumber != "" {
		t.Errorf("serial = %q, want empty", identity.SerialNumber)
	}
}

func TestAuthenticateInputValidation(t *testing.T) {
	client := charger.NewClient(charger.Config{})

	cred := charger.NewCredential("secret")
	defer cred.Clear()

	if _, err := client.Authenticate(context.Background(), discovery.Manual("", 0), cred); !errors.Is(err, charger.ErrMissingHost) {
		t.Errorf("empty host: error = %v, want ErrMissingHost", err)
	}

	empty := charger.NewCredential("")
	if _, err := client.Authenticate(context.Background(), discovery.Manual("10.0.0.1", 0), empty); !errors.Is(err, charger.ErrMissingCredential) {
		t.Errorf("empty credential: error = %v, want ErrMissingCredential", err)
	}
}

func TestCredentialClear(t *testing.T) {
	cred := charger.NewCredential("secret")
	if cred.Empty() {
		t.Fatal("fresh credential reports empty")
	}

	cred.Clear()
	if !cred.Empty() {
		t.Error("cleared credential reports non-empty")
	}

	// Clearing twice is harmless, as is clearing a nil credential.
	cred.Clear()
	var nilCred *charger.Credential
	nilCred.Clear()
	if !nilCred.Empty() {
		t.Error("nil credential should report empty")
	}
}
