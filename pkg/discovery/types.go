package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceType is the DNS-SD service type advertised by VoltLink chargers.
	ServiceType = "_voltlink._tcp"

	// Domain is the mDNS domain.
	Domain = "local"
)

// TXT record key constants.
const (
	TXTKeySerial     = "serial" // Serial number (advisory)
	TXTKeyBrand      = "brand"  // Vendor/brand name
	TXTKeyModel      = "model"  // Model name
	TXTKeyFirmware   = "fw"     // Firmware version (optional)
	TXTKeyDeviceName = "DN"     // User-assigned name (optional)
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for bounded browse operations.
	BrowseTimeout = 10 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrNotFound            = errors.New("service not found")
	ErrInstanceNameInvalid = errors.New("invalid mDNS instance name")
)

// Source indicates how a candidate was produced.
type Source uint8

const (
	// SourceManual - the user typed an address.
	SourceManual Source = iota

	// SourceDiscovered - the candidate came from an mDNS advertisement.
	SourceDiscovered
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceManual:
		return "manual"
	case SourceDiscovered:
		return "discovered"
	default:
		return "unknown"
	}
}

// Candidate is a network address identified as a possible charger, either
// typed by the user or surfaced by mDNS browsing. A candidate is immutable
// once created and is consumed by exactly one onboarding attempt.
type Candidate struct {
	// Host is the hostname or IP address of the charger.
	Host string

	// Port is the advertised service port. Zero means unknown; consumers
	// fall back to the well-known charger port.
	Port uint16

	// Name is the advertised instance name (empty for manual candidates).
	Name string

	// Addresses are the resolved addresses from all interfaces.
	Addresses []string

	// Source indicates how this candidate was produced.
	Source Source

	// Info carries decoded TXT metadata for discovered candidates.
	// Advisory only - never used as device identity.
	Info *Advertisement
}

// Manual creates a candidate from user-typed input. Port zero means
// "use the well-known port".
func Manual(host string, port uint16) Candidate {
	return Candidate{
		Host:   host,
		Port:   port,
		Source: SourceManual,
	}
}

// Addr returns the candidate's dial address, substituting defaultPort
// when the candidate does not carry one.
func (c Candidate) Addr(defaultPort uint16) string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}
	return net.JoinHostPort(c.Host, strconv.FormatUint(uint64(port), 10))
}

// Advertisement is the advisory metadata a charger publishes in TXT records.
type Advertisement struct {
	// Serial is the advertised serial number.
	Serial string

	// Brand is the vendor/brand name.
	Brand string

	// Model is the model name.
	Model string

	// Firmware is the firmware version.
	Firmware string

	// DeviceName is an optional user-assigned name.
	DeviceName string
}

// FilterFunc is a function that filters browse results.
type FilterFunc func(Candidate) bool

// FilterByBrand returns a filter that matches candidates advertising the
// given brand. Candidates without TXT metadata never match.
func FilterByBrand(brand string) FilterFunc {
	return func(c Candidate) bool {
		return c.Info != nil && c.Info.Brand == brand
	}
}

// FilterBySerial returns a filter that matches candidates advertising the
// given serial number.
func FilterBySerial(serial string) FilterFunc {
	return func(c Candidate) bool {
		return c.Info != nil && c.Info.Serial == serial
	}
}

// FilterResults filters a channel of candidates.
func FilterResults(in <-chan Candidate, filter FilterFunc) <-chan Candidate {
	out := make(chan Candidate)
	go func() {
		defer close(out)
		for c := range in {
			if filter(c) {
				out <- c
			}
		}
	}()
	return out
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" || len(name) > MaxInstanceNameLen {
		return ErrInstanceNameInvalid
	}
	return nil
}
