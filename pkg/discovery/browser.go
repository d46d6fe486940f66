package discovery

import (
	"context"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// Browser provides mDNS browsing for VoltLink chargers.
type Browser interface {
	// Browse produces candidates for chargers advertising on the local
	// network. The stream is unbounded: it stays open until the context is
	// cancelled, and a candidate is re-emitted if it disappears and comes
	// back. If the underlying multicast service is unavailable the channel
	// is simply closed without error - discovery degrades to "nothing
	// found" and manual entry remains available.
	Browse(ctx context.Context) (<-chan Candidate, error)

	// FindBySerial searches for a charger advertising the given serial
	// number. Returns when found or when the context expires.
	FindBySerial(ctx context.Context, serial string) (Candidate, error)

	// Stop stops all active browsing operations.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	stopped bool
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	return &MDNSBrowser{config: config}
}

// Browse searches for chargers on the local network. Results are
// aggregated by instance name - addresses from multiple interfaces are
// combined into a single candidate.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan Candidate, error) {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		out := make(chan Candidate)
		close(out)
		return out, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan Candidate)

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	// Process entries with aggregation
	go func() {
		defer close(out)

		// Track candidates by instance name, aggregating addresses
		seen := make(map[string]*Candidate)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				cand := entryToCandidate(entry)
				if cand.Host == "" {
					continue
				}

				existing, found := seen[cand.Name]
				if found {
					existing.Addresses = mergeAddresses(existing.Addresses, cand.Addresses)
					continue
				}

				seen[cand.Name] = &cand
				select {
				case out <- cand:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				// Drop addresses that came from this interface; forget the
				// candidate once none remain so a reappearance is re-emitted.
				if existing, found := seen[entry.Instance]; found {
					existing.Addresses = removeAddresses(existing.Addresses, entry)
					if len(existing.Addresses) == 0 {
						delete(seen, entry.Instance)
					}
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background. A browse failure (no multicast socket,
	// no usable interface) closes the entry channels, which drains the
	// stream above - it is not escalated as an error.
	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// FindBySerial searches for a charger advertising the given serial number.
func (b *MDNSBrowser) FindBySerial(ctx context.Context, serial string) (Candidate, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return Candidate{}, err
	}

	match := FilterBySerial(serial)
	for {
		select {
		case cand, ok := <-results:
			if !ok {
				return Candidate{}, ErrNotFound
			}
			if match(cand) {
				return cand, nil
			}
		case <-ctx.Done():
			return Candidate{}, ctx.Err()
		}
	}
}

// Stop stops all active browsing operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// ServiceEntry is raw mDNS service entry data. It decouples candidate
// conversion from the zeroconf types so Browser implementations and tests
// share one code path.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToCandidate converts a ServiceEntry to a discovered Candidate.
func (e *ServiceEntry) ToCandidate() Candidate {
	txt := StringsToTXTRecords(e.Text)
	info := DecodeAdvertisementTXT(txt)

	host := e.Host
	if host == "" && len(e.Addrs) > 0 {
		host = e.Addrs[0]
	}

	return Candidate{
		Host:      host,
		Port:      e.Port,
		Name:      e.Instance,
		Addresses: e.Addrs,
		Source:    SourceDiscovered,
		Info:      info,
	}
}

// entryToCandidate converts a zeroconf entry to a discovered Candidate.
func entryToCandidate(entry *zeroconf.ServiceEntry) Candidate {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	e := &ServiceEntry{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}
	return e.ToCandidate()
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, extra []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range extra {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses removes addresses from a zeroconf entry from the list.
func removeAddresses(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// Ensure MDNSBrowser implements Browser interface.
var _ Browser = (*MDNSBrowser)(nil)
