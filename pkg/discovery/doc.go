// Package discovery implements mDNS/DNS-SD discovery of VoltLink chargers.
//
// # Charger Discovery (_voltlink._tcp)
//
// Chargers on the local network advertise the _voltlink._tcp service while
// they are reachable. TXT records carry advisory metadata: serial, brand,
// model, fw (firmware version) and optionally DN (user-assigned name).
// TXT contents are a convenience for the picker UI only - the device
// identity used for registration is established by authenticating against
// the charger, never from advertisements.
//
// # Candidates
//
// Discovery produces Candidate values: a host, an advertised port and name,
// tagged with where they came from (discovered vs. manual entry). A browse
// is an unbounded subscription - it yields candidates for as long as the
// context is alive. If mDNS is unavailable the stream is simply empty;
// manual entry remains the fallback path.
package discovery
