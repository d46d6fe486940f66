// Package charger implements the hub-side login client for VoltLink
// chargers.
//
// # Wire Protocol
//
// A charger listens on TCP port 8743 and speaks length-prefixed CBOR
// messages (4-byte big-endian length, then the CBOR body). The hub opens a
// connection, sends a LoginRequest carrying the user-supplied password, and
// the charger answers with either LoginSuccess - the device's serial number
// and capability flags - or LoginReject. The connection is then closed;
// onboarding needs exactly one round trip.
//
// # Failure Classification
//
// Callers need to distinguish "could not reach the device" from "the device
// said no". Authenticate reports these as distinct sentinel errors:
//
//   - ErrConnectivity: dial failure, timeout, DNS failure, connection reset
//   - ErrAuth: the charger rejected the password
//   - ErrMalformed: the response could not be parsed into a usable identity
//
// The client holds no state: the credential is transmitted once and never
// cached, and nothing is persisted.
package charger
