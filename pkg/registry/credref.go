package registry

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

// credRefVersion tags the derivation scheme so it can evolve.
const credRefVersion = "v1"

// credRefInfo binds derived references to this usage.
const credRefInfo = "voltlink-credential-ref"

// credRefLen is the derived key length in bytes.
const credRefLen = 16

// NewCredentialRef derives an opaque credential reference from a charger
// password. The reference lets the hub's secret store verify the stored
// credential later without the registry ever holding the raw secret.
//
// Derivation: HKDF-SHA256(secret=password, salt=random UUID,
// info="voltlink-credential-ref:<serial>"), formatted as
// "v1:<salt-uuid>:<hex>".
func NewCredentialRef(password, serialNumber string) (string, error) {
	salt := uuid.New()

	ref, err := deriveRef(password, serialNumber, salt)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s:%s:%x", credRefVersion, salt.String(), ref), nil
}

// VerifyCredentialRef reports whether a password matches a stored
// credential reference.
func VerifyCredentialRef(ref, password, serialNumber string) bool {
	parts := strings.Split(ref, ":")
	if len(parts) != 3 || parts[0] != credRefVersion {
		return false
	}

	salt, err := uuid.Parse(parts[1])
	if err != nil {
		return false
	}

	got, err := deriveRef(password, serialNumber, salt)
	if err != nil {
		return false
	}

	want := fmt.Sprintf("%x", got)
	return subtle.ConstantTimeCompare([]byte(want), []byte(parts[2])) == 1
}

func deriveRef(password, serialNumber string, salt uuid.UUID) ([]byte, error) {
	kdf := hkdf.New(sha256.New, []byte(password), salt[:], []byte(credRefInfo+":"+serialNumber))
	ref := make([]byte, credRefLen)
	if _, err := io.ReadFull(kdf, ref); err != nil {
		return nil, fmt.Errorf("derive credential ref: %w", err)
	}
	return ref, nil
}
