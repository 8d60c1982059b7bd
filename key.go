package meshnode

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// KeySize is the width of mesh NetKey/AppKey material, in bytes (AES-128).
const KeySize = 16

// Key is 128 bits of mesh key material (NetKey or AppKey). Unlike a
// WireGuard key, mesh keys are AES-128 (16 bytes, not 32), so they are
// modeled here rather than reusing a transport-layer key type; the
// String/GenerateKey shape mirrors wgtypes.Key since that is the
// idiom this codebase otherwise uses for fixed-size key material.
type Key [KeySize]byte

// GenerateKey returns a new random key.
func GenerateKey() (Key, error) {
	var k Key
	if _, err := rand.Read(k[:]); err != nil {
		return Key{}, fmt.Errorf("generate key: %w", err)
	}
	return k, nil
}

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey parses a hex-encoded 16-byte key.
func ParseKey(s string) (Key, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return Key{}, fmt.Errorf("parse key: %w", err)
	}
	if len(raw) != KeySize {
		return Key{}, fmt.Errorf("parse key: want %d bytes, got %d", KeySize, len(raw))
	}
	var k Key
	copy(k[:], raw)
	return k, nil
}

// LabelUUID is the 16-byte label UUID carried by virtual addresses.
type LabelUUID = uuid.UUID
