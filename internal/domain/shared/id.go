package shared

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// IDSize is the length of an identifier in bytes. 32 random bytes give the
// identifier space enough entropy that collisions are negligible, but callers
// persisting new identifiers must still use a conditional write.
const IDSize = 32

// ID is an opaque fixed-length identifier naming an auction. It is rendered
// as a lowercase hex string on the wire and as a storage key.
type ID [IDSize]byte

// NewID draws a fresh random identifier.
func NewID() (ID, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return ID{}, fmt.Errorf("failed to generate id: %w", err)
	}
	return id, nil
}

// ParseID parses the hex representation of an identifier.
func ParseID(s string) (ID, error) {
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != IDSize {
		return ID{}, ErrInvalidAuctionID
	}
	var id ID
	copy(id[:], raw)
	return id, nil
}

func (id ID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalText implements encoding.TextMarshaler so identifiers serialize as
// hex strings in JSON records.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(data []byte) error {
	parsed, err := ParseID(string(data))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
