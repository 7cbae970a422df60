package discovery

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

// Identity is the server's long-lived key pair. The public key, rendered as
// hex, is the well-known identity clients discover or receive out-of-band.
type Identity struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey
}

// GenerateIdentity creates a fresh ed25519 key pair
func GenerateIdentity() (*Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate identity: %w", err)
	}
	return &Identity{PublicKey: pub, PrivateKey: priv}, nil
}

// LoadOrCreateIdentity loads the identity seed from path, generating and
// persisting a new one on first start.
func LoadOrCreateIdentity(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		seed, err := hex.DecodeString(strings.TrimSpace(string(data)))
		if err != nil || len(seed) != ed25519.SeedSize {
			return nil, fmt.Errorf("corrupt identity seed file %s", path)
		}
		priv := ed25519.NewKeyFromSeed(seed)
		return &Identity{
			PublicKey:  priv.Public().(ed25519.PublicKey),
			PrivateKey: priv,
		}, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read identity seed file: %w", err)
	}

	identity, err := GenerateIdentity()
	if err != nil {
		return nil, err
	}

	seed := hex.EncodeToString(identity.PrivateKey.Seed())
	if err := os.WriteFile(path, []byte(seed+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("failed to persist identity seed: %w", err)
	}

	return identity, nil
}

// PublicHex returns the public key rendered as a hex string
func (i *Identity) PublicHex() string {
	return hex.EncodeToString(i.PublicKey)
}

// Sign signs the message with the identity's private key
func (i *Identity) Sign(message []byte) []byte {
	return ed25519.Sign(i.PrivateKey, message)
}
