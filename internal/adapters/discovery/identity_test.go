package discovery

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOrCreateIdentityPersistsKeyPair(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.key")

	first, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)

	second, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)

	assert.Equal(t, first.PublicHex(), second.PublicHex())
}

func TestLoadOrCreateIdentityRejectsCorruptSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.key")
	require.NoError(t, os.WriteFile(path, []byte("not-a-seed\n"), 0o600))

	_, err := LoadOrCreateIdentity(path)
	assert.Error(t, err)
}

func TestAnnouncementSignatureRoundTrip(t *testing.T) {
	identity, err := GenerateIdentity()
	require.NoError(t, err)

	record := Announcement{
		PublicKey: identity.PublicHex(),
		Addr:      "localhost:40001",
	}
	record.Signature = hex.EncodeToString(identity.Sign(record.signedMessage()))

	assert.NoError(t, record.Verify())
}

func TestAnnouncementVerifyRejectsTampering(t *testing.T) {
	identity, err := GenerateIdentity()
	require.NoError(t, err)

	record := Announcement{
		PublicKey: identity.PublicHex(),
		Addr:      "localhost:40001",
	}
	record.Signature = hex.EncodeToString(identity.Sign(record.signedMessage()))

	// A relocated announcement must fail verification
	record.Addr = "evil:1"
	assert.ErrorIs(t, record.Verify(), ErrBadAnnouncement)

	// As must a forged key
	other, err := GenerateIdentity()
	require.NoError(t, err)
	record.Addr = "localhost:40001"
	record.PublicKey = other.PublicHex()
	assert.ErrorIs(t, record.Verify(), ErrBadAnnouncement)
}
