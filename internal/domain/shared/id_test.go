package shared

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[ID]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewID()
		require.NoError(t, err)
		require.False(t, seen[id], "generated a duplicate identifier")
		seen[id] = true
	}
}

func TestParseIDRoundTrip(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)

	parsed, err := ParseID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.Len(t, id.String(), IDSize*2)
}

func TestParseIDRejectsMalformedInput(t *testing.T) {
	cases := []string{
		"",
		"abc",
		"zz" + strings.Repeat("00", IDSize-1),
		strings.Repeat("00", IDSize-1),
		strings.Repeat("00", IDSize+1),
	}

	for _, input := range cases {
		_, err := ParseID(input)
		assert.ErrorIs(t, err, ErrInvalidAuctionID, "input %q", input)
	}
}

func TestIDJSONEncoding(t *testing.T) {
	id, err := NewID()
	require.NoError(t, err)

	text, err := id.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, id.String(), string(text))

	var decoded ID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, id, decoded)
}
