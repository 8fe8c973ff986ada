package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDashlessUUID(t *testing.T) {
	id := GenerateDashlessUUID()
	assert.Len(t, id, 32)
	assert.False(t, strings.Contains(id, "-"))

	other := GenerateDashlessUUID()
	assert.NotEqual(t, id, other)
}

func TestImageBlob_RoundTrip(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x01}

	blob := EncodeImageBlob(raw)
	decoded, err := DecodeImageBlob(blob)
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)
}

func TestDecodeImageBlob_InvalidBase64(t *testing.T) {
	_, err := DecodeImageBlob("not base64 at all!!!")
	assert.Error(t, err)
}

func TestEncodeImageBlob_EmptyInput(t *testing.T) {
	blob := EncodeImageBlob(nil)
	assert.Equal(t, "", blob)
}
