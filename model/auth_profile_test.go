package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaRoundTrip(t *testing.T) {
	variants := []ProfileMeta{
		{Key: MetaKeyEmail, Email: "a@x.com"},
		{Key: MetaKeyFarcaster, FID: 42},
	}

	for _, meta := range variants {
		encoded, err := EncodeMeta(meta)
		require.NoError(t, err)

		decoded, err := DecodeMeta(encoded)
		require.NoError(t, err)
		assert.Equal(t, meta, decoded)
	}
}

func TestMetaEncodingIsCanonical(t *testing.T) {
	a, err := EncodeMeta(ProfileMeta{Key: MetaKeyEmail, Email: "a@x.com"})
	require.NoError(t, err)
	b, err := EncodeMeta(ProfileMeta{Key: MetaKeyEmail, Email: "a@x.com"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestEncodeMetaRejectsIncompleteVariants(t *testing.T) {
	_, err := EncodeMeta(ProfileMeta{Key: MetaKeyEmail})
	assert.Error(t, err)

	_, err = EncodeMeta(ProfileMeta{Key: MetaKeyFarcaster})
	assert.Error(t, err)

	_, err = EncodeMeta(ProfileMeta{Key: "PHONE"})
	assert.Error(t, err)
}

func TestDecodeMetaRejectsCorruptBlobs(t *testing.T) {
	for _, raw := range []string{
		"",
		"not json",
		`{"key":"EMAIL"}`,
		`{"key":"FARCASTER"}`,
		`{"key":"UNKNOWN","email":"a@x.com"}`,
	} {
		_, err := DecodeMeta(raw)
		assert.Error(t, err, "blob %q should not decode", raw)
	}
}
