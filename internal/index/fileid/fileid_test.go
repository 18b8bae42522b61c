package fileid

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildRef assembles a provider file reference the way the upstream client
// serializes one: payload, optional file reference blob, version trailer,
// zero-RLE compression, URL-safe base64.
func buildRef(t *testing.T, fileType, dcID uint32, mediaID, accessHash int64, fileRef []byte) string {
	t.Helper()

	var payload []byte

	typeField := fileType
	if fileRef != nil {
		typeField |= fileReferenceFlag
	}

	payload = binary.LittleEndian.AppendUint32(payload, typeField)
	payload = binary.LittleEndian.AppendUint32(payload, dcID)

	if fileRef != nil {
		require.Less(t, len(fileRef), 254)
		payload = append(payload, byte(len(fileRef)))
		payload = append(payload, fileRef...)
		for (len(fileRef)+1)%4 != 0 {
			payload = append(payload, 0)
			fileRef = append(fileRef, 0)
		}
	}

	payload = binary.LittleEndian.AppendUint64(payload, uint64(mediaID))
	payload = binary.LittleEndian.AppendUint64(payload, uint64(accessHash))

	// minor + major version trailer
	payload = append(payload, 32, 4)

	return base64.RawURLEncoding.EncodeToString(rleEncode(payload))
}

func rleEncode(data []byte) []byte {
	var out []byte
	for i := 0; i < len(data); {
		if data[i] != 0 {
			out = append(out, data[i])
			i++
			continue
		}
		n := 0
		for i < len(data) && data[i] == 0 && n < 255 {
			n++
			i++
		}
		out = append(out, 0, byte(n))
	}
	return out
}

func TestDecodeRoundFields(t *testing.T) {
	ref := buildRef(t, 5, 2, 123456789012345, -987654321, nil)

	f, err := Decode(ref)
	require.NoError(t, err)

	assert.Equal(t, uint32(5), f.FileType)
	assert.Equal(t, uint32(2), f.DCID)
	assert.Equal(t, int64(123456789012345), f.MediaID)
	assert.Equal(t, int64(-987654321), f.AccessHash)
}

func TestDecodeSkipsFileReferenceBlob(t *testing.T) {
	plain := buildRef(t, 4, 1, 42, 77, nil)
	withBlob := buildRef(t, 4, 1, 42, 77, []byte{0xde, 0xad, 0xbe, 0xef, 0x01})

	a, err := CanonicalID(plain)
	require.NoError(t, err)
	b, err := CanonicalID(withBlob)
	require.NoError(t, err)

	// The session-scoped blob must not influence identity.
	assert.Equal(t, a, b)
}

func TestCanonicalIsDeterministic(t *testing.T) {
	ref := buildRef(t, 5, 4, 999, 1234567890123456789, nil)

	first, err := CanonicalID(ref)
	require.NoError(t, err)
	second, err := CanonicalID(ref)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotContains(t, first, "=")
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
}

func TestCanonicalDiffersPerContent(t *testing.T) {
	a, err := CanonicalID(buildRef(t, 5, 4, 1000, 55, nil))
	require.NoError(t, err)
	b, err := CanonicalID(buildRef(t, 5, 4, 1001, 55, nil))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestCanonicalLayout(t *testing.T) {
	f := &FileID{FileType: 5, DCID: 2, MediaID: 42, AccessHash: 7}
	raw, err := base64.RawURLEncoding.DecodeString(f.Canonical())
	require.NoError(t, err)
	require.Len(t, raw, 24)

	assert.Equal(t, uint32(5), binary.LittleEndian.Uint32(raw[0:4]))
	assert.Equal(t, uint32(2), binary.LittleEndian.Uint32(raw[4:8]))
	assert.Equal(t, uint64(42), binary.LittleEndian.Uint64(raw[8:16]))
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(raw[16:24]))
}

func TestDecodeRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		ref  string
	}{
		{"empty", ""},
		{"not base64", "!!!not-base64!!!"},
		{"truncated", base64.RawURLEncoding.EncodeToString([]byte{1, 2, 3, 4})},
		{"dangling zero marker", base64.RawURLEncoding.EncodeToString([]byte{1, 2, 0})},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.ref)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestDecodeRejectsWebLocation(t *testing.T) {
	ref := buildRef(t, 5|webLocationFlag, 1, 1, 1, nil)
	_, err := Decode(ref)
	assert.ErrorIs(t, err, ErrDecode)
}
