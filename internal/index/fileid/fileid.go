// Package fileid derives canonical storage keys from provider file references.
//
// A provider file reference is an opaque URL-safe base64 string whose binary
// payload is zero-byte run-length compressed and versioned. Decoding yields
// the four fields that identify the underlying binary content: file type,
// datacenter id, media id and access hash. The canonical id is a fixed
// little-endian packing of those fields, re-encoded with an unpadded URL-safe
// base64 alphabet, so two references to the same content always map to the
// same key.
package fileid

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Flag bits carried in the file type field of a decoded reference.
const (
	webLocationFlag   = 1 << 24
	fileReferenceFlag = 1 << 25
)

var (
	// ErrDecode reports a malformed provider file reference. A reference
	// that fails to decode never produces a degraded id.
	ErrDecode = errors.New("fileid: malformed file reference")
)

// FileID holds the identity fields decoded from a provider file reference.
type FileID struct {
	FileType   uint32
	DCID       uint32
	MediaID    int64
	AccessHash int64
}

// Decode parses a provider file reference string into its identity fields.
func Decode(ref string) (*FileID, error) {
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrDecode)
	}

	raw, err := base64.RawURLEncoding.DecodeString(ref)
	if err != nil {
		// Some providers emit padded references.
		raw, err = base64.URLEncoding.DecodeString(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecode, err)
		}
	}

	data, err := rleDecode(raw)
	if err != nil {
		return nil, err
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: truncated payload", ErrDecode)
	}

	// The payload ends with a major version byte, preceded by a minor
	// version byte from the fourth format revision onward.
	major := data[len(data)-1]
	if major < 4 {
		data = data[:len(data)-1]
	} else {
		data = data[:len(data)-2]
	}

	r := bytes.NewReader(data)

	var typeField, dcID uint32
	if err := binary.Read(r, binary.LittleEndian, &typeField); err != nil {
		return nil, fmt.Errorf("%w: missing file type", ErrDecode)
	}
	if err := binary.Read(r, binary.LittleEndian, &dcID); err != nil {
		return nil, fmt.Errorf("%w: missing dc id", ErrDecode)
	}

	if typeField&webLocationFlag != 0 {
		return nil, fmt.Errorf("%w: web locations carry no stable identity", ErrDecode)
	}

	if typeField&fileReferenceFlag != 0 {
		if err := skipTLBytes(r); err != nil {
			return nil, err
		}
	}

	var mediaID, accessHash int64
	if err := binary.Read(r, binary.LittleEndian, &mediaID); err != nil {
		return nil, fmt.Errorf("%w: missing media id", ErrDecode)
	}
	if err := binary.Read(r, binary.LittleEndian, &accessHash); err != nil {
		return nil, fmt.Errorf("%w: missing access hash", ErrDecode)
	}

	return &FileID{
		FileType:   typeField &^ (webLocationFlag | fileReferenceFlag),
		DCID:       dcID,
		MediaID:    mediaID,
		AccessHash: accessHash,
	}, nil
}

// Canonical returns the storage key for a decoded reference: the four
// identity fields packed little-endian (two 32-bit, two 64-bit) and encoded
// with unpadded URL-safe base64.
func (f *FileID) Canonical() string {
	buf := make([]byte, 24)
	binary.LittleEndian.PutUint32(buf[0:4], f.FileType)
	binary.LittleEndian.PutUint32(buf[4:8], f.DCID)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(f.MediaID))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(f.AccessHash))
	return base64.RawURLEncoding.EncodeToString(buf)
}

// CanonicalID decodes a provider file reference and returns its storage key.
func CanonicalID(ref string) (string, error) {
	f, err := Decode(ref)
	if err != nil {
		return "", err
	}
	return f.Canonical(), nil
}

// rleDecode expands the zero-byte run-length compression used by provider
// references: a 0x00 byte is followed by the length of the zero run it
// replaces.
func rleDecode(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != 0 {
			out = append(out, data[i])
			continue
		}
		i++
		if i >= len(data) {
			return nil, fmt.Errorf("%w: dangling zero marker", ErrDecode)
		}
		for n := byte(0); n < data[i]; n++ {
			out = append(out, 0)
		}
	}
	return out, nil
}

// skipTLBytes advances past a TL-encoded byte string (the per-session file
// reference blob), including its alignment padding.
func skipTLBytes(r *bytes.Reader) error {
	first, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: truncated file reference", ErrDecode)
	}

	var length, header int
	if first == 254 {
		var lenBytes [3]byte
		if _, err := r.Read(lenBytes[:]); err != nil {
			return fmt.Errorf("%w: truncated file reference length", ErrDecode)
		}
		length = int(lenBytes[0]) | int(lenBytes[1])<<8 | int(lenBytes[2])<<16
		header = 4
	} else {
		length = int(first)
		header = 1
	}

	padding := (4 - (header+length)%4) % 4
	skip := length + padding
	if r.Len() < skip {
		return fmt.Errorf("%w: truncated file reference body", ErrDecode)
	}
	if _, err := r.Seek(int64(skip), io.SeekCurrent); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}
