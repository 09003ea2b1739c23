package persistence

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/diskstore/codec"
)

const (
	// Magic identifies an enveloped snapshot.
	Magic = "DSKS"
	// Version is the current envelope version.
	Version uint16 = 1

	flagEncrypted uint8 = 1 << 0

	// fixed part: magic(4) version(2) compression(1) flags(1) codecLen(1)
	fixedHeaderSize = 9
	// trailer of the header: crc32(4) length(8)
	headerTrailerSize = 12
)

var (
	// ErrCorrupt is returned when a snapshot cannot be decoded.
	ErrCorrupt = errors.New("snapshot corrupt")
	// ErrUnsupportedVersion is returned for envelopes written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")
	// ErrKeyRequired is returned when an encrypted snapshot is read without a key.
	ErrKeyRequired = errors.New("snapshot is encrypted")
)

// Format controls how snapshots are encoded.
type Format struct {
	// Codec serializes the snapshot. Defaults to codec.Default.
	Codec codec.Codec
	// Compression is applied to the encoded payload.
	Compression Compression
	// Key enables XChaCha20-Poly1305 encryption. Must be KeySize bytes.
	Key []byte
}

func (f Format) codec() codec.Codec {
	if f.Codec == nil {
		return codec.Default
	}
	return f.Codec
}

// raw reports whether snapshots are written without an envelope. Only
// uncompressed, unencrypted JSON qualifies.
func (f Format) raw() bool {
	if f.Compression != CompressionNone || len(f.Key) > 0 {
		return false
	}
	switch f.codec().Name() {
	case "json", "go-json":
		return true
	default:
		return false
	}
}

// Validate checks the format settings.
func (f Format) Validate() error {
	if len(f.Key) > 0 && len(f.Key) != KeySize {
		return fmt.Errorf("encryption key must be %d bytes, got %d", KeySize, len(f.Key))
	}
	if _, err := ParseCompression(f.Compression.String()); err != nil {
		return err
	}
	if len(f.codec().Name()) > 255 {
		return errors.New("codec name too long")
	}
	return nil
}

// Header describes an enveloped snapshot.
type Header struct {
	Version     uint16
	Compression Compression
	Encrypted   bool
	Codec       string
	Checksum    uint32
	Length      uint64
}

// Encode serializes a snapshot.
func Encode(snap *Snapshot, f Format) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if snap == nil {
		snap = NewSnapshot()
	}
	snap.normalize()

	c := f.codec()
	payload, err := c.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot (%s): %w", c.Name(), err)
	}
	if f.raw() {
		return payload, nil
	}

	payload, err = compress(payload, f.Compression)
	if err != nil {
		return nil, fmt.Errorf("compress snapshot: %w", err)
	}

	h := Header{
		Version:     Version,
		Compression: f.Compression,
		Codec:       c.Name(),
	}
	if len(f.Key) > 0 {
		h.Encrypted = true
		payload, err = seal(f.Key, payload, h.aad())
		if err != nil {
			return nil, err
		}
	}
	h.Checksum = checksum(payload)
	h.Length = uint64(len(payload))

	var buf bytes.Buffer
	buf.Grow(fixedHeaderSize + len(h.Codec) + headerTrailerSize + len(payload))
	h.writeTo(&buf)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Decode parses a raw or enveloped snapshot. An empty input decodes to an
// empty snapshot. Every failure wraps ErrCorrupt, except a missing key for an
// encrypted snapshot which wraps ErrKeyRequired as well.
func Decode(data []byte, key []byte) (*Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return NewSnapshot(), nil
	}

	if !bytes.HasPrefix(data, []byte(Magic)) {
		if trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: unrecognized snapshot format", ErrCorrupt)
		}
		snap := NewSnapshot()
		if err := codec.Default.Unmarshal(trimmed, snap); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		snap.normalize()
		return snap, nil
	}

	h, payload, err := ReadHeader(data)
	if err != nil {
		return nil, err
	}
	if err := verifyChecksum(payload, h.Checksum); err != nil {
		return nil, err
	}

	if h.Encrypted {
		if len(key) == 0 {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, ErrKeyRequired)
		}
		payload, err = open(key, payload, h.aad())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}

	payload, err = decompress(payload, h.Compression)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}

	c, ok := codec.ByName(h.Codec)
	if !ok {
		return nil, fmt.Errorf("%w: unknown codec %q", ErrCorrupt, h.Codec)
	}
	snap := NewSnapshot()
	if err := c.Unmarshal(payload, snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	snap.normalize()
	return snap, nil
}

// ReadHeader parses the envelope header and returns the payload that follows it.
func ReadHeader(data []byte) (Header, []byte, error) {
	var h Header
	if len(data) < fixedHeaderSize || string(data[:4]) != Magic {
		return h, nil, fmt.Errorf("%w: invalid magic", ErrCorrupt)
	}
	h.Version = binary.LittleEndian.Uint16(data[4:])
	if h.Version == 0 || h.Version > Version {
		return h, nil, fmt.Errorf("%w: %w %d", ErrCorrupt, ErrUnsupportedVersion, h.Version)
	}
	h.Compression = Compression(data[6])
	h.Encrypted = data[7]&flagEncrypted != 0
	codecLen := int(data[8])

	off := fixedHeaderSize
	if len(data) < off+codecLen+headerTrailerSize {
		return h, nil, fmt.Errorf("%w: truncated header", ErrCorrupt)
	}
	h.Codec = string(data[off : off+codecLen])
	off += codecLen
	h.Checksum = binary.LittleEndian.Uint32(data[off:])
	h.Length = binary.LittleEndian.Uint64(data[off+4:])
	off += headerTrailerSize

	if uint64(len(data)-off) != h.Length {
		return h, nil, fmt.Errorf("%w: payload length %d, header says %d", ErrCorrupt, len(data)-off, h.Length)
	}
	return h, data[off:], nil
}

func (h Header) writeTo(buf *bytes.Buffer) {
	var fixed [fixedHeaderSize]byte
	copy(fixed[:4], Magic)
	binary.LittleEndian.PutUint16(fixed[4:], h.Version)
	fixed[6] = byte(h.Compression)
	if h.Encrypted {
		fixed[7] |= flagEncrypted
	}
	fixed[8] = byte(len(h.Codec))
	buf.Write(fixed[:])
	buf.WriteString(h.Codec)

	var trailer [headerTrailerSize]byte
	binary.LittleEndian.PutUint32(trailer[0:], h.Checksum)
	binary.LittleEndian.PutUint64(trailer[4:], h.Length)
	buf.Write(trailer[:])
}

// aad binds the ciphertext to the codec and compression it was written with.
func (h Header) aad() []byte {
	out := make([]byte, 0, len(Magic)+2+len(h.Codec))
	out = append(out, Magic...)
	out = append(out, byte(h.Compression))
	out = append(out, h.Codec...)
	return out
}
