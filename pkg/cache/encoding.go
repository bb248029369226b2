package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/marmos91/reqkit/internal/fingerprint"
)

// diskKeyPrefixBytes namespaces cache rows within the Badger keyspace,
// mirroring the on-disk directory layout described for the library:
// one logical entry per fingerprint.
var diskKeyPrefixBytes = []byte("reqkit/cache/")

func diskKeyPrefix() []byte {
	return diskKeyPrefixBytes
}

func diskKey(fp fingerprint.FP) []byte {
	return append(append([]byte{}, diskKeyPrefixBytes...), []byte(fp)...)
}

// encodeEntry serializes an entry as: int64 writtenAt (unix nano),
// int64 expiry (unix nano, 0 = never), then the raw bytes. Keeping the
// cached bytes untouched at the tail preserves the put/get round-trip
// contract regardless of how many header fields this format grows.
func encodeEntry(e *entry) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, e.writtenAt.UnixNano()); err != nil {
		return nil, fmt.Errorf("cache: failed to encode writtenAt: %w", err)
	}

	var expiryNano int64
	if !e.expiry.IsZero() {
		expiryNano = e.expiry.UnixNano()
	}
	if err := binary.Write(buf, binary.BigEndian, expiryNano); err != nil {
		return nil, fmt.Errorf("cache: failed to encode expiry: %w", err)
	}

	buf.Write(e.bytes)
	return buf.Bytes(), nil
}

func decodeEntry(fp fingerprint.FP, val []byte) (*entry, error) {
	if len(val) < 16 {
		return nil, fmt.Errorf("cache: truncated entry record (%d bytes)", len(val))
	}

	writtenAtNano := int64(binary.BigEndian.Uint64(val[0:8]))
	expiryNano := int64(binary.BigEndian.Uint64(val[8:16]))

	var deadline time.Time
	if expiryNano != 0 {
		deadline = time.Unix(0, expiryNano)
	}

	return &entry{
		fp:        fp,
		bytes:     append([]byte{}, val[16:]...),
		writtenAt: time.Unix(0, writtenAtNano),
		expiry:    deadline,
	}, nil
}
