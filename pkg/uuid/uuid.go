// Package uuid provides UUID v7 generation.
// UUID v7 is sortable by timestamp (better for database indexes than v4).
package uuid

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// UUID represents a UUID v7 identifier.
type UUID [16]byte

// NewV7 generates a new UUID v7 (draft-ietf-uuidrev-rfc4122bis):
// 48 bits of millisecond UNIX timestamp followed by 74 random bits,
// with the version and variant nibbles fixed to 7 and 10.
func NewV7() UUID {
	var u UUID

	binary.BigEndian.PutUint64(u[:8], uint64(time.Now().UnixMilli())<<16)

	// Overwrite bytes 6-15 with CSPRNG output, then stamp version + variant.
	// crypto/rand.Read never fails on supported platforms.
	_, _ = rand.Read(u[6:])
	u[6] = 0x70 | (u[6] & 0x0f)
	u[7] = 0x80 | (u[7] & 0x3f)

	return u
}

// String returns the UUID in standard form: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx
func (u UUID) String() string {
	var buf [36]byte
	hex.Encode(buf[:8], u[:4])
	hex.Encode(buf[9:13], u[4:6])
	hex.Encode(buf[14:18], u[6:8])
	hex.Encode(buf[19:23], u[8:10])
	hex.Encode(buf[24:], u[10:])
	buf[8], buf[13], buf[18], buf[23] = '-', '-', '-', '-'
	return string(buf[:])
}
