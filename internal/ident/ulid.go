// Package ident generates ULID-style identifiers: 26-character Crockford
// Base32 strings with a millisecond timestamp prefix, sortable by creation
// time, with no external dependency.
package ident

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

var (
	mu      sync.Mutex
	lastTS  uint64
	lastSeq uint16
)

// New returns a fresh unique id.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	ts := uint64(time.Now().UnixMilli())
	if ts == lastTS {
		lastSeq++
	} else {
		lastTS = ts
		lastSeq = 0
	}

	var b [16]byte
	// 48-bit big-endian timestamp.
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	rand.Read(b[6:])
	// Sequence in bytes 6-7 keeps ids unique within the same millisecond.
	binary.BigEndian.PutUint16(b[6:8], lastSeq)

	return encode(b)
}

// encode renders 128 bits as 26 Crockford Base32 characters, reading the
// bytes as a big-endian bit stream padded with two leading zero bits.
func encode(b [16]byte) string {
	var out [26]byte
	// acc is a sliding bit accumulator; start with 2 pad bits so 130 bits
	// divide evenly into 26 5-bit groups.
	var acc uint32
	bits := 2
	j := 0
	for i := 0; i < len(b); i++ {
		acc = acc<<8 | uint32(b[i])
		bits += 8
		for bits >= 5 {
			bits -= 5
			out[j] = crockford[(acc>>uint(bits))&31]
			j++
		}
	}
	return string(out[:])
}
