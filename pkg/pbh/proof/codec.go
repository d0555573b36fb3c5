package proof

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/worldcoin/world-chain-builder/pkg/pbh/field"
)

// ErrMalformedPayload is returned for any input that cannot possibly be
// a valid encoded Payload: too short, an out-of-range length prefix, or
// a field element outside the canonical range. It is a permanent
// rejection — retrying the same bytes will never succeed.
var ErrMalformedPayload = errors.New("proof: malformed payload")

// Encode serializes p as:
//
//	[2 bytes: len(external nullifier string)]
//	[N bytes: external nullifier string]
//	[32 bytes: nullifier hash, big-endian canonical]
//	[32 bytes: root, big-endian canonical]
//	[256 bytes: packed proof]
func Encode(p Payload) []byte {
	enStr := p.ExternalNullifierRaw
	out := make([]byte, 0, 2+len(enStr)+32+32+ProofLen)

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(enStr)))
	out = append(out, lenBuf[:]...)
	out = append(out, enStr...)

	nh := p.NullifierHash.Bytes()
	out = append(out, nh[:]...)

	root := p.Root.Bytes()
	out = append(out, root[:]...)

	out = append(out, p.Proof[:]...)

	return out
}

// Decode is the inverse of Encode. decode(encode(p)) == p for any p
// produced by Encode (round-trip law, P1).
func Decode(buf []byte) (Payload, error) {
	if len(buf) < 2 {
		return Payload{}, fmt.Errorf("%w: buffer shorter than length prefix", ErrMalformedPayload)
	}
	enLen := int(binary.BigEndian.Uint16(buf[:2]))
	rest := buf[2:]
	if enLen > len(rest) {
		return Payload{}, fmt.Errorf("%w: external nullifier length %d exceeds remaining %d bytes", ErrMalformedPayload, enLen, len(rest))
	}

	enStr := string(rest[:enLen])
	rest = rest[enLen:]

	const tailLen = 32 + 32 + ProofLen
	if len(rest) != tailLen {
		return Payload{}, fmt.Errorf("%w: expected %d trailing bytes, got %d", ErrMalformedPayload, tailLen, len(rest))
	}

	nullifierHash, err := field.FromCanonicalBytes(rest[:32])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: nullifier hash: %v", ErrMalformedPayload, err)
	}
	rest = rest[32:]

	root, err := field.FromCanonicalBytes(rest[:32])
	if err != nil {
		return Payload{}, fmt.Errorf("%w: root: %v", ErrMalformedPayload, err)
	}
	rest = rest[32:]

	var packed Proof
	copy(packed[:], rest)

	return Payload{
		ExternalNullifierRaw: enStr,
		NullifierHash:        nullifierHash,
		Root:                 root,
		Proof:                packed,
	}, nil
}
