// Package types provides common type definitions used across the backend
package types

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ClaimOutputLength is the exact byte length of an encoded claim output.
// Layout (compatibility contract with the guest program, do not change
// without bumping the program identity):
//
//	[ 0:32] merkle root the proof was generated against
//	[32:64] nullifier
//	[64:72] epoch id, big-endian uint64
const ClaimOutputLength = 72

// ErrMalformedOutput is returned when the submitted output bytes are not a
// valid claim output encoding.
var ErrMalformedOutput = errors.New("malformed claim output")

// ClaimOutput represents the public output committed by the claim proof
type ClaimOutput struct {
	Root      common.Hash `json:"root"`      // bytes32 - allowlist merkle root
	Nullifier common.Hash `json:"nullifier"` // bytes32 - one-time claim identifier
	EpochID   uint64      `json:"epoch_id"`  // uint64 - distribution round
}

// DecodeClaimOutput parses a raw 72-byte claim output. Input is
// attacker-controlled; any length other than exactly 72 bytes fails with
// ErrMalformedOutput.
func DecodeClaimOutput(data []byte) (*ClaimOutput, error) {
	if len(data) != ClaimOutputLength {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrMalformedOutput, ClaimOutputLength, len(data))
	}

	out := &ClaimOutput{
		Root:      common.BytesToHash(data[0:32]),
		Nullifier: common.BytesToHash(data[32:64]),
		EpochID:   binary.BigEndian.Uint64(data[64:72]),
	}
	return out, nil
}

// Encode serializes the claim output back to its 72-byte wire form. The live
// claim path never re-encodes (the verification digest binds to the raw
// submitted bytes); this is for proof tooling and tests.
func (o *ClaimOutput) Encode() []byte {
	buf := make([]byte, ClaimOutputLength)
	copy(buf[0:32], o.Root[:])
	copy(buf[32:64], o.Nullifier[:])
	binary.BigEndian.PutUint64(buf[64:72], o.EpochID)
	return buf
}
