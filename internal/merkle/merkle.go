// Package merkle builds the allowlist commitment tree the claim proofs are
// generated against. Hashing must stay bit-compatible with the guest
// program: SHA-256 leaves over raw 20-byte addresses, SHA-256 pair hashing,
// odd nodes hashed with themselves.
package merkle

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ComputeLeaf hashes an address into its tree leaf
func ComputeLeaf(address common.Address) common.Hash {
	return sha256.Sum256(address[:])
}

// HashPair computes an interior node from two children
func HashPair(left, right common.Hash) common.Hash {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	return common.Hash(h.Sum(nil))
}

// ComputeNullifier derives the one-time claim identifier the guest program
// commits for (address, epoch). The epoch is mixed in little-endian here -
// this matches the prover, not the big-endian journal encoding.
func ComputeNullifier(address common.Address, epochID uint64) common.Hash {
	var epoch [8]byte
	binary.LittleEndian.PutUint64(epoch[:], epochID)
	h := sha256.New()
	h.Write(address[:])
	h.Write(epoch[:])
	return common.Hash(h.Sum(nil))
}

// Tree is an allowlist merkle tree over eligible addresses
type Tree struct {
	leaves []common.Hash
	root   common.Hash
}

// NewTree builds a tree from the given addresses
func NewTree(addresses []common.Address) (*Tree, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("cannot build tree from empty address list")
	}
	leaves := make([]common.Hash, len(addresses))
	for i, addr := range addresses {
		leaves[i] = ComputeLeaf(addr)
	}
	return &Tree{leaves: leaves, root: computeRoot(leaves)}, nil
}

// Root returns the tree's commitment value
func (t *Tree) Root() common.Hash {
	return t.root
}

// Size returns the number of leaves
func (t *Tree) Size() int {
	return len(t.leaves)
}

func computeRoot(leaves []common.Hash) common.Hash {
	level := make([]common.Hash, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, HashPair(level[i], level[i+1]))
			} else {
				next = append(next, HashPair(level[i], level[i]))
			}
		}
		level = next
	}
	return level[0]
}

// Proof returns the sibling path for the leaf at index
func (t *Tree) Proof(index int) ([]common.Hash, error) {
	if index < 0 || index >= len(t.leaves) {
		return nil, fmt.Errorf("leaf index %d out of range (tree has %d leaves)", index, len(t.leaves))
	}

	var proof []common.Hash
	level := make([]common.Hash, len(t.leaves))
	copy(level, t.leaves)
	current := index

	for len(level) > 1 {
		next := make([]common.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, HashPair(level[i], level[i+1]))
				if i == current {
					proof = append(proof, level[i+1])
				} else if i+1 == current {
					proof = append(proof, level[i])
				}
			} else {
				next = append(next, HashPair(level[i], level[i]))
				if i == current {
					proof = append(proof, level[i])
				}
			}
		}
		level = next
		current /= 2
	}
	return proof, nil
}

// VerifyProof checks a sibling path against a root
func VerifyProof(leaf common.Hash, proof []common.Hash, index int, root common.Hash) bool {
	computed := leaf
	current := index
	for _, sibling := range proof {
		if current%2 == 0 {
			computed = HashPair(computed, sibling)
		} else {
			computed = HashPair(sibling, computed)
		}
		current /= 2
	}
	return computed == root
}
