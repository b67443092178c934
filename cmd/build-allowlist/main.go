// build-allowlist reads one eligible address per line from a file, builds
// the allowlist merkle tree and writes the root plus per-address proofs as
// JSON. The root is what the administrator rotates in; the proofs feed the
// claimants' proving step.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"airdrop-backend/internal/merkle"

	"github.com/ethereum/go-ethereum/common"
)

type allowlistEntry struct {
	Address   string   `json:"address"`
	LeafIndex int      `json:"leaf_index"`
	Leaf      string   `json:"leaf"`
	Nullifier string   `json:"nullifier"`
	Proof     []string `json:"proof"`
}

type allowlistOutput struct {
	Root    string           `json:"root"`
	EpochID uint64           `json:"epoch_id"`
	Size    int              `json:"size"`
	Entries []allowlistEntry `json:"entries"`
}

func main() {
	input := flag.String("input", "", "file with one 0x address per line")
	epochID := flag.Uint64("epoch", 1, "epoch the proofs target (used for nullifier preview)")
	out := flag.String("output", "", "output JSON file (default stdout)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: build-allowlist -input addresses.txt [-epoch N] [-output allowlist.json]")
		os.Exit(1)
	}

	f, err := os.Open(*input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var addresses []common.Address
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !common.IsHexAddress(line) {
			fmt.Fprintf(os.Stderr, "error: invalid address %q\n", line)
			os.Exit(1)
		}
		addresses = append(addresses, common.HexToAddress(line))
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	tree, err := merkle.NewTree(addresses)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	result := allowlistOutput{
		Root:    tree.Root().Hex(),
		EpochID: *epochID,
		Size:    tree.Size(),
	}
	for i, addr := range addresses {
		proof, err := tree.Proof(i)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		hexProof := make([]string, len(proof))
		for j, node := range proof {
			hexProof[j] = node.Hex()
		}
		result.Entries = append(result.Entries, allowlistEntry{
			Address:   addr.Hex(),
			LeafIndex: i,
			Leaf:      merkle.ComputeLeaf(addr).Hex(),
			Nullifier: merkle.ComputeNullifier(addr, *epochID).Hex(),
			Proof:     hexProof,
		})
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *out == "" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("wrote %s (root %s, %d addresses)\n", *out, result.Root, result.Size)
}
