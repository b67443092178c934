package types

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestDecodeClaimOutputRoundTrip(t *testing.T) {
	out := &ClaimOutput{
		Root:      common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111"),
		Nullifier: common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222"),
		EpochID:   7,
	}

	encoded := out.Encode()
	if len(encoded) != ClaimOutputLength {
		t.Fatalf("encoded length = %d, want %d", len(encoded), ClaimOutputLength)
	}

	decoded, err := DecodeClaimOutput(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.Root != out.Root || decoded.Nullifier != out.Nullifier || decoded.EpochID != out.EpochID {
		t.Fatalf("round trip mismatch: got %+v, want %+v", decoded, out)
	}
	if !bytes.Equal(decoded.Encode(), encoded) {
		t.Fatal("re-encoding is not byte-exact")
	}
}

func TestDecodeClaimOutputEpochBigEndian(t *testing.T) {
	buf := make([]byte, ClaimOutputLength)
	buf[64] = 0x01 // most significant epoch byte

	out, err := DecodeClaimOutput(buf)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if out.EpochID != 1<<56 {
		t.Fatalf("epoch = %d, want %d", out.EpochID, uint64(1)<<56)
	}
}

func TestDecodeClaimOutputBadLength(t *testing.T) {
	for _, n := range []int{0, 1, 31, 64, 71, 73, 144} {
		if _, err := DecodeClaimOutput(make([]byte, n)); !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("length %d: got err %v, want ErrMalformedOutput", n, err)
		}
	}
	if _, err := DecodeClaimOutput(nil); !errors.Is(err, ErrMalformedOutput) {
		t.Errorf("nil input: got err %v, want ErrMalformedOutput", err)
	}
}
