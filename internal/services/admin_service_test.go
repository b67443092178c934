package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestRotateEpochAdvancesByOne(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	admin := NewAdminService(store, nil)
	ctx := context.Background()

	newRoot := common.HexToHash("0xdd")
	snapshot, err := admin.RotateEpoch(ctx, newRoot)
	if err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if snapshot.EpochID != 2 {
		t.Fatalf("epoch = %d, want 2", snapshot.EpochID)
	}
	if snapshot.Root != newRoot {
		t.Fatalf("root = %s, want %s", snapshot.Root.Hex(), newRoot.Hex())
	}
}

func TestRotateEpochRejectsZeroRoot(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	admin := NewAdminService(store, nil)

	if _, err := admin.RotateEpoch(context.Background(), common.Hash{}); !errors.Is(err, ErrInvalidRoot) {
		t.Fatalf("got err %v, want ErrInvalidRoot", err)
	}

	// state untouched
	snapshot, _ := store.Snapshot(context.Background())
	if snapshot.EpochID != 1 || snapshot.Root != testRoot {
		t.Fatalf("config changed on rejected rotation: epoch=%d root=%s", snapshot.EpochID, snapshot.Root.Hex())
	}
}

func TestRotationInvalidatesOldEpochProofs(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	admin := NewAdminService(store, nil)
	svc := newTestClaimService(store, &fakeVerifier{})
	ctx := context.Background()

	nullifier := common.HexToHash("0x10")
	oldOutput := testOutput(testRoot, nullifier, 1)

	if _, err := admin.RotateEpoch(ctx, common.HexToHash("0xee")); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}

	// the epoch-1 proof is dead even though its nullifier was never used
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), oldOutput); !errors.Is(err, ErrEpochMismatch) {
		t.Fatalf("got err %v, want ErrEpochMismatch", err)
	}
}

func TestRotationBackToSameRootStillRejectsOldEpoch(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	admin := NewAdminService(store, nil)
	svc := newTestClaimService(store, &fakeVerifier{})
	ctx := context.Background()

	// rotate away and back so the active root again equals the old one
	if _, err := admin.RotateEpoch(ctx, common.HexToHash("0xee")); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if _, err := admin.RotateEpoch(ctx, testRoot); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}

	oldOutput := testOutput(testRoot, common.HexToHash("0x11"), 1)
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), oldOutput); !errors.Is(err, ErrEpochMismatch) {
		t.Fatalf("got err %v, want ErrEpochMismatch despite matching root", err)
	}

	// a proof for the current epoch and root works
	freshOutput := testOutput(testRoot, common.HexToHash("0x12"), 3)
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), freshOutput); err != nil {
		t.Fatalf("fresh claim failed: %v", err)
	}
}

func TestNullifiersSurviveRotation(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	admin := NewAdminService(store, nil)
	svc := newTestClaimService(store, &fakeVerifier{})
	ctx := context.Background()

	nullifier := common.HexToHash("0x13")
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), testOutput(testRoot, nullifier, 1)); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	if _, err := admin.RotateEpoch(ctx, common.HexToHash("0xee")); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
	if used, _ := svc.NullifierUsed(ctx, nullifier); !used {
		t.Fatal("consumed nullifier reset by epoch rotation")
	}
}

func TestSetRewardAmount(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	admin := NewAdminService(store, nil)
	ctx := context.Background()

	if err := admin.SetRewardAmount(ctx, big.NewInt(42)); err != nil {
		t.Fatalf("set reward failed: %v", err)
	}
	snapshot, _ := store.Snapshot(ctx)
	if snapshot.RewardAmount.Cmp(big.NewInt(42)) != 0 {
		t.Fatalf("reward = %s, want 42", snapshot.RewardAmount)
	}

	// zero is explicitly permitted
	if err := admin.SetRewardAmount(ctx, big.NewInt(0)); err != nil {
		t.Fatalf("zero reward rejected: %v", err)
	}

	if err := admin.SetRewardAmount(ctx, big.NewInt(-1)); err == nil {
		t.Fatal("negative reward accepted")
	}
}

func TestPauseAndToggle(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	admin := NewAdminService(store, nil)
	ctx := context.Background()

	snapshot, err := admin.SetPaused(ctx, true)
	if err != nil || !snapshot.Paused {
		t.Fatalf("SetPaused(true): snapshot=%+v err=%v", snapshot, err)
	}
	snapshot, err = admin.TogglePause(ctx)
	if err != nil || snapshot.Paused {
		t.Fatalf("TogglePause: snapshot=%+v err=%v", snapshot, err)
	}
}

func TestWithdrawResidual(t *testing.T) {
	store := newFakeStore(testRoot, 1, 57)
	admin := NewAdminService(store, nil)
	ctx := context.Background()

	moved, err := admin.WithdrawResidual(ctx, testRecipient)
	if err != nil {
		t.Fatalf("withdraw residual failed: %v", err)
	}
	if moved.Cmp(big.NewInt(57)) != 0 {
		t.Fatalf("moved = %s, want 57", moved)
	}
	balance, _ := store.GetBalance(ctx, testRecipient)
	if balance.Cmp(big.NewInt(57)) != 0 {
		t.Fatalf("recipient balance = %s, want 57", balance)
	}
}
