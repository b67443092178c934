package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"math/big"
	"sync"
	"testing"

	"airdrop-backend/internal/repository"
	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// fakeStore is an in-memory ClaimStore with the same atomicity contract as
// the Postgres implementation.
type fakeStore struct {
	mu         sync.Mutex
	epoch      uint64
	root       common.Hash
	reward     *big.Int
	paused     bool
	nullifiers map[common.Hash]bool
	balances   map[string]*big.Int
	treasury   *big.Int

	// forces IsNullifierUsed to report false so commit-time conflicts
	// can be exercised
	hideUsed bool
}

func newFakeStore(root common.Hash, reward, treasury int64) *fakeStore {
	return &fakeStore{
		epoch:      1,
		root:       root,
		reward:     big.NewInt(reward),
		nullifiers: make(map[common.Hash]bool),
		balances:   make(map[string]*big.Int),
		treasury:   big.NewInt(treasury),
	}
}

func (s *fakeStore) Snapshot(ctx context.Context) (*repository.EpochSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &repository.EpochSnapshot{
		EpochID:      s.epoch,
		Root:         s.root,
		RewardAmount: new(big.Int).Set(s.reward),
		Paused:       s.paused,
	}, nil
}

func (s *fakeStore) IsNullifierUsed(ctx context.Context, n common.Hash) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hideUsed {
		return false, nil
	}
	return s.nullifiers[n], nil
}

func (s *fakeStore) CommitClaim(ctx context.Context, c *repository.ClaimCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nullifiers[c.Nullifier] {
		return repository.ErrNullifierConsumed
	}
	if s.treasury.Cmp(c.Amount) < 0 {
		return repository.ErrInsufficientFunds
	}
	s.nullifiers[c.Nullifier] = true
	s.treasury.Sub(s.treasury, c.Amount)
	balance, ok := s.balances[c.Recipient]
	if !ok {
		balance = big.NewInt(0)
		s.balances[c.Recipient] = balance
	}
	balance.Add(balance, c.Amount)
	return nil
}

func (s *fakeStore) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if balance, ok := s.balances[address]; ok {
		return new(big.Int).Set(balance), nil
	}
	return big.NewInt(0), nil
}

func (s *fakeStore) RotateEpoch(ctx context.Context, newRoot common.Hash) (*repository.EpochSnapshot, error) {
	s.mu.Lock()
	s.epoch++
	s.root = newRoot
	s.mu.Unlock()
	return s.Snapshot(ctx)
}

func (s *fakeStore) SetRewardAmount(ctx context.Context, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reward = new(big.Int).Set(amount)
	return nil
}

func (s *fakeStore) SetPaused(ctx context.Context, paused bool) (*repository.EpochSnapshot, error) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
	return s.Snapshot(ctx)
}

func (s *fakeStore) TogglePause(ctx context.Context) (*repository.EpochSnapshot, error) {
	s.mu.Lock()
	s.paused = !s.paused
	s.mu.Unlock()
	return s.Snapshot(ctx)
}

func (s *fakeStore) WithdrawResidual(ctx context.Context, recipient string) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moved := new(big.Int).Set(s.treasury)
	s.treasury.SetInt64(0)
	balance, ok := s.balances[recipient]
	if !ok {
		balance = big.NewInt(0)
		s.balances[recipient] = balance
	}
	balance.Add(balance, moved)
	return moved, nil
}

// fakeVerifier records the last call and accepts or rejects on demand
type fakeVerifier struct {
	reject     bool
	calls      int
	lastProgID common.Hash
	lastDigest common.Hash
}

func (v *fakeVerifier) Verify(ctx context.Context, proof []byte, programID, digest common.Hash) error {
	v.calls++
	v.lastProgID = programID
	v.lastDigest = digest
	if v.reject {
		return errors.New("proof does not verify")
	}
	return nil
}

var (
	testRoot      = common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	testProgramID = common.HexToHash("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	testRecipient = "0x1111111111111111111111111111111111111111"
)

func testOutput(root common.Hash, nullifier common.Hash, epoch uint64) []byte {
	out := &types.ClaimOutput{Root: root, Nullifier: nullifier, EpochID: epoch}
	return out.Encode()
}

func newTestClaimService(store *fakeStore, verifier *fakeVerifier) *ClaimService {
	return NewClaimService(store, verifier, nil, testProgramID)
}

func TestSubmitClaimSucceedsExactlyOnce(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	verifier := &fakeVerifier{}
	svc := newTestClaimService(store, verifier)

	nullifier := common.HexToHash("0x01")
	output := testOutput(testRoot, nullifier, 1)
	ctx := context.Background()

	result, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output)
	if err != nil {
		t.Fatalf("first claim failed: %v", err)
	}
	if result.Amount.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("amount = %s, want 1", result.Amount)
	}

	balance, _ := svc.Balance(ctx, testRecipient)
	if balance.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("recipient balance = %s, want 1", balance)
	}
	used, _ := svc.NullifierUsed(ctx, nullifier)
	if !used {
		t.Fatal("nullifier not marked used after successful claim")
	}

	// identical resubmission must fail without state change
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("second claim: got err %v, want ErrAlreadyClaimed", err)
	}
	balance, _ = svc.Balance(ctx, testRecipient)
	if balance.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("balance changed on replay: %s", balance)
	}
}

func TestSubmitClaimDigestBindsRawBytes(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	verifier := &fakeVerifier{}
	svc := newTestClaimService(store, verifier)

	output := testOutput(testRoot, common.HexToHash("0x02"), 1)
	if _, err := svc.SubmitClaim(context.Background(), testRecipient, []byte("proof"), output); err != nil {
		t.Fatalf("claim failed: %v", err)
	}

	want := common.Hash(sha256.Sum256(output))
	if verifier.lastDigest != want {
		t.Fatalf("verifier digest = %s, want sha256 of raw output %s", verifier.lastDigest.Hex(), want.Hex())
	}
	if verifier.lastProgID != testProgramID {
		t.Fatalf("verifier program id = %s, want fixed %s", verifier.lastProgID.Hex(), testProgramID.Hex())
	}
}

func TestSubmitClaimMalformedOutput(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	verifier := &fakeVerifier{}
	svc := newTestClaimService(store, verifier)
	ctx := context.Background()

	for _, n := range []int{0, 71, 73} {
		if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), make([]byte, n)); !errors.Is(err, types.ErrMalformedOutput) {
			t.Errorf("length %d: got err %v, want ErrMalformedOutput", n, err)
		}
	}
	if verifier.calls != 0 {
		t.Fatalf("verifier called %d times for malformed output", verifier.calls)
	}
}

func TestSubmitClaimEpochMismatch(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	verifier := &fakeVerifier{}
	svc := newTestClaimService(store, verifier)

	output := testOutput(testRoot, common.HexToHash("0x03"), 2) // current epoch is 1
	if _, err := svc.SubmitClaim(context.Background(), testRecipient, []byte("proof"), output); !errors.Is(err, ErrEpochMismatch) {
		t.Fatalf("got err %v, want ErrEpochMismatch", err)
	}
	if verifier.calls != 0 {
		t.Fatal("verifier called for stale epoch")
	}
}

func TestSubmitClaimRootMismatch(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	svc := newTestClaimService(store, &fakeVerifier{})

	wrongRoot := common.HexToHash("0xcc")
	output := testOutput(wrongRoot, common.HexToHash("0x04"), 1)
	if _, err := svc.SubmitClaim(context.Background(), testRecipient, []byte("proof"), output); !errors.Is(err, ErrRootMismatch) {
		t.Fatalf("got err %v, want ErrRootMismatch", err)
	}
}

func TestSubmitClaimPausedGate(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	verifier := &fakeVerifier{}
	svc := newTestClaimService(store, verifier)
	ctx := context.Background()

	nullifier := common.HexToHash("0x05")
	output := testOutput(testRoot, nullifier, 1)

	store.paused = true
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output); !errors.Is(err, ErrPaused) {
		t.Fatalf("got err %v, want ErrPaused", err)
	}
	if verifier.calls != 0 {
		t.Fatal("verifier called while paused")
	}

	// unpausing restores processing without resetting nullifier state
	store.paused = false
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output); err != nil {
		t.Fatalf("claim after unpause failed: %v", err)
	}
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("replay after unpause: got err %v, want ErrAlreadyClaimed", err)
	}
}

func TestSubmitClaimInvalidProofLeavesNullifierUnconsumed(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	verifier := &fakeVerifier{reject: true}
	svc := newTestClaimService(store, verifier)
	ctx := context.Background()

	nullifier := common.HexToHash("0x06")
	output := testOutput(testRoot, nullifier, 1)

	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("bad proof"), output); !errors.Is(err, ErrInvalidProof) {
		t.Fatalf("got err %v, want ErrInvalidProof", err)
	}
	if used, _ := svc.NullifierUsed(ctx, nullifier); used {
		t.Fatal("nullifier consumed by rejected proof")
	}

	// a corrected proof for the same nullifier can still succeed
	verifier.reject = false
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("good proof"), output); err != nil {
		t.Fatalf("corrected claim failed: %v", err)
	}
}

func TestSubmitClaimTransferFailureRollsBackNullifier(t *testing.T) {
	store := newFakeStore(testRoot, 5, 3) // treasury cannot cover the reward
	svc := newTestClaimService(store, &fakeVerifier{})
	ctx := context.Background()

	nullifier := common.HexToHash("0x07")
	output := testOutput(testRoot, nullifier, 1)

	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("got err %v, want ErrTransferFailed", err)
	}
	if used, _ := svc.NullifierUsed(ctx, nullifier); used {
		t.Fatal("nullifier stayed consumed after failed transfer")
	}
	if balance, _ := svc.Balance(ctx, testRecipient); balance.Sign() != 0 {
		t.Fatalf("recipient balance = %s after failed transfer", balance)
	}

	// once the treasury is topped up the same proof goes through
	store.mu.Lock()
	store.treasury.SetInt64(10)
	store.mu.Unlock()
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output); err != nil {
		t.Fatalf("claim after top-up failed: %v", err)
	}
}

func TestSubmitClaimCommitRaceLosesToAlreadyClaimed(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	svc := newTestClaimService(store, &fakeVerifier{})
	ctx := context.Background()

	nullifier := common.HexToHash("0x08")
	output := testOutput(testRoot, nullifier, 1)

	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output); err != nil {
		t.Fatalf("setup claim failed: %v", err)
	}

	// simulate losing the commit race: the early used-check reads stale
	// state, so the insert itself must stop the loser
	store.hideUsed = true
	if _, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("got err %v, want ErrAlreadyClaimed", err)
	}
}

func TestSubmitClaimZeroRewardStillConsumesNullifier(t *testing.T) {
	store := newFakeStore(testRoot, 0, 100)
	svc := newTestClaimService(store, &fakeVerifier{})
	ctx := context.Background()

	nullifier := common.HexToHash("0x09")
	output := testOutput(testRoot, nullifier, 1)

	result, err := svc.SubmitClaim(ctx, testRecipient, []byte("proof"), output)
	if err != nil {
		t.Fatalf("zero-reward claim failed: %v", err)
	}
	if result.Amount.Sign() != 0 {
		t.Fatalf("amount = %s, want 0", result.Amount)
	}
	if used, _ := svc.NullifierUsed(ctx, nullifier); !used {
		t.Fatal("zero-reward claim did not consume the nullifier")
	}
}

func TestSubmitClaimConcurrentSameNullifier(t *testing.T) {
	store := newFakeStore(testRoot, 1, 100)
	svc := newTestClaimService(store, &fakeVerifier{})
	output := testOutput(testRoot, common.HexToHash("0x0a"), 1)

	const attempts = 16
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SubmitClaim(context.Background(), testRecipient, []byte("proof"), output)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
		} else if !errors.Is(err, ErrAlreadyClaimed) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("%d attempts succeeded, want exactly 1", successes)
	}

	balance, _ := svc.Balance(context.Background(), testRecipient)
	if balance.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("recipient balance = %s, want 1", balance)
	}
}
