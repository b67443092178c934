package services

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"time"

	"airdrop-backend/internal/events"
	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/repository"
	"airdrop-backend/internal/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProofVerifier is the external verification capability. It is trusted as
// ground truth; the claim engine supplies the fixed program identity and
// never a caller-controlled one.
type ProofVerifier interface {
	Verify(ctx context.Context, proof []byte, programID common.Hash, digest common.Hash) error
}

// ClaimResult describes a committed claim
type ClaimResult struct {
	ClaimID   string
	Nullifier common.Hash
	Recipient string
	Amount    *big.Int
	EpochID   uint64
}

// ClaimService orchestrates claim attempts: decode, configuration checks,
// proof verification, atomic nullifier commit and payout. Checks run
// cheapest first so malformed or stale submissions never reach the verifier.
type ClaimService struct {
	store     repository.ClaimStore
	verifier  ProofVerifier
	publisher *events.Publisher
	programID common.Hash
}

// NewClaimService creates a new ClaimService. publisher may be nil.
func NewClaimService(store repository.ClaimStore, verifier ProofVerifier, publisher *events.Publisher, programID common.Hash) *ClaimService {
	return &ClaimService{
		store:     store,
		verifier:  verifier,
		publisher: publisher,
		programID: programID,
	}
}

// SubmitClaim runs one claim attempt to a terminal state. output is the raw
// journal bytes exactly as submitted; the verification digest binds to these
// bytes, never to a re-encoding. On success the reward has been paid to
// recipient and the nullifier is permanently consumed.
func (s *ClaimService) SubmitClaim(ctx context.Context, recipient string, proof, output []byte) (*ClaimResult, error) {
	start := time.Now()
	result, err := s.submitClaim(ctx, recipient, proof, output)
	metrics.ClaimDuration.Observe(time.Since(start).Seconds())
	metrics.ClaimAttempts.WithLabelValues(resultLabel(err)).Inc()
	return result, err
}

func (s *ClaimService) submitClaim(ctx context.Context, recipient string, proof, output []byte) (*ClaimResult, error) {
	snapshot, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read distribution state: %w", err)
	}

	// 1. Gate check
	if snapshot.Paused {
		return nil, ErrPaused
	}

	// 2. Decode the submitted output
	decoded, err := types.DecodeClaimOutput(output)
	if err != nil {
		return nil, err
	}

	// 3/4. The proof must target the live epoch and root
	if decoded.EpochID != snapshot.EpochID {
		return nil, fmt.Errorf("%w: proof epoch %d, current epoch %d", ErrEpochMismatch, decoded.EpochID, snapshot.EpochID)
	}
	if decoded.Root != snapshot.Root {
		return nil, ErrRootMismatch
	}

	// 5. Fail fast on known-dead nullifiers before paying for verification.
	// The authoritative guard is the atomic insert in CommitClaim.
	used, err := s.store.IsNullifierUsed(ctx, decoded.Nullifier)
	if err != nil {
		return nil, fmt.Errorf("failed to check nullifier: %w", err)
	}
	if used {
		return nil, ErrAlreadyClaimed
	}

	// 6. Delegate proof validity to the verifier. The digest is SHA-256 of
	// the raw submitted bytes so no canonicalization step can be exploited.
	digest := common.Hash(sha256.Sum256(output))
	verifyStart := time.Now()
	verifyErr := s.verifier.Verify(ctx, proof, s.programID, digest)
	metrics.VerifierDuration.Observe(time.Since(verifyStart).Seconds())
	if verifyErr != nil {
		metrics.VerifierRequests.WithLabelValues("rejected").Inc()
		logrus.WithFields(logrus.Fields{
			"nullifier": decoded.Nullifier.Hex(),
			"epoch":     decoded.EpochID,
		}).WithError(verifyErr).Info("Proof rejected by verifier")
		return nil, ErrInvalidProof
	}
	metrics.VerifierRequests.WithLabelValues("accepted").Inc()

	// 7/8. Consume the nullifier and pay out in one transaction. A failed
	// transfer rolls the nullifier back; a lost race surfaces here even
	// though step 5 passed.
	commit := &repository.ClaimCommit{
		ClaimID:   uuid.New().String(),
		Nullifier: decoded.Nullifier,
		Recipient: recipient,
		Amount:    snapshot.RewardAmount,
		EpochID:   decoded.EpochID,
	}
	if err := s.store.CommitClaim(ctx, commit); err != nil {
		switch {
		case errors.Is(err, repository.ErrNullifierConsumed):
			return nil, ErrAlreadyClaimed
		case errors.Is(err, repository.ErrInsufficientFunds):
			logrus.WithFields(logrus.Fields{
				"nullifier": decoded.Nullifier.Hex(),
				"amount":    snapshot.RewardAmount.String(),
			}).Warn("Payout failed, claim rolled back")
			return nil, ErrTransferFailed
		default:
			return nil, fmt.Errorf("failed to commit claim: %w", err)
		}
	}

	metrics.NullifiersConsumed.Inc()
	logrus.WithFields(logrus.Fields{
		"claim_id":  commit.ClaimID,
		"nullifier": decoded.Nullifier.Hex(),
		"recipient": recipient,
		"amount":    snapshot.RewardAmount.String(),
		"epoch":     decoded.EpochID,
	}).Info("Claim paid out")

	// 9. Notify observers
	if s.publisher != nil {
		s.publisher.ClaimSucceeded(events.ClaimSucceededEvent{
			ClaimID:   commit.ClaimID,
			Nullifier: decoded.Nullifier.Hex(),
			Recipient: recipient,
			Amount:    snapshot.RewardAmount.String(),
			EpochID:   decoded.EpochID,
		})
	}

	return &ClaimResult{
		ClaimID:   commit.ClaimID,
		Nullifier: decoded.Nullifier,
		Recipient: recipient,
		Amount:    snapshot.RewardAmount,
		EpochID:   decoded.EpochID,
	}, nil
}

// NullifierUsed reports whether a nullifier has been consumed. Read-only,
// callable by anyone before spending a proof on a real attempt.
func (s *ClaimService) NullifierUsed(ctx context.Context, nullifier common.Hash) (bool, error) {
	return s.store.IsNullifierUsed(ctx, nullifier)
}

// Status returns the current epoch, root, reward and pause state
func (s *ClaimService) Status(ctx context.Context) (*repository.EpochSnapshot, error) {
	return s.store.Snapshot(ctx)
}

// Balance returns the ledger balance of an address
func (s *ClaimService) Balance(ctx context.Context, address string) (*big.Int, error) {
	return s.store.GetBalance(ctx, address)
}

// resultLabel maps a terminal claim error to its metric label
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrPaused):
		return "paused"
	case errors.Is(err, types.ErrMalformedOutput):
		return "malformed_output"
	case errors.Is(err, ErrEpochMismatch):
		return "epoch_mismatch"
	case errors.Is(err, ErrRootMismatch):
		return "root_mismatch"
	case errors.Is(err, ErrAlreadyClaimed):
		return "already_claimed"
	case errors.Is(err, ErrInvalidProof):
		return "invalid_proof"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	default:
		return "internal_error"
	}
}
