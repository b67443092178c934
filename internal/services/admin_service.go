package services

import (
	"context"
	"fmt"
	"math/big"

	"airdrop-backend/internal/events"
	"airdrop-backend/internal/metrics"
	"airdrop-backend/internal/repository"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// AdminService carries the administrator-only mutations of the distribution.
// Caller identity is established by the admin auth middleware before any of
// these run.
type AdminService struct {
	store     repository.ClaimStore
	publisher *events.Publisher
}

// NewAdminService creates a new AdminService. publisher may be nil.
func NewAdminService(store repository.ClaimStore, publisher *events.Publisher) *AdminService {
	return &AdminService{store: store, publisher: publisher}
}

// RotateEpoch advances the distribution to the next epoch with a new
// allowlist root. The zero root is rejected with ErrInvalidRoot and nothing
// changes. Consumed nullifiers survive the rotation.
func (s *AdminService) RotateEpoch(ctx context.Context, newRoot common.Hash) (*repository.EpochSnapshot, error) {
	if newRoot == (common.Hash{}) {
		return nil, ErrInvalidRoot
	}

	snapshot, err := s.store.RotateEpoch(ctx, newRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate epoch: %w", err)
	}

	metrics.CurrentEpoch.Set(float64(snapshot.EpochID))
	logrus.WithFields(logrus.Fields{
		"epoch": snapshot.EpochID,
		"root":  snapshot.Root.Hex(),
	}).Info("Epoch rotated")

	if s.publisher != nil {
		s.publisher.EpochRotated(events.EpochRotatedEvent{
			EpochID: snapshot.EpochID,
			Root:    snapshot.Root.Hex(),
		})
	}
	return snapshot, nil
}

// SetRewardAmount updates the per-claim payout. Zero is permitted: claims
// keep verifying and consuming nullifiers while paying out nothing.
func (s *AdminService) SetRewardAmount(ctx context.Context, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("reward amount must be non-negative")
	}
	if err := s.store.SetRewardAmount(ctx, amount); err != nil {
		return fmt.Errorf("failed to set reward amount: %w", err)
	}

	logrus.WithField("amount", amount.String()).Info("Reward amount updated")
	if s.publisher != nil {
		s.publisher.RewardChanged(events.RewardChangedEvent{Amount: amount.String()})
	}
	return nil
}

// SetPaused sets the gate consulted by every claim attempt
func (s *AdminService) SetPaused(ctx context.Context, paused bool) (*repository.EpochSnapshot, error) {
	snapshot, err := s.store.SetPaused(ctx, paused)
	if err != nil {
		return nil, fmt.Errorf("failed to set pause state: %w", err)
	}
	s.reportPause(snapshot)
	return snapshot, nil
}

// TogglePause flips the gate
func (s *AdminService) TogglePause(ctx context.Context) (*repository.EpochSnapshot, error) {
	snapshot, err := s.store.TogglePause(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle pause state: %w", err)
	}
	s.reportPause(snapshot)
	return snapshot, nil
}

func (s *AdminService) reportPause(snapshot *repository.EpochSnapshot) {
	if snapshot.Paused {
		metrics.PausedState.Set(1)
	} else {
		metrics.PausedState.Set(0)
	}
	logrus.WithField("paused", snapshot.Paused).Info("Pause gate changed")
	if s.publisher != nil {
		s.publisher.PauseToggled(events.PauseToggledEvent{Paused: snapshot.Paused})
	}
}

// WithdrawResidual moves the remaining treasury balance to recipient and
// returns the amount moved
func (s *AdminService) WithdrawResidual(ctx context.Context, recipient string) (*big.Int, error) {
	moved, err := s.store.WithdrawResidual(ctx, recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to withdraw residual funds: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"recipient": recipient,
		"amount":    moved.String(),
	}).Info("Residual funds withdrawn")
	return moved, nil
}
