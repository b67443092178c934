package repository

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"airdrop-backend/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNullifierConsumed is returned by CommitClaim when the nullifier
	// insert lost to an earlier claim.
	ErrNullifierConsumed = errors.New("nullifier already consumed")

	// ErrInsufficientFunds is returned when the treasury cannot cover the
	// payout; the surrounding transaction rolls back, including the
	// nullifier insert.
	ErrInsufficientFunds = errors.New("insufficient treasury funds")
)

// EpochSnapshot is a consistent read of the distribution configuration.
// A claim attempt takes one snapshot and checks everything against it.
type EpochSnapshot struct {
	EpochID      uint64
	Root         common.Hash
	RewardAmount *big.Int
	Paused       bool
}

// ClaimCommit describes the state transition of a successful claim
type ClaimCommit struct {
	ClaimID   string
	Nullifier common.Hash
	Recipient string
	Amount    *big.Int
	EpochID   uint64
}

// ClaimStore is the persistence boundary of the claim engine: the nullifier
// registry, the epoch configuration and the payout ledger. Implementations
// must make CommitClaim atomic - either the nullifier is recorded and the
// value moved, or neither happened.
type ClaimStore interface {
	Snapshot(ctx context.Context) (*EpochSnapshot, error)
	IsNullifierUsed(ctx context.Context, nullifier common.Hash) (bool, error)
	CommitClaim(ctx context.Context, commit *ClaimCommit) error
	GetBalance(ctx context.Context, address string) (*big.Int, error)

	RotateEpoch(ctx context.Context, newRoot common.Hash) (*EpochSnapshot, error)
	SetRewardAmount(ctx context.Context, amount *big.Int) error
	SetPaused(ctx context.Context, paused bool) (*EpochSnapshot, error)
	TogglePause(ctx context.Context) (*EpochSnapshot, error)
	WithdrawResidual(ctx context.Context, recipient string) (*big.Int, error)
}

// gormClaimStore implements ClaimStore on Postgres
type gormClaimStore struct {
	db *gorm.DB
}

// NewClaimStore creates a new ClaimStore backed by the given database
func NewClaimStore(db *gorm.DB) ClaimStore {
	return &gormClaimStore{db: db}
}

const configRowID = 1

func snapshotFromModel(cfg *models.EpochConfig) (*EpochSnapshot, error) {
	reward, ok := new(big.Int).SetString(cfg.RewardAmount, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt reward amount in epoch config: %q", cfg.RewardAmount)
	}
	return &EpochSnapshot{
		EpochID:      cfg.CurrentEpoch,
		Root:         common.HexToHash(cfg.ActiveRoot),
		RewardAmount: reward,
		Paused:       cfg.Paused,
	}, nil
}

func (s *gormClaimStore) loadConfig(tx *gorm.DB, forUpdate bool) (*models.EpochConfig, error) {
	var cfg models.EpochConfig
	q := tx.Where("id = ?", configRowID)
	if forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	if err := q.First(&cfg).Error; err != nil {
		return nil, fmt.Errorf("failed to load epoch config: %w", err)
	}
	return &cfg, nil
}

// Snapshot reads the current epoch configuration
func (s *gormClaimStore) Snapshot(ctx context.Context) (*EpochSnapshot, error) {
	cfg, err := s.loadConfig(s.db.WithContext(ctx), false)
	if err != nil {
		return nil, err
	}
	return snapshotFromModel(cfg)
}

// IsNullifierUsed reports whether the nullifier was already consumed
func (s *gormClaimStore) IsNullifierUsed(ctx context.Context, nullifier common.Hash) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Nullifier{}).
		Where("nullifier = ?", nullifier.Hex()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query nullifier: %w", err)
	}
	return count > 0, nil
}

// isUniqueViolation reports whether err is a Postgres duplicate-key error
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// CommitClaim performs the atomic tail of a claim attempt: insert-if-absent
// of the nullifier, treasury debit, recipient credit and the audit record,
// all in one transaction. Losing the nullifier insert fails the whole
// attempt with ErrNullifierConsumed; a treasury shortfall fails it with
// ErrInsufficientFunds and undoes the nullifier insert.
func (s *gormClaimStore) CommitClaim(ctx context.Context, commit *ClaimCommit) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Nullifier{
			Nullifier: commit.Nullifier.Hex(),
			EpochID:   commit.EpochID,
			ClaimID:   commit.ClaimID,
		})
		if res.Error != nil {
			if isUniqueViolation(res.Error) {
				return ErrNullifierConsumed
			}
			return fmt.Errorf("failed to insert nullifier: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNullifierConsumed
		}

		if err := moveValue(tx, models.TreasuryAccount, commit.Recipient, commit.Amount); err != nil {
			return err
		}

		record := &models.ClaimRecord{
			ID:        commit.ClaimID,
			Nullifier: commit.Nullifier.Hex(),
			Recipient: commit.Recipient,
			Amount:    commit.Amount.String(),
			EpochID:   commit.EpochID,
		}
		if err := tx.Create(record).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrNullifierConsumed
			}
			return fmt.Errorf("failed to create claim record: %w", err)
		}
		return nil
	})
}

// moveValue debits from and credits to under row locks. A zero amount is a
// legal no-op movement (zero reward still consumes the nullifier).
func moveValue(tx *gorm.DB, from, to string, amount *big.Int) error {
	var src models.LedgerAccount
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", from).First(&src).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInsufficientFunds
	}
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", from, err)
	}

	balance, ok := new(big.Int).SetString(src.Balance, 10)
	if !ok {
		return fmt.Errorf("corrupt balance for account %s: %q", from, src.Balance)
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}

	src.Balance = new(big.Int).Sub(balance, amount).String()
	src.UpdatedAt = time.Now()
	if err := tx.Save(&src).Error; err != nil {
		return fmt.Errorf("failed to debit account %s: %w", from, err)
	}

	var dst models.LedgerAccount
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", to).First(&dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		dst = models.LedgerAccount{Address: to, Balance: amount.String(), UpdatedAt: time.Now()}
		if err := tx.Create(&dst).Error; err != nil {
			return fmt.Errorf("failed to create account %s: %w", to, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load account %s: %w", to, err)
	}

	dstBalance, ok := new(big.Int).SetString(dst.Balance, 10)
	if !ok {
		return fmt.Errorf("corrupt balance for account %s: %q", to, dst.Balance)
	}
	dst.Balance = new(big.Int).Add(dstBalance, amount).String()
	dst.UpdatedAt = time.Now()
	if err := tx.Save(&dst).Error; err != nil {
		return fmt.Errorf("failed to credit account %s: %w", to, err)
	}
	return nil
}

// GetBalance returns the ledger balance of an address (zero if unknown)
func (s *gormClaimStore) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	var account models.LedgerAccount
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return big.NewInt(0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account %s: %w", address, err)
	}
	balance, ok := new(big.Int).SetString(account.Balance, 10)
	if !ok {
		return nil, fmt.Errorf("corrupt balance for account %s: %q", address, account.Balance)
	}
	return balance, nil
}

// RotateEpoch advances the epoch by exactly one and installs the new root.
// Root validity (non-zero) is checked by the admin service before this call.
func (s *gormClaimStore) RotateEpoch(ctx context.Context, newRoot common.Hash) (*EpochSnapshot, error) {
	var snap *EpochSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.loadConfig(tx, true)
		if err != nil {
			return err
		}
		cfg.CurrentEpoch++
		cfg.ActiveRoot = newRoot.Hex()
		cfg.UpdatedAt = time.Now()
		if err := tx.Save(cfg).Error; err != nil {
			return fmt.Errorf("failed to update epoch config: %w", err)
		}
		snap, err = snapshotFromModel(cfg)
		return err
	})
	return snap, err
}

// SetRewardAmount updates the per-claim payout
func (s *gormClaimStore) SetRewardAmount(ctx context.Context, amount *big.Int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.loadConfig(tx, true)
		if err != nil {
			return err
		}
		cfg.RewardAmount = amount.String()
		cfg.UpdatedAt = time.Now()
		if err := tx.Save(cfg).Error; err != nil {
			return fmt.Errorf("failed to update reward amount: %w", err)
		}
		return nil
	})
}

// SetPaused sets the pause gate
func (s *gormClaimStore) SetPaused(ctx context.Context, paused bool) (*EpochSnapshot, error) {
	return s.updatePause(ctx, func(current bool) bool { return paused })
}

// TogglePause flips the pause gate
func (s *gormClaimStore) TogglePause(ctx context.Context) (*EpochSnapshot, error) {
	return s.updatePause(ctx, func(current bool) bool { return !current })
}

func (s *gormClaimStore) updatePause(ctx context.Context, next func(bool) bool) (*EpochSnapshot, error) {
	var snap *EpochSnapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := s.loadConfig(tx, true)
		if err != nil {
			return err
		}
		cfg.Paused = next(cfg.Paused)
		cfg.UpdatedAt = time.Now()
		if err := tx.Save(cfg).Error; err != nil {
			return fmt.Errorf("failed to update pause state: %w", err)
		}
		snap, err = snapshotFromModel(cfg)
		return err
	})
	return snap, err
}

// WithdrawResidual moves the remaining treasury balance to the recipient and
// returns the amount moved
func (s *gormClaimStore) WithdrawResidual(ctx context.Context, recipient string) (*big.Int, error) {
	var moved *big.Int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var treasury models.LedgerAccount
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("address = ?", models.TreasuryAccount).First(&treasury).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			moved = big.NewInt(0)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load treasury: %w", err)
		}
		balance, ok := new(big.Int).SetString(treasury.Balance, 10)
		if !ok {
			return fmt.Errorf("corrupt treasury balance: %q", treasury.Balance)
		}
		if balance.Sign() == 0 {
			moved = big.NewInt(0)
			return nil
		}
		if err := moveValue(tx, models.TreasuryAccount, recipient, balance); err != nil {
			return err
		}
		moved = balance
		return nil
	})
	return moved, err
}
