package db

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"airdrop-backend/internal/config"
	"airdrop-backend/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB global database handle
var DB *gorm.DB

// InitDB connects to Postgres, migrates the schema and seeds the epoch
// configuration row and treasury account on first start.
func InitDB(cfg *config.Config) error {
	gormDB, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		TranslateError:                           true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}

	if err := gormDB.AutoMigrate(
		&models.EpochConfig{},
		&models.Nullifier{},
		&models.ClaimRecord{},
		&models.LedgerAccount{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}

	if err := seed(gormDB, cfg); err != nil {
		return err
	}

	DB = gormDB
	logrus.Info("Database connected and migrated")
	return nil
}

// seed creates the singleton epoch config row (epoch 1) and the treasury
// account if they do not exist yet. Existing rows are never touched; the
// epoch lifecycle is driven exclusively by admin operations afterwards.
func seed(gormDB *gorm.DB, cfg *config.Config) error {
	var epochCfg models.EpochConfig
	err := gormDB.Where("id = ?", 1).First(&epochCfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		root := common.HexToHash(cfg.Claim.InitialRoot)
		if root == (common.Hash{}) {
			return fmt.Errorf("initial root is required and must be non-zero")
		}
		reward := cfg.Claim.InitialReward
		if reward == "" {
			reward = "0"
		}
		if _, ok := new(big.Int).SetString(reward, 10); !ok {
			return fmt.Errorf("invalid initial reward amount: %q", reward)
		}
		epochCfg = models.EpochConfig{
			ID:           1,
			CurrentEpoch: 1,
			ActiveRoot:   root.Hex(),
			RewardAmount: reward,
			Paused:       false,
			UpdatedAt:    time.Now(),
		}
		if err := gormDB.Create(&epochCfg).Error; err != nil {
			return fmt.Errorf("failed to seed epoch config: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"epoch":  1,
			"root":   epochCfg.ActiveRoot,
			"reward": epochCfg.RewardAmount,
		}).Info("Seeded epoch configuration")
	} else if err != nil {
		return fmt.Errorf("failed to read epoch config: %w", err)
	}

	var treasury models.LedgerAccount
	err = gormDB.Where("address = ?", models.TreasuryAccount).First(&treasury).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		balance := strings.TrimSpace(cfg.Claim.InitialTreasury)
		if balance == "" {
			balance = "0"
		}
		if _, ok := new(big.Int).SetString(balance, 10); !ok {
			return fmt.Errorf("invalid initial treasury amount: %q", balance)
		}
		treasury = models.LedgerAccount{
			Address:   models.TreasuryAccount,
			Balance:   balance,
			UpdatedAt: time.Now(),
		}
		if err := gormDB.Create(&treasury).Error; err != nil {
			return fmt.Errorf("failed to seed treasury account: %w", err)
		}
		logrus.WithField("balance", balance).Info("Seeded treasury account")
	} else if err != nil {
		return fmt.Errorf("failed to read treasury account: %w", err)
	}

	return nil
}
