package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"cryptoverse/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage is the durable key-value store and coin metadata cache, backed by SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the SQLite database at dbPath.
func NewStorage(dbPath string) (*Storage, error) {
	return openStorage(dbPath, os.Stderr)
}

// newGormLogger reports slow queries and failures to w. Missing rows are a
// normal lookup result here and are not reported.
func newGormLogger(w io.Writer) logger.Interface {
	return logger.New(log.New(w, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func openStorage(dbPath string, logOut io.Writer) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: newGormLogger(logOut),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.AppConfig{}, &domain.CoinInfo{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Key-Value Operations
// ======================================================================================

// Get returns the value stored under key and whether it exists.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	var entry domain.AppConfig
	err := s.db.WithContext(ctx).First(&entry, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil // Not found is not an error
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

// Set stores value under key, replacing the previous value in a single statement.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	entry := domain.AppConfig{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

// ======================================================================================
// Coin Metadata Operations
// ======================================================================================

// UpsertCoin creates or updates coin metadata
func (s *Storage) UpsertCoin(ctx context.Context, coin *domain.CoinInfo) error {
	return s.db.WithContext(ctx).Save(coin).Error
}

// GetCoin retrieves coin metadata by id
func (s *Storage) GetCoin(ctx context.Context, id string) (*domain.CoinInfo, error) {
	var coin domain.CoinInfo
	err := s.db.WithContext(ctx).First(&coin, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	return &coin, err
}

// GetAllCoins retrieves all cached coin metadata
func (s *Storage) GetAllCoins(ctx context.Context) ([]domain.CoinInfo, error) {
	var coins []domain.CoinInfo
	err := s.db.WithContext(ctx).Order("id").Find(&coins).Error
	return coins, err
}

// DeleteCoin deletes cached metadata for a coin
func (s *Storage) DeleteCoin(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.CoinInfo{}).Error
}
