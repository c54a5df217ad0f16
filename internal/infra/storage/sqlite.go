package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"coin_tracker/internal/domain"
	"coin_tracker/internal/infra"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists the icon index and user preferences
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance in the user data dir
func NewStorage() (*Storage, error) {
	dbPath, err := infra.DBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}
	return Open(dbPath)
}

// Open connects to (and migrates) the SQLite database at dbPath
func Open(dbPath string) (*Storage, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.CoinInfo{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Coin Operations
// ======================================================================================

// UpsertCoin creates or updates coin metadata
func (s *Storage) UpsertCoin(coin *domain.CoinInfo) error {
	return s.db.Save(coin).Error
}

// UpsertCoins refreshes name/symbol/image for a batch of records,
// keeping any icon path already stored.
func (s *Storage) UpsertCoins(records []domain.CoinRecord) error {
	if len(records) == 0 {
		return nil
	}
	now := time.Now()
	coins := make([]domain.CoinInfo, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		coins = append(coins, domain.CoinInfo{
			ID:        r.ID,
			Symbol:    r.Symbol,
			Name:      r.Name,
			ImageURL:  r.Image,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if len(coins) == 0 {
		return nil
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"symbol", "name", "image_url", "updated_at"}),
	}).CreateInBatches(&coins, 100).Error
}

// SetIconPath records a downloaded icon
func (s *Storage) SetIconPath(id, path string) error {
	return s.db.Model(&domain.CoinInfo{}).Where("id = ?", id).Updates(map[string]interface{}{
		"icon_path":      path,
		"last_synced_at": time.Now(),
	}).Error
}

// GetCoin retrieves coin metadata by id
func (s *Storage) GetCoin(id string) (*domain.CoinInfo, error) {
	var coin domain.CoinInfo
	err := s.db.First(&coin, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &coin, nil
}

// GetAllCoins retrieves all coins
func (s *Storage) GetAllCoins() ([]domain.CoinInfo, error) {
	var coins []domain.CoinInfo
	err := s.db.Order("id").Find(&coins).Error
	return coins, err
}

// CoinsMissingIcons lists coins whose icon has not been downloaded yet
func (s *Storage) CoinsMissingIcons() ([]domain.CoinInfo, error) {
	var coins []domain.CoinInfo
	err := s.db.Where("icon_path = ? AND image_url <> ?", "", "").Order("id").Find(&coins).Error
	return coins, err
}

// DeleteCoin deletes a coin from the database
func (s *Storage) DeleteCoin(id string) error {
	return s.db.Where("id = ?", id).Delete(&domain.CoinInfo{}).Error
}

// ======================================================================================
// Config Operations
// ======================================================================================

// SaveConfig saves a user configuration
func (s *Storage) SaveConfig(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// LoadConfigMap loads all user configurations as a map
func (s *Storage) LoadConfigMap() (map[string]string, error) {
	var configs []domain.AppConfig
	if err := s.db.Find(&configs).Error; err != nil {
		return nil, err
	}

	result := make(map[string]string)
	for _, cfg := range configs {
		result[cfg.Key] = cfg.Value
	}
	return result, nil
}
