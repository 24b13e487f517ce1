// Package store persists scan history. The engine treats it as an
// append/query service behind the Repository interface.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// HealthyStatus is the health status counted as healthy in statistics.
const HealthyStatus = "Healthy"

// Scan is one persisted scan record.
type Scan struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       int64     `json:"user_id" gorm:"index"`
	LeafType     string    `json:"leaf_type" gorm:"not null"`
	HealthStatus string    `json:"health_status" gorm:"not null"`
	Confidence   float64   `json:"confidence" gorm:"not null"`
	ImagePath    string    `json:"image_path"`
	Notes        string    `json:"notes"`
	Location     string    `json:"location"`
	Weather      string    `json:"weather_conditions"`
	DiagnosisID  string    `json:"diagnosis_id" gorm:"index"`
	ScannedAt    time.Time `json:"scan_date" gorm:"index"`
}

// ScanInput is what callers supply to SaveScan. ScannedAt defaults to now.
type ScanInput struct {
	UserID       int64
	LeafType     string
	HealthStatus string
	Confidence   float64
	ImagePath    string
	Notes        string
	Location     string
	Weather      string
	DiagnosisID  string
	ScannedAt    time.Time
}

// Statistics aggregates scans for one user or all users.
type Statistics struct {
	TotalScans    int64   `json:"total_scans"`
	AvgConfidence float64 `json:"avg_confidence"`
	HealthyCount  int64   `json:"healthy_count"`
	DiseasedCount int64   `json:"diseased_count"`
}

// Repository is the scan history collaborator.
type Repository interface {
	SaveScan(ctx context.Context, in ScanInput) (int64, error)
	// UserScans returns up to limit scans, newest first.
	UserScans(ctx context.Context, userID int64, limit int) ([]Scan, error)
	// Statistics aggregates all scans when userID is nil.
	Statistics(ctx context.Context, userID *int64) (Statistics, error)
	// DeleteScan removes a scan, restricted to userID's scans when non-nil.
	DeleteScan(ctx context.Context, id int64, userID *int64) (bool, error)
	Close() error
}

// SQLite is a Repository on a pure-Go sqlite database.
type SQLite struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database file and migrates the schema.
func Open(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, model.ErrRepositoryUnavailable, err)
	}
	if err := db.AutoMigrate(&Scan{}); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveScan(ctx context.Context, in ScanInput) (int64, error) {
	if in.LeafType == "" || in.HealthStatus == "" {
		return 0, errors.New("save scan: leaf type and health status are required")
	}
	if in.ScannedAt.IsZero() {
		in.ScannedAt = time.Now().UTC()
	}
	scan := Scan{
		UserID:       in.UserID,
		LeafType:     in.LeafType,
		HealthStatus: in.HealthStatus,
		Confidence:   in.Confidence,
		ImagePath:    in.ImagePath,
		Notes:        in.Notes,
		Location:     in.Location,
		Weather:      in.Weather,
		DiagnosisID:  in.DiagnosisID,
		ScannedAt:    in.ScannedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&scan).Error; err != nil {
		return 0, fmt.Errorf("save scan: %w: %w", model.ErrRepositoryUnavailable, err)
	}
	return scan.ID, nil
}

func (s *SQLite) UserScans(ctx context.Context, userID int64, limit int) ([]Scan, error) {
	if limit <= 0 {
		limit = 50
	}
	var scans []Scan
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("scanned_at DESC").Order("id DESC").
		Limit(limit).
		Find(&scans).Error
	if err != nil {
		return nil, fmt.Errorf("user scans: %w: %w", model.ErrRepositoryUnavailable, err)
	}
	return scans, nil
}

func (s *SQLite) Statistics(ctx context.Context, userID *int64) (Statistics, error) {
	var stats Statistics
	scoped := func() *gorm.DB {
		q := s.db.WithContext(ctx).Model(&Scan{})
		if userID != nil {
			q = q.Where("user_id = ?", *userID)
		}
		return q
	}

	if err := scoped().Count(&stats.TotalScans).Error; err != nil {
		return stats, fmt.Errorf("statistics: %w: %w", model.ErrRepositoryUnavailable, err)
	}
	if err := scoped().Where("health_status = ?", HealthyStatus).Count(&stats.HealthyCount).Error; err != nil {
		return stats, fmt.Errorf("statistics: %w: %w", model.ErrRepositoryUnavailable, err)
	}
	stats.DiseasedCount = stats.TotalScans - stats.HealthyCount

	var avg *float64
	if err := scoped().Select("AVG(confidence)").Scan(&avg).Error; err != nil {
		return stats, fmt.Errorf("statistics: %w: %w", model.ErrRepositoryUnavailable, err)
	}
	if avg != nil {
		stats.AvgConfidence = *avg
	}
	return stats, nil
}

func (s *SQLite) DeleteScan(ctx context.Context, id int64, userID *int64) (bool, error) {
	q := s.db.WithContext(ctx).Where("id = ?", id)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	res := q.Delete(&Scan{})
	if res.Error != nil {
		return false, fmt.Errorf("delete scan %d: %w: %w", id, model.ErrRepositoryUnavailable, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
