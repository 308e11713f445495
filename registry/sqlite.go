package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type appRecord struct {
	ID        string `gorm:"primaryKey;column:id"`
	Name      string `gorm:"column:name;not null"`
	UpdatedAt time.Time
}

func (appRecord) TableName() string {
	return "newrelic_apps"
}

type SQLiteStore struct {
	db *gorm.DB
}

// NewSQLiteStore opens (and migrates) a sqlite database at path. Use
// ":memory:" for a throwaway database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; this also keeps :memory: on one connection
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&appRecord{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) FindOne(ctx context.Context, id string) (Record, error) {
	var row appRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	return Record{ID: row.ID, Name: row.Name}, nil
}

func (s *SQLiteStore) FindAll(ctx context.Context) ([]Record, error) {
	var rows []appRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, Record{ID: row.ID, Name: row.Name})
	}
	return records, nil
}

func (s *SQLiteStore) Save(ctx context.Context, record Record) error {
	row := appRecord{ID: record.ID, Name: record.Name}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
	}).Create(&row).Error
}

func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&appRecord{}).Error
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
