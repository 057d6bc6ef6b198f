package database

import (
	"context"
	"time"

	"battleserver/models"

	"gorm.io/gorm"
)

const maxRecordsLimit = 100

// MatchRecords は終了したマッチの記録をPostgreSQLに保存する
type MatchRecords struct {
	db *gorm.DB
}

func NewMatchRecords(db *gorm.DB) *MatchRecords {
	return &MatchRecords{db: db}
}

func (s *MatchRecords) SaveMatch(ctx context.Context, record models.MatchRecord) error {
	return s.db.WithContext(ctx).Create(&record).Error
}

// Recent は新しい順に最大 limit 件を返す
func (s *MatchRecords) Recent(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	var records []models.MatchRecord
	err := s.db.WithContext(ctx).
		Order("finished_at DESC").
		Limit(ClampLimit(limit)).
		Find(&records).Error
	return records, err
}

// DeleteOlderThan は cutoff より前に終わった記録を削除し、件数を返す
func (s *MatchRecords) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("finished_at < ?", cutoff).Delete(&models.MatchRecord{})
	return result.RowsAffected, result.Error
}

// ClampLimit は取得件数を 1..100 に収める。0以下は20件
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 20
	case limit > maxRecordsLimit:
		return maxRecordsLimit
	}
	return limit
}
