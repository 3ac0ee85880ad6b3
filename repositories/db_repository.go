package repositories

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"browser-monitor-worker/domain"
	"browser-monitor-worker/models"
)

type DBRepository interface {
	InsertEntry(ctx context.Context, entry domain.ClassifiedEntry) error
}

type PostgresDBRepository struct {
	db *gorm.DB
}

func NewDBRepository(db *gorm.DB) *PostgresDBRepository {
	return &PostgresDBRepository{db: db}
}

func (repo *PostgresDBRepository) InsertEntry(ctx context.Context, entry domain.ClassifiedEntry) error {
	row := models.CapturedEntry{
		Kind:       string(entry.Kind),
		SubjectURL: entry.SubjectURL,
		Payload:    entry.Payload,
		CapturedAt: entry.Timestamp.UTC(),
	}
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert captured entry: %w", err)
	}
	return nil
}
