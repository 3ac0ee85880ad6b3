package models

import (
	"time"
)

// CapturedEntry mirrors one log file entry
type CapturedEntry struct {
	ID         int       `gorm:"primaryKey;autoIncrement"`
	Kind       string    `gorm:"type:text;not null;index:idx_captured_entries_kind"`
	SubjectURL string    `gorm:"column:subject_url;type:text;index:idx_captured_entries_url"`
	Payload    string    `gorm:"type:text;not null"`
	CapturedAt time.Time `gorm:"type:timestamp with time zone;not null"`
}

// TableName overrides the table name
func (CapturedEntry) TableName() string {
	return "captured_entries"
}
