package db

import (
	"time"
)

// Source tags where a request came from.
type Source string

const (
	SourceChat    Source = "chat"
	SourceSite    Source = "site"
	SourceUnknown Source = "unknown"
)

// Normalize maps anything but a known channel to SourceUnknown.
func (s Source) Normalize() Source {
	switch s {
	case SourceChat, SourceSite:
		return s
	default:
		return SourceUnknown
	}
}

// Request is a customer repair request. Rows are never updated after insert.
type Request struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Phone     string    `json:"phone" gorm:"type:text;not null"`
	Problem   string    `json:"problem" gorm:"type:text"`
	Source    Source    `json:"source" gorm:"type:text;not null;default:unknown;index"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime;index"`
}

func (Request) TableName() string {
	return "requests"
}
