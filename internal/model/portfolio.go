package model

import (
	"encoding/json"
	"time"
)

// swagger:model Portfolio
type Portfolio struct {
	UUIDBase
	UserID      uint            `gorm:"index;type:bigint unsigned" json:"userId"`
	ResumeID    string          `gorm:"index;type:varchar(36)" json:"resumeId"`
	Title       string          `gorm:"size:255;not null" json:"title"`
	Template    string          `gorm:"size:50;default:'classic'" json:"template"`
	Content     json.RawMessage `gorm:"type:json" json:"content,omitempty"` // 分区块的作品集内容
	Published   bool            `gorm:"default:false" json:"published"`
	PublishedAt *time.Time      `json:"publishedAt,omitempty"`
}

func (Portfolio) TableName() string {
	return "portfolios"
}
