package model

import "encoding/json"

// swagger:model Resume
type Resume struct {
	UUIDBase
	UserID   uint            `gorm:"index;type:bigint unsigned" json:"userId"`
	Title    string          `gorm:"size:255;not null" json:"title"`
	FileName string          `gorm:"size:255" json:"fileName"`
	FileURL  string          `gorm:"size:512" json:"fileUrl"`
	MimeType string          `gorm:"size:100" json:"mimeType"`
	Content  string          `gorm:"type:longtext" json:"content,omitempty"` // 提取出的纯文本
	Summary  json.RawMessage `gorm:"type:json" json:"summary,omitempty"`     // AI生成的结构化摘要
}

func (Resume) TableName() string {
	return "resumes"
}
