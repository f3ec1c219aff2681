package model

// swagger:model CoverLetter
type CoverLetter struct {
	UUIDBase
	UserID         uint   `gorm:"index;type:bigint unsigned" json:"userId"`
	ResumeID       string `gorm:"index;type:varchar(36)" json:"resumeId"`
	Company        string `gorm:"size:255" json:"company"`
	Position       string `gorm:"size:255" json:"position"`
	JobDescription string `gorm:"type:text" json:"jobDescription,omitempty"`
	Content        string `gorm:"type:longtext" json:"content"`
}

func (CoverLetter) TableName() string {
	return "cover_letters"
}
