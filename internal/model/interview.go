package model

import (
	"encoding/json"
	"time"
)

// 题目来源
const (
	QuestionSourceStatic   = "static"
	QuestionSourceLLM      = "llm"
	QuestionSourceFallback = "fallback"
)

// swagger:model InterviewSession
type InterviewSession struct {
	UUIDBase
	UserID         uint       `gorm:"index;type:bigint unsigned" json:"userId"`
	Domain         string     `gorm:"size:100;not null" json:"domain"`
	JobDescription string     `gorm:"type:text" json:"jobDescription,omitempty"`
	CustomPosition string     `gorm:"size:255" json:"customPosition,omitempty"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
	OverallScore   *int       `json:"overallScore,omitempty"` // 0-10
	Completed      bool       `gorm:"default:false" json:"completed"`
	Aborted        bool       `gorm:"default:false" json:"aborted"`
}

func (InterviewSession) TableName() string {
	return "interview_sessions"
}

// Active 会话是否仍接受作答。Completed 和 Aborted 都是终态
func (s *InterviewSession) Active() bool {
	return !s.Completed
}

// swagger:model InterviewQuestion
type InterviewQuestion struct {
	UUIDBase
	SessionID  string `gorm:"uniqueIndex:idx_session_question;type:varchar(36)" json:"sessionId"`
	Index      int    `gorm:"column:question_index;uniqueIndex:idx_session_question" json:"index"`
	Text       string `gorm:"type:text;not null" json:"text"`
	Category   string `gorm:"size:100" json:"category"`
	Difficulty string `gorm:"size:20" json:"difficulty"`
	Reasoning  string `gorm:"type:text" json:"reasoning"`
	Source     string `gorm:"size:10" json:"source"` // static/llm/fallback
}

func (InterviewQuestion) TableName() string {
	return "interview_questions"
}

// swagger:model InterviewAnswer
type InterviewAnswer struct {
	UUIDBase
	SessionID     string          `gorm:"uniqueIndex:idx_session_answer;type:varchar(36)" json:"sessionId"`
	QuestionIndex int             `gorm:"uniqueIndex:idx_session_answer" json:"questionIndex"`
	Transcript    string          `gorm:"type:text" json:"transcript"`
	Score         *int            `json:"score,omitempty"` // 未评分时为空，与0分区分
	Tips          json.RawMessage `gorm:"type:json" json:"tips,omitempty"`
	Strengths     string          `gorm:"type:text" json:"strengths,omitempty"`
	Improvements  string          `gorm:"type:text" json:"improvements,omitempty"`
	Detailed      string          `gorm:"type:text" json:"detailed,omitempty"`
}

func (InterviewAnswer) TableName() string {
	return "interview_answers"
}
