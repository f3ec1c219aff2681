package repository

import (
	"career_coach_backend/internal/model"

	"gorm.io/gorm"
)

type InterviewRepository struct {
	DB *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) *InterviewRepository {
	return &InterviewRepository{DB: db}
}

// --- 会话 ---

func (r *InterviewRepository) CreateSession(s *model.InterviewSession) error {
	return r.DB.Create(s).Error
}

func (r *InterviewRepository) FindSessionByID(id string) (*model.InterviewSession, error) {
	var s model.InterviewSession
	err := r.DB.Where("id = ?", id).First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *InterviewRepository) ListSessionsByUser(userID uint, page, limit int) ([]model.InterviewSession, int64, error) {
	var ss []model.InterviewSession
	var total int64
	query := r.DB.Model(&model.InterviewSession{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("started_at desc").Offset(offset).Limit(limit).Find(&ss).Error
	return ss, total, err
}

func (r *InterviewRepository) UpdateSession(s *model.InterviewSession) error {
	return r.DB.Save(s).Error
}

// --- 题目 ---

// CreateQuestions 批量写入一次会话的全部题目，题目集一经持久化不再变更
func (r *InterviewRepository) CreateQuestions(qs []model.InterviewQuestion) error {
	if len(qs) == 0 {
		return nil
	}
	return r.DB.Create(&qs).Error
}

func (r *InterviewRepository) FindQuestionsBySession(sessionID string) ([]model.InterviewQuestion, error) {
	var qs []model.InterviewQuestion
	err := r.DB.Where("session_id = ?", sessionID).Order("question_index asc").Find(&qs).Error
	return qs, err
}

func (r *InterviewRepository) FindQuestionByIndex(sessionID string, index int) (*model.InterviewQuestion, error) {
	var q model.InterviewQuestion
	err := r.DB.Where("session_id = ? AND question_index = ?", sessionID, index).First(&q).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *InterviewRepository) CountQuestions(sessionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.InterviewQuestion{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}

// --- 作答 ---

func (r *InterviewRepository) FindAnswer(sessionID string, index int) (*model.InterviewAnswer, error) {
	var a model.InterviewAnswer
	err := r.DB.Where("session_id = ? AND question_index = ?", sessionID, index).First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UpsertAnswer 同一 (session, index) 至多一条作答记录，重复提交覆盖旧数据
func (r *InterviewRepository) UpsertAnswer(a *model.InterviewAnswer) error {
	existing, err := r.FindAnswer(a.SessionID, a.QuestionIndex)
	if err == nil && existing != nil {
		existing.Transcript = a.Transcript
		existing.Score = a.Score
		existing.Tips = a.Tips
		existing.Strengths = a.Strengths
		existing.Improvements = a.Improvements
		existing.Detailed = a.Detailed
		if err := r.DB.Save(existing).Error; err != nil {
			return err
		}
		*a = *existing
		return nil
	}
	if err != nil && err != gorm.ErrRecordNotFound {
		return err
	}
	return r.DB.Create(a).Error
}

func (r *InterviewRepository) UpdateAnswer(a *model.InterviewAnswer) error {
	return r.DB.Save(a).Error
}

func (r *InterviewRepository) FindAnswersBySession(sessionID string) ([]model.InterviewAnswer, error) {
	var as []model.InterviewAnswer
	err := r.DB.Where("session_id = ?", sessionID).Order("question_index asc").Find(&as).Error
	return as, err
}

func (r *InterviewRepository) CountAnswers(sessionID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.InterviewAnswer{}).Where("session_id = ?", sessionID).Count(&count).Error
	return count, err
}
