package service

import (
	"career_coach_backend/internal/model"
	"career_coach_backend/internal/repository"
	"career_coach_backend/internal/util"
	"career_coach_backend/pkg/logger"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DraftCoverLetterRequest 求职信生成参数
type DraftCoverLetterRequest struct {
	ResumeID       string `json:"resumeId" binding:"required"`
	Company        string `json:"company" binding:"required"`
	Position       string `json:"position" binding:"required"`
	JobDescription string `json:"jobDescription"`
}

// CoverLetterService 结合简历和目标岗位起草求职信
type CoverLetterService struct {
	Repo       *repository.CoverLetterRepository
	ResumeRepo *repository.ResumeRepository
	AI         *AIService
}

func NewCoverLetterService(repo *repository.CoverLetterRepository, resumeRepo *repository.ResumeRepository, ai *AIService) *CoverLetterService {
	return &CoverLetterService{
		Repo:       repo,
		ResumeRepo: resumeRepo,
		AI:         ai,
	}
}

// Draft 一次性生成求职信并保存
func (s *CoverLetterService) Draft(ctx context.Context, userID uint, req DraftCoverLetterRequest) (*model.CoverLetter, error) {
	resume, err := s.loadOwnedResume(userID, req.ResumeID)
	if err != nil {
		return nil, err
	}

	content, err := s.AI.Chat(ctx, s.buildMessages(resume, req))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrAIUnavailable, err)
	}

	letter := &model.CoverLetter{
		UserID:         userID,
		ResumeID:       resume.ID,
		Company:        req.Company,
		Position:       req.Position,
		JobDescription: req.JobDescription,
		Content:        strings.TrimSpace(content),
	}
	if err := s.Repo.Create(letter); err != nil {
		return nil, err
	}
	return letter, nil
}

// DraftStream 流式生成，内容分片经通道下发，
// 全文生成完毕后异步落库，流中断则不保存
func (s *CoverLetterService) DraftStream(ctx context.Context, userID uint, req DraftCoverLetterRequest) (<-chan string, <-chan error, error) {
	resume, err := s.loadOwnedResume(userID, req.ResumeID)
	if err != nil {
		return nil, nil, err
	}

	chunks, errChan := s.AI.ChatStream(ctx, s.buildMessages(resume, req))

	out := make(chan string)
	outErr := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(outErr)

		var full strings.Builder
		for chunk := range chunks {
			full.WriteString(chunk)
			out <- chunk
		}
		if err, ok := <-errChan; ok && err != nil {
			outErr <- fmt.Errorf("%w: %v", util.ErrAIUnavailable, err)
			return
		}

		letter := &model.CoverLetter{
			UserID:         userID,
			ResumeID:       resume.ID,
			Company:        req.Company,
			Position:       req.Position,
			JobDescription: req.JobDescription,
			Content:        strings.TrimSpace(full.String()),
		}
		if err := s.Repo.Create(letter); err != nil {
			logger.Log.Error("求职信落库失败", zap.Uint("userId", userID), zap.Error(err))
		}
	}()
	return out, outErr, nil
}

func (s *CoverLetterService) Get(userID uint, letterID string) (*model.CoverLetter, error) {
	return s.loadOwned(userID, letterID)
}

func (s *CoverLetterService) List(userID uint) ([]model.CoverLetter, error) {
	return s.Repo.FindByUser(userID)
}

func (s *CoverLetterService) Delete(userID uint, letterID string) error {
	if _, err := s.loadOwned(userID, letterID); err != nil {
		return err
	}
	return s.Repo.Delete(letterID)
}

func (s *CoverLetterService) buildMessages(resume *model.Resume, req DraftCoverLetterRequest) []AIChatMessage {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("请为应聘「%s」公司的「%s」岗位写一封求职信。\n", req.Company, req.Position))
	if jd := strings.TrimSpace(req.JobDescription); jd != "" {
		sb.WriteString("岗位描述：\n")
		sb.WriteString(jd)
		sb.WriteString("\n")
	}
	sb.WriteString("候选人简历：\n")
	sb.WriteString(resume.Content)
	sb.WriteString("\n要求：语气专业诚恳，突出简历中与岗位匹配的经历，500字以内，直接输出正文。")

	return []AIChatMessage{
		{Role: "system", Content: "你是一位求职顾问，擅长撰写打动招聘方的求职信。"},
		{Role: "user", Content: sb.String()},
	}
}

func (s *CoverLetterService) loadOwned(userID uint, letterID string) (*model.CoverLetter, error) {
	letter, err := s.Repo.FindByID(letterID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: 求职信 %s", util.ErrNotFound, letterID)
		}
		return nil, err
	}
	if letter.UserID != userID {
		return nil, fmt.Errorf("%w: 求职信 %s", util.ErrPermissionDenied, letterID)
	}
	return letter, nil
}

func (s *CoverLetterService) loadOwnedResume(userID uint, resumeID string) (*model.Resume, error) {
	resume, err := s.ResumeRepo.FindByID(resumeID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: 简历 %s", util.ErrNotFound, resumeID)
		}
		return nil, err
	}
	if resume.UserID != userID {
		return nil, fmt.Errorf("%w: 简历 %s", util.ErrPermissionDenied, resumeID)
	}
	return resume, nil
}
