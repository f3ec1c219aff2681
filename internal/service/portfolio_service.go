package service

import (
	"career_coach_backend/internal/model"
	"career_coach_backend/internal/repository"
	"career_coach_backend/internal/util"
	"career_coach_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var portfolioTemplates = map[string]bool{
	"classic":  true,
	"modern":   true,
	"minimal":  true,
	"creative": true,
}

// GeneratePortfolioRequest 由简历生成作品集页面
type GeneratePortfolioRequest struct {
	ResumeID string `json:"resumeId" binding:"required"`
	Title    string `json:"title"`
	Template string `json:"template"`
}

// PortfolioService 基于简历内容生成可发布的作品集
type PortfolioService struct {
	Repo       *repository.PortfolioRepository
	ResumeRepo *repository.ResumeRepository
	AI         *AIService
}

func NewPortfolioService(repo *repository.PortfolioRepository, resumeRepo *repository.ResumeRepository, ai *AIService) *PortfolioService {
	return &PortfolioService{
		Repo:       repo,
		ResumeRepo: resumeRepo,
		AI:         ai,
	}
}

// Generate 生成作品集内容。大模型输出不可用时落回简历要点拼装的骨架
func (s *PortfolioService) Generate(ctx context.Context, userID uint, req GeneratePortfolioRequest) (*model.Portfolio, error) {
	resume, err := s.loadOwnedResume(userID, req.ResumeID)
	if err != nil {
		return nil, err
	}

	template := req.Template
	if template == "" {
		template = "classic"
	}
	if !portfolioTemplates[template] {
		return nil, fmt.Errorf("%w: 未知模板 %s", util.ErrValidation, req.Template)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = resume.Title + " 的作品集"
	}

	content, err := s.generateContent(ctx, resume)
	if err != nil {
		logger.Log.Warn("作品集内容生成失败，使用骨架内容", zap.String("resumeId", resume.ID), zap.Error(err))
		content = skeletonContent(resume)
	}

	portfolio := &model.Portfolio{
		UserID:   userID,
		ResumeID: resume.ID,
		Title:    title,
		Template: template,
		Content:  content,
	}
	if err := s.Repo.Create(portfolio); err != nil {
		return nil, err
	}
	return portfolio, nil
}

func (s *PortfolioService) Get(userID uint, portfolioID string) (*model.Portfolio, error) {
	return s.loadOwned(userID, portfolioID)
}

// GetPublished 已发布的作品集对所有人可见
func (s *PortfolioService) GetPublished(portfolioID string) (*model.Portfolio, error) {
	p, err := s.Repo.FindByID(portfolioID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: 作品集 %s", util.ErrNotFound, portfolioID)
		}
		return nil, err
	}
	if !p.Published {
		return nil, fmt.Errorf("%w: 作品集 %s", util.ErrNotFound, portfolioID)
	}
	return p, nil
}

func (s *PortfolioService) List(userID uint) ([]model.Portfolio, error) {
	return s.Repo.FindByUser(userID)
}

// SetPublished 发布或下线
func (s *PortfolioService) SetPublished(userID uint, portfolioID string, published bool) (*model.Portfolio, error) {
	p, err := s.loadOwned(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	p.Published = published
	if published {
		now := time.Now()
		p.PublishedAt = &now
	} else {
		p.PublishedAt = nil
	}
	if err := s.Repo.Update(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PortfolioService) Delete(userID uint, portfolioID string) error {
	if _, err := s.loadOwned(userID, portfolioID); err != nil {
		return err
	}
	return s.Repo.Delete(portfolioID)
}

func (s *PortfolioService) generateContent(ctx context.Context, resume *model.Resume) (json.RawMessage, error) {
	prompt := fmt.Sprintf(`根据以下简历生成个人作品集页面的内容，严格返回 JSON，不要包含任何其他文字：
{"about": "个人简介", "projects": [{"name": "项目名", "description": "项目描述", "highlights": ["亮点"]}], "skills": ["技能"], "contact": "联系方式说明"}
简历内容：
%s`, resume.Content)

	raw, err := s.AI.Chat(ctx, []AIChatMessage{
		{Role: "system", Content: "你是一位个人品牌顾问，擅长把简历包装成吸引人的作品集，只输出 JSON。"},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	jsonText, ok := extractJSONObject(raw)
	if !ok || !json.Valid([]byte(jsonText)) {
		return nil, fmt.Errorf("作品集响应不是合法 JSON")
	}
	return json.RawMessage(jsonText), nil
}

// skeletonContent 不依赖大模型的保底内容
func skeletonContent(resume *model.Resume) json.RawMessage {
	about := resume.Content
	if r := []rune(about); len(r) > 200 {
		about = string(r[:200])
	}
	content, _ := json.Marshal(map[string]interface{}{
		"about":    about,
		"projects": []interface{}{},
		"skills":   []string{},
		"contact":  "",
	})
	return content
}

func (s *PortfolioService) loadOwned(userID uint, portfolioID string) (*model.Portfolio, error) {
	p, err := s.Repo.FindByID(portfolioID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: 作品集 %s", util.ErrNotFound, portfolioID)
		}
		return nil, err
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("%w: 作品集 %s", util.ErrPermissionDenied, portfolioID)
	}
	return p, nil
}

func (s *PortfolioService) loadOwnedResume(userID uint, resumeID string) (*model.Resume, error) {
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
