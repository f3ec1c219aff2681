package service

import (
	"bytes"
	"career_coach_backend/internal/model"
	"career_coach_backend/internal/repository"
	"career_coach_backend/internal/util"
	"career_coach_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxResumeBytes = 10 << 20 // 10MB

// ResumeService 简历的上传解析、结构化摘要与针对性优化
type ResumeService struct {
	Repo    *repository.ResumeRepository
	Storage *StorageService
	AI      *AIService
}

func NewResumeService(repo *repository.ResumeRepository, storage *StorageService, ai *AIService) *ResumeService {
	return &ResumeService{
		Repo:    repo,
		Storage: storage,
		AI:      ai,
	}
}

// Upload 接收简历文件：校验类型、抽取正文、存档原件。
// 结构化摘要尽力而为，失败不影响上传本身
func (s *ResumeService) Upload(ctx context.Context, userID uint, fileHeader *multipart.FileHeader, title string) (*model.Resume, error) {
	if fileHeader.Size > maxResumeBytes {
		return nil, fmt.Errorf("%w: 简历文件超过 %dMB", util.ErrValidation, maxResumeBytes>>20)
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	mimeType, ok := resumeMimeByExt(ext)
	if !ok {
		return nil, fmt.Errorf("%w: 仅支持 %s 格式", util.ErrValidation, strings.Join(util.AllowedResumeExtensions, "/"))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}

	content, err := ExtractResumeText(mimeType, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: 未能从文件中提取到文本", util.ErrValidation)
	}

	key := fmt.Sprintf("resumes/%s%s", model.GenerateUUID(), ext)
	url, err := s.Storage.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), mimeType)
	if err != nil {
		return nil, err
	}

	if title = strings.TrimSpace(title); title == "" {
		title = strings.TrimSuffix(fileHeader.Filename, ext)
	}

	resume := &model.Resume{
		UserID:   userID,
		Title:    title,
		FileName: fileHeader.Filename,
		FileURL:  url,
		MimeType: mimeType,
		Content:  content,
	}

	if summary, err := s.summarize(ctx, content); err != nil {
		logger.Log.Warn("简历摘要生成失败", zap.Error(err))
	} else {
		resume.Summary = summary
	}

	if err := s.Repo.Create(resume); err != nil {
		return nil, err
	}
	return resume, nil
}

func (s *ResumeService) Get(userID uint, resumeID string) (*model.Resume, error) {
	return s.loadOwned(userID, resumeID)
}

func (s *ResumeService) List(userID uint) ([]model.Resume, error) {
	return s.Repo.FindByUser(userID)
}

func (s *ResumeService) Delete(ctx context.Context, userID uint, resumeID string) error {
	resume, err := s.loadOwned(userID, resumeID)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(resumeID); err != nil {
		return err
	}
	// 原件删除失败只记日志，库里的记录已经不在了
	if key := storageKeyFromURL(resume.FileURL); key != "" {
		if err := s.Storage.Delete(ctx, key); err != nil {
			logger.Log.Warn("简历原件删除失败", zap.String("key", key), zap.Error(err))
		}
	}
	return nil
}

// Optimize 结合目标岗位给出逐条修改建议
func (s *ResumeService) Optimize(ctx context.Context, userID uint, resumeID, jobDescription string) (string, error) {
	resume, err := s.loadOwned(userID, resumeID)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("请作为资深 HR 审阅下面的简历，给出逐条优化建议。\n")
	if jobDescription = strings.TrimSpace(jobDescription); jobDescription != "" {
		sb.WriteString("目标岗位描述：\n")
		sb.WriteString(jobDescription)
		sb.WriteString("\n")
	}
	sb.WriteString("简历内容：\n")
	sb.WriteString(resume.Content)

	result, err := s.AI.Chat(ctx, []AIChatMessage{
		{Role: "system", Content: "你是一位经验丰富的招聘专家，建议要具体、可执行。"},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrAIUnavailable, err)
	}
	return result, nil
}

// summarize 产出 {name, title, skills, experience, education} 结构的摘要
func (s *ResumeService) summarize(ctx context.Context, content string) (json.RawMessage, error) {
	prompt := fmt.Sprintf(`从以下简历中提取结构化信息，严格返回 JSON，不要包含任何其他文字：
{"name": "姓名", "title": "求职意向或当前职位", "skills": ["技能"], "experience": ["经历概述"], "education": ["教育经历"]}
简历内容：
%s`, content)

	raw, err := s.AI.Chat(ctx, []AIChatMessage{
		{Role: "system", Content: "你是一个简历解析器，只输出 JSON。"},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, err
	}

	jsonText, ok := extractJSONObject(raw)
	if !ok || !json.Valid([]byte(jsonText)) {
		return nil, fmt.Errorf("摘要响应不是合法 JSON")
	}
	return json.RawMessage(jsonText), nil
}

func (s *ResumeService) loadOwned(userID uint, resumeID string) (*model.Resume, error) {
	resume, err := s.Repo.FindByID(resumeID)
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

func resumeMimeByExt(ext string) (string, bool) {
	switch ext {
	case ".pdf":
		return util.MimePDF, true
	case ".docx":
		return util.MimeDocx, true
	case ".txt":
		return util.MimeText, true
	}
	return "", false
}

// storageKeyFromURL 从本地存储 URL 还原对象 key，远端 URL 不做删除
func storageKeyFromURL(url string) string {
	if strings.HasPrefix(url, "/uploads/") {
		return strings.TrimPrefix(url, "/uploads/")
	}
	return ""
}

// ExtractResumeText 按 MIME 类型抽取纯文本
func ExtractResumeText(mimeType string, data []byte) (string, error) {
	switch mimeType {
	case util.MimeText:
		return string(data), nil
	case util.MimePDF:
		return extractPDFText(data)
	case util.MimeDocx:
		return extractDocxText(data)
	default:
		return "", fmt.Errorf("不支持的文件类型: %s", mimeType)
	}
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("PDF 解析失败: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, _ := page.GetPlainText(nil)
		sb.WriteString(text)
	}
	return sb.String(), nil
}

func extractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("docx 解析失败: %w", err)
	}
	defer doc.Close()
	return doc.Editable().GetContent(), nil
}
