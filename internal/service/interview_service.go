package service

import (
	"career_coach_backend/internal/model"
	"career_coach_backend/internal/repository"
	"career_coach_backend/internal/util"
	"career_coach_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 无任何有效评分时的总分兜底值
const DefaultAverageScore = 7

const summaryCacheTTL = time.Hour

// CreateSessionRequest 发起一场模拟面试
type CreateSessionRequest struct {
	Domain         string `json:"domain" binding:"required"`
	JobDescription string `json:"jobDescription"`
	CustomPosition string `json:"customPosition"`
}

// QuestionResult 汇总报告中的单题明细
type QuestionResult struct {
	Index    int                    `json:"index"`
	Question model.InterviewQuestion `json:"question"`
	Answer   *model.InterviewAnswer `json:"answer,omitempty"`
	Answered bool                   `json:"answered"`
}

// SessionSummary 一场面试的汇总报告
type SessionSummary struct {
	SessionID      string           `json:"sessionId"`
	Domain         string           `json:"domain"`
	AverageScore   int              `json:"averageScore"`
	CompletionRate float64          `json:"completionRate"`
	Completed      bool             `json:"completed"`
	Aborted        bool             `json:"aborted"`
	StartedAt      time.Time        `json:"startedAt"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
	Breakdown      []QuestionResult `json:"breakdown"`
}

// InterviewService 模拟面试会话的完整生命周期：
// 建会话出题、录音转写作答、逐题评分、结束或中止、汇总报告
type InterviewService struct {
	Repo          *repository.InterviewRepository
	Questions     *QuestionService
	Scoring       *ScoringService
	Transcription *TranscriptionService
	rdb           *redis.Client
}

func NewInterviewService(repo *repository.InterviewRepository, questions *QuestionService, scoring *ScoringService, transcription *TranscriptionService, rdb *redis.Client) *InterviewService {
	return &InterviewService{
		Repo:          repo,
		Questions:     questions,
		Scoring:       scoring,
		Transcription: transcription,
		rdb:           rdb,
	}
}

// CreateSession 建立会话并立即生成题目集。题目集一次生成终身不变
func (s *InterviewService) CreateSession(ctx context.Context, userID uint, req CreateSessionRequest) (*model.InterviewSession, []model.InterviewQuestion, error) {
	domain := strings.TrimSpace(req.Domain)
	if domain == "" {
		return nil, nil, fmt.Errorf("%w: 面试领域不能为空", util.ErrValidation)
	}

	session := &model.InterviewSession{
		UserID:         userID,
		Domain:         domain,
		JobDescription: strings.TrimSpace(req.JobDescription),
		CustomPosition: strings.TrimSpace(req.CustomPosition),
		StartedAt:      time.Now(),
	}
	if err := s.Repo.CreateSession(session); err != nil {
		return nil, nil, err
	}

	generated := s.Questions.GetQuestionSet(ctx, session.Domain, session.JobDescription, session.CustomPosition)
	if len(generated) == 0 {
		return nil, nil, fmt.Errorf("%w: 领域 %s", util.ErrQuestionGeneration, domain)
	}

	questions := make([]model.InterviewQuestion, 0, len(generated))
	for i, q := range generated {
		questions = append(questions, model.InterviewQuestion{
			SessionID:  session.ID,
			Index:      i,
			Text:       q.Text,
			Category:   q.Category,
			Difficulty: q.Difficulty,
			Reasoning:  q.Reasoning,
			Source:     q.Source,
		})
	}
	if err := s.Repo.CreateQuestions(questions); err != nil {
		return nil, nil, err
	}

	logger.Log.Info("面试会话已创建",
		zap.String("sessionId", session.ID),
		zap.Uint("userId", userID),
		zap.String("domain", domain),
		zap.Int("questions", len(questions)))
	return session, questions, nil
}

// GetSession 查询会话及题目，仅本人可见
func (s *InterviewService) GetSession(userID uint, sessionID string) (*model.InterviewSession, []model.InterviewQuestion, error) {
	session, err := s.loadOwnedSession(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	questions, err := s.Repo.FindQuestionsBySession(sessionID)
	if err != nil {
		return nil, nil, err
	}
	return session, questions, nil
}

func (s *InterviewService) ListSessions(userID uint, page, limit int) ([]model.InterviewSession, int64, error) {
	return s.Repo.ListSessionsByUser(userID, page, limit)
}

// SubmitAudioAnswer 录音作答：转写、落库、评分一条龙。
// 评分失败不阻断流程，作答以未评分状态保留
func (s *InterviewService) SubmitAudioAnswer(ctx context.Context, userID uint, sessionID string, index int, audio []byte, filename string) (*model.InterviewAnswer, error) {
	transcript, err := s.Transcription.Transcribe(ctx, audio, filename)
	if err != nil {
		return nil, err
	}

	answer, err := s.RecordAnswer(userID, sessionID, index, transcript)
	if err != nil {
		return nil, err
	}

	scored, err := s.ScoreAnswer(ctx, userID, sessionID, index)
	if err != nil {
		logger.Log.Warn("作答已保存但评分失败",
			zap.String("sessionId", sessionID),
			zap.Int("index", index),
			zap.Error(err))
		return answer, nil
	}
	return scored, nil
}

// RecordAnswer 保存文字作答。重复提交覆盖旧作答并清空旧评分
func (s *InterviewService) RecordAnswer(userID uint, sessionID string, index int, transcript string) (*model.InterviewAnswer, error) {
	session, err := s.loadOwnedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, fmt.Errorf("%w: 会话 %s", util.ErrSessionNotActive, sessionID)
	}

	if _, err := s.Repo.FindQuestionByIndex(sessionID, index); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: 题号 %d", util.ErrInvalidIndex, index)
		}
		return nil, err
	}

	// 空转写视为沉默作答，照常落库
	answer := &model.InterviewAnswer{
		SessionID:     sessionID,
		QuestionIndex: index,
		Transcript:    transcript,
	}
	if err := s.Repo.UpsertAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// ScoreAnswer 对已保存的作答评分并持久化评语
func (s *InterviewService) ScoreAnswer(ctx context.Context, userID uint, sessionID string, index int) (*model.InterviewAnswer, error) {
	session, err := s.loadOwnedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Active() {
		return nil, fmt.Errorf("%w: 会话 %s", util.ErrSessionNotActive, sessionID)
	}

	question, err := s.Repo.FindQuestionByIndex(sessionID, index)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: 题号 %d", util.ErrInvalidIndex, index)
		}
		return nil, err
	}

	answer, err := s.Repo.FindAnswer(sessionID, index)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: 题号 %d 尚未作答", util.ErrNotFound, index)
		}
		return nil, err
	}

	result := s.Scoring.Score(ctx, answer.Transcript, QuestionContext{
		Text:       question.Text,
		Category:   question.Category,
		Difficulty: question.Difficulty,
	})

	tips, err := json.Marshal(result.Tips)
	if err != nil {
		return nil, err
	}
	score := result.Score
	answer.Score = &score
	answer.Tips = tips
	answer.Strengths = result.Strengths
	answer.Improvements = result.Improvements
	answer.Detailed = result.Detailed

	if err := s.Repo.UpdateAnswer(answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// CompleteSession 正常收尾。重复调用幂等返回已完成的会话。
// 未显式给总分时按已评分作答的均值计算
func (s *InterviewService) CompleteSession(userID uint, sessionID string, overallScore *int) (*model.InterviewSession, error) {
	session, err := s.loadOwnedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return session, nil
	}

	if overallScore != nil {
		if *overallScore < 1 || *overallScore > 10 {
			return nil, fmt.Errorf("%w: 总分须在 1-10 之间", util.ErrValidation)
		}
		session.OverallScore = overallScore
	} else {
		answers, err := s.Repo.FindAnswersBySession(sessionID)
		if err != nil {
			return nil, err
		}
		avg := averageScore(answers)
		session.OverallScore = &avg
	}

	now := time.Now()
	session.CompletedAt = &now
	session.Completed = true
	if err := s.Repo.UpdateSession(session); err != nil {
		return nil, err
	}

	s.invalidateSummaryCache(sessionID)
	logger.Log.Info("面试会话已完成",
		zap.String("sessionId", sessionID),
		zap.Intp("overallScore", session.OverallScore))
	return session, nil
}

// AbortSession 中途放弃。已结束的会话原样返回，不二次变更
func (s *InterviewService) AbortSession(userID uint, sessionID string) (*model.InterviewSession, error) {
	session, err := s.loadOwnedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Completed {
		return session, nil
	}

	now := time.Now()
	session.CompletedAt = &now
	session.Completed = true
	session.Aborted = true
	if err := s.Repo.UpdateSession(session); err != nil {
		return nil, err
	}

	s.invalidateSummaryCache(sessionID)
	logger.Log.Info("面试会话已中止", zap.String("sessionId", sessionID))
	return session, nil
}

// GetSummary 汇总报告。已结束会话的数据不再变化，结果缓存一小时
func (s *InterviewService) GetSummary(userID uint, sessionID string) (*SessionSummary, error) {
	session, err := s.loadOwnedSession(userID, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Completed {
		if cached := s.loadSummaryCache(sessionID); cached != nil {
			return cached, nil
		}
	}

	questions, err := s.Repo.FindQuestionsBySession(sessionID)
	if err != nil {
		return nil, err
	}
	answers, err := s.Repo.FindAnswersBySession(sessionID)
	if err != nil {
		return nil, err
	}

	summary := Summarize(session, questions, answers)
	if session.Completed {
		s.storeSummaryCache(summary)
	}
	return summary, nil
}

// Summarize 聚合一场面试的明细。纯函数，不触达存储：
// 均分取已评分作答的均值四舍五入，无评分时给兜底分；
// 完成率为作答题数与总题数之比
func Summarize(session *model.InterviewSession, questions []model.InterviewQuestion, answers []model.InterviewAnswer) *SessionSummary {
	answerByIndex := make(map[int]*model.InterviewAnswer, len(answers))
	for i := range answers {
		answerByIndex[answers[i].QuestionIndex] = &answers[i]
	}

	breakdown := make([]QuestionResult, 0, len(questions))
	for _, q := range questions {
		a := answerByIndex[q.Index]
		breakdown = append(breakdown, QuestionResult{
			Index:    q.Index,
			Question: q,
			Answer:   a,
			Answered: a != nil,
		})
	}

	rate := 0.0
	if len(questions) > 0 {
		rate = float64(len(answers)) / float64(len(questions))
	}

	avg := averageScore(answers)
	if session.OverallScore != nil {
		avg = *session.OverallScore
	}

	return &SessionSummary{
		SessionID:      session.ID,
		Domain:         session.Domain,
		AverageScore:   avg,
		CompletionRate: rate,
		Completed:      session.Completed,
		Aborted:        session.Aborted,
		StartedAt:      session.StartedAt,
		CompletedAt:    session.CompletedAt,
		Breakdown:      breakdown,
	}
}

// averageScore 已评分作答的均值四舍五入，未评分的作答不参与计算
func averageScore(answers []model.InterviewAnswer) int {
	sum, n := 0, 0
	for _, a := range answers {
		if a.Score != nil {
			sum += *a.Score
			n++
		}
	}
	if n == 0 {
		return DefaultAverageScore
	}
	return clampScore(int(math.Round(float64(sum) / float64(n))))
}

func (s *InterviewService) loadOwnedSession(userID uint, sessionID string) (*model.InterviewSession, error) {
	session, err := s.Repo.FindSessionByID(sessionID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: 会话 %s", util.ErrNotFound, sessionID)
		}
		return nil, err
	}
	if session.UserID != userID {
		return nil, fmt.Errorf("%w: 会话 %s", util.ErrPermissionDenied, sessionID)
	}
	return session, nil
}

// --- 汇总缓存，仅缓存终态会话 ---

func summaryCacheKey(sessionID string) string {
	return "interview:summary:" + sessionID
}

func (s *InterviewService) loadSummaryCache(sessionID string) *SessionSummary {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(context.Background(), summaryCacheKey(sessionID)).Bytes()
	if err != nil {
		return nil
	}
	var summary SessionSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil
	}
	return &summary
}

func (s *InterviewService) storeSummaryCache(summary *SessionSummary) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.rdb.Set(context.Background(), summaryCacheKey(summary.SessionID), data, summaryCacheTTL).Err(); err != nil {
		logger.Log.Warn("汇总缓存写入失败", zap.String("sessionId", summary.SessionID), zap.Error(err))
	}
}

func (s *InterviewService) invalidateSummaryCache(sessionID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(context.Background(), summaryCacheKey(sessionID)).Err(); err != nil && err != redis.Nil {
		logger.Log.Warn("汇总缓存删除失败", zap.String("sessionId", sessionID), zap.Error(err))
	}
}
