package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"career_coach_backend/internal/config"
	"career_coach_backend/internal/model"
	"career_coach_backend/internal/repository"
	"career_coach_backend/internal/util"
	"career_coach_backend/pkg/database"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func newTestInterviewService(t *testing.T, provider AIProvider) *InterviewService {
	t.Helper()

	db := newTestDB(t)
	ai := NewAIServiceWithProvider(provider)
	return NewInterviewService(
		repository.NewInterviewRepository(db),
		NewQuestionService(ai, 10),
		NewScoringService(ai),
		NewTranscriptionService(config.TranscriptionConfig{BaseURL: "http://127.0.0.1:0", MaxAudioBytes: 1 << 20}),
		nil,
	)
}

const testUserID = uint(1)

func mustCreateSession(t *testing.T, svc *InterviewService, domain string) (*model.InterviewSession, []model.InterviewQuestion) {
	t.Helper()

	session, questions, err := svc.CreateSession(context.Background(), testUserID, CreateSessionRequest{Domain: domain})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return session, questions
}

func TestCreateSessionStaticDomain(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{err: errors.New("不应调用大模型")})
	session, questions := mustCreateSession(t, svc, "backend")

	if session.ID == "" {
		t.Fatal("session ID should be assigned")
	}
	if !session.Active() {
		t.Fatal("new session must be active")
	}
	if len(questions) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(questions))
	}
	for i, q := range questions {
		if q.Index != i {
			t.Fatalf("question %d has index %d", i, q.Index)
		}
		if q.Source != model.QuestionSourceStatic {
			t.Fatalf("expected static source, got %q", q.Source)
		}
	}

	// 题集落库后重新读出顺序一致
	_, persisted, err := svc.GetSession(testUserID, session.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(persisted) != 10 || persisted[3].Text != questions[3].Text {
		t.Fatal("persisted question set must match the generated one")
	}
}

func TestCreateSessionValidation(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{})
	_, _, err := svc.CreateSession(context.Background(), testUserID, CreateSessionRequest{Domain: "   "})
	if !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestRecordAnswerUpsert(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{reply: `{"score": 8, "tips": ["紧扣问题"]}`})
	session, _ := mustCreateSession(t, svc, "backend")

	first, err := svc.RecordAnswer(testUserID, session.ID, 0, "第一次作答")
	if err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	if first.Score != nil {
		t.Fatal("fresh answer must be unscored")
	}

	scored, err := svc.ScoreAnswer(context.Background(), testUserID, session.ID, 0)
	if err != nil {
		t.Fatalf("ScoreAnswer: %v", err)
	}
	if scored.Score == nil || *scored.Score != 8 {
		t.Fatalf("expected score 8, got %v", scored.Score)
	}

	// 重复提交覆盖旧作答并清空旧评分
	second, err := svc.RecordAnswer(testUserID, session.ID, 0, "第二次作答")
	if err != nil {
		t.Fatalf("re-RecordAnswer: %v", err)
	}
	if second.Transcript != "第二次作答" {
		t.Fatalf("transcript not replaced: %q", second.Transcript)
	}
	if second.Score != nil {
		t.Fatal("resubmission must reset the score")
	}

	count, err := svc.Repo.CountAnswers(session.ID)
	if err != nil {
		t.Fatalf("CountAnswers: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single answer row per (session,index), got %d", count)
	}
}

func TestRecordAnswerInvalidIndex(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{})
	session, _ := mustCreateSession(t, svc, "backend")

	if _, err := svc.RecordAnswer(testUserID, session.ID, 99, "越界"); !errors.Is(err, util.ErrInvalidIndex) {
		t.Fatalf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestRecordAnswerEmptyTranscriptIsSilence(t *testing.T) {
	// 沉默也是有效作答，空转写照常落库
	svc := newTestInterviewService(t, &stubProvider{})
	session, _ := mustCreateSession(t, svc, "backend")

	answer, err := svc.RecordAnswer(testUserID, session.ID, 0, "")
	if err != nil {
		t.Fatalf("empty transcript must be recorded, got %v", err)
	}
	if answer.Transcript != "" {
		t.Fatalf("unexpected transcript %q", answer.Transcript)
	}
	if answer.Score != nil {
		t.Fatalf("silence must start unscored")
	}
}

func TestSessionOwnership(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{})
	session, _ := mustCreateSession(t, svc, "backend")

	otherUser := uint(2)
	if _, _, err := svc.GetSession(otherUser, session.ID); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, err := svc.RecordAnswer(otherUser, session.ID, 0, "蹭别人的面试"); !errors.Is(err, util.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if _, _, err := svc.GetSession(testUserID, "no-such-session"); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScoreAnswerWithoutTranscript(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{})
	session, _ := mustCreateSession(t, svc, "backend")

	if _, err := svc.ScoreAnswer(context.Background(), testUserID, session.ID, 0); !errors.Is(err, util.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteSessionIdempotent(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{reply: `{"score": 6, "tips": []}`})
	session, _ := mustCreateSession(t, svc, "backend")

	for i := 0; i < 2; i++ {
		if _, err := svc.RecordAnswer(testUserID, session.ID, i, "作答内容"); err != nil {
			t.Fatalf("RecordAnswer(%d): %v", i, err)
		}
		if _, err := svc.ScoreAnswer(context.Background(), testUserID, session.ID, i); err != nil {
			t.Fatalf("ScoreAnswer(%d): %v", i, err)
		}
	}

	done, err := svc.CompleteSession(testUserID, session.ID, nil)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if !done.Completed || done.Aborted {
		t.Fatalf("unexpected terminal state: completed=%v aborted=%v", done.Completed, done.Aborted)
	}
	if done.OverallScore == nil || *done.OverallScore != 6 {
		t.Fatalf("expected averaged overall score 6, got %v", done.OverallScore)
	}
	firstCompletedAt := *done.CompletedAt

	// 二次 complete 幂等：不改时间也不改分数
	again, err := svc.CompleteSession(testUserID, session.ID, nil)
	if err != nil {
		t.Fatalf("second CompleteSession: %v", err)
	}
	if again.CompletedAt.Unix() != firstCompletedAt.Unix() {
		t.Fatal("second complete must not move the completion time")
	}
	if *again.OverallScore != 6 {
		t.Fatalf("second complete must not change the score, got %d", *again.OverallScore)
	}
}

func TestCompleteSessionExplicitScore(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{})
	session, _ := mustCreateSession(t, svc, "backend")

	bad := 11
	if _, err := svc.CompleteSession(testUserID, session.ID, &bad); !errors.Is(err, util.ErrValidation) {
		t.Fatalf("expected ErrValidation for out-of-range score, got %v", err)
	}

	good := 9
	done, err := svc.CompleteSession(testUserID, session.ID, &good)
	if err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}
	if *done.OverallScore != 9 {
		t.Fatalf("expected explicit score 9, got %d", *done.OverallScore)
	}
}

func TestAbortSessionSemantics(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{})
	session, _ := mustCreateSession(t, svc, "backend")

	if _, err := svc.RecordAnswer(testUserID, session.ID, 0, "中途作答"); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}

	aborted, err := svc.AbortSession(testUserID, session.ID)
	if err != nil {
		t.Fatalf("AbortSession: %v", err)
	}
	if !aborted.Completed || !aborted.Aborted {
		t.Fatalf("abort must reach terminal state: completed=%v aborted=%v", aborted.Completed, aborted.Aborted)
	}

	// 终态后作答与评分都被拒绝
	if _, err := svc.RecordAnswer(testUserID, session.ID, 1, "迟到的作答"); !errors.Is(err, util.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}
	if _, err := svc.ScoreAnswer(context.Background(), testUserID, session.ID, 0); !errors.Is(err, util.ErrSessionNotActive) {
		t.Fatalf("expected ErrSessionNotActive, got %v", err)
	}

	// abort 后 complete 原样返回，不洗掉中止标记
	after, err := svc.CompleteSession(testUserID, session.ID, nil)
	if err != nil {
		t.Fatalf("CompleteSession after abort: %v", err)
	}
	if !after.Aborted {
		t.Fatal("complete after abort must keep the aborted flag")
	}

	// 已保留的作答出现在汇总里
	summary, err := svc.GetSummary(testUserID, session.ID)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if !summary.Aborted {
		t.Fatal("summary must reflect the aborted state")
	}
	if !summary.Breakdown[0].Answered {
		t.Fatal("answers recorded before abort must survive")
	}
}

func TestSummarize(t *testing.T) {
	score7, score9 := 7, 9
	session := &model.InterviewSession{Domain: "backend"}
	session.ID = "s1"

	questions := make([]model.InterviewQuestion, 5)
	for i := range questions {
		questions[i].SessionID = "s1"
		questions[i].Index = i
	}
	answers := []model.InterviewAnswer{
		{SessionID: "s1", QuestionIndex: 0, Transcript: "a", Score: &score7},
		{SessionID: "s1", QuestionIndex: 2, Transcript: "b", Score: &score9},
		{SessionID: "s1", QuestionIndex: 4, Transcript: "c"}, // 未评分
	}

	summary := Summarize(session, questions, answers)
	if summary.AverageScore != 8 {
		t.Fatalf("mean of 7 and 9 should round to 8, got %d", summary.AverageScore)
	}
	if summary.CompletionRate != 0.6 {
		t.Fatalf("3/5 answers should give 0.6, got %v", summary.CompletionRate)
	}
	if len(summary.Breakdown) != 5 {
		t.Fatalf("breakdown must cover all questions, got %d", len(summary.Breakdown))
	}
	if summary.Breakdown[1].Answered || !summary.Breakdown[2].Answered {
		t.Fatal("answered flags do not line up with the answers")
	}
}

func TestSummarizeDefaults(t *testing.T) {
	session := &model.InterviewSession{}
	session.ID = "s2"

	// 无任何评分时总分走兜底值
	summary := Summarize(session, []model.InterviewQuestion{{SessionID: "s2"}}, nil)
	if summary.AverageScore != DefaultAverageScore {
		t.Fatalf("expected default score %d, got %d", DefaultAverageScore, summary.AverageScore)
	}
	if summary.CompletionRate != 0 {
		t.Fatalf("no answers should give rate 0, got %v", summary.CompletionRate)
	}

	// 无题目时完成率不做除零
	empty := Summarize(session, nil, nil)
	if empty.CompletionRate != 0 {
		t.Fatalf("no questions should give rate 0, got %v", empty.CompletionRate)
	}
}

func TestFullInterviewFlow(t *testing.T) {
	svc := newTestInterviewService(t, &stubProvider{reply: `{"score": 8, "tips": ["多给量化结果"], "strengths": "结构清晰", "improvements": "细节不足", "detailed": "整体良好"}`})
	session, questions := mustCreateSession(t, svc, "backend")

	for _, q := range questions {
		if _, err := svc.RecordAnswer(testUserID, session.ID, q.Index, "我在项目中负责核心模块。"); err != nil {
			t.Fatalf("RecordAnswer(%d): %v", q.Index, err)
		}
		answer, err := svc.ScoreAnswer(context.Background(), testUserID, session.ID, q.Index)
		if err != nil {
			t.Fatalf("ScoreAnswer(%d): %v", q.Index, err)
		}
		if answer.Score == nil || *answer.Score != 8 {
			t.Fatalf("question %d: expected score 8, got %v", q.Index, answer.Score)
		}
		if answer.Strengths != "结构清晰" {
			t.Fatalf("feedback not persisted: %q", answer.Strengths)
		}
	}

	if _, err := svc.CompleteSession(testUserID, session.ID, nil); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	summary, err := svc.GetSummary(testUserID, session.ID)
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if !summary.Completed || summary.Aborted {
		t.Fatal("summary must show a normally completed session")
	}
	if summary.AverageScore != 8 {
		t.Fatalf("expected average 8, got %d", summary.AverageScore)
	}
	if summary.CompletionRate != 1.0 {
		t.Fatalf("expected full completion, got %v", summary.CompletionRate)
	}

	sessions, total, err := svc.ListSessions(testUserID, 1, 10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if total != 1 || len(sessions) != 1 || !sessions[0].Completed {
		t.Fatalf("unexpected session listing: total=%d len=%d", total, len(sessions))
	}
}

func TestScoringFallbackKeepsFlowAlive(t *testing.T) {
	// 大模型整场不可用：出题走兜底模板，评分走规则评分
	svc := newTestInterviewService(t, &stubProvider{err: errors.New("上游不可用")})
	session, questions := mustCreateSession(t, svc, "незнакомая профессия")

	if questions[0].Source != model.QuestionSourceFallback {
		t.Fatalf("expected fallback questions, got %q", questions[0].Source)
	}

	transcript := "我在项目中和团队一起应对过不少挑战，积累了经验。"
	if _, err := svc.RecordAnswer(testUserID, session.ID, 0, transcript); err != nil {
		t.Fatalf("RecordAnswer: %v", err)
	}
	answer, err := svc.ScoreAnswer(context.Background(), testUserID, session.ID, 0)
	if err != nil {
		t.Fatalf("ScoreAnswer must not fail when mock scoring is available: %v", err)
	}
	if answer.Score == nil || *answer.Score != MockScore(transcript).Score {
		t.Fatalf("expected deterministic mock score, got %v", answer.Score)
	}
}
