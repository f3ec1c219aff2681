package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"career_coach_backend/internal/model"
)

// stubProvider 可控的假 AI 提供方
type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Chat(ctx context.Context, messages []AIChatMessage) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func newQuestionService(provider AIProvider, count int) *QuestionService {
	return NewQuestionService(NewAIServiceWithProvider(provider), count)
}

func TestGetQuestionSetFromCatalog(t *testing.T) {
	provider := &stubProvider{err: errors.New("不应调用大模型")}
	svc := newQuestionService(provider, 10)

	qs := svc.GetQuestionSet(context.Background(), "backend", "", "")
	if len(qs) != 10 {
		t.Fatalf("expected 10 questions, got %d", len(qs))
	}
	if provider.calls != 0 {
		t.Fatalf("catalog domain should not hit the LLM, got %d calls", provider.calls)
	}

	catalogTexts := make(map[string]bool)
	for _, e := range questionCatalog["backend"] {
		catalogTexts[e.text] = true
	}

	seen := make(map[string]bool)
	for _, q := range qs {
		if q.Source != model.QuestionSourceStatic {
			t.Fatalf("expected static source, got %q", q.Source)
		}
		if !catalogTexts[q.Text] {
			t.Fatalf("question %q not from catalog", q.Text)
		}
		if seen[q.Text] {
			t.Fatalf("duplicate question in one draw: %q", q.Text)
		}
		seen[q.Text] = true
	}
}

func TestGetQuestionSetDomainNormalization(t *testing.T) {
	svc := newQuestionService(&stubProvider{err: errors.New("boom")}, 5)

	qs := svc.GetQuestionSet(context.Background(), "  FRONTEND  ", "", "")
	if len(qs) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(qs))
	}
	if qs[0].Source != model.QuestionSourceStatic {
		t.Fatalf("normalized domain should hit the catalog, got source %q", qs[0].Source)
	}
}

func TestGetQuestionSetCustomDomainLLM(t *testing.T) {
	var items []string
	for i := 0; i < 12; i++ {
		items = append(items, fmt.Sprintf(`{"question": "题目%d", "category": "", "difficulty": "疯狂", "reasoning": "理由%d"}`, i, i))
	}
	reply := "好的，以下是为您生成的题目：\n```json\n[" + strings.Join(items, ",") + "]\n```"

	provider := &stubProvider{reply: reply}
	svc := newQuestionService(provider, 10)

	qs := svc.GetQuestionSet(context.Background(), "宠物训练师", "负责犬类行为矫正", "高级宠物训练师")
	if provider.calls != 1 {
		t.Fatalf("expected 1 LLM call, got %d", provider.calls)
	}
	if len(qs) != 10 {
		t.Fatalf("expected truncation to 10, got %d", len(qs))
	}
	for _, q := range qs {
		if q.Source != model.QuestionSourceLLM {
			t.Fatalf("expected llm source, got %q", q.Source)
		}
		if q.Difficulty != "medium" {
			t.Fatalf("unknown difficulty should normalize to medium, got %q", q.Difficulty)
		}
		if q.Category != "高级宠物训练师" {
			t.Fatalf("empty category should default to position, got %q", q.Category)
		}
	}
}

func TestGetQuestionSetFallbackOnLLMError(t *testing.T) {
	svc := newQuestionService(&stubProvider{err: errors.New("上游超时")}, 10)

	qs := svc.GetQuestionSet(context.Background(), "咖啡品鉴师", "", "")
	if len(qs) != 10 {
		t.Fatalf("expected 10 fallback questions, got %d", len(qs))
	}
	for _, q := range qs {
		if q.Source != model.QuestionSourceFallback {
			t.Fatalf("expected fallback source, got %q", q.Source)
		}
	}
	if !strings.Contains(qs[0].Text, "咖啡品鉴师") {
		t.Fatalf("fallback questions should mention the domain, got %q", qs[0].Text)
	}
}

func TestGetQuestionSetFallbackOnGarbageReply(t *testing.T) {
	svc := newQuestionService(&stubProvider{reply: "抱歉，我无法完成这个请求。"}, 10)

	qs := svc.GetQuestionSet(context.Background(), "незнакомый", "", "")
	if len(qs) != 10 {
		t.Fatalf("expected fallback set, got %d", len(qs))
	}
	if qs[0].Source != model.QuestionSourceFallback {
		t.Fatalf("expected fallback source, got %q", qs[0].Source)
	}
}

func TestSetCount(t *testing.T) {
	svc := newQuestionService(&stubProvider{}, 10)
	svc.SetCount(3)

	qs := svc.GetQuestionSet(context.Background(), "pm", "", "")
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions after SetCount, got %d", len(qs))
	}

	svc.SetCount(0) // 非法值忽略
	qs = svc.GetQuestionSet(context.Background(), "pm", "", "")
	if len(qs) != 3 {
		t.Fatalf("SetCount(0) should be ignored, got %d", len(qs))
	}
}

func TestExtractJSONArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare", `[{"a":1}]`, `[{"a":1}]`, true},
		{"fenced", "```json\n[1,2]\n```", "[1,2]", true},
		{"prose around", `结果如下：[1, 2, 3]，请查收`, `[1, 2, 3]`, true},
		{"nested brackets", `前缀 [[1],[2]] 后缀`, `[[1],[2]]`, true},
		{"no array", "抱歉，无法生成", "", false},
		{"reversed brackets", "] 这不是数组 [", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractJSONArray(tt.raw)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	if got := stripCodeFences("```json\n{\"a\":1}\n```"); got != `{"a":1}` {
		t.Fatalf("got %q", got)
	}
	if got := stripCodeFences("plain text"); got != "plain text" {
		t.Fatalf("got %q", got)
	}
}
