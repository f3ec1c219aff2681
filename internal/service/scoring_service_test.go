package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestMockScoreClampUpper(t *testing.T) {
	// 长回答 +2，四个关键词各 +1，名义分 11 必须收口到 10
	transcript := strings.Repeat("我在这个项目中带领团队应对重大挑战，积累了丰富的实战经验。", 20)
	result := MockScore(transcript)

	if result.Score != 10 {
		t.Fatalf("expected clamped score 10, got %d", result.Score)
	}
	if len(result.Tips) == 0 || len(result.Tips) > maxTips {
		t.Fatalf("tips count out of range: %d", len(result.Tips))
	}
}

func TestMockScoreShortAnswer(t *testing.T) {
	result := MockScore("不知道。")
	if result.Score != 3 {
		t.Fatalf("expected 5-2=3 for a short answer, got %d", result.Score)
	}
	if len(result.Tips) == 0 {
		t.Fatalf("short answer should carry at least one tip")
	}
}

func TestMockScoreDeterministic(t *testing.T) {
	transcript := "我负责过一个支付系统的项目，和团队一起解决了不少线上挑战。"
	first := MockScore(transcript)
	second := MockScore(transcript)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("mock scoring must be deterministic: %+v vs %+v", first, second)
	}
}

func TestMockScoreLowerBound(t *testing.T) {
	if got := MockScore("嗯").Score; got < 1 {
		t.Fatalf("score must never drop below 1, got %d", got)
	}
}

func TestParseScoreResponseDirectJSON(t *testing.T) {
	raw := `{"score": 8, "tips": ["建议一", "建议二", "建议三", "建议四"], "strengths": "表达清晰", "improvements": "缺少数据", "detailed": "整体不错"}`
	result := parseScoreResponse(raw)
	if result == nil {
		t.Fatal("expected parsed result")
	}
	if result.Score != 8 {
		t.Fatalf("expected score 8, got %d", result.Score)
	}
	if len(result.Tips) != maxTips {
		t.Fatalf("tips should cap at %d, got %d", maxTips, len(result.Tips))
	}
	if result.Strengths != "表达清晰" {
		t.Fatalf("unexpected strengths %q", result.Strengths)
	}
}

func TestParseScoreResponseFencedJSON(t *testing.T) {
	raw := "评分如下：\n```json\n{\"score\": 9.4, \"tips\": []}\n```"
	result := parseScoreResponse(raw)
	if result == nil {
		t.Fatal("expected parsed result")
	}
	if result.Score != 9 {
		t.Fatalf("expected rounded score 9, got %d", result.Score)
	}
}

func TestParseScoreResponseHeuristic(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantScore int
		wantTips  int
	}{
		{"score field", "得分: 7\n- 建议补充数据\n- 结构可以更清晰", 7, 2},
		{"ratio form", "我给这个回答 6/10，理由如下", 6, 1},
		{"clamped field", `"score" = 15，超纲了`, 10, 1},
		{"numbered tips", "score: 4\n1. 先说结论\n2. 再给论据\n3. 最后总结\n4. 多余的", 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseScoreResponse(tt.raw)
			if result == nil {
				t.Fatal("expected heuristic result")
			}
			if result.Score != tt.wantScore {
				t.Fatalf("score = %d, want %d", result.Score, tt.wantScore)
			}
			if len(result.Tips) != tt.wantTips {
				t.Fatalf("tips = %d, want %d: %v", len(result.Tips), tt.wantTips, result.Tips)
			}
		})
	}
}

func TestParseScoreResponseNoScoreDefaultsToFive(t *testing.T) {
	result := parseScoreResponse("这个回答整体中规中矩。")
	if result == nil {
		t.Fatal("expected result")
	}
	if result.Score != 5 {
		t.Fatalf("expected default score 5, got %d", result.Score)
	}
}

func TestParseScoreResponseEmpty(t *testing.T) {
	if result := parseScoreResponse("   "); result != nil {
		t.Fatalf("blank reply should not parse, got %+v", result)
	}
}

func TestScoreFallsBackToMockOnLLMError(t *testing.T) {
	svc := NewScoringService(NewAIServiceWithProvider(&stubProvider{err: errors.New("上游不可用")}))
	transcript := "我主导过一个数据平台项目。"

	got := svc.Score(context.Background(), transcript, QuestionContext{Text: "介绍项目"})
	want := MockScore(transcript)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected mock fallback result %+v, got %+v", want, got)
	}
}

func TestScoreUsesLLMResult(t *testing.T) {
	svc := NewScoringService(NewAIServiceWithProvider(&stubProvider{
		reply: `{"score": 8, "tips": ["多讲量化结果"], "detailed": "有条理"}`,
	}))

	got := svc.Score(context.Background(), "随便答一下", QuestionContext{Text: "介绍项目"})
	if got.Score != 8 {
		t.Fatalf("expected llm score 8, got %d", got.Score)
	}
	if len(got.Tips) != 1 || got.Tips[0] != "多讲量化结果" {
		t.Fatalf("unexpected tips %v", got.Tips)
	}
}

func TestScoreFallsBackOnGarbageReplyWithNoText(t *testing.T) {
	svc := NewScoringService(NewAIServiceWithProvider(&stubProvider{reply: "  "}))
	transcript := "我答了一些内容。"

	got := svc.Score(context.Background(), transcript, QuestionContext{})
	want := MockScore(transcript)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unparseable reply should fall back to mock, got %+v", got)
	}
}

func TestClampScore(t *testing.T) {
	cases := map[int]int{-3: 1, 0: 1, 1: 1, 5: 5, 10: 10, 27: 10}
	for in, want := range cases {
		if got := clampScore(in); got != want {
			t.Fatalf("clampScore(%d) = %d, want %d", in, got, want)
		}
	}
}
