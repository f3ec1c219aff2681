package service

import (
	"career_coach_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// QuestionContext 评分时需要的题目上下文
type QuestionContext struct {
	Text       string
	Category   string
	Difficulty string
}

// ScoreResult 单题评分结果，分数恒在 1-10 区间
type ScoreResult struct {
	Score        int      `json:"score"`
	Tips         []string `json:"tips"`
	Strengths    string   `json:"strengths"`
	Improvements string   `json:"improvements"`
	Detailed     string   `json:"detailed"`
}

const maxTips = 3

// ScoringService 三级评分：大模型结构化输出优先，
// 输出不规整时做启发式提取，大模型不可用时退化为规则评分
type ScoringService struct {
	ai *AIService
}

func NewScoringService(ai *AIService) *ScoringService {
	return &ScoringService{ai: ai}
}

// Score 对一条作答文本评分。该方法不向上传播大模型错误，永远给出结果
func (s *ScoringService) Score(ctx context.Context, transcript string, q QuestionContext) *ScoreResult {
	raw, err := s.ai.Chat(ctx, []AIChatMessage{
		{Role: "system", Content: "你是一位严格但公正的面试官，对候选人的回答给出量化评价，只输出 JSON。"},
		{Role: "user", Content: buildScoringPrompt(transcript, q)},
	})
	if err != nil {
		logger.Log.Warn("大模型评分失败，使用规则评分兜底", zap.Error(err))
		return MockScore(transcript)
	}

	result := parseScoreResponse(raw)
	if result == nil {
		logger.Log.Warn("评分响应无法解析，使用规则评分兜底", zap.String("raw", truncateForLog(raw)))
		return MockScore(transcript)
	}
	return result
}

func buildScoringPrompt(transcript string, q QuestionContext) string {
	var sb strings.Builder
	sb.WriteString("请对以下面试回答评分。\n")
	sb.WriteString(fmt.Sprintf("面试题：%s\n", q.Text))
	if q.Category != "" {
		sb.WriteString(fmt.Sprintf("考察方向：%s\n", q.Category))
	}
	if q.Difficulty != "" {
		sb.WriteString(fmt.Sprintf("难度：%s\n", q.Difficulty))
	}
	sb.WriteString(fmt.Sprintf("候选人回答：\n%s\n", transcript))
	sb.WriteString(`严格返回如下格式的 JSON，不要包含任何其他文字：
{"score": 1到10的整数, "tips": ["不超过3条改进建议"], "strengths": "亮点", "improvements": "不足", "detailed": "详细点评"}`)
	return sb.String()
}

// parseScoreResponse 先按结构化 JSON 解析，失败时退化为正则提取。
// 两条路径都失败返回 nil
func parseScoreResponse(raw string) *ScoreResult {
	if jsonText, ok := extractJSONObject(raw); ok {
		var parsed struct {
			Score        json.Number `json:"score"`
			Tips         []string    `json:"tips"`
			Strengths    string      `json:"strengths"`
			Improvements string      `json:"improvements"`
			Detailed     string      `json:"detailed"`
		}
		if err := json.Unmarshal([]byte(jsonText), &parsed); err == nil {
			if f, err := parsed.Score.Float64(); err == nil && f > 0 {
				return &ScoreResult{
					Score:        clampScore(int(math.Round(f))),
					Tips:         capTips(parsed.Tips),
					Strengths:    parsed.Strengths,
					Improvements: parsed.Improvements,
					Detailed:     parsed.Detailed,
				}
			}
		}
	}
	return heuristicExtract(raw)
}

var (
	scoreFieldRe = regexp.MustCompile(`(?i)"?(?:score|得分|分数)"?\s*[:：=]\s*([0-9]+(?:\.[0-9]+)?)`)
	scoreRatioRe = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*/\s*10`)
	bulletRe     = regexp.MustCompile(`^(?:[-*•]|[0-9]+[.、)])\s*`)
)

// heuristicExtract 从自由文本中扒出分数和建议。
// 找不到分数时按 5 分保底，保证评分流程不中断
func heuristicExtract(raw string) *ScoreResult {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	score := 5
	if m := scoreFieldRe.FindStringSubmatch(raw); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			score = clampScore(int(math.Round(f)))
		}
	} else if m := scoreRatioRe.FindStringSubmatch(raw); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			score = clampScore(int(math.Round(f)))
		}
	}

	var tips []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if bulletRe.MatchString(line) {
			tips = append(tips, bulletRe.ReplaceAllString(line, ""))
			if len(tips) >= maxTips {
				break
			}
		}
	}
	if len(tips) == 0 {
		tips = []string{"回答可以更有条理，建议使用 STAR 法则组织内容"}
	}

	return &ScoreResult{
		Score:    score,
		Tips:     tips,
		Detailed: strings.TrimSpace(raw),
	}
}

// 规则评分的关键词，中英文命中任意一个即计一次加分
var mockKeywords = [][]string{
	{"项目", "project"},
	{"团队", "team"},
	{"挑战", "challenge"},
	{"经验", "experience"},
}

// MockScore 确定性的规则评分：基准 5 分，按长度和关键词加减，
// 结果恒落在 1-10 区间。同一文本永远得到同一结果
func MockScore(transcript string) *ScoreResult {
	score := 5
	length := len([]rune(strings.TrimSpace(transcript)))
	lower := strings.ToLower(transcript)

	var tips []string
	switch {
	case length < 80:
		score -= 2
		tips = append(tips, "回答过于简短，建议补充具体细节和数据")
	case length > 400:
		score += 2
		tips = append(tips, "内容充实，注意适当精简，突出重点")
	}

	for _, kw := range mockKeywords {
		for _, w := range kw {
			if strings.Contains(lower, w) {
				score++
				break
			}
		}
	}

	if !strings.Contains(lower, "项目") && !strings.Contains(lower, "project") {
		tips = append(tips, "建议结合具体项目经历来支撑你的观点")
	}
	tips = append(tips, "练习使用 STAR 法则：情境、任务、行动、结果")

	return &ScoreResult{
		Score:    clampScore(score),
		Tips:     capTips(tips),
		Detailed: "基于回答长度和要点覆盖度的自动评价",
	}
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func capTips(tips []string) []string {
	out := make([]string, 0, maxTips)
	for _, t := range tips {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		out = append(out, t)
		if len(out) >= maxTips {
			break
		}
	}
	return out
}

func truncateForLog(s string) string {
	const limit = 200
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
