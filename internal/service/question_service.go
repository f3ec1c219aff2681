package service

import (
	"career_coach_backend/internal/model"
	"career_coach_backend/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"
)

// GeneratedQuestion 生成的面试题，尚未落库
type GeneratedQuestion struct {
	Text       string `json:"text"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Reasoning  string `json:"reasoning"`
	Source     string `json:"source"`
}

// QuestionService 按领域产出面试题集：已知领域走静态题库，
// 自定义领域走大模型，失败时回退到通用模板题
type QuestionService struct {
	ai    *AIService
	count int
}

func NewQuestionService(ai *AIService, count int) *QuestionService {
	if count <= 0 {
		count = 10
	}
	return &QuestionService{ai: ai, count: count}
}

// SetCount 配置热加载后调整出题数量
func (s *QuestionService) SetCount(count int) {
	if count > 0 {
		s.count = count
	}
}

type catalogEntry struct {
	text       string
	category   string
	difficulty string
}

var questionCatalog = map[string][]catalogEntry{
	"backend": {
		{"请介绍一下你最近负责的一个后端项目，你在其中承担了什么角色？", "项目经验", "easy"},
		{"谈谈你对 RESTful API 设计的理解，你在实际项目中如何设计接口版本化？", "系统设计", "medium"},
		{"数据库索引的原理是什么？什么情况下索引会失效？", "数据库", "medium"},
		{"请描述一次你排查线上性能问题的经历，你是如何定位瓶颈的？", "项目经验", "hard"},
		{"缓存穿透、缓存击穿、缓存雪崩分别是什么？你会如何应对？", "缓存", "medium"},
		{"谈谈你对微服务和单体架构的取舍，什么场景下你会选择单体？", "系统设计", "hard"},
		{"事务的隔离级别有哪些？不同级别分别解决了什么问题？", "数据库", "medium"},
		{"消息队列在你的项目中解决过什么问题？如何保证消息不丢失？", "中间件", "hard"},
		{"请解释幂等性的概念，支付类接口如何实现幂等？", "系统设计", "medium"},
		{"你如何设计一个高并发的抢购系统？请从限流、库存扣减等角度展开。", "系统设计", "hard"},
		{"谈谈你在团队协作中遇到的一次技术分歧，最后是如何解决的？", "软素质", "easy"},
		{"接口的响应时间突然变长，你会按什么思路排查？", "运维排障", "medium"},
	},
	"frontend": {
		{"请介绍一个你最有成就感的前端项目，难点在哪里？", "项目经验", "easy"},
		{"浏览器从输入 URL 到页面渲染完成经历了哪些过程？", "浏览器原理", "medium"},
		{"谈谈你对虚拟 DOM 的理解，它一定比直接操作 DOM 快吗？", "框架原理", "medium"},
		{"你做过哪些首屏性能优化？效果如何量化？", "性能优化", "hard"},
		{"跨域问题有哪些解决方案？各自的适用场景是什么？", "网络", "medium"},
		{"谈谈你对组件设计的原则，如何划分一个复杂页面的组件边界？", "工程化", "medium"},
		{"描述一次你和设计师或产品经理意见不一致的经历，你是如何沟通的？", "软素质", "easy"},
		{"前端如何做错误监控和上报？你用过哪些方案？", "工程化", "hard"},
		{"谈谈事件循环机制，宏任务和微任务的执行顺序是怎样的？", "语言基础", "medium"},
		{"大型表单页面的状态管理你会怎么设计？", "框架原理", "hard"},
		{"如何保证团队内代码风格的一致性？你搭建过哪些工程化设施？", "工程化", "medium"},
		{"移动端适配你常用什么方案？各有什么优缺点？", "工程化", "easy"},
	},
	"fullstack": {
		{"介绍一个你从零到一独立完成的全栈项目，技术选型是如何考虑的？", "项目经验", "easy"},
		{"前后端接口联调时出现数据不一致，你会如何定位是哪一端的问题？", "运维排障", "medium"},
		{"谈谈你对前后端分离架构的理解，鉴权在这种架构下如何设计？", "系统设计", "medium"},
		{"你如何设计一个文件上传功能？大文件断点续传怎么实现？", "系统设计", "hard"},
		{"SSR 和 CSR 各自的优缺点是什么？什么场景下你会选择 SSR？", "架构", "medium"},
		{"数据库表结构变更时，如何保证线上服务平滑过渡？", "数据库", "hard"},
		{"描述一次你在时间紧张的情况下对技术方案做出的取舍。", "软素质", "easy"},
		{"WebSocket 和轮询各适合什么场景？你在项目中如何选择？", "网络", "medium"},
		{"谈谈你对 DevOps 的理解，你的项目部署流程是怎样的？", "工程化", "medium"},
		{"如果让你设计一个短链接服务，你会怎么做？", "系统设计", "hard"},
		{"你如何平衡学习广度和深度？最近在深入研究什么技术？", "软素质", "easy"},
		{"接口安全方面你做过哪些防护？如何防止重放攻击？", "安全", "hard"},
	},
	"pm": {
		{"请介绍一个你主导过的产品功能，从需求洞察到上线的完整过程。", "项目经验", "easy"},
		{"你如何判断一个需求的优先级？请结合实际案例说明。", "需求管理", "medium"},
		{"产品上线后数据不及预期，你会从哪些角度分析原因？", "数据分析", "medium"},
		{"描述一次你说服技术团队接受产品方案的经历。", "跨团队协作", "medium"},
		{"你如何做竞品分析？请以你熟悉的一款产品为例。", "行业认知", "easy"},
		{"如果资源只够做一个功能，而老板和用户调研的结论冲突，你怎么办？", "决策", "hard"},
		{"你如何设计一次 A/B 实验？样本量和实验周期怎么确定？", "数据分析", "hard"},
		{"谈谈你对用户增长的理解，你操盘过哪些增长手段？", "增长", "medium"},
		{"描述一次项目延期的经历，你是如何管理各方预期的？", "项目管理", "medium"},
		{"你如何撰写一份让研发一次看懂的需求文档？", "需求管理", "easy"},
		{"如果要为现有产品规划未来一年的路线图，你的方法论是什么？", "战略规划", "hard"},
		{"谈谈一次你主动砍掉需求的经历，背后的判断依据是什么？", "决策", "medium"},
	},
	"devops": {
		{"介绍一下你负责过的基础设施或交付体系，规模有多大？", "项目经验", "easy"},
		{"CI/CD 流水线你是如何设计的？如何做到构建既快又可靠？", "持续交付", "medium"},
		{"容器化改造过程中你遇到过哪些坑？如何解决的？", "容器", "medium"},
		{"线上服务大面积告警，你的应急处置流程是怎样的？", "稳定性", "hard"},
		{"谈谈你对基础设施即代码的实践，配置漂移如何治理？", "自动化", "medium"},
		{"Kubernetes 中 Pod 一直处于 Pending 状态，可能有哪些原因？", "容器", "medium"},
		{"你如何设计多环境（开发/测试/生产）的配置管理？", "配置管理", "medium"},
		{"监控告警的阈值如何设定才能既不漏报也不扰民？", "可观测性", "hard"},
		{"描述一次你推动研发团队改变交付习惯的经历。", "软素质", "easy"},
		{"灰度发布和蓝绿发布的区别是什么？你如何选择？", "持续交付", "medium"},
		{"数据库备份恢复演练你做过吗？RTO 和 RPO 如何保障？", "稳定性", "hard"},
		{"成本优化方面你做过哪些工作？效果如何？", "成本", "medium"},
	},
	"data": {
		{"介绍一个你完成的数据分析或建模项目，业务价值体现在哪里？", "项目经验", "easy"},
		{"特征工程在你的项目中是怎么做的？如何处理缺失值和异常值？", "建模", "medium"},
		{"如何向不懂技术的业务方解释你的模型结论？", "沟通", "easy"},
		{"模型在线上效果衰减，你会从哪些方面排查？", "工程化", "hard"},
		{"谈谈过拟合的成因和常用的缓解手段。", "建模", "medium"},
		{"你如何设计一个数据指标体系来衡量业务健康度？", "指标体系", "medium"},
		{"SQL 中窗口函数解决什么问题？请举一个实际用例。", "数据处理", "medium"},
		{"离线数仓和实时数仓的架构差异是什么？", "数据架构", "hard"},
		{"描述一次你发现数据质量问题并推动修复的经历。", "数据治理", "medium"},
		{"AB 实验中辛普森悖论是什么？如何避免被它误导？", "统计", "hard"},
		{"你常用的模型评估指标有哪些？不同业务场景下如何选择？", "建模", "medium"},
		{"数据口径不一致导致报表打架，你会如何治理？", "数据治理", "medium"},
	},
}

// GetQuestionSet 产出题集。该方法不返回错误：三级来源依次兜底，
// 调用方只需处理空集
func (s *QuestionService) GetQuestionSet(ctx context.Context, domain, jobDescription, customPosition string) []GeneratedQuestion {
	key := strings.ToLower(strings.TrimSpace(domain))
	if entries, ok := questionCatalog[key]; ok {
		return s.drawFromCatalog(entries)
	}

	qs, err := s.generateWithLLM(ctx, domain, jobDescription, customPosition)
	if err != nil || len(qs) == 0 {
		if err != nil {
			logger.Log.Warn("大模型出题失败，使用模板题兜底", zap.String("domain", domain), zap.Error(err))
		}
		return s.fallbackQuestions(domain)
	}
	if len(qs) > s.count {
		qs = qs[:s.count]
	}
	return qs
}

// drawFromCatalog 洗牌后取前 N 题，同一会话内不重复
func (s *QuestionService) drawFromCatalog(entries []catalogEntry) []GeneratedQuestion {
	shuffled := make([]catalogEntry, len(entries))
	copy(shuffled, entries)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := s.count
	if n > len(shuffled) {
		n = len(shuffled)
	}

	qs := make([]GeneratedQuestion, 0, n)
	for _, e := range shuffled[:n] {
		qs = append(qs, GeneratedQuestion{
			Text:       e.text,
			Category:   e.category,
			Difficulty: e.difficulty,
			Reasoning:  fmt.Sprintf("考察候选人在%s方向的基础与实战经验", e.category),
			Source:     model.QuestionSourceStatic,
		})
	}
	return qs
}

type rawGeneratedQuestion struct {
	Question   string `json:"question"`
	Text       string `json:"text"`
	Category   string `json:"category"`
	Difficulty string `json:"difficulty"`
	Reasoning  string `json:"reasoning"`
}

func (s *QuestionService) generateWithLLM(ctx context.Context, domain, jobDescription, customPosition string) ([]GeneratedQuestion, error) {
	position := customPosition
	if position == "" {
		position = domain
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("你是一位资深面试官，请为「%s」岗位设计 %d 道面试题。\n", position, s.count))
	if jobDescription != "" {
		sb.WriteString("岗位描述如下：\n")
		sb.WriteString(jobDescription)
		sb.WriteString("\n")
	}
	sb.WriteString("要求题目覆盖专业能力、项目经验和软素质，难度梯度分布。\n")
	sb.WriteString(`严格返回 JSON 数组，不要包含任何其他文字，每个元素格式为：
{"question": "题目内容", "category": "考察方向", "difficulty": "easy|medium|hard", "reasoning": "出题理由"}`)

	raw, err := s.ai.Chat(ctx, []AIChatMessage{
		{Role: "system", Content: "你是一位经验丰富的技术面试官，只输出 JSON。"},
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return nil, err
	}

	jsonText, ok := extractJSONArray(raw)
	if !ok {
		return nil, fmt.Errorf("响应中未找到 JSON 数组")
	}

	var items []rawGeneratedQuestion
	if err := json.Unmarshal([]byte(jsonText), &items); err != nil {
		return nil, fmt.Errorf("解析出题结果失败: %w", err)
	}

	qs := make([]GeneratedQuestion, 0, len(items))
	for _, item := range items {
		text := strings.TrimSpace(item.Question)
		if text == "" {
			text = strings.TrimSpace(item.Text)
		}
		if text == "" {
			continue
		}
		category := item.Category
		if category == "" {
			category = position
		}
		difficulty := strings.ToLower(item.Difficulty)
		if difficulty != "easy" && difficulty != "medium" && difficulty != "hard" {
			difficulty = "medium"
		}
		reasoning := strings.TrimSpace(item.Reasoning)
		if reasoning == "" {
			reasoning = fmt.Sprintf("考察候选人与%s岗位相关的能力", position)
		}
		qs = append(qs, GeneratedQuestion{
			Text:       text,
			Category:   category,
			Difficulty: difficulty,
			Reasoning:  reasoning,
			Source:     model.QuestionSourceLLM,
		})
	}
	return qs, nil
}

// fallbackQuestions 确定性的模板题，任何岗位名都能套用
func (s *QuestionService) fallbackQuestions(domain string) []GeneratedQuestion {
	templates := []catalogEntry{
		{fmt.Sprintf("请做一个简单的自我介绍，并说明你为什么想从事%s相关的工作。", domain), "自我认知", "easy"},
		{fmt.Sprintf("介绍一个你在%s领域最有代表性的项目或成果。", domain), "项目经验", "easy"},
		{fmt.Sprintf("你认为%s岗位最核心的三项能力是什么？你分别处于什么水平？", domain), "自我认知", "medium"},
		{"描述一次你在工作中遇到的最大挑战，你是如何应对的？", "项目经验", "medium"},
		{"谈谈一次你和同事产生分歧的经历，最后如何达成一致？", "团队协作", "medium"},
		{fmt.Sprintf("%s领域最近有哪些让你关注的趋势或变化？", domain), "行业认知", "medium"},
		{"如果接手一个完全陌生的任务，你的学习路径是怎样的？", "学习能力", "medium"},
		{"描述一次你工作出现失误的经历，你从中学到了什么？", "自我认知", "hard"},
		{fmt.Sprintf("假设你入职后前三个月负责%s方向的工作，你会如何规划？", domain), "规划能力", "hard"},
		{"你还有什么问题想问我们吗？", "反向提问", "easy"},
	}

	n := s.count
	if n > len(templates) {
		n = len(templates)
	}

	qs := make([]GeneratedQuestion, 0, n)
	for _, e := range templates[:n] {
		qs = append(qs, GeneratedQuestion{
			Text:       e.text,
			Category:   e.category,
			Difficulty: e.difficulty,
			Reasoning:  "通用模板题，适用于任意岗位",
			Source:     model.QuestionSourceFallback,
		})
	}
	return qs
}

// extractJSONArray 剥离代码围栏后截取首个 '[' 到末个 ']' 之间的内容
func extractJSONArray(raw string) (string, bool) {
	cleaned := stripCodeFences(raw)
	start := strings.Index(cleaned, "[")
	end := strings.LastIndex(cleaned, "]")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return cleaned[start : end+1], true
}

// extractJSONObject 同 extractJSONArray，针对单个对象
func extractJSONObject(raw string) (string, bool) {
	cleaned := stripCodeFences(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return cleaned[start : end+1], true
}

func stripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.Index(s, "\n"); idx != -1 {
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
