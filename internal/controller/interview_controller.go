package controller

import (
	"career_coach_backend/internal/service"
	"career_coach_backend/internal/util"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type InterviewController struct {
	InterviewService *service.InterviewService
}

func NewInterviewController(interviewService *service.InterviewService) *InterviewController {
	return &InterviewController{InterviewService: interviewService}
}

// CreateSession godoc
// @Summary 发起模拟面试
// @Description 创建会话并生成题目集，题目一经生成不再变化
// @Tags 模拟面试
// @Accept  json
// @Produce  json
// @Param   body body service.CreateSessionRequest true "面试参数"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "参数错误"
// @Failure 503 {object} util.Response "出题失败"
// @Security BearerAuth
// @Router /api/interviews [post]
func (c *InterviewController) CreateSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CreateSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, questions, err := c.InterviewService.CreateSession(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Created(ctx, gin.H{
		"session":   session,
		"questions": questions,
	})
}

// ListSessions godoc
// @Summary 我的面试记录
// @Tags 模拟面试
// @Produce  json
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Security BearerAuth
// @Router /api/interviews [get]
func (c *InterviewController) ListSessions(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}

	sessions, total, err := c.InterviewService.ListSessions(claims.UserID, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  sessions,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetSession godoc
// @Summary 面试会话详情
// @Tags 模拟面试
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 403 {object} util.Response "无权访问"
// @Failure 404 {object} util.Response "会话不存在"
// @Security BearerAuth
// @Router /api/interviews/{id} [get]
func (c *InterviewController) GetSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	session, questions, err := c.InterviewService.GetSession(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"session":   session,
		"questions": questions,
	})
}

// SubmitAudioAnswer godoc
// @Summary 提交录音作答
// @Description 音频转写后保存作答并自动评分，评分失败时作答以未评分状态保留
// @Tags 模拟面试
// @Accept  multipart/form-data
// @Produce  json
// @Param   id path string true "会话ID"
// @Param   index path int true "题号，从0开始"
// @Param   audio formData file true "录音文件"
// @Success 200 {object} util.Response{data=model.InterviewAnswer} "作答已保存"
// @Failure 400 {object} util.Response "音频不合法或题号越界"
// @Failure 409 {object} util.Response "会话已结束"
// @Failure 502 {object} util.Response "转写服务异常"
// @Security BearerAuth
// @Router /api/interviews/{id}/answers/{index}/audio [post]
func (c *InterviewController) SubmitAudioAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || index < 0 {
		util.BadRequest(ctx, "无效的题号")
		return
	}

	fileHeader, err := ctx.FormFile("audio")
	if err != nil {
		util.BadRequest(ctx, "缺少录音文件")
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if !allowedAudioExt(ext) {
		util.BadRequest(ctx, fmt.Sprintf("不支持的音频格式 %s", ext))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	answer, err := c.InterviewService.SubmitAudioAnswer(ctx.Request.Context(), claims.UserID, ctx.Param("id"), index, audio, fileHeader.Filename)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// TextAnswerRequest 文字作答
type TextAnswerRequest struct {
	Transcript string `json:"transcript" binding:"required"`
}

// SubmitTextAnswer godoc
// @Summary 提交文字作答
// @Description 直接提交文字稿，保存后自动评分。重复提交覆盖旧作答
// @Tags 模拟面试
// @Accept  json
// @Produce  json
// @Param   id path string true "会话ID"
// @Param   index path int true "题号，从0开始"
// @Param   body body TextAnswerRequest true "作答内容"
// @Success 200 {object} util.Response{data=model.InterviewAnswer} "作答已保存"
// @Failure 400 {object} util.Response "题号越界"
// @Failure 409 {object} util.Response "会话已结束"
// @Security BearerAuth
// @Router /api/interviews/{id}/answers/{index} [post]
func (c *InterviewController) SubmitTextAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || index < 0 {
		util.BadRequest(ctx, "无效的题号")
		return
	}

	var req TextAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.InterviewService.RecordAnswer(claims.UserID, ctx.Param("id"), index, req.Transcript)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	scored, err := c.InterviewService.ScoreAnswer(ctx.Request.Context(), claims.UserID, ctx.Param("id"), index)
	if err != nil {
		// 作答已保存，评分可稍后重试
		util.Success(ctx, answer)
		return
	}
	util.Success(ctx, scored)
}

// ScoreAnswer godoc
// @Summary 对已有作答评分
// @Description 对尚未评分或需要重评的作答触发评分
// @Tags 模拟面试
// @Produce  json
// @Param   id path string true "会话ID"
// @Param   index path int true "题号，从0开始"
// @Success 200 {object} util.Response{data=model.InterviewAnswer} "评分完成"
// @Failure 404 {object} util.Response "尚未作答"
// @Failure 409 {object} util.Response "会话已结束"
// @Security BearerAuth
// @Router /api/interviews/{id}/answers/{index}/score [post]
func (c *InterviewController) ScoreAnswer(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	index, err := strconv.Atoi(ctx.Param("index"))
	if err != nil || index < 0 {
		util.BadRequest(ctx, "无效的题号")
		return
	}

	answer, err := c.InterviewService.ScoreAnswer(ctx.Request.Context(), claims.UserID, ctx.Param("id"), index)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, answer)
}

// CompleteRequest 结束面试
type CompleteRequest struct {
	OverallScore *int `json:"overallScore"`
}

// CompleteSession godoc
// @Summary 结束面试
// @Description 正常收尾。未传总分时按已评分作答的均值计算。重复调用幂等
// @Tags 模拟面试
// @Accept  json
// @Produce  json
// @Param   id path string true "会话ID"
// @Param   body body CompleteRequest false "总分，可选"
// @Success 200 {object} util.Response{data=model.InterviewSession} "已结束"
// @Security BearerAuth
// @Router /api/interviews/{id}/complete [post]
func (c *InterviewController) CompleteSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req CompleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.InterviewService.CompleteSession(claims.UserID, ctx.Param("id"), req.OverallScore)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// AbortSession godoc
// @Summary 中止面试
// @Description 中途放弃，会话进入终态，后续作答和评分都会被拒绝
// @Tags 模拟面试
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response{data=model.InterviewSession} "已中止"
// @Security BearerAuth
// @Router /api/interviews/{id}/abort [post]
func (c *InterviewController) AbortSession(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	session, err := c.InterviewService.AbortSession(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// GetSummary godoc
// @Summary 面试汇总报告
// @Description 逐题明细、均分和完成率。已结束会话的报告有缓存
// @Tags 模拟面试
// @Produce  json
// @Param   id path string true "会话ID"
// @Success 200 {object} util.Response{data=service.SessionSummary} "成功"
// @Security BearerAuth
// @Router /api/interviews/{id}/summary [get]
func (c *InterviewController) GetSummary(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.InterviewService.GetSummary(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, summary)
}

func allowedAudioExt(ext string) bool {
	for _, allowed := range util.AllowedAudioExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
