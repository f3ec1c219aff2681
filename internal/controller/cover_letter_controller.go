package controller

import (
	"career_coach_backend/internal/service"
	"career_coach_backend/internal/util"
	"io"

	"github.com/gin-gonic/gin"
)

type CoverLetterController struct {
	CoverLetterService *service.CoverLetterService
}

func NewCoverLetterController(coverLetterService *service.CoverLetterService) *CoverLetterController {
	return &CoverLetterController{CoverLetterService: coverLetterService}
}

// Draft godoc
// @Summary 生成求职信
// @Description 结合简历和目标岗位一次性生成求职信
// @Tags 求职信
// @Accept  json
// @Produce  json
// @Param   body body service.DraftCoverLetterRequest true "生成参数"
// @Success 201 {object} util.Response{data=model.CoverLetter} "生成成功"
// @Failure 503 {object} util.Response "AI 服务不可用"
// @Security BearerAuth
// @Router /api/cover-letters [post]
func (c *CoverLetterController) Draft(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.DraftCoverLetterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	letter, err := c.CoverLetterService.Draft(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, letter)
}

// DraftStream godoc
// @Summary 流式生成求职信
// @Description SSE 流式下发生成内容，生成完毕后自动保存
// @Tags 求职信
// @Accept  json
// @Produce  text/event-stream
// @Param   body body service.DraftCoverLetterRequest true "生成参数"
// @Success 200 {string} string "SSE 数据流"
// @Security BearerAuth
// @Router /api/cover-letters/stream [post]
func (c *CoverLetterController) DraftStream(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.DraftCoverLetterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	chunks, errChan, err := c.CoverLetterService.DraftStream(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.FromError(ctx, err)
		return
	}

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")

	ctx.Stream(func(w io.Writer) bool {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				if err, ok := <-errChan; ok && err != nil {
					ctx.SSEvent("error", err.Error())
					return false
				}
				ctx.SSEvent("done", "")
				return false
			}
			ctx.SSEvent("message", chunk)
			return true
		case <-ctx.Request.Context().Done():
			return false
		}
	})
}

// List godoc
// @Summary 我的求职信列表
// @Tags 求职信
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.CoverLetter} "成功"
// @Security BearerAuth
// @Router /api/cover-letters [get]
func (c *CoverLetterController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	letters, err := c.CoverLetterService.List(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, letters)
}

// Get godoc
// @Summary 求职信详情
// @Tags 求职信
// @Produce  json
// @Param   id path string true "求职信ID"
// @Success 200 {object} util.Response{data=model.CoverLetter} "成功"
// @Security BearerAuth
// @Router /api/cover-letters/{id} [get]
func (c *CoverLetterController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	letter, err := c.CoverLetterService.Get(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, letter)
}

// Delete godoc
// @Summary 删除求职信
// @Tags 求职信
// @Produce  json
// @Param   id path string true "求职信ID"
// @Success 200 {object} util.Response "删除成功"
// @Security BearerAuth
// @Router /api/cover-letters/{id} [delete]
func (c *CoverLetterController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.CoverLetterService.Delete(claims.UserID, ctx.Param("id")); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
