package controller

import (
	"career_coach_backend/internal/service"
	"career_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PortfolioController struct {
	PortfolioService *service.PortfolioService
}

func NewPortfolioController(portfolioService *service.PortfolioService) *PortfolioController {
	return &PortfolioController{PortfolioService: portfolioService}
}

// Generate godoc
// @Summary 生成作品集
// @Description 基于简历内容生成作品集页面
// @Tags 作品集
// @Accept  json
// @Produce  json
// @Param   body body service.GeneratePortfolioRequest true "生成参数"
// @Success 201 {object} util.Response{data=model.Portfolio} "生成成功"
// @Failure 400 {object} util.Response "参数错误"
// @Security BearerAuth
// @Router /api/portfolios [post]
func (c *PortfolioController) Generate(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.GeneratePortfolioRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	portfolio, err := c.PortfolioService.Generate(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, portfolio)
}

// List godoc
// @Summary 我的作品集列表
// @Tags 作品集
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Portfolio} "成功"
// @Security BearerAuth
// @Router /api/portfolios [get]
func (c *PortfolioController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	portfolios, err := c.PortfolioService.List(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, portfolios)
}

// Get godoc
// @Summary 作品集详情
// @Tags 作品集
// @Produce  json
// @Param   id path string true "作品集ID"
// @Success 200 {object} util.Response{data=model.Portfolio} "成功"
// @Security BearerAuth
// @Router /api/portfolios/{id} [get]
func (c *PortfolioController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	portfolio, err := c.PortfolioService.Get(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, portfolio)
}

// GetPublished godoc
// @Summary 查看已发布的作品集
// @Description 公开访问，无需登录
// @Tags 作品集
// @Produce  json
// @Param   id path string true "作品集ID"
// @Success 200 {object} util.Response{data=model.Portfolio} "成功"
// @Failure 404 {object} util.Response "未发布或不存在"
// @Router /api/public/portfolios/{id} [get]
func (c *PortfolioController) GetPublished(ctx *gin.Context) {
	portfolio, err := c.PortfolioService.GetPublished(ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, portfolio)
}

// PublishRequest 发布状态
type PublishRequest struct {
	Published *bool `json:"published" binding:"required"`
}

// SetPublished godoc
// @Summary 发布或下线作品集
// @Tags 作品集
// @Accept  json
// @Produce  json
// @Param   id path string true "作品集ID"
// @Param   body body PublishRequest true "发布状态"
// @Success 200 {object} util.Response{data=model.Portfolio} "成功"
// @Security BearerAuth
// @Router /api/portfolios/{id}/publish [put]
func (c *PortfolioController) SetPublished(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	portfolio, err := c.PortfolioService.SetPublished(claims.UserID, ctx.Param("id"), *req.Published)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, portfolio)
}

// Delete godoc
// @Summary 删除作品集
// @Tags 作品集
// @Produce  json
// @Param   id path string true "作品集ID"
// @Success 200 {object} util.Response "删除成功"
// @Security BearerAuth
// @Router /api/portfolios/{id} [delete]
func (c *PortfolioController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.PortfolioService.Delete(claims.UserID, ctx.Param("id")); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
