package controller

import (
	"career_coach_backend/internal/service"
	"career_coach_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ResumeController struct {
	ResumeService *service.ResumeService
}

func NewResumeController(resumeService *service.ResumeService) *ResumeController {
	return &ResumeController{ResumeService: resumeService}
}

// Upload godoc
// @Summary 上传简历
// @Description 上传 PDF/DOCX/TXT 简历并抽取正文
// @Tags 简历
// @Accept  multipart/form-data
// @Produce  json
// @Param   file formData file true "简历文件"
// @Param   title formData string false "简历标题"
// @Success 201 {object} util.Response{data=model.Resume} "上传成功"
// @Failure 400 {object} util.Response "文件格式或内容不合法"
// @Security BearerAuth
// @Router /api/resumes [post]
func (c *ResumeController) Upload(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少简历文件")
		return
	}

	resume, err := c.ResumeService.Upload(ctx.Request.Context(), claims.UserID, fileHeader, ctx.PostForm("title"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Created(ctx, resume)
}

// List godoc
// @Summary 我的简历列表
// @Tags 简历
// @Produce  json
// @Success 200 {object} util.Response{data=[]model.Resume} "成功"
// @Security BearerAuth
// @Router /api/resumes [get]
func (c *ResumeController) List(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	resumes, err := c.ResumeService.List(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, resumes)
}

// Get godoc
// @Summary 简历详情
// @Tags 简历
// @Produce  json
// @Param   id path string true "简历ID"
// @Success 200 {object} util.Response{data=model.Resume} "成功"
// @Failure 404 {object} util.Response "简历不存在"
// @Security BearerAuth
// @Router /api/resumes/{id} [get]
func (c *ResumeController) Get(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	resume, err := c.ResumeService.Get(claims.UserID, ctx.Param("id"))
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, resume)
}

// Delete godoc
// @Summary 删除简历
// @Tags 简历
// @Produce  json
// @Param   id path string true "简历ID"
// @Success 200 {object} util.Response "删除成功"
// @Security BearerAuth
// @Router /api/resumes/{id} [delete]
func (c *ResumeController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.ResumeService.Delete(ctx.Request.Context(), claims.UserID, ctx.Param("id")); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// OptimizeRequest 简历优化请求
type OptimizeRequest struct {
	JobDescription string `json:"jobDescription"`
}

// Optimize godoc
// @Summary 简历优化建议
// @Description 结合目标岗位生成逐条修改建议
// @Tags 简历
// @Accept  json
// @Produce  json
// @Param   id path string true "简历ID"
// @Param   body body OptimizeRequest false "目标岗位描述"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 503 {object} util.Response "AI 服务不可用"
// @Security BearerAuth
// @Router /api/resumes/{id}/optimize [post]
func (c *ResumeController) Optimize(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req OptimizeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.BadRequest(ctx, err.Error())
		return
	}

	suggestions, err := c.ResumeService.Optimize(ctx.Request.Context(), claims.UserID, ctx.Param("id"), req.JobDescription)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"suggestions": suggestions})
}
