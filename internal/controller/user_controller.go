package controller

import (
	"career_coach_backend/internal/service"
	"career_coach_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{UserService: userService}
}

// UpdateProfile godoc
// @Summary 更新个人资料
// @Tags 用户
// @Accept  json
// @Produce  json
// @Param   body body service.UpdateProfileRequest true "资料"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Security BearerAuth
// @Router /api/users/profile [put]
func (c *UserController) UpdateProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.UpdateProfile(claims.UserID, req)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// UploadAvatar godoc
// @Summary 上传头像
// @Tags 用户
// @Accept  multipart/form-data
// @Produce  json
// @Param   avatar formData file true "头像图片"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 400 {object} util.Response "文件格式不支持"
// @Security BearerAuth
// @Router /api/users/avatar [post]
func (c *UserController) UploadAvatar(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	fileHeader, err := ctx.FormFile("avatar")
	if err != nil {
		util.BadRequest(ctx, "缺少头像文件")
		return
	}

	user, err := c.UserService.UploadAvatar(ctx.Request.Context(), claims.UserID, fileHeader)
	if err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, user)
}

// ListUsers godoc
// @Summary 用户列表
// @Description 管理员分页查看全部用户
// @Tags 用户
// @Produce  json
// @Param   page query int false "页码"
// @Param   limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse} "成功"
// @Security BearerAuth
// @Router /api/admin/users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	users, total, err := c.UserService.List(page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  users,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// SetDisabledRequest 启用/禁用用户
type SetDisabledRequest struct {
	Disabled *bool `json:"disabled" binding:"required"`
}

// SetUserDisabled godoc
// @Summary 启用或禁用用户
// @Tags 用户
// @Accept  json
// @Produce  json
// @Param   id path int true "用户ID"
// @Param   body body SetDisabledRequest true "禁用状态"
// @Success 200 {object} util.Response "成功"
// @Security BearerAuth
// @Router /api/admin/users/{id}/disabled [put]
func (c *UserController) SetUserDisabled(ctx *gin.Context) {
	userID := util.MustParseUint(ctx.Param("id"))
	if userID == 0 {
		util.BadRequest(ctx, "无效的用户ID")
		return
	}

	var req SetDisabledRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.UserService.SetDisabled(userID, *req.Disabled); err != nil {
		util.FromError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
