package api

import (
	"familyfinance/middleware"
	"familyfinance/service"

	"github.com/gin-gonic/gin"
)

// ProfileHandler 个人资料
type ProfileHandler struct {
	svc *service.Service
}

// NewProfileHandler 创建个人资料处理器
func NewProfileHandler(svc *service.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// ProfileRequest 修改资料
type ProfileRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100"`
	LastName  string `json:"lastName" binding:"required,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
}

// ChangePasswordRequest 修改密码
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=128"`
}

// Get 当前用户
// @Summary 当前用户及家庭
// @Tags 个人
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.Profile} "获取成功"
// @Failure 401 {object} Response "未登录"
// @Router /api/me [get]
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.svc.Profile(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, p)
}

// Update 修改资料
// @Summary 修改姓名和邮箱
// @Tags 个人
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ProfileRequest true "资料"
// @Success 200 {object} Response{data=models.User} "修改成功"
// @Failure 409 {object} Response "邮箱已被使用"
// @Router /api/me [put]
func (h *ProfileHandler) Update(c *gin.Context) {
	var req ProfileRequest
	if !bindJSON(c, &req) {
		return
	}
	u, err := h.svc.UpdateProfile(c.Request.Context(), middleware.GetCurrentUserID(c), service.ProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Profile updated", u)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags 个人
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "旧密码和新密码"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "旧密码错误"
// @Router /api/me/password [put]
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := h.svc.ChangePassword(c.Request.Context(), middleware.GetCurrentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Password updated", nil)
}
