package api

import (
	"familyfinance/middleware"
	"familyfinance/models"
	"familyfinance/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.Service
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	FirstName string `json:"firstName" binding:"required,max=100" example:"Ada"`
	LastName  string `json:"lastName" binding:"required,max=100" example:"Lovelace"`
	Email     string `json:"email" binding:"required,email,max=255" example:"ada@example.com"`
	Password  string `json:"password" binding:"required,min=6,max=128" example:"password123"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required" example:"ada@example.com"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// LoginResponse 登录响应，令牌同时写入会话 cookie
type LoginResponse struct {
	Token    string      `json:"token"`
	UserInfo models.User `json:"user_info"`
}

// Register 用户注册
// @Summary 用户注册
// @Description 创建账号并直接登录，新用户尚未加入任何家庭
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "注册信息"
// @Success 201 {object} Response{data=LoginResponse} "注册成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 409 {object} Response "邮箱已存在"
// @Router /api/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		Fail(c, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, middleware.TokenTTL())
	if err != nil {
		InternalError(c, "Failed to create session")
		return
	}
	middleware.SetSessionCookie(c, token)
	Created(c, "User registered successfully", LoginResponse{Token: token, UserInfo: *user})
}

// Login 用户登录
// @Summary 用户登录
// @Description 邮箱密码登录，返回令牌并写入会话 cookie
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body LoginRequest true "登录信息"
// @Success 200 {object} Response{data=LoginResponse} "登录成功"
// @Failure 400 {object} Response "请求参数错误"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Failure 429 {object} Response "尝试过于频繁"
// @Router /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.svc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		Fail(c, err)
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Email, middleware.TokenTTL())
	if err != nil {
		InternalError(c, "Failed to create session")
		return
	}
	middleware.SetSessionCookie(c, token)
	SuccessWithMessage(c, "Login successful", LoginResponse{Token: token, UserInfo: *user})
}

// Logout 退出登录
// @Summary 退出登录
// @Tags 认证
// @Produce json
// @Success 200 {object} Response "已退出"
// @Router /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSessionCookie(c)
	SuccessWithMessage(c, "Logged out", nil)
}
