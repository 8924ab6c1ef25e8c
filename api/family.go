package api

import (
	"familyfinance/journal"
	"familyfinance/middleware"
	"familyfinance/models"
	"familyfinance/service"

	"github.com/gin-gonic/gin"
)

// FamilyHandler 家庭与成员
type FamilyHandler struct {
	svc *service.Service
}

// NewFamilyHandler 创建家庭处理器
func NewFamilyHandler(svc *service.Service) *FamilyHandler {
	return &FamilyHandler{svc: svc}
}

// FamilyRequest 创建或修改家庭
type FamilyRequest struct {
	Name  string  `json:"name" binding:"required,max=200" example:"Smiths"`
	Color *string `json:"color" binding:"omitempty,min=1,max=20" example:"blue"`
}

// FamilyCreated 创建家庭的返回
type FamilyCreated struct {
	FamilyID   uint   `json:"familyId"`
	Name       string `json:"name"`
	InviteCode string `json:"inviteCode" example:"AB12CD"`
}

// JoinRequest 加入家庭，code 与 inviteCode 二选一
type JoinRequest struct {
	Code       string `json:"code" binding:"required_without=InviteCode" example:"AB12CD"`
	InviteCode string `json:"inviteCode" binding:"required_without=Code"`
}

// AssignRoleRequest 修改角色
type AssignRoleRequest struct {
	UserID uint        `json:"userId" binding:"required" example:"2"`
	Role   models.Role `json:"role" binding:"required,oneof=admin parent child" example:"parent"`
}

// DeleteFamilyRequest 删除家庭需要重新输入密码
type DeleteFamilyRequest struct {
	Password string `json:"password" binding:"required"`
}

// InviteRequest 邮件邀请
type InviteRequest struct {
	Email string `json:"email" binding:"required,email" example:"friend@example.com"`
}

// ActivityResponse 活动回放
type ActivityResponse struct {
	FamilyID uint            `json:"familyId"`
	Events   []journal.Event `json:"events"`
}

// Create 创建家庭
// @Summary 创建家庭
// @Description 创建者成为管理员，写入默认类别，返回 6 位邀请码
// @Tags 家庭
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FamilyRequest true "家庭名称"
// @Success 201 {object} Response{data=FamilyCreated} "创建成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/families [post]
func (h *FamilyHandler) Create(c *gin.Context) {
	var req FamilyRequest
	if !bindJSON(c, &req) {
		return
	}
	fam, err := h.svc.CreateFamily(c.Request.Context(), middleware.GetCurrentUserID(c), req.Name)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, "Family created", FamilyCreated{FamilyID: fam.ID, Name: fam.Name, InviteCode: fam.InviteCode})
}

// List 当前用户创建的家庭
// @Summary 我创建的家庭
// @Tags 家庭
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Family} "获取成功"
// @Router /api/families [get]
func (h *FamilyHandler) List(c *gin.Context) {
	list, err := h.svc.ListFamilies(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, list)
}

// Update 修改家庭
// @Summary 修改家庭名称和颜色
// @Tags 家庭
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body FamilyRequest true "家庭信息"
// @Success 200 {object} Response{data=models.Family} "修改成功"
// @Failure 403 {object} Response "仅管理员"
// @Router /api/family [patch]
func (h *FamilyHandler) Update(c *gin.Context) {
	var req FamilyRequest
	if !bindJSON(c, &req) {
		return
	}
	fam, err := h.svc.UpdateFamily(c.Request.Context(), middleware.GetCurrentUserID(c), service.FamilyInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Family updated", fam)
}

// Join 通过邀请码加入家庭
// @Summary 加入家庭
// @Tags 家庭
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body JoinRequest true "邀请码"
// @Success 200 {object} Response{data=models.Family} "加入成功"
// @Failure 400 {object} Response "邀请码格式错误"
// @Failure 404 {object} Response "邀请码无效"
// @Router /api/families/join [post]
func (h *FamilyHandler) Join(c *gin.Context) {
	var req JoinRequest
	if !bindJSON(c, &req) {
		return
	}
	code := req.Code
	if code == "" {
		code = req.InviteCode
	}
	fam, err := h.svc.JoinFamily(c.Request.Context(), middleware.GetCurrentUserID(c), code)
	if err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Joined family", fam)
}

// Members 成员列表
// @Summary 家庭成员
// @Tags 家庭
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=service.MembersView} "获取成功"
// @Failure 404 {object} Response "未加入家庭"
// @Router /api/family/members [get]
func (h *FamilyHandler) Members(c *gin.Context) {
	view, err := h.svc.Members(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, view)
}

// Activity 最近活动
// @Summary 家庭最近活动
// @Description 返回内存中保留的最近 50 条活动，重启后清空
// @Tags 家庭
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=ActivityResponse} "获取成功"
// @Router /api/activity [get]
func (h *FamilyHandler) Activity(c *gin.Context) {
	familyID, events, err := h.svc.Activity(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ActivityResponse{FamilyID: familyID, Events: events})
}

// RemoveMember 移出成员
// @Summary 移出成员
// @Tags 家庭
// @Produce json
// @Security BearerAuth
// @Param id path int true "成员 ID"
// @Success 200 {object} Response "已移出"
// @Failure 403 {object} Response "无权限或对方是管理员"
// @Failure 404 {object} Response "成员不存在"
// @Router /api/family/members/{id} [delete]
func (h *FamilyHandler) RemoveMember(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), middleware.GetCurrentUserID(c), id); err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Member removed", nil)
}

// AssignRole 修改成员角色
// @Summary 修改角色
// @Tags 家庭
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AssignRoleRequest true "目标成员和角色"
// @Success 200 {object} Response "修改成功"
// @Failure 400 {object} Response "角色无效或撤销自己的管理员"
// @Failure 403 {object} Response "仅管理员"
// @Router /api/roles/assign [post]
func (h *FamilyHandler) AssignRole(c *gin.Context) {
	var req AssignRoleRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.AssignRole(c.Request.Context(), middleware.GetCurrentUserID(c), req.UserID, req.Role); err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Role updated", nil)
}

// Delete 删除家庭
// @Summary 删除家庭
// @Description 仅管理员，需要重新输入密码；成员全部变为未加入家庭
// @Tags 家庭
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body DeleteFamilyRequest true "密码"
// @Success 200 {object} Response "已删除"
// @Failure 403 {object} Response "无权限或密码错误"
// @Router /api/family_delete [delete]
func (h *FamilyHandler) Delete(c *gin.Context) {
	var req DeleteFamilyRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.DeleteFamily(c.Request.Context(), middleware.GetCurrentUserID(c), req.Password); err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Family deleted", nil)
}

// Invite 邮件发送邀请码
// @Summary 邮件邀请
// @Tags 家庭
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body InviteRequest true "对方邮箱"
// @Success 200 {object} Response "已发送"
// @Failure 400 {object} Response "邮件未启用"
// @Router /api/family/invite [post]
func (h *FamilyHandler) Invite(c *gin.Context) {
	var req InviteRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.InviteMember(c.Request.Context(), middleware.GetCurrentUserID(c), req.Email); err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Invite sent", nil)
}
