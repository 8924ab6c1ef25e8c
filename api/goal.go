package api

import (
	"familyfinance/middleware"
	"familyfinance/service"

	"github.com/gin-gonic/gin"
)

// GoalHandler 储蓄目标
type GoalHandler struct {
	svc *service.Service
}

// NewGoalHandler 创建目标处理器
func NewGoalHandler(svc *service.Service) *GoalHandler {
	return &GoalHandler{svc: svc}
}

// GoalRequest 新建目标
type GoalRequest struct {
	Name          string  `json:"name" binding:"required,max=200" example:"Summer trip"`
	TargetAmount  float64 `json:"targetAmount" binding:"required,gt=0,lte=999999999" example:"2000"`
	CurrentAmount float64 `json:"currentAmount" binding:"gte=0,lte=999999999" example:"0"`
	Deadline      string  `json:"deadline" example:"2024-08-01"`
}

// AdjustRequest 存入或取出
type AdjustRequest struct {
	Amount float64            `json:"amount" binding:"required,gt=0,lte=999999999" example:"50"`
	Action service.GoalAdjust `json:"action" binding:"required,oneof=add subtract" example:"add"`
}

// AdjustResponse 调整后的金额
type AdjustResponse struct {
	GoalID        uint    `json:"goalId"`
	CurrentAmount float64 `json:"currentAmount"`
}

// List 目标列表
// @Summary 目标列表
// @Tags 目标
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Goal} "获取成功"
// @Router /api/goals [get]
func (h *GoalHandler) List(c *gin.Context) {
	list, err := h.svc.ListGoals(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, list)
}

// Create 新建目标
// @Summary 新建目标
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GoalRequest true "目标"
// @Success 201 {object} Response{data=models.Goal} "新建成功"
// @Failure 403 {object} Response "孩子不能新建目标"
// @Router /api/goals [post]
func (h *GoalHandler) Create(c *gin.Context) {
	var req GoalRequest
	if !bindJSON(c, &req) {
		return
	}
	deadline, err := parseDate(req.Deadline, "deadline")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	g, err := h.svc.CreateGoal(c.Request.Context(), middleware.GetCurrentUserID(c), service.GoalInput{
		Name:          req.Name,
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      deadline,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, "Goal added", g)
}

// Adjust 存入或取出
// @Summary 调整目标金额
// @Description 结果截断在 0 和目标金额之间
// @Tags 目标
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "目标 ID"
// @Param request body AdjustRequest true "金额和方向"
// @Success 200 {object} Response{data=AdjustResponse} "已调整"
// @Failure 404 {object} Response "目标不存在"
// @Router /api/goals/{id}/adjust [post]
func (h *GoalHandler) Adjust(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req AdjustRequest
	if !bindJSON(c, &req) {
		return
	}
	g, err := h.svc.AdjustGoal(c.Request.Context(), middleware.GetCurrentUserID(c), id, req.Action, req.Amount)
	if err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Goal updated", AdjustResponse{GoalID: g.ID, CurrentAmount: g.CurrentAmount})
}
