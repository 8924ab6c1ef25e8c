package api

import (
	"familyfinance/middleware"
	"familyfinance/models"
	"familyfinance/service"

	"github.com/gin-gonic/gin"
)

// BudgetHandler 预算
type BudgetHandler struct {
	svc *service.Service
}

// NewBudgetHandler 创建预算处理器
func NewBudgetHandler(svc *service.Service) *BudgetHandler {
	return &BudgetHandler{svc: svc}
}

// BudgetRequest 设置预算，同一类别重复设置会覆盖
type BudgetRequest struct {
	Category string        `json:"category" binding:"required,max=100" example:"Groceries"`
	Amount   float64       `json:"amount" binding:"required,gt=0,lte=999999999" example:"500"`
	Period   models.Period `json:"period" binding:"omitempty,oneof=daily weekly monthly yearly" example:"monthly"`
}

// List 预算及已花费
// @Summary 预算列表
// @Description spent 为该类别支出流水的实时合计
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.BudgetStatus} "获取成功"
// @Router /api/budgets [get]
func (h *BudgetHandler) List(c *gin.Context) {
	list, err := h.svc.BudgetStatus(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, list)
}

// Upsert 设置预算
// @Summary 设置预算
// @Tags 预算
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body BudgetRequest true "预算"
// @Success 201 {object} Response{data=models.Budget} "已保存"
// @Failure 403 {object} Response "孩子不能管理预算"
// @Router /api/budgets [post]
func (h *BudgetHandler) Upsert(c *gin.Context) {
	var req BudgetRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.svc.UpsertBudget(c.Request.Context(), middleware.GetCurrentUserID(c), service.BudgetInput{
		Category: req.Category,
		Amount:   req.Amount,
		Period:   req.Period,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, "Budget updated", b)
}

// Delete 删除预算
// @Summary 删除预算
// @Tags 预算
// @Produce json
// @Security BearerAuth
// @Param id path int true "预算 ID"
// @Success 200 {object} Response "已删除"
// @Failure 404 {object} Response "预算不存在"
// @Router /api/budgets/{id} [delete]
func (h *BudgetHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteBudget(c.Request.Context(), middleware.GetCurrentUserID(c), id); err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Budget deleted", nil)
}
