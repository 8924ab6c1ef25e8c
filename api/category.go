package api

import (
	"familyfinance/middleware"
	"familyfinance/models"
	"familyfinance/service"

	"github.com/gin-gonic/gin"
)

// CategoryHandler 家庭类别
type CategoryHandler struct {
	svc *service.Service
}

// NewCategoryHandler 创建类别处理器
func NewCategoryHandler(svc *service.Service) *CategoryHandler {
	return &CategoryHandler{svc: svc}
}

// CategoryRequest 新建或修改类别，修改时省略的字段保持不变
type CategoryRequest struct {
	Name  string        `json:"name" binding:"max=100" example:"Pets"`
	Type  models.TxType `json:"type" binding:"omitempty,oneof=income expense" example:"expense"`
	Color string        `json:"color" binding:"max=20" example:"#ef4444"`
}

func (r CategoryRequest) input() service.CategoryInput {
	return service.CategoryInput{Name: r.Name, Type: r.Type, Color: r.Color}
}

// List 类别列表
// @Summary 类别列表
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]models.Category} "获取成功"
// @Router /api/categories [get]
func (h *CategoryHandler) List(c *gin.Context) {
	list, err := h.svc.ListCategories(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, list)
}

// Create 新建类别
// @Summary 新建类别
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CategoryRequest true "类别"
// @Success 201 {object} Response{data=models.Category} "新建成功"
// @Failure 409 {object} Response "类别已存在"
// @Router /api/categories [post]
func (h *CategoryHandler) Create(c *gin.Context) {
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), middleware.GetCurrentUserID(c), req.input())
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, "Category created", cat)
}

// Update 修改类别
// @Summary 修改类别
// @Description 改名时流水和预算跟随改名，改类型时流水跟随改类型
// @Tags 类别
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别 ID"
// @Param request body CategoryRequest true "类别"
// @Success 200 {object} Response{data=models.Category} "修改成功"
// @Router /api/categories/{id} [put]
func (h *CategoryHandler) Update(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req CategoryRequest
	if !bindJSON(c, &req) {
		return
	}
	cat, err := h.svc.UpdateCategory(c.Request.Context(), middleware.GetCurrentUserID(c), id, req.input())
	if err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Category updated", cat)
}

// Delete 删除类别
// @Summary 删除类别
// @Description 引用该类别的流水和预算改挂到 Others
// @Tags 类别
// @Produce json
// @Security BearerAuth
// @Param id path int true "类别 ID"
// @Success 200 {object} Response "已删除"
// @Router /api/categories/{id} [delete]
func (h *CategoryHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), middleware.GetCurrentUserID(c), id); err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Category deleted", nil)
}
