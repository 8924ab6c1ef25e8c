package api

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"familyfinance/middleware"
	"familyfinance/models"
	"familyfinance/service"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// TransactionHandler 收支流水
type TransactionHandler struct {
	svc *service.Service
}

// NewTransactionHandler 创建流水处理器
func NewTransactionHandler(svc *service.Service) *TransactionHandler {
	return &TransactionHandler{svc: svc}
}

// TransactionRequest 新增流水，category 大小写不敏感匹配家庭类别
type TransactionRequest struct {
	Amount      float64       `json:"amount" binding:"required,gt=0,lte=999999999" example:"120"`
	Description string        `json:"description" binding:"required,max=500" example:"Weekly shop"`
	Type        models.TxType `json:"type" binding:"required,oneof=income expense" example:"expense"`
	Category    string        `json:"category" example:"groceries"`
	Date        string        `json:"date" example:"2024-05-01"`
	IsRecurring bool          `json:"isRecurring"`
	Recurrence  *string       `json:"recurrence" binding:"omitempty,max=50"`
	NextDueDate string        `json:"nextDueDate"`
}

// parseDate 接受 RFC3339 或 2006-01-02，空串返回 nil
func parseDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return nil, fmt.Errorf("%s must be YYYY-MM-DD", field)
	}
	return &t, nil
}

// List 家庭流水
// @Summary 家庭流水
// @Description 按时间倒序，带记账人名字和角色
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=[]service.TransactionView} "获取成功"
// @Failure 404 {object} Response "未加入家庭"
// @Router /api/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	list, err := h.svc.ListTransactions(c.Request.Context(), middleware.GetCurrentUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, list)
}

// Create 记一笔
// @Summary 新增流水
// @Tags 流水
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransactionRequest true "流水"
// @Success 201 {object} Response{data=models.Transaction} "新增成功"
// @Failure 400 {object} Response "请求参数错误"
// @Router /api/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req TransactionRequest
	if !bindJSON(c, &req) {
		return
	}
	date, err := parseDate(req.Date, "date")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	next, err := parseDate(req.NextDueDate, "nextDueDate")
	if err != nil {
		BadRequest(c, err.Error())
		return
	}

	tx, err := h.svc.CreateTransaction(c.Request.Context(), middleware.GetCurrentUserID(c), service.TransactionInput{
		Amount:      req.Amount,
		Description: req.Description,
		Type:        req.Type,
		Category:    req.Category,
		Date:        date,
		IsRecurring: req.IsRecurring,
		Recurrence:  req.Recurrence,
		NextDueDate: next,
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, "Transaction added", tx)
}

// Delete 删除流水
// @Summary 删除流水
// @Tags 流水
// @Produce json
// @Security BearerAuth
// @Param id path int true "流水 ID"
// @Success 200 {object} Response "已删除"
// @Failure 404 {object} Response "流水不存在"
// @Router /api/transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteTransaction(c.Request.Context(), middleware.GetCurrentUserID(c), id); err != nil {
		Fail(c, err)
		return
	}
	SuccessWithMessage(c, "Transaction deleted", nil)
}

// Export 导出 Excel
// @Summary 导出家庭流水
// @Description 按时间范围导出 xlsx，不传则导出全部
// @Tags 流水
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param start_time query string false "开始日期 (2024-01-01)"
// @Param end_time query string false "结束日期 (2024-12-31)"
// @Success 200 {file} file "Excel 文件"
// @Failure 400 {object} Response "日期格式错误"
// @Router /api/transactions/export [get]
func (h *TransactionHandler) Export(c *gin.Context) {
	startStr := c.Query("start_time")
	endStr := c.Query("end_time")

	var r service.ExportRange
	if startStr != "" {
		t, err := time.ParseInLocation(dateLayout, startStr, time.Local)
		if err != nil {
			BadRequest(c, "start_time must be YYYY-MM-DD")
			return
		}
		r.Start = t
	}
	if endStr != "" {
		t, err := time.ParseInLocation(dateLayout, endStr, time.Local)
		if err != nil {
			BadRequest(c, "end_time must be YYYY-MM-DD")
			return
		}
		r.End = t.Add(24*time.Hour - time.Second)
	}

	buf, err := h.svc.ExportTransactions(c.Request.Context(), middleware.GetCurrentUserID(c), r)
	if err != nil {
		Fail(c, err)
		return
	}

	filename := fmt.Sprintf("transactions_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(filename)))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
