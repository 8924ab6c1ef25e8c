package api

import (
	"log/slog"

	"familyfinance/apperr"
	"familyfinance/config"

	"github.com/gin-gonic/gin"
)

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情，避免信息泄露
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}

// Fail 按业务错误类别返回状态码，存储错误记日志并隐藏细节
func Fail(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindStore {
		slog.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		InternalError(c, SafeErrorMessage(err, "Internal server error"))
		return
	}
	Error(c, e.Status(), e.Message)
}
