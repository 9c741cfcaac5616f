package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blvckboard/internal/service"
)

// HandleServiceError 把服务层的拒绝映射为 HTTP 响应
func HandleServiceError(c *gin.Context, err error) {
	rej, ok := service.AsRejection(err)
	if !ok {
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
		return
	}
	switch rej.Code {
	case service.CodeInvalidInput, service.CodeQuotaExceeded:
		ErrorResponse(c, http.StatusBadRequest, rej.Message)
	default:
		ErrorResponse(c, http.StatusInternalServerError, rej.Message)
	}
}
