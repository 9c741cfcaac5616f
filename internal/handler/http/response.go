package http

import "github.com/gin-gonic/gin"

// ErrorResponse 写出错误响应。客户端依赖 statusCode 字段判断失败。
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{"statusCode": code, "message": message})
}

func SuccessResponse(c *gin.Context, code int, data interface{}) {
	c.JSON(code, data)
}
