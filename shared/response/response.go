package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 状态值
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Status 文档写入接口的固定响应结构
type Status struct {
	Status string `json:"status"`
}

// 响应体按字节固定，不随文档内容变化
var (
	successBody = []byte(`{"status": "success"}`)
	errorBody   = []byte(`{"status": "error"}`)
)

const contentTypeJSON = "application/json"

// DocumentSaved 200 成功响应
func DocumentSaved(c *gin.Context) {
	c.Data(http.StatusOK, contentTypeJSON, successBody)
}

// DocumentFailed 500 错误响应，具体原因只写日志
func DocumentFailed(c *gin.Context) {
	c.Data(http.StatusInternalServerError, contentTypeJSON, errorBody)
}

// NotFound 404 空响应体
func NotFound(c *gin.Context) {
	c.AbortWithStatus(http.StatusNotFound)
}
