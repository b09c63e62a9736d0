package middleware

import (
	"net/http"
	"time"

	"github.com/cloud-platform/recipe-store/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 跨域响应头，取值固定
const (
	AllowOrigin  = "*"
	AllowMethods = "GET, PUT, OPTIONS"
	AllowHeaders = "Content-Type"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// CORSHeaders 跨域中间件，允许任意来源访问本地开发服务
func CORSHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", AllowOrigin)
		c.Header("Access-Control-Allow-Methods", AllowMethods)
		c.Header("Access-Control-Allow-Headers", AllowHeaders)
		c.Next()
	}
}

// RequestID 请求ID中间件
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(logger.RequestIDKey, requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// Logger 访问日志中间件
func Logger(log logger.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		fields := map[string]interface{}{
			"timestamp":   param.TimeStamp.Format(time.RFC3339),
			"status_code": param.StatusCode,
			"latency":     param.Latency.String(),
			"client_ip":   param.ClientIP,
			"method":      param.Method,
			"path":        param.Path,
			"body_size":   param.BodySize,
			"user_agent":  param.Request.UserAgent(),
		}

		if param.ErrorMessage != "" {
			fields["error_message"] = param.ErrorMessage
		}
		if requestID := param.Keys[logger.RequestIDKey]; requestID != nil {
			fields[logger.RequestIDKey] = requestID
		}

		// 根据状态码选择日志级别
		switch {
		case param.StatusCode >= 500:
			log.WithFields(fields).Error("HTTP请求")
		case param.StatusCode >= 400:
			log.WithFields(fields).Warn("HTTP请求")
		default:
			log.WithFields(fields).Info("HTTP请求")
		}

		return ""
	})
}

// Recovery 恢复中间件
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.WithContext(c).WithFields(map[string]interface{}{
			"panic":  recovered,
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		}).Error("服务器内部错误")

		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
