package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDMiddleware 请求 ID 中间件
// 透传调用方携带的 X-Request-ID,没有则生成一个
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()
	}
}

// requestContext 把 gin 上下文里的请求元信息搬进 context.Context
// 服务层(审计日志)只依赖标准 context,不感知 gin
func requestContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	ctx = context.WithValue(ctx, "request_id", c.GetString("request_id"))
	ctx = context.WithValue(ctx, "user_id", c.GetString("user_id"))
	ctx = context.WithValue(ctx, "ip", c.ClientIP())
	ctx = context.WithValue(ctx, "user_agent", c.Request.UserAgent())
	return ctx
}
