package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gmpstack/docflow/internal/auth"
	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"
)

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 在生产环境中应该检查 Origin
		return true
	},
}

// ApprovalStreamHandler 审批事件订阅处理器
// token 走 query 参数认证,连接按用户关联以支持定向推送
func ApprovalStreamHandler(hub *Hub, validator *auth.KeycloakTokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. 从 query 参数获取 token
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		// 2. 验证 token
		claims, err := validator.ValidateToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// 3. 升级连接
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to upgrade connection"})
			return
		}

		// 4. 注册客户端并启动读写循环
		client := NewClient(
			uuid.New().String(),
			claims.Sub,
			hub,
			conn,
		)
		hub.Register <- client

		go client.ReadPump()
		go client.WritePump()
	}
}
