package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"imin-server/config"
	"imin-server/pkg/jwt"
	"imin-server/pkg/logger"
	"imin-server/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许跨域
	},
}

// Handler WebSocket 连接入口，需挂在认证中间件之后
type Handler struct {
	manager *Manager
	cfg     config.WebSocketConfig
}

// NewHandler 创建Handler实例
func NewHandler(manager *Manager, cfg config.WebSocketConfig) *Handler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 3 * cfg.PingInterval
	}
	return &Handler{manager: manager, cfg: cfg}
}

// Serve Gin路由处理函数
func (h *Handler) Serve(c *gin.Context) {
	userID := jwt.GetUserID(c)
	if userID == "" {
		response.Unauthorized(c, "unauthenticated")
		return
	}

	// 回显子协议，避免客户端提示 "Server sent no subprotocol"
	respHeader := http.Header{}
	if protocol := c.GetHeader("Sec-WebSocket-Protocol"); protocol != "" {
		respHeader.Set("Sec-WebSocket-Protocol", protocol)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, respHeader)
	if err != nil {
		logger.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}
	h.manager.AddClient(client)
	logger.Debug("websocket connected", zap.String("user_id", userID))

	done := make(chan struct{})
	go h.writeLoop(client, done)

	h.readLoop(client)

	h.manager.RemoveClient(client)
	<-done
	_ = conn.Close()
	logger.Debug("websocket disconnected", zap.String("user_id", userID))
}

// writeLoop 写协程：发送队列中的事件 + 定时ping心跳
func (h *Handler) writeLoop(client *Client, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.Send:
			if !ok {
				_ = client.Conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(time.Second))
				return
			}
			_ = client.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := client.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				_ = client.Conn.Close()
				return
			}
		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				_ = client.Conn.Close()
				return
			}
		}
	}
}

// readLoop 读循环（心跳/客户端消息），超时未收到任何读事件则断开
func (h *Handler) readLoop(client *Client) {
	conn := client.Conn
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			pong, _ := json.Marshal(Event{Type: "pong"})
			select {
			case client.Send <- pong:
			default:
			}
		}
	}
}
