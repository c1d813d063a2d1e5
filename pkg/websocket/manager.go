package websocket

import (
	"encoding/json"
	"sync"

	"imin-server/internal/model"
	"imin-server/pkg/logger"
	"imin-server/pkg/response"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventMessageCreated 新消息事件类型
const EventMessageCreated = "message.created"

// Client 代表一个WebSocket连接
// 同一用户可以有多个连接（多设备），每个连接独立的发送队列
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// Event 推送给客户端的事件
type Event struct {
	Type     string                `json:"type"`
	ThreadID string                `json:"thread_id,omitempty"`
	Message  *response.MessageInfo `json:"message,omitempty"`
}

// Manager 管理所有在线用户的WebSocket连接，并发安全
// 只推送在线连接，离线用户下次打开会话时从存储读取历史
type Manager struct {
	clients map[string]map[*Client]struct{}
	lock    sync.RWMutex
}

// NewManager 创建连接管理器
func NewManager() *Manager {
	return &Manager{clients: make(map[string]map[*Client]struct{})}
}

// AddClient 添加新连接
func (m *Manager) AddClient(client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()
	set, ok := m.clients[client.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		m.clients[client.UserID] = set
	}
	set[client] = struct{}{}
}

// RemoveClient 移除连接并关闭其发送队列
func (m *Manager) RemoveClient(client *Client) {
	m.lock.Lock()
	defer m.lock.Unlock()
	set, ok := m.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; ok {
		close(client.Send)
		delete(set, client)
	}
	if len(set) == 0 {
		delete(m.clients, client.UserID)
	}
}

// SendToUser 推送给用户的所有连接，发送队列已满的连接跳过
func (m *Manager) SendToUser(userID string, msg []byte) int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	delivered := 0
	for client := range m.clients[userID] {
		select {
		case client.Send <- msg:
			delivered++
		default:
			logger.Warn("websocket send queue full, dropping event", zap.String("user_id", userID))
		}
	}
	return delivered
}

// IsOnline 判断用户是否有活跃连接
func (m *Manager) IsOnline(userID string) bool {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.clients[userID]) > 0
}

// OnlineCount 在线用户数
func (m *Manager) OnlineCount() int {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return len(m.clients)
}

// NotifyMessage 推送新消息事件给指定参与者
func (m *Manager) NotifyMessage(recipientIDs []string, thread *model.Thread, msg *model.Message) {
	payload, err := json.Marshal(Event{
		Type:     EventMessageCreated,
		ThreadID: thread.ID,
		Message:  response.FilterMessageInfo(msg),
	})
	if err != nil {
		logger.Error("marshal websocket event failed", zap.Error(err))
		return
	}
	for _, id := range recipientIDs {
		m.SendToUser(id, payload)
	}
}
