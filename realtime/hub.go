// Package realtime 按家庭房间推送变更事件
package realtime

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultSendBuffer 每个连接的发送队列长度
const DefaultSendBuffer = 64

const familyTopicPrefix = "family:"

// Frame 下行消息 {"event": "...", "data": {...}}
type Frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Broadcaster 基于主题的发布订阅
type Broadcaster interface {
	Subscribe(connID, topic string)
	Unsubscribe(connID, topic string)
	Publish(topic, event string, payload any)
}

// Mirror 接收每一条发布的事件副本，不能阻塞
type Mirror interface {
	Mirror(topic, event string, payload any)
}

// FamilyTopic 家庭房间名
func FamilyTopic(familyID uint) string {
	return fmt.Sprintf("%s%d", familyTopicPrefix, familyID)
}

// Peer 一个连接
type Peer struct {
	id     string
	userID uint
	send   chan Frame
	topics map[string]struct{} // 由 Hub 加锁维护
}

// ID 连接 ID
func (p *Peer) ID() string {
	return p.id
}

// UserID 连接所属用户，0 表示未登录
func (p *Peer) UserID() uint {
	return p.userID
}

// Frames 待发送的消息，Hub 移除连接后关闭
func (p *Peer) Frames() <-chan Frame {
	return p.send
}

// Hub 维护连接与主题的对应关系
// 每个连接有独立的有界发送队列，队列满时丢弃消息，发布方从不阻塞
type Hub struct {
	mu     sync.RWMutex
	buffer int
	peers  map[string]*Peer
	topics map[string]map[string]*Peer
	mirror Mirror
}

// NewHub 创建 Hub，buffer <= 0 时使用 DefaultSendBuffer
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSendBuffer
	}
	return &Hub{
		buffer: buffer,
		peers:  make(map[string]*Peer),
		topics: make(map[string]map[string]*Peer),
	}
}

// SetMirror 设置事件镜像
func (h *Hub) SetMirror(m Mirror) {
	h.mu.Lock()
	h.mirror = m
	h.mu.Unlock()
}

// Register 注册新连接
func (h *Hub) Register(userID uint) *Peer {
	p := &Peer{
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan Frame, h.buffer),
		topics: make(map[string]struct{}),
	}
	h.mu.Lock()
	h.peers[p.id] = p
	h.mu.Unlock()
	return p
}

// Remove 断开连接：退出所有主题并关闭发送队列
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.peers[connID]
	if !ok {
		return
	}
	for topic := range p.topics {
		h.leaveLocked(p, topic)
	}
	delete(h.peers, connID)
	close(p.send)
}

// Subscribe 加入主题
func (h *Hub) Subscribe(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.peers[connID]; ok {
		h.joinLocked(p, topic)
	}
}

// Unsubscribe 退出主题
func (h *Hub) Unsubscribe(connID, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p, ok := h.peers[connID]; ok {
		h.leaveLocked(p, topic)
	}
}

// JoinFamily 退出之前的家庭房间并加入新的家庭房间，返回之前的房间
func (h *Hub) JoinFamily(connID string, familyID uint) (previous string) {
	topic := FamilyTopic(familyID)

	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.peers[connID]
	if !ok {
		return ""
	}
	for t := range p.topics {
		if t != topic && strings.HasPrefix(t, familyTopicPrefix) {
			previous = t
			h.leaveLocked(p, t)
		}
	}
	h.joinLocked(p, topic)
	return previous
}

// EvictUser 把某用户的所有连接移出家庭房间，返回移出的连接数
func (h *Hub) EvictUser(familyID, userID uint) int {
	topic := FamilyTopic(familyID)

	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, p := range h.topics[topic] {
		if p.userID == userID {
			h.leaveLocked(p, topic)
			n++
		}
	}
	return n
}

// Publish 向主题内所有连接投递，至多一次
func (h *Hub) Publish(topic, event string, payload any) {
	frame := Frame{Event: event, Data: payload}

	h.mu.RLock()
	dropped := 0
	for _, p := range h.topics[topic] {
		if !offer(p, frame) {
			dropped++
		}
	}
	mirror := h.mirror
	h.mu.RUnlock()

	if dropped > 0 {
		slog.Warn("realtime: send queue full, frames dropped", "topic", topic, "event", event, "dropped", dropped)
	}
	if mirror != nil {
		mirror.Mirror(topic, event, payload)
	}
}

// Send 直接发给单个连接，不镜像
func (h *Hub) Send(connID, event string, payload any) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p, ok := h.peers[connID]
	if !ok {
		return false
	}
	return offer(p, Frame{Event: event, Data: payload})
}

// Subscribers 主题当前的连接数
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Topics 连接当前加入的主题
func (h *Hub) Topics(connID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p, ok := h.peers[connID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(p.topics))
	for t := range p.topics {
		out = append(out, t)
	}
	return out
}

func (h *Hub) joinLocked(p *Peer, topic string) {
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[string]*Peer)
		h.topics[topic] = subs
	}
	subs[p.id] = p
	p.topics[topic] = struct{}{}
}

func (h *Hub) leaveLocked(p *Peer, topic string) {
	delete(p.topics, topic)
	if subs, ok := h.topics[topic]; ok {
		delete(subs, p.id)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}

// offer 非阻塞入队；调用方持有 Hub 读锁，连接尚未关闭
func offer(p *Peer, f Frame) bool {
	select {
	case p.send <- f:
		return true
	default:
		return false
	}
}
