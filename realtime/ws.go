package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"familyfinance/journal"

	"golang.org/x/net/websocket"
)

const maxDecodeErrorsPerConn = 3

// SessionFunc 从握手请求解析用户，失败视为未登录
type SessionFunc func(r *http.Request) (uint, error)

// Membership 查询用户当前所属家庭，未加入时返回 0
type Membership interface {
	FamilyOf(ctx context.Context, userID uint) (uint, error)
}

type inboundFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type joinPayload struct {
	FamilyID json.RawMessage `json:"family_id"`
}

type wsUserKey struct{}

// Server WebSocket 入口
type Server struct {
	hub      *Hub
	journal  *journal.Journal
	sessions SessionFunc
	members  Membership
	origins  []string
}

// NewServer 创建 WebSocket 服务
func NewServer(hub *Hub, j *journal.Journal, sessions SessionFunc, members Membership) *Server {
	return &Server{hub: hub, journal: j, sessions: sessions, members: members}
}

// AllowOrigins 设置浏览器握手允许的 Origin，"*" 表示不限制
// 未设置时只接受与请求 Host 相同的 Origin
func (s *Server) AllowOrigins(origins ...string) *Server {
	s.origins = origins
	return s
}

// handshake 校验 Origin；不带 Origin 的非浏览器客户端直接放行，身份仍以令牌为准
func (s *Server) handshake(cfg *websocket.Config, r *http.Request) error {
	origin, err := websocket.Origin(cfg, r)
	if err != nil {
		return err
	}
	cfg.Origin = origin
	if origin == nil || s.originAllowed(origin, r.Host) {
		return nil
	}
	return fmt.Errorf("origin %s not allowed", origin)
}

func (s *Server) originAllowed(origin *url.URL, host string) bool {
	if len(s.origins) == 0 {
		return strings.EqualFold(origin.Host, host)
	}
	want := origin.Scheme + "://" + origin.Host
	for _, o := range s.origins {
		if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), want) {
			return true
		}
	}
	return false
}

// ServeHTTP 完成握手；未登录的连接可以建立，但不会加入任何房间
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.sessions != nil {
		if userID, err := s.sessions(r); err == nil && userID != 0 {
			r = r.WithContext(context.WithValue(r.Context(), wsUserKey{}, userID))
		}
	}
	websocket.Server{Handler: s.handleConn, Handshake: s.handshake}.ServeHTTP(w, r)
}

func (s *Server) handleConn(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	ctx := conn.Request().Context()
	userID, _ := ctx.Value(wsUserKey{}).(uint)

	peer := s.hub.Register(userID)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(conn, peer)
	}()
	defer func() {
		s.hub.Remove(peer.ID())
		<-writerDone
	}()

	if userID != 0 {
		familyID, err := s.members.FamilyOf(ctx, userID)
		if err != nil {
			slog.Warn("realtime: membership lookup failed", "user_id", userID, "error", err)
		} else if familyID != 0 {
			s.joinFamily(peer, familyID)
		}
	}

	decodeErrors := 0
	for {
		var frame inboundFrame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			if !isDecodeError(err) {
				if !errors.Is(err, io.EOF) {
					slog.Debug("realtime: connection closed", "conn_id", peer.ID(), "error", err)
				}
				return
			}
			decodeErrors++
			s.sendError(peer, "invalid frame payload")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		switch frame.Event {
		case EventJoinFamilyRoom:
			s.handleJoin(ctx, peer, frame.Data)
		default:
			s.sendError(peer, "unsupported event")
		}
	}
}

func (s *Server) handleJoin(ctx context.Context, peer *Peer, data json.RawMessage) {
	if peer.UserID() == 0 {
		s.sendError(peer, "authentication required")
		return
	}
	var payload joinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError(peer, "invalid join payload")
		return
	}
	requested, ok := parseFamilyID(payload.FamilyID)
	if !ok {
		s.sendError(peer, "family_id is required")
		return
	}

	// 每次加入都重新校验成员关系，会话中的家庭可能已变更
	current, err := s.members.FamilyOf(ctx, peer.UserID())
	if err != nil {
		slog.Warn("realtime: membership lookup failed", "user_id", peer.UserID(), "error", err)
		s.sendError(peer, "membership verification unavailable")
		return
	}
	if current != requested {
		s.sendError(peer, "not a member of this family")
		return
	}
	s.joinFamily(peer, requested)
}

// joinFamily 先入房间再取回放，两者之间产生的活动可能重复但不会遗漏
func (s *Server) joinFamily(peer *Peer, familyID uint) {
	s.hub.JoinFamily(peer.ID(), familyID)
	s.hub.Send(peer.ID(), EventActivitySync, SyncPayload{
		FamilyID: familyID,
		Events:   s.journal.History(familyID),
	})
}

func (s *Server) sendError(peer *Peer, message string) {
	s.hub.Send(peer.ID(), EventError, ErrorPayload{Message: message})
}

// writeLoop 每个连接一个写协程，发送队列关闭后退出
func writeLoop(conn *websocket.Conn, peer *Peer) {
	broken := false
	for frame := range peer.Frames() {
		if broken {
			continue
		}
		if err := websocket.JSON.Send(conn, frame); err != nil {
			broken = true
			_ = conn.Close()
		}
	}
}

func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// parseFamilyID 接受数字或数字字符串
func parseFamilyID(raw json.RawMessage) (uint, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	id, err := strconv.ParseUint(text, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
