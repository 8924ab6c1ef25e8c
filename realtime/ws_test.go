package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"familyfinance/journal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

type wsTestFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type fakeMembership struct {
	mu       sync.Mutex
	families map[uint]uint
	err      error
}

func (f *fakeMembership) FamilyOf(_ context.Context, userID uint) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.families[userID], nil
}

func (f *fakeMembership) set(userID, familyID uint) {
	f.mu.Lock()
	f.families[userID] = familyID
	f.mu.Unlock()
}

// 测试用会话：?user=<id>
func querySession(r *http.Request) (uint, error) {
	raw := r.URL.Query().Get("user")
	if raw == "" {
		return 0, errors.New("no session")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	return uint(id), err
}

type wsFixture struct {
	hub     *Hub
	journal *journal.Journal
	members *fakeMembership
	emitter *Emitter
	srv     *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	f := &wsFixture{
		hub:     NewHub(16),
		journal: journal.New(journal.DefaultSize),
		members: &fakeMembership{families: map[uint]uint{}},
	}
	f.emitter = NewEmitter(f.hub, f.journal)
	f.srv = httptest.NewServer(NewServer(f.hub, f.journal, querySession, f.members))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *wsFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws" + query
	conn, err := websocket.Dial(wsURL, "", f.srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wsTestFrame {
	t.Helper()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	var got wsTestFrame
	require.NoError(t, websocket.JSON.Receive(conn, &got))
	return got
}

func writeFrame(t *testing.T, conn *websocket.Conn, frame map[string]any) {
	t.Helper()
	require.NoError(t, websocket.JSON.Send(conn, frame))
}

func decodeSync(t *testing.T, frame wsTestFrame) SyncPayload {
	t.Helper()
	require.Equal(t, EventActivitySync, frame.Event)
	var p SyncPayload
	require.NoError(t, json.Unmarshal(frame.Data, &p))
	return p
}

func waitSubscribers(t *testing.T, h *Hub, topic string, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.Subscribers(topic) == n }, 2*time.Second, 10*time.Millisecond)
}

func TestWS_ConnectReplaysOwnFamilyOnly(t *testing.T) {
	f := newWSFixture(t)
	f.members.set(10, 1)

	f.journal.Append(1, journal.Event{Title: "Family created", TS: 1})
	f.journal.Append(2, journal.Event{Title: "Other family", TS: 2})
	f.journal.Append(1, journal.Event{Title: "Member joined", TS: 3})

	conn := f.dial(t, "?user=10")
	replay := decodeSync(t, readFrame(t, conn))

	assert.Equal(t, uint(1), replay.FamilyID)
	assert.Equal(t, f.journal.History(1), replay.Events)
	for _, ev := range replay.Events {
		assert.Equal(t, uint(1), ev.FamilyID)
	}
}

func TestWS_EmptyJournalSyncsEmptyList(t *testing.T) {
	f := newWSFixture(t)
	f.members.set(10, 4)

	conn := f.dial(t, "?user=10")
	frame := readFrame(t, conn)
	assert.Contains(t, string(frame.Data), `"events":[]`)
}

func TestWS_LiveEventsAfterSync(t *testing.T) {
	f := newWSFixture(t)
	f.members.set(10, 1)

	conn := f.dial(t, "?user=10")
	decodeSync(t, readFrame(t, conn))
	waitSubscribers(t, f.hub, FamilyTopic(1), 1)

	f.emitter.Family(2, EventUpdateMembers)
	f.emitter.Family(1, EventUpdateMembers)
	f.emitter.Activity(1, journal.Event{Title: "Member joined", Category: "members"})

	frame := readFrame(t, conn)
	assert.Equal(t, EventUpdateMembers, frame.Event)
	assert.JSONEq(t, `{"family_id":1}`, string(frame.Data))

	frame = readFrame(t, conn)
	assert.Equal(t, EventActivity, frame.Event)
	var ev journal.Event
	require.NoError(t, json.Unmarshal(frame.Data, &ev))
	assert.Equal(t, "Member joined", ev.Title)
}

func TestWS_UnauthenticatedJoinGetsError(t *testing.T) {
	f := newWSFixture(t)

	conn := f.dial(t, "")
	writeFrame(t, conn, map[string]any{"event": EventJoinFamilyRoom, "data": map[string]any{"family_id": 1}})

	frame := readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)
	assert.Contains(t, string(frame.Data), "authentication required")
	assert.Equal(t, 0, f.hub.Subscribers(FamilyTopic(1)))
}

func TestWS_JoinRechecksMembership(t *testing.T) {
	f := newWSFixture(t)
	f.journal.Append(2, journal.Event{Title: "second family", TS: 1})

	// 连接时尚未加入家庭
	conn := f.dial(t, "?user=10")

	writeFrame(t, conn, map[string]any{"event": EventJoinFamilyRoom, "data": map[string]any{"family_id": 2}})
	frame := readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)
	assert.Contains(t, string(frame.Data), "not a member")

	// 通过邀请码加入后再次请求
	f.members.set(10, 2)
	writeFrame(t, conn, map[string]any{"event": EventJoinFamilyRoom, "data": map[string]any{"family_id": "2"}})
	replay := decodeSync(t, readFrame(t, conn))
	assert.Equal(t, uint(2), replay.FamilyID)
	assert.Equal(t, f.journal.History(2), replay.Events)
}

func TestWS_SwitchFamilyLeavesPreviousRoom(t *testing.T) {
	f := newWSFixture(t)
	f.members.set(10, 1)

	conn := f.dial(t, "?user=10")
	decodeSync(t, readFrame(t, conn))

	f.members.set(10, 2)
	writeFrame(t, conn, map[string]any{"event": EventJoinFamilyRoom, "data": map[string]any{"family_id": 2}})
	decodeSync(t, readFrame(t, conn))

	assert.Equal(t, 0, f.hub.Subscribers(FamilyTopic(1)))
	f.emitter.Family(1, EventUpdateGoals)
	f.emitter.Family(2, EventUpdateBudgets)

	frame := readFrame(t, conn)
	assert.Equal(t, EventUpdateBudgets, frame.Event)
}

func TestWS_MembershipFailure(t *testing.T) {
	f := newWSFixture(t)
	f.members.err = errors.New("db down")

	conn := f.dial(t, "?user=10")
	writeFrame(t, conn, map[string]any{"event": EventJoinFamilyRoom, "data": map[string]any{"family_id": 1}})
	frame := readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)
}

func TestWS_InvalidFrames(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, "")

	_, err := conn.Write([]byte("{not json"))
	require.NoError(t, err)
	frame := readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)
	assert.Contains(t, string(frame.Data), "invalid frame payload")

	writeFrame(t, conn, map[string]any{"event": "ping"})
	frame = readFrame(t, conn)
	assert.Equal(t, EventError, frame.Event)
	assert.Contains(t, string(frame.Data), "unsupported event")
}

func TestWS_DisconnectLeavesRooms(t *testing.T) {
	f := newWSFixture(t)
	f.members.set(10, 1)

	conn := f.dial(t, "?user=10")
	decodeSync(t, readFrame(t, conn))
	waitSubscribers(t, f.hub, FamilyTopic(1), 1)

	require.NoError(t, conn.Close())
	waitSubscribers(t, f.hub, FamilyTopic(1), 0)
}

func TestWS_RejectsNonGet(t *testing.T) {
	f := newWSFixture(t)
	resp, err := http.Post(f.srv.URL+"/ws", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWS_OriginPolicy(t *testing.T) {
	f := newWSFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"

	// 默认只接受同源
	_, err := websocket.Dial(wsURL, "", "http://evil.example.com")
	assert.Error(t, err)

	srv := NewServer(f.hub, f.journal, querySession, f.members).AllowOrigins("https://app.example.com/")
	cfg := &websocket.Config{Version: websocket.ProtocolVersionHybi13}
	handshake := func(origin string) error {
		r := httptest.NewRequest("GET", "http://api.example.com/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return srv.handshake(cfg, r)
	}

	// 非浏览器客户端不带 Origin
	require.NoError(t, handshake(""))
	assert.Nil(t, cfg.Origin)

	require.NoError(t, handshake("https://APP.example.com"))
	assert.Equal(t, "app.example.com", strings.ToLower(cfg.Origin.Host))
	assert.Error(t, handshake("https://api.example.com"))
	assert.Error(t, handshake("http://app.example.com"))

	srv.AllowOrigins("*")
	assert.NoError(t, handshake("http://anything.test"))
}
