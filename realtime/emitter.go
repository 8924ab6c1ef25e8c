package realtime

import "familyfinance/journal"

// 事件名
const (
	EventUpdateTransactions = "update_transactions"
	EventUpdateBudgets      = "update_budgets"
	EventUpdateGoals        = "update_goals"
	EventUpdateCategories   = "update_categories"
	EventUpdateMembers      = "update_members"
	EventUpdateRoles        = "update_roles"
	EventUpdateFamily       = "update_family"

	EventActivity       = "activity_event"
	EventActivitySync   = "activity_sync"
	EventJoinFamilyRoom = "join_family_room"
	EventError          = "error"
)

// FamilyPayload 家庭级变更事件的负载
type FamilyPayload struct {
	FamilyID uint `json:"family_id"`
}

// SyncPayload 连接加入房间后下发的活动回放
type SyncPayload struct {
	FamilyID uint            `json:"family_id"`
	Events   []journal.Event `json:"events"`
}

// ErrorPayload 错误帧
type ErrorPayload struct {
	Message string `json:"message"`
}

// Emitter 业务层的推送入口，须在事务提交之后调用
type Emitter struct {
	b Broadcaster
	j *journal.Journal
}

// NewEmitter 创建 Emitter
func NewEmitter(b Broadcaster, j *journal.Journal) *Emitter {
	return &Emitter{b: b, j: j}
}

// Family 向家庭房间发送若干变更事件
func (e *Emitter) Family(familyID uint, names ...string) {
	if e == nil || familyID == 0 {
		return
	}
	topic := FamilyTopic(familyID)
	for _, name := range names {
		e.b.Publish(topic, name, FamilyPayload{FamilyID: familyID})
	}
}

// Activity 写入活动日志并推送 activity_event
func (e *Emitter) Activity(familyID uint, ev journal.Event) {
	if e == nil || familyID == 0 {
		return
	}
	ev = e.j.Append(familyID, ev)
	e.b.Publish(FamilyTopic(familyID), EventActivity, ev)
}

// History 返回家庭的活动日志，未配置时为空
func (e *Emitter) History(familyID uint) []journal.Event {
	if e == nil || e.j == nil {
		return []journal.Event{}
	}
	return e.j.History(familyID)
}

// Forget 丢弃家庭的活动日志
func (e *Emitter) Forget(familyID uint) {
	if e == nil || e.j == nil {
		return
	}
	e.j.Clear(familyID)
}
