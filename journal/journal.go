// Package journal 保存每个家庭最近的活动记录，仅在进程内存中，重启即丢失
package journal

import (
	"sync"
	"time"
)

// DefaultSize 每个家庭保留的活动条数
const DefaultSize = 50

// Event 活动记录
type Event struct {
	FamilyID uint   `json:"family_id"`
	Title    string `json:"title"`
	Detail   string `json:"detail"`
	Category string `json:"category"`
	UserName string `json:"user_name"`
	UserRole string `json:"user_role"`
	TS       int64  `json:"ts"` // 毫秒时间戳
}

// Journal 按家庭划分的定长环形缓冲
// 只保留最新 size 条，按写入顺序排列，满了丢弃最旧的
type Journal struct {
	mu       sync.RWMutex
	size     int
	families map[uint]*ring
}

type ring struct {
	buf   []Event
	start int
	n     int
}

// New 创建活动日志，size <= 0 时使用 DefaultSize
func New(size int) *Journal {
	if size <= 0 {
		size = DefaultSize
	}
	return &Journal{
		size:     size,
		families: make(map[uint]*ring),
	}
}

// Size 每个家庭的容量
func (j *Journal) Size() int {
	return j.size
}

// Append 追加一条活动，返回实际写入的记录（补齐 FamilyID 与时间戳）
func (j *Journal) Append(familyID uint, ev Event) Event {
	ev.FamilyID = familyID
	if ev.TS == 0 {
		ev.TS = time.Now().UnixMilli()
	}
	if ev.Category == "" {
		ev.Category = "info"
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	r, ok := j.families[familyID]
	if !ok {
		r = &ring{buf: make([]Event, j.size)}
		j.families[familyID] = r
	}
	if r.n < j.size {
		r.buf[(r.start+r.n)%j.size] = ev
		r.n++
	} else {
		r.buf[r.start] = ev
		r.start = (r.start + 1) % j.size
	}
	return ev
}

// History 返回该家庭当前缓冲的副本，从旧到新；没有记录时返回空切片
func (j *Journal) History(familyID uint) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	r, ok := j.families[familyID]
	if !ok {
		return []Event{}
	}
	out := make([]Event, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%j.size]
	}
	return out
}

// Clear 删除家庭的全部活动
func (j *Journal) Clear(familyID uint) {
	j.mu.Lock()
	delete(j.families, familyID)
	j.mu.Unlock()
}
