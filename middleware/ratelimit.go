package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ipFactor 同一 IP 换邮箱重试时的总上限倍数
const ipFactor = 5

// attemptWindow 滑动窗口计数，key 为 IP 或 IP+邮箱
type attemptWindow struct {
	mu        sync.Mutex
	max       int
	window    time.Duration
	now       func() time.Time
	hits      map[string][]time.Time
	lastSweep time.Time
}

func newAttemptWindow(max int, window time.Duration, now func() time.Time) *attemptWindow {
	return &attemptWindow{
		max:       max,
		window:    window,
		now:       now,
		hits:      make(map[string][]time.Time),
		lastSweep: now(),
	}
}

// take 记录一次尝试；任一 key 超限则不记录，并返回最早可重试的等待时长
func (w *attemptWindow) take(keys map[string]int) (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	cutoff := now.Add(-w.window)
	if now.Sub(w.lastSweep) >= w.window {
		w.sweep(cutoff)
		w.lastSweep = now
	}

	var wait time.Duration
	for key, limit := range keys {
		ts := prune(w.hits[key], cutoff)
		w.hits[key] = ts
		if len(ts) >= limit {
			if d := ts[len(ts)-limit].Add(w.window).Sub(now); d > wait {
				wait = d
			}
		}
	}
	if wait > 0 {
		return wait, false
	}
	for key := range keys {
		w.hits[key] = append(w.hits[key], now)
	}
	return 0, true
}

func (w *attemptWindow) sweep(cutoff time.Time) {
	for key, ts := range w.hits {
		if ts = prune(ts, cutoff); len(ts) == 0 {
			delete(w.hits, key)
		} else {
			w.hits[key] = ts
		}
	}
}

func prune(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// attemptEmail 从请求体里取出邮箱，读取后把请求体放回去
func attemptEmail(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	raw, err := io.ReadAll(c.Request.Body)
	_ = c.Request.Body.Close()
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return ""
	}
	var body struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(raw, &body) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(body.Email))
}

// LoginRateLimit 登录、注册接口限流中间件
// 同一 IP 对同一邮箱每个窗口最多 maxAttempts 次，同一 IP 总计最多 maxAttempts*5 次
func LoginRateLimit(maxAttempts int, window time.Duration) gin.HandlerFunc {
	return newAttemptWindow(maxAttempts, window, time.Now).handler()
}

func (w *attemptWindow) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		keys := map[string]int{
			"ip:" + ip: w.max * ipFactor,
			"email:" + ip + "|" + attemptEmail(c): w.max,
		}
		wait, ok := w.take(keys)
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			abortWith(c, http.StatusTooManyRequests, "Too many attempts, please try again later")
			return
		}
		c.Next()
	}
}

// abortWith 以统一的 {code, message} 结构中止请求
func abortWith(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{
		"code":    code,
		"message": message,
	})
}
