package models

import (
	cryptoRand "crypto/rand"
	"strings"
	"time"
)

// InviteCodeLength 邀请码长度
const InviteCodeLength = 6

const inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Family 家庭，所有财务数据都归属于某个家庭
type Family struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Name       string    `json:"name" gorm:"size:200;not null"`
	Color      string    `json:"color" gorm:"size:20;default:blue"`
	CreatedBy  uint      `json:"created_by" gorm:"index;not null"`
	InviteCode string    `json:"invite_code" gorm:"size:6;not null;uniqueIndex"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 设置表名
func (Family) TableName() string {
	return "families"
}

// GenerateInviteCode 生成6位大写字母数字邀请码
func GenerateInviteCode() (string, error) {
	b := make([]byte, InviteCodeLength)
	if _, err := randRead(b); err != nil {
		return "", err
	}
	for i := range b {
		b[i] = inviteAlphabet[int(b[i])%len(inviteAlphabet)]
	}
	return string(b), nil
}

// NormalizeInviteCode 去空格并转大写
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidInviteCode 6 位字母数字
func ValidInviteCode(code string) bool {
	if len(code) != InviteCodeLength {
		return false
	}
	for _, c := range code {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// 测试中可替换
var randRead = func(b []byte) (int, error) {
	return cryptoRand.Read(b)
}
