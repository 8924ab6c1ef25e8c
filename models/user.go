package models

import (
	"strings"
	"time"
)

// User 用户模型
// FamilyID 为 nil 表示尚未加入任何家庭
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FirstName string    `json:"first_name" gorm:"size:100"`
	LastName  string    `json:"last_name" gorm:"size:100"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Password  string    `json:"-" gorm:"size:255;not null"`
	FamilyID  *uint     `json:"family_id" gorm:"index"`
	Role      Role      `json:"role" gorm:"size:20;not null;default:parent"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// DisplayName 活动流中展示的名字，优先姓名，其次邮箱
func (u *User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Email
}

// Affiliated 是否已加入家庭
func (u *User) Affiliated() bool {
	return u.FamilyID != nil && *u.FamilyID != 0
}

// FamilyIDValue 未加入家庭时返回 0
func (u *User) FamilyIDValue() uint {
	if u.FamilyID == nil {
		return 0
	}
	return *u.FamilyID
}
