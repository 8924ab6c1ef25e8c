// Package service 家庭范围内的业务操作
// 每个变更操作：先校验，再在一个事务内写库，提交后推送事件
package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"familyfinance/apperr"
	"familyfinance/database"
	"familyfinance/models"
	"familyfinance/realtime"

	"gorm.io/gorm"
)

// RoomEvictor 把被移除的成员踢出家庭房间
type RoomEvictor interface {
	EvictUser(familyID, userID uint) int
}

// InviteMailer 发送邀请邮件
type InviteMailer interface {
	Enabled() bool
	SendInviteEmail(toEmail, inviter, familyName, code, joinURL string) error
}

// Deps 业务层依赖
type Deps struct {
	Store   *database.Store
	Emitter *realtime.Emitter
	Rooms   RoomEvictor  // 可选
	Mailer  InviteMailer // 可选
	BaseURL string
}

// Service 业务操作入口
type Service struct {
	store   *database.Store
	emit    *realtime.Emitter
	rooms   RoomEvictor
	mailer  InviteMailer
	baseURL string
}

// New 创建业务层
func New(d Deps) *Service {
	return &Service{
		store:   d.Store,
		emit:    d.Emitter,
		rooms:   d.Rooms,
		mailer:  d.Mailer,
		baseURL: strings.TrimRight(d.BaseURL, "/"),
	}
}

// loadUser 读取当前用户，不存在视为会话失效
func (s *Service) loadUser(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	err := s.store.Read(ctx, func(db *gorm.DB) error {
		return db.First(&u, userID).Error
	})
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Auth("Not authenticated")
		}
		return nil, err
	}
	return &u, nil
}

// loadMember 读取当前用户并要求已加入家庭
func (s *Service) loadMember(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.Affiliated() {
		return nil, apperr.NotFound("No family found")
	}
	return u, nil
}

// FamilyOf 用户当前所属家庭，未加入返回 0
func (s *Service) FamilyOf(ctx context.Context, userID uint) (uint, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return u.FamilyIDValue(), nil
}

// findInFamily 按 id 读取家庭内的记录，不存在或不属于该家庭时返回 NotFound
func findInFamily(tx *gorm.DB, dest any, id, familyID uint, notFound string) error {
	err := tx.Where("id = ? AND family_id = ?", id, familyID).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(notFound)
	}
	return err
}

// textLen 去除首尾空白后的字符数
func textLen(s string) (string, int) {
	s = strings.TrimSpace(s)
	return s, utf8.RuneCountInString(s)
}

func validAmount(v float64) bool {
	return v > 0 && v <= models.MaxAmount
}
