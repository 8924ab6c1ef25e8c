package service

import (
	"context"
	"fmt"
	"net/url"

	"familyfinance/apperr"
	"familyfinance/journal"
	"familyfinance/models"

	"gorm.io/gorm"
)

// InviteMember 把家庭邀请码发到对方邮箱
func (s *Service) InviteMember(ctx context.Context, userID uint, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	if s.mailer == nil || !s.mailer.Enabled() {
		return apperr.Validation("Email invitations are not enabled")
	}
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return err
	}
	if err := authorize(u, ActionInviteMember, "Children cannot invite members"); err != nil {
		return err
	}
	familyID := u.FamilyIDValue()

	var fam models.Family
	err = s.store.Read(ctx, func(db *gorm.DB) error {
		return db.First(&fam, familyID).Error
	})
	if err != nil {
		return err
	}

	joinURL := s.baseURL + "/?invite=" + url.QueryEscape(fam.InviteCode)
	if err := s.mailer.SendInviteEmail(email, u.DisplayName(), fam.Name, fam.InviteCode, joinURL); err != nil {
		return apperr.Store("send invite email", err)
	}

	s.emit.Activity(familyID, journal.Event{
		Title:    "Invite sent",
		Detail:   fmt.Sprintf("%s invited %s", u.DisplayName(), email),
		Category: "members",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return nil
}
