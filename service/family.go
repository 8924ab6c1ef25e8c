package service

import (
	"context"
	"errors"
	"fmt"

	"familyfinance/apperr"
	"familyfinance/journal"
	"familyfinance/models"
	"familyfinance/realtime"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const inviteCodeAttempts = 5

// FamilyInput 更新家庭
type FamilyInput struct {
	Name  string
	Color *string
}

// Member 家庭成员
type Member struct {
	ID        uint        `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
}

// MembersView 成员列表及家庭信息
type MembersView struct {
	FamilyID    uint     `json:"family_id"`
	FamilyName  string   `json:"family_name"`
	InviteCode  string   `json:"invite_code"`
	FamilyColor string   `json:"family_color"`
	Members     []Member `json:"members"`
}

func validFamilyName(name string) (string, error) {
	name, n := textLen(name)
	if n == 0 || n > 200 {
		return "", apperr.Validation("Family name must be 1-200 characters")
	}
	return name, nil
}

// CreateFamily 创建家庭，创建者成为管理员，并写入默认类别
// 邀请码冲突时换一个重试
func (s *Service) CreateFamily(ctx context.Context, userID uint, name string) (*models.Family, error) {
	name, err := validFamilyName(name)
	if err != nil {
		return nil, err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := u.FamilyIDValue()

	var fam models.Family
	for attempt := 1; ; attempt++ {
		code, err := models.GenerateInviteCode()
		if err != nil {
			return nil, apperr.Store("generate invite code", err)
		}
		fam = models.Family{Name: name, CreatedBy: userID, InviteCode: code}

		err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
			if err := guardLeave(tx, u); err != nil {
				return err
			}
			if err := tx.Create(&fam).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).Where("id = ?", userID).
				Updates(map[string]any{"family_id": fam.ID, "role": models.RoleAdmin}).Error; err != nil {
				return err
			}
			return seedCategories(tx, fam.ID)
		})
		if err == nil {
			break
		}
		if apperr.Is(err, apperr.KindConflict) && attempt < inviteCodeAttempts {
			continue
		}
		return nil, err
	}

	if previous != 0 && previous != fam.ID {
		s.emit.Family(previous, realtime.EventUpdateMembers)
	}
	s.emit.Activity(fam.ID, journal.Event{
		Title:    "Family created",
		Detail:   fmt.Sprintf("%s created", fam.Name),
		Category: "family",
		UserName: u.DisplayName(),
		UserRole: string(models.RoleAdmin),
	})
	return &fam, nil
}

// ListFamilies 当前用户创建的家庭
func (s *Service) ListFamilies(ctx context.Context, userID uint) ([]models.Family, error) {
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}
	out := []models.Family{}
	err := s.store.Read(ctx, func(db *gorm.DB) error {
		return db.Where("created_by = ?", userID).Order("id").Find(&out).Error
	})
	return out, err
}

// UpdateFamily 修改家庭名称和颜色，仅管理员
func (s *Service) UpdateFamily(ctx context.Context, userID uint, in FamilyInput) (*models.Family, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(u, ActionUpdateFamily, "Unauthorized"); err != nil {
		return nil, err
	}
	name, err := validFamilyName(in.Name)
	if err != nil {
		return nil, err
	}
	updates := map[string]any{"name": name}
	if in.Color != nil {
		color, n := textLen(*in.Color)
		if n == 0 || n > 20 {
			return nil, apperr.Validation("Color must be 1-20 characters")
		}
		updates["color"] = color
	}

	familyID := u.FamilyIDValue()
	var fam models.Family
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.First(&fam, familyID).Error; err != nil {
			return err
		}
		return tx.Model(&fam).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	s.emit.Family(familyID, realtime.EventUpdateFamily)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Family updated",
		Detail:   fmt.Sprintf("Family name changed to %s", name),
		Category: "family",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return &fam, nil
}

// JoinFamily 通过邀请码加入家庭
// 原来是管理员的降为家长，原家庭的唯一管理员在还有其他成员时不能离开
func (s *Service) JoinFamily(ctx context.Context, userID uint, code string) (*models.Family, error) {
	code = models.NormalizeInviteCode(code)
	if code == "" {
		return nil, apperr.Validation("Missing invite code")
	}
	if !models.ValidInviteCode(code) {
		return nil, apperr.Validation("Invalid invite code format")
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	previous := u.FamilyIDValue()

	var fam models.Family
	role := u.Role
	if role == models.RoleAdmin {
		role = models.RoleParent
	}
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("invite_code = ?", code).First(&fam).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("Invalid invite code")
			}
			return err
		}
		if fam.ID == previous {
			role = u.Role
			return nil
		}
		if err := guardLeave(tx, u); err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", userID).
			Updates(map[string]any{"family_id": fam.ID, "role": role}).Error
	})
	if err != nil {
		return nil, err
	}
	if fam.ID == previous {
		return &fam, nil
	}

	if previous != 0 {
		s.emit.Family(previous, realtime.EventUpdateMembers)
		if s.rooms != nil {
			s.rooms.EvictUser(previous, userID)
		}
	}
	s.emit.Family(fam.ID, realtime.EventUpdateMembers)
	s.emit.Activity(fam.ID, journal.Event{
		Title:    "Member joined",
		Detail:   fmt.Sprintf("%s joined", u.DisplayName()),
		Category: "members",
		UserName: u.DisplayName(),
		UserRole: string(role),
	})
	return &fam, nil
}

// Members 成员列表
func (s *Service) Members(ctx context.Context, userID uint) (*MembersView, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	familyID := u.FamilyIDValue()
	view := &MembersView{FamilyID: familyID, Members: []Member{}}
	err = s.store.Read(ctx, func(db *gorm.DB) error {
		var fam models.Family
		if err := db.First(&fam, familyID).Error; err != nil {
			return err
		}
		view.FamilyName = fam.Name
		view.InviteCode = fam.InviteCode
		view.FamilyColor = fam.Color
		return db.Model(&models.User{}).
			Select("id", "first_name", "last_name", "email", "role").
			Where("family_id = ?", familyID).
			Order("id").
			Scan(&view.Members).Error
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Activity 当前家庭的活动回放
func (s *Service) Activity(ctx context.Context, userID uint) (uint, []journal.Event, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return 0, nil, err
	}
	familyID := u.FamilyIDValue()
	return familyID, s.emit.History(familyID), nil
}

// RemoveMember 移出成员，被移出者恢复为未加入家庭的孩子角色
func (s *Service) RemoveMember(ctx context.Context, userID, memberID uint) error {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return err
	}
	if err := authorize(u, ActionRemoveMember, "Unauthorized"); err != nil {
		return err
	}
	familyID := u.FamilyIDValue()

	var target models.User
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := findInFamily(tx, &target, memberID, familyID, "Member not found in family"); err != nil {
			return err
		}
		if target.Role == models.RoleAdmin {
			return apperr.Forbidden("Cannot remove an admin")
		}
		return tx.Model(&models.User{}).Where("id = ?", memberID).
			Updates(map[string]any{"family_id": nil, "role": models.RoleChild}).Error
	})
	if err != nil {
		return err
	}

	if s.rooms != nil {
		s.rooms.EvictUser(familyID, memberID)
	}
	s.emit.Family(familyID, realtime.EventUpdateMembers)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Member removed",
		Detail:   fmt.Sprintf("%s removed", target.DisplayName()),
		Category: "members",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return nil
}

// AssignRole 修改成员角色，不能撤销自己的管理员身份，家庭至少保留一名管理员
func (s *Service) AssignRole(ctx context.Context, userID, targetID uint, role models.Role) error {
	if !role.Valid() {
		return apperr.Validation("Invalid role")
	}
	if targetID == userID && role != models.RoleAdmin {
		return apperr.Validation("Cannot remove your own admin role")
	}
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return err
	}
	if err := authorize(u, ActionAssignRole, "Unauthorized - Admin only"); err != nil {
		return err
	}
	familyID := u.FamilyIDValue()

	var target models.User
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := findInFamily(tx, &target, targetID, familyID, "User not in family"); err != nil {
			return err
		}
		if target.Role == models.RoleAdmin && role != models.RoleAdmin {
			admins, err := countAdmins(tx, familyID)
			if err != nil {
				return err
			}
			if admins <= 1 {
				return apperr.Validation("A family must keep at least one admin")
			}
		}
		return tx.Model(&models.User{}).Where("id = ?", targetID).Update("role", role).Error
	})
	if err != nil {
		return err
	}

	s.emit.Family(familyID, realtime.EventUpdateRoles, realtime.EventUpdateMembers)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Role updated",
		Detail:   fmt.Sprintf("%s is now %s", target.DisplayName(), role),
		Category: "roles",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return nil
}

// DeleteFamily 删除家庭及其全部数据，需要管理员重新输入密码
func (s *Service) DeleteFamily(ctx context.Context, userID uint, password string) error {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return err
	}
	if err := authorize(u, ActionDeleteFamily, "Unauthorized"); err != nil {
		return err
	}
	if password == "" {
		return apperr.Validation("Password required")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) != nil {
		return apperr.Forbidden("Invalid password")
	}
	familyID := u.FamilyIDValue()

	var memberIDs []uint
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("family_id = ?", familyID).Pluck("id", &memberIDs).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("family_id = ?", familyID).
			Updates(map[string]any{"family_id": nil, "role": models.RoleChild}).Error; err != nil {
			return err
		}
		for _, m := range []any{&models.Transaction{}, &models.Budget{}, &models.Goal{}, &models.Category{}} {
			if err := tx.Where("family_id = ?", familyID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Family{}, familyID).Error
	})
	if err != nil {
		return err
	}

	s.emit.Family(familyID, realtime.EventUpdateFamily)
	s.emit.Forget(familyID)
	if s.rooms != nil {
		for _, id := range memberIDs {
			s.rooms.EvictUser(familyID, id)
		}
	}
	return nil
}

func countAdmins(tx *gorm.DB, familyID uint) (int64, error) {
	var n int64
	err := tx.Model(&models.User{}).
		Where("family_id = ? AND role = ?", familyID, models.RoleAdmin).
		Count(&n).Error
	return n, err
}

// guardLeave 离开当前家庭前检查：唯一管理员且还有其他成员时不能离开
func guardLeave(tx *gorm.DB, u *models.User) error {
	if !u.Affiliated() || u.Role != models.RoleAdmin {
		return nil
	}
	familyID := u.FamilyIDValue()
	admins, err := countAdmins(tx, familyID)
	if err != nil {
		return err
	}
	if admins > 1 {
		return nil
	}
	var others int64
	if err := tx.Model(&models.User{}).
		Where("family_id = ? AND id <> ?", familyID, u.ID).
		Count(&others).Error; err != nil {
		return err
	}
	if others > 0 {
		return apperr.Validation("Assign another admin before leaving your family")
	}
	return nil
}
