package service

import (
	"context"
	"fmt"
	"strings"

	"familyfinance/apperr"
	"familyfinance/journal"
	"familyfinance/models"
	"familyfinance/realtime"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput 注册
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ProfileInput 修改资料
type ProfileInput struct {
	FirstName string
	LastName  string
	Email     string
}

// Profile 当前用户及所属家庭
type Profile struct {
	ID          uint        `json:"id"`
	FirstName   string      `json:"first_name"`
	LastName    string      `json:"last_name"`
	Email       string      `json:"email"`
	Role        models.Role `json:"role"`
	FamilyID    *uint       `json:"family_id"`
	FamilyName  *string     `json:"family_name"`
	FamilyColor *string     `json:"family_color"`
	InviteCode  *string     `json:"invite_code"`
}

func validNames(first, last string) (string, string, error) {
	first, n := textLen(first)
	if n == 0 || n > 100 {
		return "", "", apperr.Validation("First name must be 1-100 characters")
	}
	last, n = textLen(last)
	if n == 0 || n > 100 {
		return "", "", apperr.Validation("Last name must be 1-100 characters")
	}
	return first, last, nil
}

// emailRule 与请求体上的 binding 标签一致
var emailRule = validator.New()

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := emailRule.Var(email, "required,email,max=255"); err != nil {
		return "", apperr.Validation("Invalid email format")
	}
	return email, nil
}

func validPassword(password string) error {
	if len(password) < 6 || len(password) > 128 {
		return apperr.Validation("Password must be 6-128 characters")
	}
	return nil
}

// Register 注册新用户，初始未加入家庭
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	first, last, err := validNames(in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := validPassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Store("hash password", err)
	}

	u := models.User{
		FirstName: first,
		LastName:  last,
		Email:     email,
		Password:  string(hash),
		Role:      models.RoleParent,
	}
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&u).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		return nil, apperr.Conflict("Email already exists", err)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Authenticate 邮箱密码登录
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password required")
	}
	if len(email) > 255 {
		return nil, apperr.Auth("Invalid credentials")
	}

	var users []models.User
	err := s.store.Read(ctx, func(db *gorm.DB) error {
		return db.Where("email = ?", email).Limit(1).Find(&users).Error
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperr.Auth("Invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte(password)) != nil {
		return nil, apperr.Auth("Invalid credentials")
	}
	return &users[0], nil
}

// Profile 当前用户资料
func (s *Service) Profile(ctx context.Context, userID uint) (*Profile, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p := &Profile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
		FamilyID:  u.FamilyID,
	}
	if !u.Affiliated() {
		return p, nil
	}

	var fams []models.Family
	err = s.store.Read(ctx, func(db *gorm.DB) error {
		return db.Where("id = ?", u.FamilyIDValue()).Limit(1).Find(&fams).Error
	})
	if err != nil {
		return nil, err
	}
	if len(fams) == 1 {
		p.FamilyName = &fams[0].Name
		p.FamilyColor = &fams[0].Color
		p.InviteCode = &fams[0].InviteCode
	}
	return p, nil
}

// UpdateProfile 修改姓名和邮箱
func (s *Service) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	first, last, err := validNames(in.FirstName, in.LastName)
	if err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return apperr.Conflict("Email already in use", nil)
		}
		return tx.Model(u).Updates(map[string]any{
			"first_name": first,
			"last_name":  last,
			"email":      email,
		}).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		return nil, apperr.Conflict("Email already in use", err)
	}
	if err != nil {
		return nil, err
	}
	u.FirstName, u.LastName, u.Email = first, last, email

	if familyID := u.FamilyIDValue(); familyID != 0 {
		s.emit.Family(familyID, realtime.EventUpdateMembers)
		s.emit.Activity(familyID, journal.Event{
			Title:    "Profile updated",
			Detail:   fmt.Sprintf("%s refreshed their profile", email),
			Category: "members",
			UserName: u.DisplayName(),
			UserRole: string(u.Role),
		})
	}
	return u, nil
}

// ChangePassword 修改密码
func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	if current == "" || next == "" {
		return apperr.Validation("Missing fields")
	}
	if err := validPassword(next); err != nil {
		return err
	}
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(current)) != nil {
		return apperr.Validation("Current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return apperr.Store("hash password", err)
	}
	return s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Model(u).Update("password", string(hash)).Error
	})
}
