package service

import (
	"context"
	"fmt"
	"time"

	"familyfinance/apperr"
	"familyfinance/journal"
	"familyfinance/models"
	"familyfinance/realtime"

	"gorm.io/gorm"
)

// GoalInput 新建储蓄目标
type GoalInput struct {
	Name          string
	TargetAmount  float64
	CurrentAmount float64
	Deadline      *time.Time
}

// GoalAdjust 目标存取方向
type GoalAdjust string

const (
	GoalAdd      GoalAdjust = "add"
	GoalSubtract GoalAdjust = "subtract"
)

// CreateGoal 新建目标，初始金额截断到 [0, target]
func (s *Service) CreateGoal(ctx context.Context, userID uint, in GoalInput) (*models.Goal, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(u, ActionCreateGoal, "Children cannot create goals"); err != nil {
		return nil, err
	}
	name, n := textLen(in.Name)
	if n == 0 || n > 200 {
		return nil, apperr.Validation("Goal name must be 1-200 characters")
	}
	if !validAmount(in.TargetAmount) {
		return nil, apperr.Validation("Target amount must be between 0 and 999,999,999")
	}
	familyID := u.FamilyIDValue()

	g := models.Goal{
		FamilyID:      familyID,
		Name:          name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: models.Clamp(in.CurrentAmount, in.TargetAmount),
		Deadline:      in.Deadline,
	}
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&g).Error
	})
	if err != nil {
		return nil, err
	}

	s.emit.Family(familyID, realtime.EventUpdateGoals)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Goal created",
		Detail:   fmt.Sprintf("%s target $%.2f", g.Name, g.TargetAmount),
		Category: "goals",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return &g, nil
}

// ListGoals 家庭全部目标
func (s *Service) ListGoals(ctx context.Context, userID uint) ([]models.Goal, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []models.Goal{}
	err = s.store.Read(ctx, func(db *gorm.DB) error {
		return db.Where("family_id = ?", u.FamilyIDValue()).Order("id").Find(&out).Error
	})
	return out, err
}

// AdjustGoal 存入或取出，结果截断到 [0, target]，截断不算错误
func (s *Service) AdjustGoal(ctx context.Context, userID, goalID uint, action GoalAdjust, amount float64) (*models.Goal, error) {
	if goalID == 0 {
		return nil, apperr.Validation("Invalid goal ID")
	}
	if action == "" {
		action = GoalAdd
	}
	if action != GoalAdd && action != GoalSubtract {
		return nil, apperr.Validation("Action must be 'add' or 'subtract'")
	}
	if !validAmount(amount) {
		return nil, apperr.Validation("Amount must be between 0 and 999,999,999")
	}
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(u, ActionAdjustGoal, "Unauthorized"); err != nil {
		return nil, err
	}
	familyID := u.FamilyIDValue()

	delta := amount
	if action == GoalSubtract {
		delta = -amount
	}
	var g *models.Goal
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		var err error
		g, err = adjustGoal(tx, familyID, goalID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.emit.Family(familyID, realtime.EventUpdateGoals)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Goal updated",
		Detail:   fmt.Sprintf("%s adjusted by %.2f (%s)", g.Name, amount, action),
		Category: "goals",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return g, nil
}
