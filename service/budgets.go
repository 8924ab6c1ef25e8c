package service

import (
	"context"
	"fmt"

	"familyfinance/apperr"
	"familyfinance/journal"
	"familyfinance/models"
	"familyfinance/realtime"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BudgetInput 设置预算
type BudgetInput struct {
	Category string
	Amount   float64
	Period   models.Period
}

func (in *BudgetInput) validate() error {
	category, n := textLen(in.Category)
	if n == 0 || n > maxCategoryLen {
		return apperr.Validation("Category must be 1-100 characters")
	}
	in.Category = category
	if !validAmount(in.Amount) {
		return apperr.Validation("Amount must be between 0 and 999,999,999")
	}
	if in.Period == "" {
		in.Period = models.PeriodMonthly
	}
	if !in.Period.Valid() {
		return apperr.Validation("Period must be daily, weekly, monthly, or yearly")
	}
	return nil
}

// UpsertBudget 每个家庭每个类别一条预算，已存在则覆盖限额和周期
func (s *Service) UpsertBudget(ctx context.Context, userID uint, in BudgetInput) (*models.Budget, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(u, ActionManageBudgets, "Children cannot manage budgets"); err != nil {
		return nil, err
	}
	familyID := u.FamilyIDValue()

	row := models.Budget{FamilyID: familyID, Amount: in.Amount, Period: in.Period}
	categoryCreated := false
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		// 预算类别与流水走同一套解析，名称始终对应一条类别记录
		name, created, err := ResolveCategory(tx, familyID, u.Role, in.Category, models.TxExpense)
		if err != nil {
			return err
		}
		row.Category = name
		categoryCreated = created
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "family_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"amount", "period"}),
		}).Create(&row).Error
		if err != nil {
			return err
		}
		return tx.Where("family_id = ? AND category = ?", familyID, row.Category).First(&row).Error
	})
	if err != nil {
		return nil, err
	}

	s.emit.Family(familyID, realtime.EventUpdateBudgets)
	if categoryCreated {
		s.emit.Family(familyID, realtime.EventUpdateCategories)
	}
	s.emit.Activity(familyID, journal.Event{
		Title:    "Budget updated",
		Detail:   fmt.Sprintf("%s set to $%.2f/%s", row.Category, row.Amount, row.Period),
		Category: "budgets",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return &row, nil
}

// DeleteBudget 删除一条预算
func (s *Service) DeleteBudget(ctx context.Context, userID, budgetID uint) error {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return err
	}
	if err := authorize(u, ActionManageBudgets, "Children cannot manage budgets"); err != nil {
		return err
	}
	familyID := u.FamilyIDValue()

	var row models.Budget
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := findInFamily(tx, &row, budgetID, familyID, "Budget not found"); err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		return err
	}

	s.emit.Family(familyID, realtime.EventUpdateBudgets)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Budget removed",
		Detail:   fmt.Sprintf("%s budget deleted", row.Category),
		Category: "budgets",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return nil
}
