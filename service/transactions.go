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

// TransactionInput 新增收支
type TransactionInput struct {
	Amount      float64
	Description string
	Type        models.TxType
	Category    string
	Date        *time.Time
	IsRecurring bool
	Recurrence  *string
	NextDueDate *time.Time
}

// TransactionView 列表项，带记账人信息
type TransactionView struct {
	models.Transaction
	FirstName string      `json:"first_name"`
	Role      models.Role `json:"role"`
}

func (in *TransactionInput) validate() error {
	if !validAmount(in.Amount) {
		return apperr.Validation("Amount must be between 0 and 999,999,999")
	}
	desc, n := textLen(in.Description)
	if n == 0 || n > 500 {
		return apperr.Validation("Description must be 1-500 characters")
	}
	in.Description = desc
	if !in.Type.Valid() {
		return apperr.Validation("Type must be 'income' or 'expense'")
	}
	if in.Recurrence != nil {
		r, n := textLen(*in.Recurrence)
		if n > 50 {
			return apperr.Validation("Recurrence must be at most 50 characters")
		}
		in.Recurrence = &r
	}
	return nil
}

// CreateTransaction 记一笔账，类别在同一事务内解析为规范名称
func (s *Service) CreateTransaction(ctx context.Context, userID uint, in TransactionInput) (*models.Transaction, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(u, ActionCreateTransaction, "Unauthorized"); err != nil {
		return nil, err
	}
	familyID := u.FamilyIDValue()

	date := time.Now()
	if in.Date != nil && !in.Date.IsZero() {
		date = *in.Date
	}
	row := models.Transaction{
		UserID:      userID,
		FamilyID:    familyID,
		Amount:      in.Amount,
		Description: in.Description,
		Type:        in.Type,
		Date:        date,
		IsRecurring: in.IsRecurring,
		Recurrence:  in.Recurrence,
		NextDueDate: in.NextDueDate,
	}
	var categoryCreated bool
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		name, created, err := ResolveCategory(tx, familyID, u.Role, in.Category, in.Type)
		if err != nil {
			return err
		}
		row.Category = name
		categoryCreated = created
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, err
	}

	s.emit.Family(familyID, realtime.EventUpdateTransactions, realtime.EventUpdateBudgets)
	if categoryCreated {
		s.emit.Family(familyID, realtime.EventUpdateCategories)
	}
	s.emit.Activity(familyID, journal.Event{
		Title:    "Transaction added",
		Detail:   fmt.Sprintf("%s logged %s $%.2f · %s", u.DisplayName(), row.Type, row.Amount, row.Description),
		Category: "transactions",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return &row, nil
}

// ListTransactions 家庭全部流水，按时间倒序
func (s *Service) ListTransactions(ctx context.Context, userID uint) ([]TransactionView, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []TransactionView{}
	err = s.store.Read(ctx, func(db *gorm.DB) error {
		return familyTransactions(db, u.FamilyIDValue()).Scan(&out).Error
	})
	return out, err
}

func familyTransactions(db *gorm.DB, familyID uint) *gorm.DB {
	return db.Table("transactions AS t").
		Select("t.*, u.first_name, u.role").
		Joins("LEFT JOIN users u ON t.user_id = u.id").
		Where("t.family_id = ?", familyID).
		Order("t.occurred_at DESC, t.id DESC")
}

// DeleteTransaction 删除家庭内的一笔流水
func (s *Service) DeleteTransaction(ctx context.Context, userID, txID uint) error {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return err
	}
	if err := authorize(u, ActionDeleteTransaction, "Unauthorized"); err != nil {
		return err
	}
	familyID := u.FamilyIDValue()

	var row models.Transaction
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := findInFamily(tx, &row, txID, familyID, "Transaction not found"); err != nil {
			return err
		}
		return tx.Delete(&row).Error
	})
	if err != nil {
		return err
	}

	s.emit.Family(familyID, realtime.EventUpdateTransactions, realtime.EventUpdateBudgets)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Transaction deleted",
		Detail:   fmt.Sprintf("%s removed %s $%.2f · %s", u.DisplayName(), row.Type, row.Amount, row.Description),
		Category: "transactions",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return nil
}
