package service

import (
	"context"
	"errors"

	"familyfinance/apperr"
	"familyfinance/database"
	"familyfinance/models"

	"gorm.io/gorm"
)

// BudgetStatus 预算及其已花费金额，spent 由流水实时汇总
type BudgetStatus struct {
	ID       uint          `json:"id"`
	Category string        `json:"category"`
	Limit    float64       `json:"limit" gorm:"column:limit_amount"`
	Period   models.Period `json:"period"`
	Spent    float64       `json:"spent"`
}

const budgetStatusSQL = `
SELECT b.id, b.category, b.amount AS limit_amount, b.period, COALESCE(SUM(t.amount), 0) AS spent
FROM budgets b
LEFT JOIN transactions t
  ON t.family_id = b.family_id AND t.category = b.category AND t.type = ?
WHERE b.family_id = ?
GROUP BY b.id, b.category, b.amount, b.period
ORDER BY b.category`

func queryBudgetStatus(db *gorm.DB, familyID uint) ([]BudgetStatus, error) {
	out := []BudgetStatus{}
	if err := db.Raw(budgetStatusSQL, models.TxExpense, familyID).Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// adjustGoal 在事务内加行锁读取目标，按 clamp(current+delta, 0, target) 写回
// 截断时不报错，整个 delta 视为已接受
func adjustGoal(tx *gorm.DB, familyID, goalID uint, delta float64) (*models.Goal, error) {
	var g models.Goal
	err := database.ForUpdate(tx).
		Where("id = ? AND family_id = ?", goalID, familyID).
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Goal not found")
		}
		return nil, err
	}

	g.CurrentAmount = models.Clamp(g.CurrentAmount+delta, g.TargetAmount)
	if err := tx.Model(&g).Update("current_amount", g.CurrentAmount).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

// BudgetStatus 家庭所有预算的限额与已花费
func (s *Service) BudgetStatus(ctx context.Context, userID uint) ([]BudgetStatus, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []BudgetStatus
	err = s.store.Read(ctx, func(db *gorm.DB) error {
		var err error
		out, err = queryBudgetStatus(db, u.FamilyIDValue())
		return err
	})
	return out, err
}
