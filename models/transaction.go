package models

import "time"

// TxType 收支类型
type TxType string

const (
	TxIncome  TxType = "income"
	TxExpense TxType = "expense"
)

// Valid 是否为合法类型
func (t TxType) Valid() bool {
	return t == TxIncome || t == TxExpense
}

// MaxAmount 金额上限
const MaxAmount = 999999999

// Transaction 收支记录
// 周期字段只做存储，不做调度
type Transaction struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"index;not null"`
	FamilyID    uint       `json:"family_id" gorm:"index:idx_transactions_family_category,priority:1;not null"`
	Amount      float64    `json:"amount" gorm:"type:decimal(14,2);not null"`
	Description string     `json:"description" gorm:"size:500"`
	Type        TxType     `json:"type" gorm:"size:20;not null"`
	Category    string     `json:"category" gorm:"size:100;index:idx_transactions_family_category,priority:2"`
	Date        time.Time  `json:"date" gorm:"column:occurred_at;not null;index"`
	IsRecurring bool       `json:"is_recurring" gorm:"default:false"`
	Recurrence  *string    `json:"recurrence" gorm:"size:50"`
	NextDueDate *time.Time `json:"next_due_date" gorm:"type:date"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
