package models

// Period 预算周期
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodYearly  Period = "yearly"
)

// Valid 是否为合法周期
func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodYearly:
		return true
	}
	return false
}

// Budget 类别预算，已花费金额不落库，查询时从流水汇总
type Budget struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	FamilyID uint    `json:"family_id" gorm:"not null;uniqueIndex:idx_budgets_family_category,priority:1"`
	Category string  `json:"category" gorm:"size:100;not null;uniqueIndex:idx_budgets_family_category,priority:2"`
	Amount   float64 `json:"amount" gorm:"type:decimal(14,2);not null"`
	Period   Period  `json:"period" gorm:"size:20;not null;default:monthly"`
}

func (Budget) TableName() string {
	return "budgets"
}
