package models

import (
	"strings"
	"time"
)

const (
	// CategoryOthers 兜底类别，孩子使用未知类别时归入此类
	CategoryOthers = "Others"
	// CategoryGeneral 未填写类别时使用
	CategoryGeneral = "General"

	ColorIncome  = "#10b981"
	ColorExpense = "#64748b"
)

// Category 家庭类别
// NameKey 为小写名称，与 FamilyID 组成唯一索引，实现大小写不敏感的唯一性
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	FamilyID  uint      `json:"family_id" gorm:"not null;uniqueIndex:idx_categories_family_key,priority:1"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	NameKey   string    `json:"-" gorm:"size:100;not null;uniqueIndex:idx_categories_family_key,priority:2"`
	Type      TxType    `json:"type" gorm:"size:20;not null;default:expense"`
	Color     string    `json:"color" gorm:"size:20;default:#64748b"`
	IsDefault bool      `json:"is_default" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string {
	return "categories"
}

// CategoryKey 类别名的归一化键
func CategoryKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultColor 按收支类型给出默认颜色
func DefaultColor(t TxType) string {
	if t == TxIncome {
		return ColorIncome
	}
	return ColorExpense
}

// DefaultCategory 新家庭预置类别
type DefaultCategory struct {
	Name  string
	Type  TxType
	Color string
}

// GetDefaultCategories 新建家庭时写入的类别，包含兜底的 Others
func GetDefaultCategories() []DefaultCategory {
	return []DefaultCategory{
		{"Groceries", TxExpense, "#ef4444"},
		{"Housing", TxExpense, "#14b8a6"},
		{"Transport", TxExpense, "#3b82f6"},
		{"Utilities", TxExpense, "#f59e0b"},
		{"Entertainment", TxExpense, "#ec4899"},
		{"Health", TxExpense, "#10b981"},
		{"Salary", TxIncome, "#22c55e"},
		{CategoryOthers, TxExpense, ColorExpense},
	}
}
