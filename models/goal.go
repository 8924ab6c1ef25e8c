package models

import "time"

// Goal 储蓄目标，0 <= CurrentAmount <= TargetAmount
type Goal struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	FamilyID      uint       `json:"family_id" gorm:"index;not null"`
	Name          string     `json:"name" gorm:"size:200;not null"`
	TargetAmount  float64    `json:"target_amount" gorm:"type:decimal(14,2);not null"`
	CurrentAmount float64    `json:"current_amount" gorm:"type:decimal(14,2);not null;default:0"`
	Deadline      *time.Time `json:"deadline" gorm:"type:date"`
}

func (Goal) TableName() string {
	return "goals"
}

// Clamp 把金额限制在 [0, target]
func Clamp(v, target float64) float64 {
	if v < 0 {
		return 0
	}
	if v > target {
		return target
	}
	return v
}
