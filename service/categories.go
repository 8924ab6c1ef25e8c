package service

import (
	"context"
	"fmt"
	"strings"

	"familyfinance/apperr"
	"familyfinance/journal"
	"familyfinance/models"
	"familyfinance/realtime"

	"gorm.io/gorm"
)

// CategoryInput 新建或修改类别，修改时空字段保持不变
type CategoryInput struct {
	Name  string
	Type  models.TxType
	Color string
}

func validColor(color string) (string, error) {
	color, n := textLen(color)
	if n > 20 {
		return "", apperr.Validation("Color must be at most 20 characters")
	}
	return color, nil
}

// ListCategories 家庭全部类别
func (s *Service) ListCategories(ctx context.Context, userID uint) ([]models.Category, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []models.Category{}
	err = s.store.Read(ctx, func(db *gorm.DB) error {
		return db.Where("family_id = ?", u.FamilyIDValue()).Order("type, name").Find(&out).Error
	})
	return out, err
}

// CreateCategory 新建类别，名称在家庭内大小写不敏感唯一
func (s *Service) CreateCategory(ctx context.Context, userID uint, in CategoryInput) (*models.Category, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(u, ActionManageCategories, "Children cannot create categories"); err != nil {
		return nil, err
	}
	name, n := textLen(in.Name)
	if n == 0 {
		return nil, apperr.Validation("Category name is required")
	}
	if n > maxCategoryLen {
		return nil, apperr.Validation("Name too long")
	}
	if in.Type == "" {
		in.Type = models.TxExpense
	}
	if !in.Type.Valid() {
		return nil, apperr.Validation("Type must be 'income' or 'expense'")
	}
	color, err := validColor(in.Color)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = models.DefaultColor(in.Type)
	}
	familyID := u.FamilyIDValue()

	cat := models.Category{
		FamilyID: familyID,
		Name:     name,
		NameKey:  models.CategoryKey(name),
		Type:     in.Type,
		Color:    color,
	}
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		return tx.Create(&cat).Error
	})
	if apperr.Is(err, apperr.KindConflict) {
		return nil, apperr.Conflict("Category already exists", err)
	}
	if err != nil {
		return nil, err
	}

	s.emit.Family(familyID, realtime.EventUpdateCategories)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Category created",
		Detail:   fmt.Sprintf("%s (%s)", cat.Name, cat.Type),
		Category: "categories",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return &cat, nil
}

// UpdateCategory 修改类别
// 改名时流水和预算跟随改名，改类型时该类别下的流水跟随改类型
func (s *Service) UpdateCategory(ctx context.Context, userID, catID uint, in CategoryInput) (*models.Category, error) {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(u, ActionManageCategories, "Children cannot modify categories"); err != nil {
		return nil, err
	}
	name, n := textLen(in.Name)
	if n > maxCategoryLen {
		return nil, apperr.Validation("Name too long")
	}
	if in.Type != "" && !in.Type.Valid() {
		return nil, apperr.Validation("Type must be 'income' or 'expense'")
	}
	color, err := validColor(in.Color)
	if err != nil {
		return nil, err
	}
	familyID := u.FamilyIDValue()

	var cat models.Category
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := findInFamily(tx, &cat, catID, familyID, "Category not found"); err != nil {
			return err
		}
		oldName, oldType := cat.Name, cat.Type

		if name != "" && name != oldName {
			if strings.EqualFold(oldName, models.CategoryOthers) {
				return apperr.Validation("The Others category cannot be renamed")
			}
			clash, err := findCategory(tx, familyID, name)
			if err != nil {
				return err
			}
			if clash != nil && clash.ID != cat.ID {
				return apperr.Conflict("Category name already exists", nil)
			}
			if err := renameCategoryRefs(tx, familyID, oldName, name); err != nil {
				return err
			}
			cat.Name = name
			cat.NameKey = models.CategoryKey(name)
		}
		if in.Type != "" && in.Type != oldType {
			err := tx.Model(&models.Transaction{}).
				Where("family_id = ? AND category = ?", familyID, cat.Name).
				Update("type", in.Type).Error
			if err != nil {
				return err
			}
			cat.Type = in.Type
		}
		if color != "" {
			cat.Color = color
		}
		return tx.Model(&cat).Updates(map[string]any{
			"name":     cat.Name,
			"name_key": cat.NameKey,
			"type":     cat.Type,
			"color":    cat.Color,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.emit.Family(familyID, realtime.EventUpdateCategories, realtime.EventUpdateTransactions, realtime.EventUpdateBudgets)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Category updated",
		Detail:   fmt.Sprintf("%s (%s)", cat.Name, cat.Type),
		Category: "categories",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return &cat, nil
}

// DeleteCategory 删除类别，引用它的流水和预算改挂到 Others
func (s *Service) DeleteCategory(ctx context.Context, userID, catID uint) error {
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return err
	}
	if err := authorize(u, ActionManageCategories, "Children cannot modify categories"); err != nil {
		return err
	}
	familyID := u.FamilyIDValue()

	var cat models.Category
	err = s.store.RunInTransaction(ctx, func(tx *gorm.DB) error {
		if err := findInFamily(tx, &cat, catID, familyID, "Category not found"); err != nil {
			return err
		}
		if strings.EqualFold(cat.Name, models.CategoryOthers) {
			return apperr.Validation("The Others category cannot be deleted")
		}
		others, _, err := ensureCategory(tx, familyID, models.CategoryOthers, models.TxExpense, true)
		if err != nil {
			return err
		}
		if err := renameCategoryRefs(tx, familyID, cat.Name, others.Name); err != nil {
			return err
		}
		return tx.Delete(&cat).Error
	})
	if err != nil {
		return err
	}

	s.emit.Family(familyID, realtime.EventUpdateCategories, realtime.EventUpdateTransactions, realtime.EventUpdateBudgets)
	s.emit.Activity(familyID, journal.Event{
		Title:    "Category deleted",
		Detail:   fmt.Sprintf("%s moved to %s", cat.Name, models.CategoryOthers),
		Category: "categories",
		UserName: u.DisplayName(),
		UserRole: string(u.Role),
	})
	return nil
}

// renameCategoryRefs 把流水和预算从 from 改挂到 to
// 目标类别已有预算时丢弃旧预算，保持每类别一条预算
func renameCategoryRefs(tx *gorm.DB, familyID uint, from, to string) error {
	err := tx.Model(&models.Transaction{}).
		Where("family_id = ? AND category = ?", familyID, from).
		Update("category", to).Error
	if err != nil {
		return err
	}

	if !strings.EqualFold(from, to) {
		var target int64
		if err := tx.Model(&models.Budget{}).Where("family_id = ? AND category = ?", familyID, to).Count(&target).Error; err != nil {
			return err
		}
		if target > 0 {
			return tx.Where("family_id = ? AND category = ?", familyID, from).Delete(&models.Budget{}).Error
		}
	}
	return tx.Model(&models.Budget{}).
		Where("family_id = ? AND category = ?", familyID, from).
		Update("category", to).Error
}
