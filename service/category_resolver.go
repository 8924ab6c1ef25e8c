package service

import (
	"familyfinance/apperr"
	"familyfinance/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxCategoryLen = 100

// ResolveCategory 把用户输入的类别名映射为家庭内的规范类别名
// 必须在写入引用行的同一事务中调用
//   - 大小写不敏感查找，找到返回库里的名字
//   - 找不到且为孩子：归入 Others（不存在则创建）
//   - 找不到且为家长/管理员：按收支类型的默认颜色创建
//
// created 表示本次调用新建了类别
func ResolveCategory(tx *gorm.DB, familyID uint, role models.Role, label string, txType models.TxType) (name string, created bool, err error) {
	label, n := textLen(label)
	if n == 0 {
		label = models.CategoryGeneral
	}
	if n > maxCategoryLen {
		label = string([]rune(label)[:maxCategoryLen])
	}

	existing, err := findCategory(tx, familyID, label)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		return existing.Name, false, nil
	}

	if role == models.RoleChild {
		others, created, err := ensureCategory(tx, familyID, models.CategoryOthers, models.TxExpense, false)
		if err != nil {
			return "", false, err
		}
		return others.Name, created, nil
	}

	cat, created, err := ensureCategory(tx, familyID, label, txType, false)
	if err != nil {
		return "", false, err
	}
	return cat.Name, created, nil
}

// findCategory 按归一化名称查找，不存在返回 nil
func findCategory(tx *gorm.DB, familyID uint, name string) (*models.Category, error) {
	var cats []models.Category
	err := tx.Where("family_id = ? AND name_key = ?", familyID, models.CategoryKey(name)).
		Limit(1).
		Find(&cats).Error
	if err != nil {
		return nil, err
	}
	if len(cats) == 0 {
		return nil, nil
	}
	return &cats[0], nil
}

// ensureCategory 插入类别，已存在（含并发插入）则忽略，再读回规范行
func ensureCategory(tx *gorm.DB, familyID uint, name string, txType models.TxType, isDefault bool) (*models.Category, bool, error) {
	if !txType.Valid() {
		txType = models.TxExpense
	}
	row := models.Category{
		FamilyID:  familyID,
		Name:      name,
		NameKey:   models.CategoryKey(name),
		Type:      txType,
		Color:     models.DefaultColor(txType),
		IsDefault: isDefault,
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "family_id"}, {Name: "name_key"}},
		DoNothing: true,
	}).Create(&row)
	if res.Error != nil {
		return nil, false, res.Error
	}

	cat, err := findCategory(tx, familyID, name)
	if err != nil {
		return nil, false, err
	}
	if cat == nil {
		return nil, false, apperr.Store("category vanished after insert", nil)
	}
	return cat, res.RowsAffected > 0, nil
}

// seedCategories 新家庭的默认类别
func seedCategories(tx *gorm.DB, familyID uint) error {
	rows := make([]models.Category, 0, len(models.GetDefaultCategories()))
	for _, d := range models.GetDefaultCategories() {
		rows = append(rows, models.Category{
			FamilyID:  familyID,
			Name:      d.Name,
			NameKey:   models.CategoryKey(d.Name),
			Type:      d.Type,
			Color:     d.Color,
			IsDefault: true,
		})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "family_id"}, {Name: "name_key"}},
		DoNothing: true,
	}).Create(&rows).Error
}
