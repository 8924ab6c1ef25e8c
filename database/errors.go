package database

import (
	"context"
	"errors"
	"strings"

	"familyfinance/apperr"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const mysqlDuplicateEntry = 1062

const pgUniqueViolation = "23505"

// Classify 把存储层错误转换为业务错误
// 已是业务错误的原样返回；唯一约束冲突转为 Conflict；记录不存在转为 NotFound；其余转为 Store
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if IsUniqueViolation(err) {
		return apperr.Conflict("record already exists", err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound("record not found")
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Store("store operation timed out", err)
	}
	return apperr.Store("store operation failed", err)
}

// IsUniqueViolation 判断是否唯一约束冲突（mysql / sqlite / postgres）
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlDuplicateEntry
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	// 驱动包装丢失类型时退化为文本匹配
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate entry")
}
