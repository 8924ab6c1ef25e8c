package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"familyfinance/apperr"
	"familyfinance/models"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ExportSheet 导出文件的工作表名
const ExportSheet = "Transactions"

// ExportRange 导出时间范围，零值表示不限
type ExportRange struct {
	Start time.Time
	End   time.Time
}

// ExportTransactions 把家庭流水导出为 xlsx，末行为收入、支出合计
func (s *Service) ExportTransactions(ctx context.Context, userID uint, r ExportRange) (*bytes.Buffer, error) {
	if !r.Start.IsZero() && !r.End.IsZero() && r.End.Before(r.Start) {
		return nil, apperr.Validation("End date must not be before start date")
	}
	u, err := s.loadMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(u, ActionExport, "Unauthorized"); err != nil {
		return nil, err
	}

	var rows []TransactionView
	err = s.store.Read(ctx, func(db *gorm.DB) error {
		q := familyTransactions(db, u.FamilyIDValue())
		if !r.Start.IsZero() {
			q = q.Where("t.occurred_at >= ?", r.Start)
		}
		if !r.End.IsZero() {
			q = q.Where("t.occurred_at <= ?", r.End)
		}
		return q.Scan(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	buf, err := writeTransactionsSheet(rows)
	if err != nil {
		return nil, apperr.Store("build export", err)
	}
	return buf, nil
}

func writeTransactionsSheet(rows []TransactionView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return nil, err
	}

	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 12, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return nil, err
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true, Size: 11},
		Fill:   excelize.Fill{Type: "pattern", Color: []string{"FFC000"}, Pattern: 1},
		Border: border,
	})
	if err != nil {
		return nil, err
	}

	widths := map[string]float64{"A": 8, "B": 20, "C": 14, "D": 10, "E": 12, "F": 16, "G": 36, "H": 14}
	for col, w := range widths {
		if err := f.SetColWidth(ExportSheet, col, col, w); err != nil {
			return nil, err
		}
	}

	headers := []any{"ID", "Date", "Member", "Role", "Type", "Category", "Description", "Amount"}
	if err := f.SetSheetRow(ExportSheet, "A1", &headers); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(ExportSheet, "A1", "H1", headerStyle); err != nil {
		return nil, err
	}

	var income, expense float64
	for i, t := range rows {
		cell := fmt.Sprintf("A%d", i+2)
		values := []any{
			t.ID,
			t.Date.Format("2006-01-02 15:04:05"),
			t.FirstName,
			string(t.Role),
			string(t.Type),
			t.Category,
			t.Description,
			t.Amount,
		}
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			return nil, err
		}
		if t.Type == models.TxIncome {
			income += t.Amount
		} else {
			expense += t.Amount
		}
	}

	summaryRow := len(rows) + 2
	summary := []any{"Total", fmt.Sprintf("%d records", len(rows)), "", "", "income", income, "expense", expense}
	first := fmt.Sprintf("A%d", summaryRow)
	if err := f.SetSheetRow(ExportSheet, first, &summary); err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(ExportSheet, first, fmt.Sprintf("H%d", summaryRow), summaryStyle); err != nil {
		return nil, err
	}

	return f.WriteToBuffer()
}
