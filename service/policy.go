package service

import (
	"familyfinance/apperr"
	"familyfinance/models"
)

// Action 需要鉴权的操作
type Action string

const (
	ActionUpdateFamily      Action = "update_family"
	ActionDeleteFamily      Action = "delete_family"
	ActionRemoveMember      Action = "remove_member"
	ActionAssignRole        Action = "assign_role"
	ActionManageBudgets     Action = "manage_budgets"
	ActionCreateGoal        Action = "create_goal"
	ActionManageCategories  Action = "manage_categories"
	ActionInviteMember      Action = "invite_member"
	ActionCreateTransaction Action = "create_transaction"
	ActionDeleteTransaction Action = "delete_transaction"
	ActionAdjustGoal        Action = "adjust_goal"
	ActionExport            Action = "export"
)

var policy = map[Action][]models.Role{
	ActionUpdateFamily:      {models.RoleAdmin},
	ActionDeleteFamily:      {models.RoleAdmin},
	ActionRemoveMember:      {models.RoleAdmin},
	ActionAssignRole:        {models.RoleAdmin},
	ActionManageBudgets:     {models.RoleAdmin, models.RoleParent},
	ActionCreateGoal:        {models.RoleAdmin, models.RoleParent},
	ActionManageCategories:  {models.RoleAdmin, models.RoleParent},
	ActionInviteMember:      {models.RoleAdmin, models.RoleParent},
	ActionCreateTransaction: {models.RoleAdmin, models.RoleParent, models.RoleChild},
	ActionDeleteTransaction: {models.RoleAdmin, models.RoleParent, models.RoleChild},
	ActionAdjustGoal:        {models.RoleAdmin, models.RoleParent, models.RoleChild},
	ActionExport:            {models.RoleAdmin, models.RoleParent, models.RoleChild},
}

// CanPerform 角色是否可以执行该操作，未登记的操作一律拒绝
func CanPerform(role models.Role, action Action) bool {
	for _, r := range policy[action] {
		if r == role {
			return true
		}
	}
	return false
}

// authorize 无权限时返回 AuthorizationError
func authorize(u *models.User, action Action, message string) error {
	if CanPerform(u.Role, action) {
		return nil
	}
	return apperr.Forbidden(message)
}
