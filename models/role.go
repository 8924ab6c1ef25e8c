package models

// Role 家庭内角色
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleParent Role = "parent"
	RoleChild  Role = "child"
)

// Valid 是否为合法角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleParent, RoleChild:
		return true
	}
	return false
}
