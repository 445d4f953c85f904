package models

// User 由外部认证服务签发的令牌解析出的调用者
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// 角色常量
const (
	RoleAnonymous = "anon"
	RoleUser      = "authenticated"
	RoleAdmin     = "service_role"
)

// IsAnonymous 未登录用户，历史记录归属于空 owner
func (u User) IsAnonymous() bool {
	return u.ID == ""
}

// IsAdmin 检查用户是否为管理员
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
