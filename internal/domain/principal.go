package domain

// Role роль пользователя, приходящая с границы идентификации
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

// IsValid проверяет, что роль известна
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleStaff || r == RoleAdmin
}

// Principal аутентифицированный пользователь
type Principal struct {
	UserID int64
	Role   Role
}

// IsStaff возвращает true для сотрудников и администраторов
func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff || p.Role == RoleAdmin
}

// CanAccessCustomer возвращает true, если пользователь может видеть данные клиента
func (p Principal) CanAccessCustomer(customerID int64) bool {
	return p.IsStaff() || p.UserID == customerID
}
