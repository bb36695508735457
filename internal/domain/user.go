package domain

import "time"

// Role определяет уровень доступа пользователя.
type Role string

const (
	// RoleAdmin — управление каталогом, персоналом и заказами.
	RoleAdmin Role = "ADMIN"
	// RoleStaff — кассовые операции и возвраты.
	RoleStaff Role = "STAFF"
	// RoleCustomer — покупки через витрину.
	RoleCustomer Role = "CUSTOMER"
)

// Valid проверяет, что роль относится к поддерживаемым.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleCustomer:
		return true
	default:
		return false
	}
}

// User — аккаунт покупателя или сотрудника.
type User struct {
	ID    string
	Name  string
	Email string
	// PasswordHash — bcrypt-хэш; открытый пароль нигде не хранится.
	PasswordHash string
	Role         Role
	Address      string
	// Disabled блокирует вход без удаления истории заказов.
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет поля аккаунта перед сохранением.
func (u *User) Validate() []error {
	var errs []error

	if u.Name == "" {
		errs = append(errs, ErrUserNameRequired)
	}
	if u.Email == "" {
		errs = append(errs, ErrUserEmailRequired)
	}
	if !u.Role.Valid() {
		errs = append(errs, ErrUserRoleInvalid)
	}

	return errs
}
