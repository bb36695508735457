package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// ErrInvalidCredentials возвращается при неверной паре email/пароль
// и при попытке входа заблокированного аккаунта. Снаружи причины
// неразличимы, чтобы не подсказывать перебор.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service — регистрация и вход пользователей.
type Service struct {
	users  domain.UserRepository
	tokens *TokenManager
	logger *log.Entry
}

// NewService создаёт сервис аутентификации.
func NewService(users domain.UserRepository, tokens *TokenManager, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "auth")
	}
	return &Service{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// RegisterInput — параметры регистрации аккаунта.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Address  string
	Role     domain.Role
}

// Register создаёт аккаунт. Пустая роль означает покупателя.
func (s *Service) Register(ctx context.Context, input RegisterInput) (domain.User, error) {
	if input.Role == "" {
		input.Role = domain.RoleCustomer
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: hash,
		Role:         input.Role,
		Address:      input.Address,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if errs := user.Validate(); len(errs) > 0 {
		return domain.User{}, errs[0]
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}

	s.logger.WithFields(log.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("user registered")

	return user, nil
}

// Login проверяет учётные данные и выпускает access-токен.
func (s *Service) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.User{}, ErrInvalidCredentials
		}
		return "", domain.User{}, err
	}

	if user.Disabled || !CheckPassword(user.PasswordHash, password) {
		return "", domain.User{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", domain.User{}, err
	}
	return token, user, nil
}

// SetDisabled блокирует или разблокирует вход для аккаунта.
func (s *Service) SetDisabled(ctx context.Context, userID string, disabled bool) error {
	if err := s.users.SetUserDisabled(ctx, userID, disabled); err != nil {
		return err
	}
	s.logger.WithFields(log.Fields{
		"user_id":  userID,
		"disabled": disabled,
	}).Info("user access changed")
	return nil
}

// ListStaff возвращает сотрудников для админской страницы персонала.
func (s *Service) ListStaff(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsersByRole(ctx, domain.RoleStaff)
}

// DeleteStaff удаляет аккаунт сотрудника. Удалять можно только роль STAFF:
// покупатели блокируются через SetDisabled, историю заказов не трогаем.
func (s *Service) DeleteStaff(ctx context.Context, userID string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role != domain.RoleStaff {
		return domain.ErrUserRoleInvalid
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	s.logger.WithField("user_id", userID).Info("staff account deleted")
	return nil
}
