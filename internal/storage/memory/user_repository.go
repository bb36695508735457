package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// userRepositoryInMemory — простая in-memory реализация UserRepository.
type userRepositoryInMemory struct {
	mu    sync.RWMutex
	items map[string]domain.User
}

// NewUserRepository возвращает in-memory репозиторий аккаунтов.
func NewUserRepository() domain.UserRepository {
	return &userRepositoryInMemory{items: make(map[string]domain.User)}
}

// CreateUser сохраняет аккаунт, проверяя уникальность email.
func (r *userRepositoryInMemory) CreateUser(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, existing := range r.items {
		if strings.ToLower(existing.Email) == email {
			return domain.ErrEmailTaken
		}
	}
	r.items[user.ID] = user
	return nil
}

// GetUser возвращает аккаунт или ErrUserNotFound.
func (r *userRepositoryInMemory) GetUser(_ context.Context, id string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.items[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail ищет аккаунт по email без учёта регистра.
func (r *userRepositoryInMemory) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = strings.ToLower(email)
	for _, user := range r.items {
		if strings.ToLower(user.Email) == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// ListUsersByRole возвращает аккаунты с заданной ролью, стабильно по имени.
func (r *userRepositoryInMemory) ListUsersByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]domain.User, 0)
	for _, user := range r.items {
		if user.Role == role {
			result = append(result, user)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// SetUserDisabled блокирует или разблокирует вход.
func (r *userRepositoryInMemory) SetUserDisabled(_ context.Context, id string, disabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.items[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	user.Disabled = disabled
	user.UpdatedAt = time.Now().UTC()
	r.items[id] = user
	return nil
}

// DeleteUser удаляет аккаунт сотрудника.
func (r *userRepositoryInMemory) DeleteUser(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.items, id)
	return nil
}

var _ domain.UserRepository = (*userRepositoryInMemory)(nil)
