package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const userSelect = `
	SELECT id, name, email, password_hash, role, address, disabled, created_at, updated_at
	FROM users`

func scanUser(row rowScanner) (domain.User, error) {
	var (
		user domain.User
		role string
	)
	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&role, &user.Address, &user.Disabled, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("select user: %w", err)
	}
	user.Role = domain.Role(role)
	return user, nil
}

// CreateUser сохраняет аккаунт. Email уникален без учёта регистра.
func (s *Store) CreateUser(ctx context.Context, user domain.User) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := s.db.ExecContext(queryCtx, `
		INSERT INTO users (id, name, email, password_hash, role, address, disabled, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		user.ID, user.Name, user.Email, user.PasswordHash,
		string(user.Role), user.Address, user.Disabled, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser возвращает аккаунт по id.
func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return scanUser(s.db.QueryRowContext(queryCtx, userSelect+` WHERE id = $1`, id))
}

// GetUserByEmail возвращает аккаунт по email без учёта регистра.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return scanUser(s.db.QueryRowContext(queryCtx, userSelect+` WHERE LOWER(email) = LOWER($1)`, email))
}

// ListUsersByRole возвращает аккаунты с указанной ролью.
func (s *Store) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(queryCtx, userSelect+` WHERE role = $1 ORDER BY name, id`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user rows: %w", err)
	}
	return users, nil
}

// SetUserDisabled переключает флаг блокировки входа.
func (s *Store) SetUserDisabled(ctx context.Context, id string, disabled bool) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(queryCtx, `
		UPDATE users SET disabled = $2, updated_at = NOW() WHERE id = $1
	`, id, disabled)
	if err != nil {
		return fmt.Errorf("set user disabled: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// DeleteUser удаляет аккаунт. История заказов остаётся.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	queryCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := s.db.ExecContext(queryCtx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

var _ domain.UserRepository = (*Store)(nil)
