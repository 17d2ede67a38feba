package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/models"
)

const userCols = `id, telegram_id, full_name, phone, role, status, group_id, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.TelegramID, &u.FullName, &u.Phone, &u.Role, &u.Status, &u.GroupID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser заводит пользователя в статусе pending.
// Возвращает ErrDuplicate, если telegram_id уже занят.
func CreateUser(ctx context.Context, database *sql.DB, telegramID int64, fullName, phone string, role models.Role) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx, `
INSERT INTO users (telegram_id, full_name, phone, role, status)
VALUES ($1, $2, $3, $4, 'pending')`, telegramID, fullName, phone, string(role))
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetUserByTelegramID — nil, nil если пользователя нет.
func GetUserByTelegramID(ctx context.Context, database *sql.DB, telegramID int64) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	u, err := scanUser(database.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE telegram_id = $1`, telegramID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// GetUserByID — по внутреннему ID (не telegram_id).
func GetUserByID(ctx context.Context, database *sql.DB, id int64) (*models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	u, err := scanUser(database.QueryRowContext(ctx,
		`SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// ApproveUser переводит пользователя в active. ErrNotFound, если telegram_id неизвестен.
func ApproveUser(ctx context.Context, database *sql.DB, telegramID int64) error {
	return setStatus(ctx, database, telegramID, models.Active)
}

// RejectUser переводит пользователя в rejected (терминальный статус).
func RejectUser(ctx context.Context, database *sql.DB, telegramID int64) error {
	return setStatus(ctx, database, telegramID, models.Rejected)
}

func setStatus(ctx context.Context, database *sql.DB, telegramID int64, st models.Status) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := database.ExecContext(ctx,
		`UPDATE users SET status = $1 WHERE telegram_id = $2`, string(st), telegramID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignUserToGroup перезаписывает group_id пользователя.
// ErrNotFound — если нет пользователя или группы.
func AssignUserToGroup(ctx context.Context, database *sql.DB, userID, groupID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if g, err := GetGroup(ctx, database, groupID); err != nil {
		return err
	} else if g == nil {
		return fmt.Errorf("группа %d: %w", groupID, ErrNotFound)
	}

	res, err := database.ExecContext(ctx,
		`UPDATE users SET group_id = $1 WHERE id = $2`, groupID, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("пользователь %d: %w", userID, ErrNotFound)
	}
	return nil
}

// RemoveUserFromGroup обнуляет group_id (идемпотентно).
func RemoveUserFromGroup(ctx context.Context, database *sql.DB, userID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx,
		`UPDATE users SET group_id = NULL WHERE id = $1`, userID)
	return err
}

// GetPendingUsers — заявки, ожидающие решения администратора.
func GetPendingUsers(ctx context.Context, database *sql.DB) ([]models.User, error) {
	return listUsers(ctx, database,
		`SELECT `+userCols+` FROM users WHERE status = 'pending' ORDER BY created_at`)
}

// GetAllUsers — все пользователи, в порядке создания.
func GetAllUsers(ctx context.Context, database *sql.DB) ([]models.User, error) {
	return listUsers(ctx, database,
		`SELECT `+userCols+` FROM users ORDER BY id`)
}

// GetStudentsWithoutGroup — активные ученики без группы.
func GetStudentsWithoutGroup(ctx context.Context, database *sql.DB) ([]models.User, error) {
	return listUsers(ctx, database,
		`SELECT `+userCols+` FROM users WHERE role = 'student' AND status = 'active' AND group_id IS NULL ORDER BY full_name`)
}

// GetAvailableTeachers — активные учителя.
func GetAvailableTeachers(ctx context.Context, database *sql.DB) ([]models.User, error) {
	return listUsers(ctx, database,
		`SELECT `+userCols+` FROM users WHERE role = 'teacher' AND status = 'active' ORDER BY full_name`)
}

func listUsers(ctx context.Context, database *sql.DB, query string, args ...any) ([]models.User, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}
