package db

import (
	"context"
	"database/sql"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/models"
)

// Запись данных, пришедших из внешнего зеркала. Обновляется всё изменяемое;
// telegram_id и внутренний id неизменны.

func UpdateGroupFromMirror(ctx context.Context, database *sql.DB, groupID int64, name string, teacherID *int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx,
		`UPDATE groups SET name = $1, teacher_id = $2 WHERE id = $3`, name, teacherID, groupID)
	return err
}

func InsertGroupFromMirror(ctx context.Context, database *sql.DB, name string, teacherID *int64) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx,
		`INSERT INTO groups (name, teacher_id) VALUES ($1, $2) RETURNING id`, name, teacherID).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	return id, err
}

func UpdateUserFromMirror(ctx context.Context, database *sql.DB, u models.User) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx, `
UPDATE users SET full_name = $1, phone = $2, role = $3, status = $4, group_id = $5
WHERE telegram_id = $6`,
		u.FullName, u.Phone, string(u.Role), string(u.Status), u.GroupID, u.TelegramID)
	return err
}

func InsertUserFromMirror(ctx context.Context, database *sql.DB, u models.User) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx, `
INSERT INTO users (telegram_id, full_name, phone, role, status, group_id)
VALUES ($1, $2, $3, $4, $5, $6)`,
		u.TelegramID, u.FullName, u.Phone, string(u.Role), string(u.Status), u.GroupID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}
