package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate — нарушение уникальности (telegram_id, имя группы, имя предмета).
	ErrDuplicate = errors.New("запись уже существует")
	// ErrNotFound — ссылка на несуществующего пользователя/группу/предмет.
	ErrNotFound = errors.New("запись не найдена")
	// ErrGradeRange — оценка вне диапазона 1..5.
	ErrGradeRange = errors.New("оценка должна быть от 1 до 5")
)

// isUniqueViolation — Postgres 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
