package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
)

// EnsureAdmins заводит и активирует администраторов из конфигурации.
// Выполняется один раз на старте; в системе всегда есть хотя бы один
// активный админ, если ADMIN_IDS непуст.
func EnsureAdmins(ctx context.Context, database *sql.DB, adminIDs []int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	for _, id := range adminIDs {
		err := CreateUser(ctx, database, id, "Администратор", "+79990000000", "admin")
		if err != nil && !errors.Is(err, ErrDuplicate) {
			return err
		}
		if _, err := database.ExecContext(ctx,
			`UPDATE users SET status = 'active', role = 'admin' WHERE telegram_id = $1`, id); err != nil {
			return err
		}
	}
	return nil
}
