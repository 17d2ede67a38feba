package db

import (
	"context"
	"database/sql"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/models"
)

// GetSystemStats — агрегаты независимыми запросами; между ними возможны
// конкурентные записи, для отчётной сводки это приемлемо.
func GetSystemStats(ctx context.Context, database *sql.DB) (models.SystemStats, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var s models.SystemStats
	counts := []struct {
		query string
		dst   *int
	}{
		{`SELECT COUNT(*) FROM users`, &s.TotalUsers},
		{`SELECT COUNT(*) FROM users WHERE status = 'active'`, &s.ActiveUsers},
		{`SELECT COUNT(*) FROM users WHERE status = 'pending'`, &s.PendingUsers},
		{`SELECT COUNT(*) FROM users WHERE role = 'student' AND status = 'active'`, &s.StudentsCount},
		{`SELECT COUNT(*) FROM users WHERE role = 'teacher' AND status = 'active'`, &s.TeachersCount},
		{`SELECT COUNT(*) FROM groups`, &s.GroupsCount},
	}
	for _, c := range counts {
		if err := database.QueryRowContext(ctx, c.query).Scan(c.dst); err != nil {
			return s, err
		}
	}
	return s, nil
}
