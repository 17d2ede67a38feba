package db

import (
	"context"
	"database/sql"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/models"
)

// AddScheduleItem — пересечения по времени допускаются и не проверяются.
func AddScheduleItem(ctx context.Context, database *sql.DB, it models.ScheduleItem) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO schedule (group_id, day_of_week, start_time, end_time, subject, teacher_id)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		it.GroupID, string(it.DayOfWeek), it.StartTime, it.EndTime, it.Subject, it.TeacherID).Scan(&id)
	return id, err
}

const scheduleOrder = `
ORDER BY
  CASE s.day_of_week
    WHEN 'monday' THEN 1
    WHEN 'tuesday' THEN 2
    WHEN 'wednesday' THEN 3
    WHEN 'thursday' THEN 4
    WHEN 'friday' THEN 5
    WHEN 'saturday' THEN 6
    WHEN 'sunday' THEN 7
  END,
  s.start_time`

// GetGroupSchedule — расписание группы, дни по порядку недели.
func GetGroupSchedule(ctx context.Context, database *sql.DB, groupID int64) ([]models.ScheduleItem, error) {
	return listSchedule(ctx, database, `
SELECT s.id, s.group_id, s.day_of_week, s.start_time, s.end_time, s.subject, s.teacher_id, u.full_name
FROM schedule s
LEFT JOIN users u ON s.teacher_id = u.id
WHERE s.group_id = $1`+scheduleOrder, groupID)
}

// GetScheduleByDay — расписание группы на конкретный день.
func GetScheduleByDay(ctx context.Context, database *sql.DB, groupID int64, day models.Weekday) ([]models.ScheduleItem, error) {
	return listSchedule(ctx, database, `
SELECT s.id, s.group_id, s.day_of_week, s.start_time, s.end_time, s.subject, s.teacher_id, u.full_name
FROM schedule s
LEFT JOIN users u ON s.teacher_id = u.id
WHERE s.group_id = $1 AND s.day_of_week = $2
ORDER BY s.start_time`, groupID, string(day))
}

func DeleteScheduleItem(ctx context.Context, database *sql.DB, id int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := database.ExecContext(ctx, `DELETE FROM schedule WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func listSchedule(ctx context.Context, database *sql.DB, query string, args ...any) ([]models.ScheduleItem, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ScheduleItem
	for rows.Next() {
		var it models.ScheduleItem
		var day string
		if err := rows.Scan(&it.ID, &it.GroupID, &day, &it.StartTime, &it.EndTime, &it.Subject, &it.TeacherID, &it.TeacherName); err != nil {
			return nil, err
		}
		it.DayOfWeek = models.Weekday(day)
		out = append(out, it)
	}
	return out, rows.Err()
}
