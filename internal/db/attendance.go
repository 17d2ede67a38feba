package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/models"
)

// MarkAttendance — одна запись на (student, group, date); повторная отметка
// перезаписывает статус и отметившего.
func MarkAttendance(ctx context.Context, database *sql.DB, studentID, groupID int64, date time.Time, status models.AttendanceStatus, markedBy int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx, `
INSERT INTO attendance (date, group_id, student_id, status, marked_by)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (student_id, group_id, date)
DO UPDATE SET status = EXCLUDED.status, marked_by = EXCLUDED.marked_by, marked_at = NOW()`,
		date, groupID, studentID, string(status), markedBy)
	return err
}

// GetGroupAttendance — отметки группы за дату, с именами учеников.
func GetGroupAttendance(ctx context.Context, database *sql.DB, groupID int64, date time.Time) ([]models.AttendanceRecord, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, `
SELECT a.id, a.date, a.group_id, a.student_id, a.status, a.marked_by, a.marked_at
FROM attendance a
WHERE a.group_id = $1 AND a.date = $2
ORDER BY a.student_id`, groupID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.AttendanceRecord
	for rows.Next() {
		var r models.AttendanceRecord
		var st string
		if err := rows.Scan(&r.ID, &r.Date, &r.GroupID, &r.StudentID, &st, &r.MarkedBy, &r.MarkedAt); err != nil {
			return nil, err
		}
		r.Status = models.AttendanceStatus(st)
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStudentAttendanceStats — посещаемость ученика в группе.
func GetStudentAttendanceStats(ctx context.Context, database *sql.DB, studentID, groupID int64) (models.AttendanceStats, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var s models.AttendanceStats
	err := database.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE status = 'present') FROM attendance WHERE student_id = $1 AND group_id = $2`,
		studentID, groupID).Scan(&s.TotalClasses, &s.Present)
	if err != nil {
		return s, err
	}
	if s.TotalClasses > 0 {
		s.Rate = float64(s.Present) / float64(s.TotalClasses) * 100
	}
	return s, nil
}
