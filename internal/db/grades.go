package db

import (
	"context"
	"database/sql"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/models"
)

// AddGrade — оценка строго 1..5, иначе ErrGradeRange и строка не пишется.
func AddGrade(ctx context.Context, database *sql.DB, g models.Grade) (int64, error) {
	if g.Grade < 1 || g.Grade > 5 {
		return 0, ErrGradeRange
	}

	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO grades (student_id, group_id, subject, grade, date, teacher_id, comment)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		g.StudentID, g.GroupID, g.Subject, g.Grade, g.Date, g.TeacherID, g.Comment).Scan(&id)
	return id, err
}

// GetStudentGrades — оценки ученика, свежие сверху. subject == "" — по всем предметам.
func GetStudentGrades(ctx context.Context, database *sql.DB, studentID int64, subject string) ([]models.Grade, error) {
	query := `
SELECT g.id, g.student_id, g.group_id, g.subject, g.grade, g.date, g.teacher_id, g.comment, g.created_at, u.full_name
FROM grades g
JOIN users u ON g.student_id = u.id
WHERE g.student_id = $1`
	args := []any{studentID}
	if subject != "" {
		query += ` AND g.subject = $2`
		args = append(args, subject)
	}
	return listGrades(ctx, database, query+` ORDER BY g.date DESC`, args...)
}

// GetGroupGrades — оценки группы с именами учеников.
func GetGroupGrades(ctx context.Context, database *sql.DB, groupID int64, subject string) ([]models.Grade, error) {
	query := `
SELECT g.id, g.student_id, g.group_id, g.subject, g.grade, g.date, g.teacher_id, g.comment, g.created_at, u.full_name
FROM grades g
JOIN users u ON g.student_id = u.id
WHERE g.group_id = $1`
	args := []any{groupID}
	if subject != "" {
		query += ` AND g.subject = $2`
		args = append(args, subject)
	}
	return listGrades(ctx, database, query+` ORDER BY g.date DESC`, args...)
}

// GetAverageGrade — средний балл ученика; 0, если оценок нет.
func GetAverageGrade(ctx context.Context, database *sql.DB, studentID int64, subject string) (float64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT COALESCE(AVG(grade), 0) FROM grades WHERE student_id = $1`
	args := []any{studentID}
	if subject != "" {
		query += ` AND subject = $2`
		args = append(args, subject)
	}
	var avg float64
	err := database.QueryRowContext(ctx, query, args...).Scan(&avg)
	return avg, err
}

// GetGroupAverageGrade — средний балл группы; 0, если оценок нет.
func GetGroupAverageGrade(ctx context.Context, database *sql.DB, groupID int64, subject string) (float64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	query := `SELECT COALESCE(AVG(grade), 0) FROM grades WHERE group_id = $1`
	args := []any{groupID}
	if subject != "" {
		query += ` AND subject = $2`
		args = append(args, subject)
	}
	var avg float64
	err := database.QueryRowContext(ctx, query, args...).Scan(&avg)
	return avg, err
}

// GetGradeDistribution — сколько каких оценок в группе.
func GetGradeDistribution(ctx context.Context, database *sql.DB, groupID int64) (map[int]int, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx,
		`SELECT grade, COUNT(*) FROM grades WHERE group_id = $1 GROUP BY grade ORDER BY grade`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := make(map[int]int)
	for rows.Next() {
		var grade, count int
		if err := rows.Scan(&grade, &count); err != nil {
			return nil, err
		}
		dist[grade] = count
	}
	return dist, rows.Err()
}

func listGrades(ctx context.Context, database *sql.DB, query string, args ...any) ([]models.Grade, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Grade
	for rows.Next() {
		var g models.Grade
		if err := rows.Scan(&g.ID, &g.StudentID, &g.GroupID, &g.Subject, &g.Grade, &g.Date, &g.TeacherID, &g.Comment, &g.CreatedAt, &g.StudentName); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
