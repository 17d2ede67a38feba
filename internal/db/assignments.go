package db

import (
	"context"
	"database/sql"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/models"
)

func CreateAssignment(ctx context.Context, database *sql.DB, a models.Assignment) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx, `
INSERT INTO assignments (title, description, group_id, teacher_id, deadline)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		a.Title, a.Description, a.GroupID, a.TeacherID, a.Deadline).Scan(&id)
	return id, err
}

// GetGroupAssignments — задания группы по сроку сдачи.
func GetGroupAssignments(ctx context.Context, database *sql.DB, groupID int64) ([]models.Assignment, error) {
	return listAssignments(ctx, database, `
SELECT a.id, a.title, a.description, a.group_id, a.teacher_id, a.deadline, a.created_at, g.name, u.full_name
FROM assignments a
JOIN groups g ON a.group_id = g.id
JOIN users u ON a.teacher_id = u.id
WHERE a.group_id = $1
ORDER BY a.deadline`, groupID)
}

// GetTeacherAssignments — задания, созданные учителем.
func GetTeacherAssignments(ctx context.Context, database *sql.DB, teacherID int64) ([]models.Assignment, error) {
	return listAssignments(ctx, database, `
SELECT a.id, a.title, a.description, a.group_id, a.teacher_id, a.deadline, a.created_at, g.name, u.full_name
FROM assignments a
JOIN groups g ON a.group_id = g.id
JOIN users u ON a.teacher_id = u.id
WHERE a.teacher_id = $1
ORDER BY a.deadline`, teacherID)
}

// GetStudentAssignments — задания группы ученика; пусто, если ученик без группы.
func GetStudentAssignments(ctx context.Context, database *sql.DB, studentID int64) ([]models.Assignment, error) {
	student, err := GetUserByID(ctx, database, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil || student.GroupID == nil {
		return nil, nil
	}
	return GetGroupAssignments(ctx, database, *student.GroupID)
}

// DeleteAssignment — удалить может только создавший учитель.
// ErrNotFound, если задания нет или оно чужое.
func DeleteAssignment(ctx context.Context, database *sql.DB, assignmentID, teacherID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := database.ExecContext(ctx,
		`DELETE FROM assignments WHERE id = $1 AND teacher_id = $2`, assignmentID, teacherID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func listAssignments(ctx context.Context, database *sql.DB, query string, args ...any) ([]models.Assignment, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		var a models.Assignment
		if err := rows.Scan(&a.ID, &a.Title, &a.Description, &a.GroupID, &a.TeacherID, &a.Deadline, &a.CreatedAt, &a.GroupName, &a.TeacherName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
