package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/models"
)

// CreateGroup создаёт пустую группу. ErrDuplicate при повторном имени.
func CreateGroup(ctx context.Context, database *sql.DB, name string) (int64, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var id int64
	err := database.QueryRowContext(ctx,
		`INSERT INTO groups (name) VALUES ($1) RETURNING id`, name).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrDuplicate
	}
	return id, err
}

// GetGroup — nil, nil если группы нет.
func GetGroup(ctx context.Context, database *sql.DB, id int64) (*models.Group, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var g models.Group
	err := database.QueryRowContext(ctx,
		`SELECT id, name, teacher_id, created_at FROM groups WHERE id = $1`, id).
		Scan(&g.ID, &g.Name, &g.TeacherID, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGroupByName — поиск по натуральному ключу (для pull-синхронизации).
func GetGroupByName(ctx context.Context, database *sql.DB, name string) (*models.Group, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	var g models.Group
	err := database.QueryRowContext(ctx,
		`SELECT id, name, teacher_id, created_at FROM groups WHERE name = $1`, name).
		Scan(&g.ID, &g.Name, &g.TeacherID, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// GetAllGroups — все группы по имени.
func GetAllGroups(ctx context.Context, database *sql.DB) ([]models.Group, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx,
		`SELECT id, name, teacher_id, created_at FROM groups ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.TeacherID, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GetGroupStudents — активные ученики группы.
func GetGroupStudents(ctx context.Context, database *sql.DB, groupID int64) ([]models.User, error) {
	return listUsers(ctx, database,
		`SELECT `+userCols+` FROM users WHERE group_id = $1 AND role = 'student' AND status = 'active' ORDER BY full_name`,
		groupID)
}

// GetGroupWithDetails собирает группу, учителя и список учеников.
// nil, nil — если группы нет.
func GetGroupWithDetails(ctx context.Context, database *sql.DB, groupID int64) (*models.GroupDetails, error) {
	g, err := GetGroup(ctx, database, groupID)
	if err != nil || g == nil {
		return nil, err
	}

	d := &models.GroupDetails{Group: *g}
	if g.TeacherID != nil {
		d.Teacher, err = GetUserByID(ctx, database, *g.TeacherID)
		if err != nil {
			return nil, err
		}
	}
	d.Students, err = GetGroupStudents(ctx, database, groupID)
	if err != nil {
		return nil, err
	}
	d.StudentsCount = len(d.Students)
	return d, nil
}

// GetTeacherGroups — группы, закреплённые за учителем.
func GetTeacherGroups(ctx context.Context, database *sql.DB, teacherID int64) ([]models.Group, error) {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	rows, err := database.QueryContext(ctx,
		`SELECT id, name, teacher_id, created_at FROM groups WHERE teacher_id = $1 ORDER BY name`, teacherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Group
	for rows.Next() {
		var g models.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.TeacherID, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// AssignTeacherToGroup перезаписывает teacher_id группы.
// ErrNotFound — если нет учителя или группы.
func AssignTeacherToGroup(ctx context.Context, database *sql.DB, teacherID, groupID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if u, err := GetUserByID(ctx, database, teacherID); err != nil {
		return err
	} else if u == nil {
		return fmt.Errorf("учитель %d: %w", teacherID, ErrNotFound)
	}

	res, err := database.ExecContext(ctx,
		`UPDATE groups SET teacher_id = $1 WHERE id = $2`, teacherID, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("группа %d: %w", groupID, ErrNotFound)
	}
	return nil
}

// RemoveTeacherFromGroup снимает учителя с группы (идемпотентно).
func RemoveTeacherFromGroup(ctx context.Context, database *sql.DB, groupID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	_, err := database.ExecContext(ctx,
		`UPDATE groups SET teacher_id = NULL WHERE id = $1`, groupID)
	return err
}

// UpdateGroupName переименовывает группу. ErrDuplicate при занятом имени.
func UpdateGroupName(ctx context.Context, database *sql.DB, groupID int64, name string) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	res, err := database.ExecContext(ctx,
		`UPDATE groups SET name = $1 WHERE id = $2`, name, groupID)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGroup сначала обнуляет group_id у участников, затем удаляет группу.
// Порядок важен: при обрыве между шагами висячих ссылок не остаётся.
func DeleteGroup(ctx context.Context, database *sql.DB, groupID int64) error {
	ctx, cancel := ctxutil.WithDBTimeout(ctx)
	defer cancel()

	if _, err := database.ExecContext(ctx,
		`UPDATE users SET group_id = NULL WHERE group_id = $1`, groupID); err != nil {
		return err
	}
	res, err := database.ExecContext(ctx,
		`DELETE FROM groups WHERE id = $1`, groupID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
