//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/testutil/testdb"
)

// seedActiveUser — активный пользователь для тестов, возвращает внутренний ID.
func seedActiveUser(t *testing.T, ctx context.Context, h *testdb.DBHandle, tgID int64, name string, role models.Role) int64 {
	t.Helper()
	if err := db.CreateUser(ctx, h.DB, tgID, name, "+79990000000", role); err != nil {
		t.Fatal(err)
	}
	if err := db.ApproveUser(ctx, h.DB, tgID); err != nil {
		t.Fatal(err)
	}
	u, err := db.GetUserByTelegramID(ctx, h.DB, tgID)
	if err != nil || u == nil {
		t.Fatalf("seed user %d: %v", tgID, err)
	}
	return u.ID
}

func TestGroups_DuplicateName(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if _, err := db.CreateGroup(ctx, h.DB, "Группа А"); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateGroup(ctx, h.DB, "Группа А"); !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("ожидали ErrDuplicate, получили %v", err)
	}

	gid, err := db.CreateGroup(ctx, h.DB, "Группа Б")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateGroupName(ctx, h.DB, gid, "Группа А"); !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("переименование в занятое имя: ожидали ErrDuplicate, получили %v", err)
	}
}

func TestGroups_TeacherAssignment(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	teacherID := seedActiveUser(t, ctx, h, 300, "Учитель", models.Teacher)
	gid, err := db.CreateGroup(ctx, h.DB, "Группа В")
	if err != nil {
		t.Fatal(err)
	}

	if err := db.AssignTeacherToGroup(ctx, h.DB, teacherID, gid); err != nil {
		t.Fatal(err)
	}
	groups, err := db.GetTeacherGroups(ctx, h.DB, teacherID)
	if err != nil || len(groups) != 1 || groups[0].ID != gid {
		t.Fatalf("у учителя должна быть 1 группа: %v, %v", groups, err)
	}

	// несуществующий учитель
	if err := db.AssignTeacherToGroup(ctx, h.DB, 9999, gid); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound по учителю, получили %v", err)
	}

	if err := db.RemoveTeacherFromGroup(ctx, h.DB, gid); err != nil {
		t.Fatal(err)
	}
	g, _ := db.GetGroup(ctx, h.DB, gid)
	if g.TeacherID != nil {
		t.Fatal("после снятия учителя teacher_id должен быть NULL")
	}
}

func TestGroups_DeleteDetachesMembers(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	studentID := seedActiveUser(t, ctx, h, 400, "Ученик", models.Student)
	gid, err := db.CreateGroup(ctx, h.DB, "Группа Г")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AssignUserToGroup(ctx, h.DB, studentID, gid); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteGroup(ctx, h.DB, gid); err != nil {
		t.Fatal(err)
	}

	g, err := db.GetGroup(ctx, h.DB, gid)
	if err != nil || g != nil {
		t.Fatalf("группа должна исчезнуть: %v, %v", g, err)
	}
	// ученик остался, но без группы
	u, err := db.GetUserByID(ctx, h.DB, studentID)
	if err != nil || u == nil {
		t.Fatalf("ученик должен остаться: %v, %v", u, err)
	}
	if u.GroupID != nil {
		t.Fatal("после удаления группы group_id участников должен быть NULL")
	}

	if err := db.DeleteGroup(ctx, h.DB, gid); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("повторное удаление: ожидали ErrNotFound, получили %v", err)
	}
}

func TestGroups_Details(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	teacherID := seedActiveUser(t, ctx, h, 500, "Учитель", models.Teacher)
	s1 := seedActiveUser(t, ctx, h, 501, "Ученик 1", models.Student)
	s2 := seedActiveUser(t, ctx, h, 502, "Ученик 2", models.Student)

	gid, err := db.CreateGroup(ctx, h.DB, "Группа Д")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AssignTeacherToGroup(ctx, h.DB, teacherID, gid); err != nil {
		t.Fatal(err)
	}
	for _, sid := range []int64{s1, s2} {
		if err := db.AssignUserToGroup(ctx, h.DB, sid, gid); err != nil {
			t.Fatal(err)
		}
	}

	d, err := db.GetGroupWithDetails(ctx, h.DB, gid)
	if err != nil {
		t.Fatal(err)
	}
	if d == nil || d.Teacher == nil || d.Teacher.ID != teacherID {
		t.Fatalf("в деталях нет учителя: %#v", d)
	}
	if d.StudentsCount != 2 || len(d.Students) != 2 {
		t.Fatalf("ожидали 2 учеников, получили %d", d.StudentsCount)
	}

	none, err := db.GetGroupWithDetails(ctx, h.DB, 9999)
	if err != nil || none != nil {
		t.Fatalf("отсутствующая группа — nil, nil; получили %v, %v", none, err)
	}
}
