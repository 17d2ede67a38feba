//go:build testutil
// +build testutil

package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/testutil/testdb"
)

func seedClass(t *testing.T, ctx context.Context, h *testdb.DBHandle, n int) (teacherID, groupID int64, students []models.User) {
	t.Helper()

	if err := db.CreateUser(ctx, h.DB, 1000, "Учитель", "+79990000000", models.Teacher); err != nil {
		t.Fatal(err)
	}
	if err := db.ApproveUser(ctx, h.DB, 1000); err != nil {
		t.Fatal(err)
	}
	teacher, _ := db.GetUserByTelegramID(ctx, h.DB, 1000)

	gid, err := db.CreateGroup(ctx, h.DB, "Группа")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.AssignTeacherToGroup(ctx, h.DB, teacher.ID, gid); err != nil {
		t.Fatal(err)
	}

	names := []string{"Антонов", "Борисов", "Викторов", "Громов"}
	for i := 0; i < n; i++ {
		tgID := int64(2000 + i)
		if err := db.CreateUser(ctx, h.DB, tgID, names[i], "+79990000001", models.Student); err != nil {
			t.Fatal(err)
		}
		if err := db.ApproveUser(ctx, h.DB, tgID); err != nil {
			t.Fatal(err)
		}
		u, _ := db.GetUserByTelegramID(ctx, h.DB, tgID)
		if err := db.AssignUserToGroup(ctx, h.DB, u.ID, gid); err != nil {
			t.Fatal(err)
		}
	}

	list, err := db.GetGroupStudents(ctx, h.DB, gid)
	if err != nil || len(list) != n {
		t.Fatalf("seed: ожидали %d учеников, получили %v, %v", n, list, err)
	}
	return teacher.ID, gid, list
}

func TestApplyAttendanceInput_FullPass(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	teacherID, gid, students := seedClass(t, ctx, h, 3)
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	st := &attState{GroupID: gid, TeacherID: teacherID, Date: date, Students: students}

	statuses := []models.AttendanceStatus{models.Present, models.Absent, models.Late}
	for i, s := range statuses {
		done, err := applyAttendanceInput(ctx, h.DB, st, s)
		if err != nil {
			t.Fatal(err)
		}
		wantDone := i == len(statuses)-1
		if done != wantDone {
			t.Fatalf("шаг %d: done=%v, ожидали %v", i, done, wantDone)
		}
	}
	if st.Marked != 3 || st.Cursor != 3 {
		t.Fatalf("курсор/счётчик: %+v", st)
	}

	recs, err := db.GetGroupAttendance(ctx, h.DB, gid, date)
	if err != nil || len(recs) != 3 {
		t.Fatalf("в базе 3 отметки: %v, %v", recs, err)
	}
}

func TestApplyAttendanceInput_EarlyStopKeepsRows(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	teacherID, gid, students := seedClass(t, ctx, h, 3)
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	st := &attState{GroupID: gid, TeacherID: teacherID, Date: date, Students: students}

	// отмечаем только первого и бросаем перекличку
	if _, err := applyAttendanceInput(ctx, h.DB, st, models.Present); err != nil {
		t.Fatal(err)
	}

	recs, err := db.GetGroupAttendance(ctx, h.DB, gid, date)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].StudentID != students[0].ID {
		t.Fatalf("ранний выход сохраняет уже сделанные отметки: %v", recs)
	}
}

func TestApplyGradeInput_CursorAndRange(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	teacherID, gid, students := seedClass(t, ctx, h, 2)
	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	st := &grdState{GroupID: gid, TeacherID: teacherID, Subject: "Математика", Date: date, Students: students}

	// вне диапазона: курсор не двигается, строка не пишется
	if _, err := applyGradeInput(ctx, h.DB, st, 6); err == nil {
		t.Fatal("оценка 6 должна отклоняться")
	}
	if st.Cursor != 0 || st.Graded != 0 {
		t.Fatalf("после ошибки курсор не должен двигаться: %+v", st)
	}

	done, err := applyGradeInput(ctx, h.DB, st, 5)
	if err != nil || done {
		t.Fatalf("первый из двух: done=%v, err=%v", done, err)
	}
	done, err = applyGradeInput(ctx, h.DB, st, 4)
	if err != nil || !done {
		t.Fatalf("последний: done=%v, err=%v", done, err)
	}

	grades, err := db.GetGroupGrades(ctx, h.DB, gid, "Математика")
	if err != nil || len(grades) != 2 {
		t.Fatalf("в базе 2 оценки: %v, %v", grades, err)
	}
}
