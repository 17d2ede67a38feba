//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/testutil/testdb"
)

func TestSchedule_OrderedByWeekday(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	gid, err := db.CreateGroup(ctx, h.DB, "Группа А")
	if err != nil {
		t.Fatal(err)
	}

	// вставляем вразнобой
	for _, it := range []models.ScheduleItem{
		{GroupID: gid, DayOfWeek: models.Friday, StartTime: "10:00", EndTime: "11:00", Subject: "Физика"},
		{GroupID: gid, DayOfWeek: models.Monday, StartTime: "14:00", EndTime: "15:00", Subject: "Математика"},
		{GroupID: gid, DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00", Subject: "Чтение"},
	} {
		if _, err := db.AddScheduleItem(ctx, h.DB, it); err != nil {
			t.Fatal(err)
		}
	}

	items, err := db.GetGroupSchedule(ctx, h.DB, gid)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 3 {
		t.Fatalf("ожидали 3 занятия, получили %d", len(items))
	}
	want := []string{"Чтение", "Математика", "Физика"}
	for i, it := range items {
		if it.Subject != want[i] {
			t.Fatalf("порядок занятий: ожидали %v, получили %v (поз. %d = %s)", want, items, i, it.Subject)
		}
	}

	mon, err := db.GetScheduleByDay(ctx, h.DB, gid, models.Monday)
	if err != nil || len(mon) != 2 {
		t.Fatalf("на понедельник 2 занятия: %v, %v", mon, err)
	}

	if err := db.DeleteScheduleItem(ctx, h.DB, items[0].ID); err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteScheduleItem(ctx, h.DB, items[0].ID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("повторное удаление: ожидали ErrNotFound, получили %v", err)
	}
}

func TestAssignments_OwnershipAndStudentView(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	teacherID := seedActiveUser(t, ctx, h, 600, "Учитель", models.Teacher)
	otherID := seedActiveUser(t, ctx, h, 601, "Другой учитель", models.Teacher)
	studentID := seedActiveUser(t, ctx, h, 602, "Ученик", models.Student)

	gid, err := db.CreateGroup(ctx, h.DB, "Группа Б")
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().AddDate(0, 0, 7).Truncate(time.Second)
	aid, err := db.CreateAssignment(ctx, h.DB, models.Assignment{
		Title:     "Домашнее задание",
		GroupID:   gid,
		TeacherID: teacherID,
		Deadline:  deadline,
	})
	if err != nil {
		t.Fatal(err)
	}

	// ученик без группы заданий не видит
	got, err := db.GetStudentAssignments(ctx, h.DB, studentID)
	if err != nil || len(got) != 0 {
		t.Fatalf("ученик без группы: ожидали пусто, получили %v, %v", got, err)
	}

	if err := db.AssignUserToGroup(ctx, h.DB, studentID, gid); err != nil {
		t.Fatal(err)
	}
	got, err = db.GetStudentAssignments(ctx, h.DB, studentID)
	if err != nil || len(got) != 1 || got[0].Title != "Домашнее задание" {
		t.Fatalf("ученик в группе должен видеть задание: %v, %v", got, err)
	}
	if got[0].TeacherName == nil || *got[0].TeacherName != "Учитель" {
		t.Fatalf("в задании нет имени учителя: %#v", got[0])
	}

	// чужое задание удалить нельзя
	if err := db.DeleteAssignment(ctx, h.DB, aid, otherID); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("удаление чужого задания: ожидали ErrNotFound, получили %v", err)
	}
	if err := db.DeleteAssignment(ctx, h.DB, aid, teacherID); err != nil {
		t.Fatal(err)
	}
}

func TestAttendance_UpsertOnRemark(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	teacherID := seedActiveUser(t, ctx, h, 700, "Учитель", models.Teacher)
	studentID := seedActiveUser(t, ctx, h, 701, "Ученик", models.Student)
	gid, err := db.CreateGroup(ctx, h.DB, "Группа В")
	if err != nil {
		t.Fatal(err)
	}

	date := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	if err := db.MarkAttendance(ctx, h.DB, studentID, gid, date, models.Absent, teacherID); err != nil {
		t.Fatal(err)
	}
	// повторная отметка за ту же дату перезаписывает, не плодит строки
	if err := db.MarkAttendance(ctx, h.DB, studentID, gid, date, models.Present, teacherID); err != nil {
		t.Fatal(err)
	}

	recs, err := db.GetGroupAttendance(ctx, h.DB, gid, date)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Status != models.Present {
		t.Fatalf("ожидали одну запись present, получили %v", recs)
	}

	stats, err := db.GetStudentAttendanceStats(ctx, h.DB, studentID, gid)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalClasses != 1 || stats.Present != 1 || stats.Rate != 100 {
		t.Fatalf("статистика: %+v", stats)
	}
}

func TestGrades_RangeAndAggregates(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	teacherID := seedActiveUser(t, ctx, h, 800, "Учитель", models.Teacher)
	studentID := seedActiveUser(t, ctx, h, 801, "Ученик", models.Student)
	gid, err := db.CreateGroup(ctx, h.DB, "Группа Г")
	if err != nil {
		t.Fatal(err)
	}

	base := models.Grade{
		StudentID: studentID,
		GroupID:   gid,
		Subject:   "Математика",
		Date:      time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC),
		TeacherID: teacherID,
	}

	for _, bad := range []int{0, 6, -1} {
		g := base
		g.Grade = bad
		if _, err := db.AddGrade(ctx, h.DB, g); !errors.Is(err, db.ErrGradeRange) {
			t.Fatalf("оценка %d: ожидали ErrGradeRange, получили %v", bad, err)
		}
	}

	for _, ok := range []int{5, 3} {
		g := base
		g.Grade = ok
		if _, err := db.AddGrade(ctx, h.DB, g); err != nil {
			t.Fatal(err)
		}
	}

	avg, err := db.GetAverageGrade(ctx, h.DB, studentID, "")
	if err != nil {
		t.Fatal(err)
	}
	if avg != 4 {
		t.Fatalf("средний балл: ожидали 4, получили %v", avg)
	}

	// фильтр по предмету
	avg, err = db.GetAverageGrade(ctx, h.DB, studentID, "Физика")
	if err != nil || avg != 0 {
		t.Fatalf("по чужому предмету средний 0: %v, %v", avg, err)
	}

	dist, err := db.GetGradeDistribution(ctx, h.DB, gid)
	if err != nil {
		t.Fatal(err)
	}
	if dist[5] != 1 || dist[3] != 1 {
		t.Fatalf("распределение: %v", dist)
	}

	grades, err := db.GetStudentGrades(ctx, h.DB, studentID, "Математика")
	if err != nil || len(grades) != 2 {
		t.Fatalf("оценок по математике 2: %v, %v", grades, err)
	}
}

func TestSystemStats(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	seedActiveUser(t, ctx, h, 900, "Учитель", models.Teacher)
	seedActiveUser(t, ctx, h, 901, "Ученик", models.Student)
	if err := db.CreateUser(ctx, h.DB, 902, "Заявка", "+79990000001", models.Student); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateGroup(ctx, h.DB, "Группа Д"); err != nil {
		t.Fatal(err)
	}

	stats, err := db.GetSystemStats(ctx, h.DB)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalUsers != 3 || stats.ActiveUsers != 2 || stats.PendingUsers != 1 {
		t.Fatalf("пользователи: %+v", stats)
	}
	// pending-ученик в счётчик активных учеников не входит
	if stats.StudentsCount != 1 || stats.TeachersCount != 1 || stats.GroupsCount != 1 {
		t.Fatalf("роли и группы: %+v", stats)
	}
}
