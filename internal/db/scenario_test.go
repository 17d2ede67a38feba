//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/testutil/testdb"
)

// Полный путь: заявки → подтверждение с группой → расписание → задание →
// перекличка → оценки → сводка.
func TestSchoolDay_EndToEnd(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	// заявки
	if err := db.CreateUser(ctx, h.DB, 10, "Петрова Мария", "+79991234567", models.Teacher); err != nil {
		t.Fatal(err)
	}
	if err := db.CreateUser(ctx, h.DB, 11, "Смирнов Олег", "+79991234568", models.Student); err != nil {
		t.Fatal(err)
	}
	pending, err := db.GetPendingUsers(ctx, h.DB)
	if err != nil || len(pending) != 2 {
		t.Fatalf("ожидали 2 заявки: %v, %v", pending, err)
	}

	// подтверждение с назначением в группу
	gid, err := db.CreateGroup(ctx, h.DB, "Шахматы-1")
	if err != nil {
		t.Fatal(err)
	}
	for _, tgID := range []int64{10, 11} {
		if err := db.ApproveUser(ctx, h.DB, tgID); err != nil {
			t.Fatal(err)
		}
	}
	teacher, _ := db.GetUserByTelegramID(ctx, h.DB, 10)
	student, _ := db.GetUserByTelegramID(ctx, h.DB, 11)
	if err := db.AssignTeacherToGroup(ctx, h.DB, teacher.ID, gid); err != nil {
		t.Fatal(err)
	}
	if err := db.AssignUserToGroup(ctx, h.DB, student.ID, gid); err != nil {
		t.Fatal(err)
	}

	// расписание
	if _, err := db.AddScheduleItem(ctx, h.DB, models.ScheduleItem{
		GroupID: gid, DayOfWeek: models.Monday,
		StartTime: "16:00", EndTime: "17:30", Subject: "Шахматы",
		TeacherID: &teacher.ID,
	}); err != nil {
		t.Fatal(err)
	}
	sched, err := db.GetGroupSchedule(ctx, h.DB, gid)
	if err != nil || len(sched) != 1 || sched[0].TeacherName == nil {
		t.Fatalf("расписание с именем учителя: %v, %v", sched, err)
	}

	// задание
	if _, err := db.CreateAssignment(ctx, h.DB, models.Assignment{
		Title: "Этюды", GroupID: gid, TeacherID: teacher.ID,
		Deadline: time.Now().AddDate(0, 0, 7),
	}); err != nil {
		t.Fatal(err)
	}
	tasks, err := db.GetStudentAssignments(ctx, h.DB, student.ID)
	if err != nil || len(tasks) != 1 {
		t.Fatalf("ученик видит задание: %v, %v", tasks, err)
	}

	// перекличка и оценка
	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if err := db.MarkAttendance(ctx, h.DB, student.ID, gid, day, models.Present, teacher.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := db.AddGrade(ctx, h.DB, models.Grade{
		StudentID: student.ID, GroupID: gid, Subject: "Шахматы",
		Grade: 5, Date: day, TeacherID: teacher.ID,
	}); err != nil {
		t.Fatal(err)
	}

	stats, err := db.GetStudentAttendanceStats(ctx, h.DB, student.ID, gid)
	if err != nil || stats.Rate != 100 {
		t.Fatalf("посещаемость 100%%: %+v, %v", stats, err)
	}
	avg, err := db.GetAverageGrade(ctx, h.DB, student.ID, "Шахматы")
	if err != nil || avg != 5 {
		t.Fatalf("средний балл 5: %v, %v", avg, err)
	}

	sys, err := db.GetSystemStats(ctx, h.DB)
	if err != nil {
		t.Fatal(err)
	}
	if sys.ActiveUsers != 2 || sys.GroupsCount != 1 || sys.PendingUsers != 0 {
		t.Fatalf("сводка: %+v", sys)
	}
}
