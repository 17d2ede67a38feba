package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

// ShowMySchedule — расписание группы ученика.
func ShowMySchedule(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64, student *models.User) {
	if student.GroupID == nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Вы пока не зачислены в группу."))
		return
	}
	items, err := db.GetGroupSchedule(ctx, database, *student.GroupID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении расписания."))
		return
	}

	text := formatSchedule(items)
	today := models.WeekdayFromTime(time.Now().Weekday())
	if todays, err := db.GetScheduleByDay(ctx, database, *student.GroupID, today); err == nil && len(todays) > 0 {
		var b strings.Builder
		b.WriteString("Сегодня:\n")
		for _, it := range todays {
			fmt.Fprintf(&b, "  %s-%s %s\n", it.StartTime, it.EndTime, it.Subject)
		}
		text = b.String() + "\n" + text
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, text))
}

// ShowMyGrades — оценки ученика со средним баллом.
func ShowMyGrades(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64, student *models.User) {
	grades, err := db.GetStudentGrades(ctx, database, student.ID, "")
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении оценок."))
		return
	}
	if len(grades) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "У вас пока нет оценок."))
		return
	}
	avg, err := db.GetAverageGrade(ctx, database, student.ID, "")
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении оценок."))
		return
	}

	var b strings.Builder
	b.WriteString("📊 Ваши оценки\n\n")
	// свежие сверху, показываем последние 15
	shown := grades
	if len(shown) > 15 {
		shown = shown[:15]
	}
	for _, g := range shown {
		fmt.Fprintf(&b, "%s — %s: %d", g.Date.Format("02.01.2006"), g.Subject, g.Grade)
		if g.Comment != nil && *g.Comment != "" {
			fmt.Fprintf(&b, " (%s)", *g.Comment)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\nСредний балл: %.2f", avg)
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, b.String()))
}

// ShowMyTasks — задания группы ученика.
func ShowMyTasks(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64, student *models.User) {
	assignments, err := db.GetStudentAssignments(ctx, database, student.ID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении заданий."))
		return
	}
	if len(assignments) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Заданий пока нет."))
		return
	}

	var b strings.Builder
	b.WriteString("📝 Задания\n")
	for i, a := range assignments {
		fmt.Fprintf(&b, "\n%d. %s\nСрок сдачи: %s\n", i+1, a.Title, a.Deadline.Format("02.01.2006"))
		if a.Description != "" {
			fmt.Fprintf(&b, "%s\n", a.Description)
		}
		if a.TeacherName != nil {
			fmt.Fprintf(&b, "Учитель: %s\n", *a.TeacherName)
		}
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, b.String()))
}

// ShowMyAttendance — сводка посещаемости ученика в его группе.
func ShowMyAttendance(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64, student *models.User) {
	if student.GroupID == nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Вы пока не зачислены в группу."))
		return
	}
	stats, err := db.GetStudentAttendanceStats(ctx, database, student.ID, *student.GroupID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении посещаемости."))
		return
	}
	if stats.TotalClasses == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Отметок посещаемости пока нет."))
		return
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"✅ Посещаемость\n\nЗанятий отмечено: %d\nПрисутствовали: %d\nПосещаемость: %.1f%%",
		stats.TotalClasses, stats.Present, stats.Rate)))
}
