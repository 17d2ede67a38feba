package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/fsm"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

// grdState — выставление оценок по списку учеников группы, как и в
// перекличке, по материализованному списку.
type grdState struct {
	GroupID   int64
	TeacherID int64
	Subject   string
	Date      time.Time
	Students  []models.User
	Cursor    int
	Graded    int
}

var grdStates = fsm.NewStore[*grdState]()

// StartGrading — учитель выбирает группу для выставления оценок.
func StartGrading(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, teacherID int64) {
	groups, err := db.GetTeacherGroups(ctx, database, teacherID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка групп."))
		return
	}
	if len(groups) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "За вами не закреплено ни одной группы."))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(g.Name, fmt.Sprintf("grd_group_%d", g.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, "📊 Оценки: выберите группу")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func InGrading(chatID int64) bool {
	_, ok := grdStates.Get(chatID)
	return ok
}

// HandleGradeCallback — grd_group_/grd_subj_/grd_mark_1..grd_mark_5/grd_skip/grd_back.
func HandleGradeCallback(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, cb *tgbotapi.CallbackQuery, teacherID int64) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	ack := func(note string) { _, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, note)) }

	switch {
	case strings.HasPrefix(data, "grd_group_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grd_group_"), 10, 64)
		if err != nil {
			return
		}
		students, err := db.GetGroupStudents(ctx, database, groupID)
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка учеников."))
			return
		}
		if len(students) == 0 {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "В группе нет учеников."))
			ack("")
			return
		}
		now := time.Now()
		grdStates.Set(chatID, &grdState{
			GroupID:   groupID,
			TeacherID: teacherID,
			Date:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			Students:  students,
		})
		ack("")
		promptGradeSubject(ctx, bot, database, chatID)

	case strings.HasPrefix(data, "grd_subj_"):
		st, ok := grdStates.Get(chatID)
		if !ok || st.Subject != "" {
			return
		}
		subjID, err := strconv.ParseInt(strings.TrimPrefix(data, "grd_subj_"), 10, 64)
		if err != nil {
			return
		}
		subject, err := db.GetSubject(ctx, database, subjID)
		if err != nil || subject == nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Предмет не найден."))
			return
		}
		st.Subject = subject.Name
		grdStates.Set(chatID, st)
		ack("")
		promptGradeStudent(bot, chatID)

	case strings.HasPrefix(data, "grd_mark_"):
		st, ok := grdStates.Get(chatID)
		if !ok || st.Subject == "" {
			return
		}
		grade, err := strconv.Atoi(strings.TrimPrefix(data, "grd_mark_"))
		if err != nil {
			return
		}
		done, err := applyGradeInput(ctx, database, st, grade)
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при сохранении оценки. Попробуйте ещё раз."))
			return
		}
		grdStates.Set(chatID, st)
		ack("")
		if done {
			grdStates.Clear(chatID)
			finishGrading(ctx, bot, database, chatID, st)
			return
		}
		promptGradeStudent(bot, chatID)

	case data == "grd_skip":
		st, ok := grdStates.Get(chatID)
		if !ok {
			return
		}
		st.Cursor++
		grdStates.Set(chatID, st)
		ack("")
		if st.Cursor >= len(st.Students) {
			grdStates.Clear(chatID)
			finishGrading(ctx, bot, database, chatID, st)
			return
		}
		promptGradeStudent(bot, chatID)

	case data == "grd_back":
		st, ok := grdStates.Get(chatID)
		if !ok {
			return
		}
		grdStates.Clear(chatID)
		ack("")
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Выставление оценок прервано. Сохранено: %d из %d.", st.Graded, len(st.Students))))
	}
}

// applyGradeInput сохраняет оценку текущему ученику и двигает курсор.
func applyGradeInput(ctx context.Context, database *sql.DB, st *grdState, grade int) (done bool, err error) {
	if st.Cursor >= len(st.Students) {
		return true, nil
	}
	student := st.Students[st.Cursor]
	_, err = db.AddGrade(ctx, database, models.Grade{
		StudentID: student.ID,
		GroupID:   st.GroupID,
		Subject:   st.Subject,
		Grade:     grade,
		Date:      st.Date,
		TeacherID: st.TeacherID,
	})
	if err != nil {
		return false, err
	}
	st.Cursor++
	st.Graded++
	return st.Cursor >= len(st.Students), nil
}

// finishGrading — итог прохода плюс сводка по группе и предмету.
func finishGrading(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64, st *grdState) {
	var b strings.Builder
	fmt.Fprintf(&b, "Готово! Выставлено оценок: %d из %d.", st.Graded, len(st.Students))

	if avg, err := db.GetGroupAverageGrade(ctx, database, st.GroupID, st.Subject); err == nil && avg > 0 {
		fmt.Fprintf(&b, "\n\nСредний балл группы (%s): %.2f", st.Subject, avg)
	}
	if dist, err := db.GetGradeDistribution(ctx, database, st.GroupID); err == nil && len(dist) > 0 {
		b.WriteString("\nРаспределение оценок:")
		for mark := 5; mark >= 1; mark-- {
			if n := dist[mark]; n > 0 {
				fmt.Fprintf(&b, "\n  %d — %d шт.", mark, n)
			}
		}
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, b.String()))
}

func promptGradeSubject(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64) {
	subjects, err := db.GetAllSubjects(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка предметов."))
		return
	}
	if len(subjects) == 0 {
		grdStates.Clear(chatID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Предметы не заведены. Обратитесь к администратору."))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range subjects {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.Name, fmt.Sprintf("grd_subj_%d", s.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, "Выберите предмет:")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func promptGradeStudent(bot *tgbotapi.BotAPI, chatID int64) {
	st, ok := grdStates.Get(chatID)
	if !ok || st.Cursor >= len(st.Students) {
		return
	}
	student := st.Students[st.Cursor]

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("1", "grd_mark_1"),
			tgbotapi.NewInlineKeyboardButtonData("2", "grd_mark_2"),
			tgbotapi.NewInlineKeyboardButtonData("3", "grd_mark_3"),
			tgbotapi.NewInlineKeyboardButtonData("4", "grd_mark_4"),
			tgbotapi.NewInlineKeyboardButtonData("5", "grd_mark_5"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Пропустить", "grd_skip"),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Завершить", "grd_back"),
		),
	)
	out := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"%s (%s)\nУченик %d из %d. Выберите оценку:",
		student.FullName, st.Subject, st.Cursor+1, len(st.Students)))
	out.ReplyMarkup = markup
	_, _ = tg.Send(bot, out)
}
