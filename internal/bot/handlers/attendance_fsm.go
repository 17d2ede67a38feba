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

// attState — проход по списку учеников группы на сегодняшнюю дату.
// Список материализуется при старте: изменения состава группы во время
// переклички на текущий проход не влияют.
type attState struct {
	GroupID   int64
	TeacherID int64
	Date      time.Time
	Students  []models.User
	Cursor    int
	Marked    int
}

var attStates = fsm.NewStore[*attState]()

// StartAttendance — учитель выбирает группу для переклички.
func StartAttendance(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, teacherID int64) {
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
			tgbotapi.NewInlineKeyboardButtonData(g.Name, fmt.Sprintf("att_group_%d", g.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, "✅ Перекличка: выберите группу")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func InAttendance(chatID int64) bool {
	_, ok := attStates.Get(chatID)
	return ok
}

// HandleAttendanceCallback — att_group_/att_present/att_absent/att_late/att_back.
func HandleAttendanceCallback(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, cb *tgbotapi.CallbackQuery, teacherID int64) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	ack := func(note string) { _, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, note)) }

	switch {
	case strings.HasPrefix(data, "att_group_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "att_group_"), 10, 64)
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
		attStates.Set(chatID, &attState{
			GroupID:   groupID,
			TeacherID: teacherID,
			Date:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
			Students:  students,
		})
		ack("")
		promptAttendanceStudent(bot, chatID)

	case data == "att_present", data == "att_absent", data == "att_late":
		st, ok := attStates.Get(chatID)
		if !ok {
			return
		}
		status := map[string]models.AttendanceStatus{
			"att_present": models.Present,
			"att_absent":  models.Absent,
			"att_late":    models.Late,
		}[data]

		done, err := applyAttendanceInput(ctx, database, st, status)
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при сохранении отметки. Попробуйте ещё раз."))
			return
		}
		attStates.Set(chatID, st)
		ack("")
		if done {
			attStates.Clear(chatID)
			finishAttendance(ctx, bot, database, chatID, st)
			return
		}
		promptAttendanceStudent(bot, chatID)

	case data == "att_back":
		// досрочное завершение: уже сохранённые отметки остаются
		st, ok := attStates.Get(chatID)
		if !ok {
			return
		}
		attStates.Clear(chatID)
		ack("")
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Перекличка прервана. Сохранено отметок: %d из %d.", st.Marked, len(st.Students))))
	}
}

// applyAttendanceInput сохраняет отметку для текущего ученика и двигает
// курсор. done == true, когда отмечен последний.
func applyAttendanceInput(ctx context.Context, database *sql.DB, st *attState, status models.AttendanceStatus) (done bool, err error) {
	if st.Cursor >= len(st.Students) {
		return true, nil
	}
	student := st.Students[st.Cursor]
	if err := db.MarkAttendance(ctx, database, student.ID, st.GroupID, st.Date, status, st.TeacherID); err != nil {
		return false, err
	}
	st.Cursor++
	st.Marked++
	return st.Cursor >= len(st.Students), nil
}

// finishAttendance — итог переклички со сводкой за день.
func finishAttendance(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64, st *attState) {
	text := fmt.Sprintf("Перекличка завершена! Отмечено учеников: %d из %d.", st.Marked, len(st.Students))

	if recs, err := db.GetGroupAttendance(ctx, database, st.GroupID, st.Date); err == nil && len(recs) > 0 {
		var present, absent, late int
		for _, r := range recs {
			switch r.Status {
			case models.Present:
				present++
			case models.Absent:
				absent++
			case models.Late:
				late++
			}
		}
		text += fmt.Sprintf("\n\nПрисутствуют: %d\nОтсутствуют: %d\nОпоздали: %d", present, absent, late)
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, text))
}

func promptAttendanceStudent(bot *tgbotapi.BotAPI, chatID int64) {
	st, ok := attStates.Get(chatID)
	if !ok || st.Cursor >= len(st.Students) {
		return
	}
	student := st.Students[st.Cursor]

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Присутствует", "att_present"),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отсутствует", "att_absent"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏰ Опоздал", "att_late"),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Завершить", "att_back"),
		),
	)
	out := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Ученик %d из %d:\n%s", st.Cursor+1, len(st.Students), student.FullName))
	out.ReplyMarkup = markup
	_, _ = tg.Send(bot, out)
}
