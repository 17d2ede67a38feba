package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/bot/shared/fsmutil"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/fsm"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

type schStep int

const (
	schEnteringTime schStep = iota + 1
	schChoosingSubject
)

type schState struct {
	Step      schStep
	GroupID   int64
	Day       models.Weekday
	StartTime string
	EndTime   string
}

var schStates = fsm.NewStore[*schState]()

// StartScheduleManage — выбор группы для управления расписанием.
func StartScheduleManage(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64) {
	groups, err := db.GetAllGroups(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка групп."))
		return
	}
	if len(groups) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Сначала создайте группу."))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(g.Name, fmt.Sprintf("sch_grp_%d", g.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, "📅 Расписание: выберите группу")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func InScheduleDialog(chatID int64) bool {
	_, ok := schStates.Get(chatID)
	return ok
}

// HandleScheduleCallback — префикс sch_.
func HandleScheduleCallback(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	ack := func(note string) { _, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, note)) }

	switch {
	case strings.HasPrefix(data, "sch_grp_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "sch_grp_"), 10, 64)
		if err != nil {
			return
		}
		showGroupScheduleAdmin(ctx, bot, database, chatID, groupID)
		ack("")

	case strings.HasPrefix(data, "sch_add_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "sch_add_"), 10, 64)
		if err != nil {
			return
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, d := range models.Weekdays {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(models.WeekdayTitle(d),
					fmt.Sprintf("sch_day_%d_%s", groupID, d)),
			))
		}
		rows = append(rows, fsmutil.BackCancelRow(fmt.Sprintf("sch_back_%d", groupID), "sch_cancel"))
		out := tgbotapi.NewMessage(chatID, "Выберите день недели:")
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		_, _ = tg.Send(bot, out)
		ack("")

	case strings.HasPrefix(data, "sch_day_"):
		parts := strings.SplitN(strings.TrimPrefix(data, "sch_day_"), "_", 2)
		if len(parts) != 2 {
			return
		}
		groupID, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil {
			return
		}
		schStates.Set(chatID, &schState{
			Step:    schEnteringTime,
			GroupID: groupID,
			Day:     models.Weekday(parts[1]),
		})
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите время занятия в формате ЧЧ:ММ-ЧЧ:ММ (например 14:00-15:30):"))
		ack("")

	case strings.HasPrefix(data, "sch_subj_"):
		st, ok := schStates.Get(chatID)
		if !ok || st.Step != schChoosingSubject {
			return
		}
		subjID, err := strconv.ParseInt(strings.TrimPrefix(data, "sch_subj_"), 10, 64)
		if err != nil {
			return
		}
		subject, err := db.GetSubject(ctx, database, subjID)
		if err != nil || subject == nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Предмет не найден."))
			return
		}
		finishScheduleItem(ctx, bot, database, chatID, st, subject.Name)
		ack("")

	case strings.HasPrefix(data, "sch_delmenu_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "sch_delmenu_"), 10, 64)
		if err != nil {
			return
		}
		items, err := db.GetGroupSchedule(ctx, database, groupID)
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении расписания."))
			return
		}
		if len(items) == 0 {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Расписание пустое."))
			return
		}
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, it := range items {
			label := fmt.Sprintf("%s %s-%s %s", models.WeekdayTitle(it.DayOfWeek), it.StartTime, it.EndTime, it.Subject)
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 "+label, fmt.Sprintf("sch_del_%d", it.ID)),
			))
		}
		out := tgbotapi.NewMessage(chatID, "Выберите занятие для удаления:")
		out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
		_, _ = tg.Send(bot, out)
		ack("")

	case strings.HasPrefix(data, "sch_del_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, "sch_del_"), 10, 64)
		if err != nil {
			return
		}
		if err := db.DeleteScheduleItem(ctx, database, id); err != nil {
			ack("Занятие уже удалено")
			return
		}
		ack("Занятие удалено")

	case strings.HasPrefix(data, "sch_back_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "sch_back_"), 10, 64)
		if err != nil {
			return
		}
		schStates.Clear(chatID)
		showGroupScheduleAdmin(ctx, bot, database, chatID, groupID)
		ack("")

	case data == "sch_cancel":
		schStates.Clear(chatID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Действие отменено."))
		ack("")
	}
}

// HandleScheduleText — ввод времени занятия.
func HandleScheduleText(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st, ok := schStates.Get(chatID)
	if !ok {
		return
	}

	switch st.Step {
	case schEnteringTime:
		start, end, ok := parseTimeRange(msg.Text)
		if !ok {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Неверный формат. Введите время как ЧЧ:ММ-ЧЧ:ММ, начало раньше конца:"))
			return
		}
		st.StartTime = start
		st.EndTime = end
		st.Step = schChoosingSubject
		schStates.Set(chatID, st)
		promptScheduleSubject(ctx, bot, database, chatID)

	case schChoosingSubject:
		name := strings.TrimSpace(msg.Text)
		if name == "" {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите название предмета:"))
			return
		}
		finishScheduleItem(ctx, bot, database, chatID, st, name)
	}
}

func promptScheduleSubject(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64) {
	subjects, err := db.GetAllSubjects(ctx, database)
	if err != nil || len(subjects) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите название предмета:"))
		return
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range subjects {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.Name, fmt.Sprintf("sch_subj_%d", s.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, "Выберите предмет (или введите название вручную):")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func finishScheduleItem(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64, st *schState, subject string) {
	defer schStates.Clear(chatID)

	// занятие наследует учителя группы, если он назначен
	var teacherID *int64
	if g, err := db.GetGroup(ctx, database, st.GroupID); err == nil && g != nil {
		teacherID = g.TeacherID
	}

	_, err := db.AddScheduleItem(ctx, database, models.ScheduleItem{
		GroupID:   st.GroupID,
		DayOfWeek: st.Day,
		StartTime: st.StartTime,
		EndTime:   st.EndTime,
		Subject:   subject,
		TeacherID: teacherID,
	})
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при добавлении занятия."))
		return
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Занятие добавлено: %s, %s-%s, %s",
		models.WeekdayTitle(st.Day), st.StartTime, st.EndTime, subject)))
}

func showGroupScheduleAdmin(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, groupID int64) {
	items, err := db.GetGroupSchedule(ctx, database, groupID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении расписания."))
		return
	}

	text := formatSchedule(items)
	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Добавить занятие", fmt.Sprintf("sch_add_%d", groupID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить занятие", fmt.Sprintf("sch_delmenu_%d", groupID)),
		),
	)
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = markup
	_, _ = tg.Send(bot, out)
}

// formatSchedule группирует занятия по дням недели в порядке недели.
func formatSchedule(items []models.ScheduleItem) string {
	if len(items) == 0 {
		return "Расписание пока пустое."
	}

	byDay := make(map[models.Weekday][]models.ScheduleItem)
	for _, it := range items {
		byDay[it.DayOfWeek] = append(byDay[it.DayOfWeek], it)
	}

	var b strings.Builder
	b.WriteString("📅 Расписание\n")
	for _, d := range models.Weekdays {
		day := byDay[d]
		if len(day) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", models.WeekdayTitle(d))
		for _, it := range day {
			fmt.Fprintf(&b, "  %s-%s %s", it.StartTime, it.EndTime, it.Subject)
			if it.TeacherName != nil {
				fmt.Fprintf(&b, " (%s)", *it.TeacherName)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// parseTimeRange разбирает "ЧЧ:ММ-ЧЧ:ММ". Начало должно быть раньше конца.
func parseTimeRange(s string) (start, end string, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return "", "", false
	}
	start = strings.TrimSpace(parts[0])
	end = strings.TrimSpace(parts[1])
	if !validClock(start) || !validClock(end) || start >= end {
		return "", "", false
	}
	return start, end, true
}

func validClock(s string) bool {
	if len(s) != 5 || s[2] != ':' {
		return false
	}
	h, err1 := strconv.Atoi(s[:2])
	m, err2 := strconv.Atoi(s[3:])
	if err1 != nil || err2 != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}
