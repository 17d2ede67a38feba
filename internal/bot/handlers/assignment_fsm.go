package handlers

import (
	"context"
	"database/sql"
	"errors"
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

type asgStep int

const (
	asgChoosingGroup asgStep = iota + 1
	asgEnteringTitle
	asgEnteringDescription
	asgEnteringDeadline
)

type asgState struct {
	Step        asgStep
	TeacherID   int64
	GroupID     int64
	Title       string
	Description string
}

var asgStates = fsm.NewStore[*asgState]()

// StartNewAssignment — учитель выбирает одну из своих групп.
func StartNewAssignment(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, teacherID int64) {
	groups, err := db.GetTeacherGroups(ctx, database, teacherID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка групп."))
		return
	}
	if len(groups) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "За вами не закреплено ни одной группы."))
		return
	}

	asgStates.Set(chatID, &asgState{Step: asgChoosingGroup, TeacherID: teacherID})

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(g.Name, fmt.Sprintf("asg_group_%d", g.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, "📝 Новое задание: выберите группу")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func InAssignmentDialog(chatID int64) bool {
	_, ok := asgStates.Get(chatID)
	return ok
}

// HandleAssignmentCallback — asg_group_<gid> и asg_del_<id>.
func HandleAssignmentCallback(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, cb *tgbotapi.CallbackQuery, teacherID int64) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(data, "asg_group_"):
		st, ok := asgStates.Get(chatID)
		if !ok || st.Step != asgChoosingGroup {
			return
		}
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "asg_group_"), 10, 64)
		if err != nil {
			return
		}
		st.GroupID = groupID
		st.Step = asgEnteringTitle
		asgStates.Set(chatID, st)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите название задания:"))
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, ""))

	case strings.HasPrefix(data, "asg_del_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, "asg_del_"), 10, 64)
		if err != nil {
			return
		}
		switch err := db.DeleteAssignment(ctx, database, id, teacherID); {
		case errors.Is(err, db.ErrNotFound):
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, "Задание не найдено или не ваше"))
		case err != nil:
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при удалении задания."))
		default:
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, "Задание удалено"))
		}
	}
}

// HandleAssignmentText — название, описание, срок сдачи.
func HandleAssignmentText(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st, ok := asgStates.Get(chatID)
	if !ok {
		return
	}

	switch st.Step {
	case asgChoosingGroup:
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Выберите группу кнопкой выше."))

	case asgEnteringTitle:
		title := strings.TrimSpace(msg.Text)
		if title == "" {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Название не может быть пустым. Введите название задания:"))
			return
		}
		st.Title = title
		st.Step = asgEnteringDescription
		asgStates.Set(chatID, st)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите описание задания (или \"-\" чтобы пропустить):"))

	case asgEnteringDescription:
		if text := strings.TrimSpace(msg.Text); text != "-" {
			st.Description = text
		}
		st.Step = asgEnteringDeadline
		asgStates.Set(chatID, st)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите срок сдачи в формате ДД.ММ.ГГГГ:"))

	case asgEnteringDeadline:
		deadline, err := time.Parse("02.01.2006", strings.TrimSpace(msg.Text))
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Неверный формат даты. Введите срок как ДД.ММ.ГГГГ:"))
			return
		}
		defer asgStates.Clear(chatID)

		_, err = db.CreateAssignment(ctx, database, models.Assignment{
			Title:       st.Title,
			Description: st.Description,
			GroupID:     st.GroupID,
			TeacherID:   st.TeacherID,
			Deadline:    deadline,
		})
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при создании задания."))
			return
		}
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"Задание «%s» создано! Срок сдачи: %s", st.Title, deadline.Format("02.01.2006"))))
	}
}

// ShowMyAssignments — задания учителя с кнопками удаления.
func ShowMyAssignments(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, teacherID int64) {
	assignments, err := db.GetTeacherAssignments(ctx, database, teacherID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении заданий."))
		return
	}
	if len(assignments) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "У вас пока нет заданий."))
		return
	}

	var b strings.Builder
	b.WriteString("📋 Ваши задания\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, a := range assignments {
		fmt.Fprintf(&b, "\n%d. %s", i+1, a.Title)
		if a.GroupName != nil {
			fmt.Fprintf(&b, " (%s)", *a.GroupName)
		}
		fmt.Fprintf(&b, "\nСрок: %s\n", a.Deadline.Format("02.01.2006"))
		if a.Description != "" {
			fmt.Fprintf(&b, "%s\n", a.Description)
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+a.Title, fmt.Sprintf("asg_del_%d", a.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, b.String())
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}
