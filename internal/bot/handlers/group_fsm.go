package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/fsm"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

type grpStep int

const (
	grpEnteringName grpStep = iota + 1
	grpEnteringNewName
)

type grpState struct {
	Step grpStep
	// GroupID заполнен на шаге переименования.
	GroupID int64
	// PendingTgID != 0 — группа создаётся из карточки заявки:
	// после создания пользователь сразу подтверждается и назначается.
	PendingTgID int64
}

var grpStates = fsm.NewStore[*grpState]()

// ShowGroups — список групп с карточками и кнопкой создания.
func ShowGroups(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64) {
	groups, err := db.GetAllGroups(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка групп."))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(g.Name, fmt.Sprintf("grp_view_%d", g.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Создать группу", "grp_new"),
	))

	text := "🏫 Группы"
	if len(groups) == 0 {
		text = "Групп пока нет."
	}
	out := tgbotapi.NewMessage(chatID, text)
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

// StartCreateGroup — обычное создание группы из меню.
func StartCreateGroup(bot *tgbotapi.BotAPI, chatID int64) {
	grpStates.Set(chatID, &grpState{Step: grpEnteringName})
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите название новой группы:"))
}

// StartCreateGroupForUser — создание группы из карточки заявки.
func StartCreateGroupForUser(bot *tgbotapi.BotAPI, chatID, pendingTgID int64) {
	grpStates.Set(chatID, &grpState{Step: grpEnteringName, PendingTgID: pendingTgID})
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите название новой группы:"))
}

func InGroupDialog(chatID int64) bool {
	_, ok := grpStates.Get(chatID)
	return ok
}

// HandleGroupText — шаги со свободным вводом названия.
func HandleGroupText(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st, ok := grpStates.Get(chatID)
	if !ok {
		return
	}

	name := strings.TrimSpace(msg.Text)
	if name == "" {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Название не может быть пустым. Введите название группы:"))
		return
	}

	switch st.Step {
	case grpEnteringName:
		createGroup(ctx, bot, database, chatID, name, st.PendingTgID)
		grpStates.Clear(chatID)

	case grpEnteringNewName:
		err := db.UpdateGroupName(ctx, database, st.GroupID, name)
		switch {
		case errors.Is(err, db.ErrDuplicate):
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Группа с таким названием уже существует. Введите другое название:"))
			return
		case errors.Is(err, db.ErrNotFound):
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Группа не найдена."))
		case err != nil:
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при переименовании группы."))
		default:
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("Группа переименована в «%s».", name)))
		}
		grpStates.Clear(chatID)
	}
}

func createGroup(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64, name string, pendingTgID int64) {
	groupID, err := db.CreateGroup(ctx, database, name)
	if errors.Is(err, db.ErrDuplicate) {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Группа с таким названием уже существует."))
		return
	}
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при создании группы."))
		return
	}

	if pendingTgID != 0 {
		text := approveAndAssign(ctx, database, pendingTgID, groupID)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID,
			fmt.Sprintf("Группа «%s» создана.\n%s", name, text)))
		return
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("Группа «%s» создана!", name)))
}

// HandleGroupCallback — всё управление группами (префикс grp_).
func HandleGroupCallback(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID
	ack := func(note string) { _, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, note)) }

	switch {
	case data == "grp_new":
		StartCreateGroup(bot, chatID)
		ack("")

	case strings.HasPrefix(data, "grp_view_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grp_view_"), 10, 64)
		if err != nil {
			return
		}
		showGroupDetails(ctx, bot, database, chatID, groupID)
		ack("")

	case strings.HasPrefix(data, "grp_rename_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grp_rename_"), 10, 64)
		if err != nil {
			return
		}
		grpStates.Set(chatID, &grpState{Step: grpEnteringNewName, GroupID: groupID})
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите новое название группы:"))
		ack("")

	case strings.HasPrefix(data, "grp_teacher_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grp_teacher_"), 10, 64)
		if err != nil {
			return
		}
		showTeacherPick(ctx, bot, database, chatID, groupID)
		ack("")

	case strings.HasPrefix(data, "grp_setteacher_"):
		parts := strings.Split(strings.TrimPrefix(data, "grp_setteacher_"), "_")
		if len(parts) != 2 {
			return
		}
		groupID, err1 := strconv.ParseInt(parts[0], 10, 64)
		teacherID, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			return
		}
		if err := db.AssignTeacherToGroup(ctx, database, teacherID, groupID); err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при назначении учителя."))
			return
		}
		ack("Учитель назначен")
		showGroupDetails(ctx, bot, database, chatID, groupID)

	case strings.HasPrefix(data, "grp_rmteacher_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grp_rmteacher_"), 10, 64)
		if err != nil {
			return
		}
		if err := db.RemoveTeacherFromGroup(ctx, database, groupID); err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при снятии учителя."))
			return
		}
		ack("Учитель снят с группы")
		showGroupDetails(ctx, bot, database, chatID, groupID)

	case strings.HasPrefix(data, "grp_addstu_pick_"):
		parts := strings.Split(strings.TrimPrefix(data, "grp_addstu_pick_"), "_")
		if len(parts) != 2 {
			return
		}
		groupID, err1 := strconv.ParseInt(parts[0], 10, 64)
		userID, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			return
		}
		if err := db.AssignUserToGroup(ctx, database, userID, groupID); err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при добавлении ученика."))
			return
		}
		ack("Ученик добавлен")
		showGroupDetails(ctx, bot, database, chatID, groupID)

	case strings.HasPrefix(data, "grp_addstu_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grp_addstu_"), 10, 64)
		if err != nil {
			return
		}
		showStudentAddPick(ctx, bot, database, chatID, groupID)
		ack("")

	case strings.HasPrefix(data, "grp_rmstu_pick_"):
		parts := strings.Split(strings.TrimPrefix(data, "grp_rmstu_pick_"), "_")
		if len(parts) != 2 {
			return
		}
		groupID, err1 := strconv.ParseInt(parts[0], 10, 64)
		userID, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			return
		}
		if err := db.RemoveUserFromGroup(ctx, database, userID); err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при исключении ученика."))
			return
		}
		ack("Ученик исключён")
		showGroupDetails(ctx, bot, database, chatID, groupID)

	case strings.HasPrefix(data, "grp_rmstu_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grp_rmstu_"), 10, 64)
		if err != nil {
			return
		}
		showStudentRemovePick(ctx, bot, database, chatID, groupID)
		ack("")

	case strings.HasPrefix(data, "grp_delyes_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grp_delyes_"), 10, 64)
		if err != nil {
			return
		}
		if err := db.DeleteGroup(ctx, database, groupID); err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при удалении группы."))
			return
		}
		_, _ = tg.Send(bot, tgbotapi.NewEditMessageText(chatID, messageID,
			"Группа удалена. Ученики остались в системе без группы."))
		ack("Удалено")

	case data == "grp_delno":
		_, _ = tg.Send(bot, tgbotapi.NewEditMessageText(chatID, messageID, "Удаление отменено."))
		ack("")

	case strings.HasPrefix(data, "grp_del_"):
		groupID, err := strconv.ParseInt(strings.TrimPrefix(data, "grp_del_"), 10, 64)
		if err != nil {
			return
		}
		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Да, удалить", fmt.Sprintf("grp_delyes_%d", groupID)),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "grp_delno"),
			),
		)
		out := tgbotapi.NewMessage(chatID,
			"Удалить группу? Ученики будут откреплены, но останутся в системе.")
		out.ReplyMarkup = markup
		_, _ = tg.Send(bot, out)
		ack("")
	}
}

func showGroupDetails(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, groupID int64) {
	d, err := db.GetGroupWithDetails(ctx, database, groupID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении группы."))
		return
	}
	if d == nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Группа не найдена."))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏫 Группа «%s»\n\n", d.Name)
	if d.Teacher != nil {
		fmt.Fprintf(&b, "Учитель: %s\n", d.Teacher.FullName)
	} else {
		b.WriteString("Учитель: не назначен\n")
	}
	fmt.Fprintf(&b, "Учеников: %d\n", d.StudentsCount)
	for i, s := range d.Students {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s.FullName)
	}

	markup := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Переименовать", fmt.Sprintf("grp_rename_%d", groupID)),
			tgbotapi.NewInlineKeyboardButtonData("👨‍🏫 Учитель", fmt.Sprintf("grp_teacher_%d", groupID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Ученик", fmt.Sprintf("grp_addstu_%d", groupID)),
			tgbotapi.NewInlineKeyboardButtonData("➖ Ученик", fmt.Sprintf("grp_rmstu_%d", groupID)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Удалить группу", fmt.Sprintf("grp_del_%d", groupID)),
		),
	)
	out := tgbotapi.NewMessage(chatID, b.String())
	out.ReplyMarkup = markup
	_, _ = tg.Send(bot, out)
}

func showTeacherPick(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, groupID int64) {
	teachers, err := db.GetAvailableTeachers(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка учителей."))
		return
	}
	if len(teachers) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Нет доступных учителей."))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, t := range teachers {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(t.FullName, fmt.Sprintf("grp_setteacher_%d_%d", groupID, t.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➖ Снять учителя", fmt.Sprintf("grp_rmteacher_%d", groupID)),
	))

	out := tgbotapi.NewMessage(chatID, "Выберите учителя для группы:")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func showStudentAddPick(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, groupID int64) {
	students, err := db.GetStudentsWithoutGroup(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка учеников."))
		return
	}
	if len(students) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Нет учеников без группы."))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range students {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.FullName, fmt.Sprintf("grp_addstu_pick_%d_%d", groupID, s.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, "Выберите ученика для добавления:")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func showStudentRemovePick(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, groupID int64) {
	students, err := db.GetGroupStudents(ctx, database, groupID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка учеников."))
		return
	}
	if len(students) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "В группе нет учеников."))
		return
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range students {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(s.FullName, fmt.Sprintf("grp_rmstu_pick_%d_%d", groupID, s.ID)),
		))
	}
	out := tgbotapi.NewMessage(chatID, "Выберите ученика для исключения:")
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}
