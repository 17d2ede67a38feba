package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

// ShowPendingUsers показывает администратору все заявки со статусом pending.
func ShowPendingUsers(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, adminChatID int64) {
	pendingUsers, err := db.GetPendingUsers(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(adminChatID, "Ошибка при получении заявок."))
		return
	}
	if len(pendingUsers) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(adminChatID, "Нет пользователей для подтверждения."))
		return
	}

	_, _ = tg.Send(bot, tgbotapi.NewMessage(adminChatID,
		fmt.Sprintf("Найдено заявок: %d", len(pendingUsers))))

	for _, u := range pendingUsers {
		text := fmt.Sprintf("Новая заявка:\n\nФИО: %s\nТелефон: %s\nРоль: %s\nДата: %s",
			u.FullName, u.Phone, models.RoleTitle(u.Role), u.CreatedAt.Format("02.01.2006 15:04"))

		markup := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", fmt.Sprintf("approve_%d", u.TelegramID)),
				tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("reject_%d", u.TelegramID)),
			),
		)
		out := tgbotapi.NewMessage(adminChatID, text)
		out.ReplyMarkup = markup
		_, _ = tg.Send(bot, out)
	}
}

// HandleApprovalCallback — approve_/reject_/assign_group_/new_group_.
func HandleApprovalCallback(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID
	messageID := cb.Message.MessageID

	switch {
	case strings.HasPrefix(data, "approve_"):
		tgID, err := strconv.ParseInt(strings.TrimPrefix(data, "approve_"), 10, 64)
		if err != nil {
			return
		}
		user, err := db.GetUserByTelegramID(ctx, database, tgID)
		if err != nil || user == nil {
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, "Пользователь не найден"))
			return
		}
		markup, err := groupPickMarkup(ctx, database, tgID)
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка групп."))
			return
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID,
			fmt.Sprintf("Выберите группу для пользователя %s:", user.FullName), markup)
		_, _ = tg.Send(bot, edit)
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, ""))

	case strings.HasPrefix(data, "reject_"):
		tgID, err := strconv.ParseInt(strings.TrimPrefix(data, "reject_"), 10, 64)
		if err != nil {
			return
		}
		user, err := db.GetUserByTelegramID(ctx, database, tgID)
		if err != nil || user == nil {
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, "Пользователь не найден"))
			return
		}
		if err := db.RejectUser(ctx, database, tgID); err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при отклонении заявки."))
			return
		}
		_, _ = tg.Send(bot, tgbotapi.NewEditMessageText(chatID, messageID,
			fmt.Sprintf("Заявка %s отклонена.", user.FullName)))
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, "Отклонено"))

	case strings.HasPrefix(data, "assign_group_"):
		parts := strings.Split(strings.TrimPrefix(data, "assign_group_"), "_")
		if len(parts) != 2 {
			return
		}
		tgID, err1 := strconv.ParseInt(parts[0], 10, 64)
		groupID, err2 := strconv.ParseInt(parts[1], 10, 64)
		if err1 != nil || err2 != nil {
			return
		}
		text := approveAndAssign(ctx, database, tgID, groupID)
		_, _ = tg.Send(bot, tgbotapi.NewEditMessageText(chatID, messageID, text))
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, ""))

	case strings.HasPrefix(data, "new_group_"):
		tgID, err := strconv.ParseInt(strings.TrimPrefix(data, "new_group_"), 10, 64)
		if err != nil {
			return
		}
		StartCreateGroupForUser(bot, chatID, tgID)
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, ""))
	}
}

// approveAndAssign — подтверждение и назначение в группу. Два независимых
// действия: частичный успех отличаем от полного.
func approveAndAssign(ctx context.Context, database *sql.DB, tgID, groupID int64) string {
	user, err := db.GetUserByTelegramID(ctx, database, tgID)
	if err != nil || user == nil {
		return "Пользователь не найден."
	}
	group, err := db.GetGroup(ctx, database, groupID)
	if err != nil || group == nil {
		return "Группа не найдена."
	}

	if err := db.ApproveUser(ctx, database, tgID); err != nil {
		return fmt.Sprintf("Ошибка при подтверждении пользователя %s!", user.FullName)
	}

	var assignErr error
	var action string
	if user.Role == models.Teacher {
		assignErr = db.AssignTeacherToGroup(ctx, database, user.ID, groupID)
		action = "назначен учителем группы"
	} else {
		assignErr = db.AssignUserToGroup(ctx, database, user.ID, groupID)
		action = "добавлен в группу"
	}
	if assignErr != nil {
		return fmt.Sprintf("Пользователь %s подтверждён, но произошла ошибка при назначении в группу!", user.FullName)
	}
	return fmt.Sprintf("Пользователь %s подтверждён и %s «%s»!", user.FullName, action, group.Name)
}

// groupPickMarkup — клавиатура выбора группы для заявки + создание новой.
func groupPickMarkup(ctx context.Context, database *sql.DB, tgID int64) (tgbotapi.InlineKeyboardMarkup, error) {
	groups, err := db.GetAllGroups(ctx, database)
	if err != nil {
		return tgbotapi.InlineKeyboardMarkup{}, err
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range groups {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(g.Name, fmt.Sprintf("assign_group_%d_%d", tgID, g.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Новая группа", fmt.Sprintf("new_group_%d", tgID)),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...), nil
}
