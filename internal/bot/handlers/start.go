package handlers

import (
	"context"
	"database/sql"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/bot/menu"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

// HandleStart — вход в бота: незнакомцу — регистрация, ожидающему —
// напоминание про заявку, активному — меню по роли.
func HandleStart(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	user, err := db.GetUserByTelegramID(ctx, database, msg.From.ID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "⚠️ Ошибка доступа к базе. Попробуйте позже."))
		return
	}
	if user == nil {
		StartRegistration(bot, chatID)
		return
	}

	switch user.Status {
	case models.Pending:
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ваша заявка на рассмотрении. Ожидайте подтверждения администратора."))
	case models.Rejected:
		out := tgbotapi.NewMessage(chatID, "🚫 Ваша заявка отклонена. Обратитесь к администратору.")
		out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
		_, _ = tg.Send(bot, out)
	case models.Active:
		greeting := "Добро пожаловать!"
		if user.Role == models.Admin {
			greeting = "Панель администратора"
		}
		out := tgbotapi.NewMessage(chatID, greeting)
		out.ReplyMarkup = menu.ForRole(user.Role)
		_, _ = tg.Send(bot, out)
	}
}

func HandleHelp(bot *tgbotapi.BotAPI, chatID int64) {
	help := "Помощь по боту KULUN School\n\n" +
		"Основные команды:\n" +
		"/start - начать работу\n" +
		"/help - эта справка\n\n" +
		"Если у вас возникли проблемы, обратитесь к администратору."
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, help))
}
