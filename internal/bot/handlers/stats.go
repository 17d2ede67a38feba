package handlers

import (
	"context"
	"database/sql"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

// ShowStats — сводный отчёт администратора.
func ShowStats(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64) {
	stats, err := db.GetSystemStats(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении статистики."))
		return
	}

	text := fmt.Sprintf(
		"📊 Статистика системы\n\n"+
			"Всего пользователей: %d\n"+
			"Активных: %d\n"+
			"Ожидают подтверждения: %d\n\n"+
			"Учеников: %d\n"+
			"Учителей: %d\n"+
			"Групп: %d",
		stats.TotalUsers, stats.ActiveUsers, stats.PendingUsers,
		stats.StudentsCount, stats.TeachersCount, stats.GroupsCount)
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, text))
}
