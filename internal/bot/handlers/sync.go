package handlers

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/bot/shared/fsmutil"
	"github.com/kulun-school/telegram-bot/internal/mirror"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

// Синхронизация с зеркалом запускается только вручную администратором.
// fsmutil.SetPending защищает от повторного запуска из одного чата.

// RunFullSync — выгрузка пользователей и групп в зеркало.
func RunFullSync(ctx context.Context, bot *tgbotapi.BotAPI, engine *mirror.Engine, chatID int64) {
	if !fsmutil.SetPending(chatID, "sync") {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "⏳ Синхронизация уже выполняется."))
		return
	}
	defer fsmutil.ClearPending(chatID, "sync")

	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "🔄 Начинаю синхронизацию..."))
	if err := engine.FullSync(ctx); err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Синхронизация завершилась с ошибками. Подробности в логах."))
		return
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "✅ Синхронизация завершена!"))
}

// RunExport — то же, что полная синхронизация: данные уходят в зеркало.
func RunExport(ctx context.Context, bot *tgbotapi.BotAPI, engine *mirror.Engine, chatID int64) {
	if !fsmutil.SetPending(chatID, "sync") {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "⏳ Синхронизация уже выполняется."))
		return
	}
	defer fsmutil.ClearPending(chatID, "sync")

	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "📤 Экспортирую данные..."))
	if err := engine.FullSync(ctx); err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Экспорт завершился с ошибками. Подробности в логах."))
		return
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "✅ Экспорт завершён!"))
}

// RunImport — чтение зеркала и применение изменений к базе.
func RunImport(ctx context.Context, bot *tgbotapi.BotAPI, engine *mirror.Engine, chatID int64) {
	if !fsmutil.SetPending(chatID, "sync") {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "⏳ Синхронизация уже выполняется."))
		return
	}
	defer fsmutil.ClearPending(chatID, "sync")

	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "📥 Импортирую данные из зеркала..."))
	if err := engine.Pull(ctx); err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "❌ Импорт завершился с ошибками. Подробности в логах."))
		return
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "✅ Импорт завершён!"))
}
