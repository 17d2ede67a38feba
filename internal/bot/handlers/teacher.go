package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

// ShowMyGroups — группы учителя с числом учеников.
func ShowMyGroups(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID, teacherID int64) {
	groups, err := db.GetTeacherGroups(ctx, database, teacherID)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка групп."))
		return
	}
	if len(groups) == 0 {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "За вами не закреплено ни одной группы."))
		return
	}

	var b strings.Builder
	b.WriteString("👥 Ваши группы\n\n")
	for _, g := range groups {
		students, err := db.GetGroupStudents(ctx, database, g.ID)
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка групп."))
			return
		}
		fmt.Fprintf(&b, "• %s — учеников: %d\n", g.Name, len(students))
	}
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, b.String()))
}
