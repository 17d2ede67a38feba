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

type subjStep int

const (
	subjEnteringName subjStep = iota + 1
	subjEnteringDescription
)

type subjState struct {
	Step subjStep
	Name string
}

var subjStates = fsm.NewStore[*subjState]()

// ShowSubjects — список предметов с кнопками удаления и добавления.
func ShowSubjects(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, chatID int64) {
	subjects, err := db.GetAllSubjects(ctx, database)
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при получении списка предметов."))
		return
	}

	var b strings.Builder
	b.WriteString("📚 Предметы\n\n")
	if len(subjects) == 0 {
		b.Reset()
		b.WriteString("Предметов пока нет.")
	}
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, s := range subjects {
		line := s.Name
		if s.Description != nil && *s.Description != "" {
			line += " — " + *s.Description
		}
		fmt.Fprintf(&b, "• %s\n", line)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 "+s.Name, fmt.Sprintf("subj_del_%d", s.ID)),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("➕ Добавить предмет", "subj_new"),
	))

	out := tgbotapi.NewMessage(chatID, b.String())
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = tg.Send(bot, out)
}

func InSubjectDialog(chatID int64) bool {
	_, ok := subjStates.Get(chatID)
	return ok
}

// HandleSubjectCallback — subj_new / subj_del_<id>.
func HandleSubjectCallback(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	switch {
	case data == "subj_new":
		subjStates.Set(chatID, &subjState{Step: subjEnteringName})
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите название предмета:"))
		_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, ""))

	case strings.HasPrefix(data, "subj_del_"):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, "subj_del_"), 10, 64)
		if err != nil {
			return
		}
		switch err := db.DeleteSubject(ctx, database, id); {
		case errors.Is(err, db.ErrNotFound):
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, "Предмет уже удалён"))
		case err != nil:
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при удалении предмета."))
		default:
			_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, "Предмет удалён"))
			ShowSubjects(ctx, bot, database, chatID)
		}
	}
}

// HandleSubjectText — название, затем описание ("-" пропускает описание).
func HandleSubjectText(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st, ok := subjStates.Get(chatID)
	if !ok {
		return
	}

	switch st.Step {
	case subjEnteringName:
		name := strings.TrimSpace(msg.Text)
		if name == "" {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Название не может быть пустым. Введите название предмета:"))
			return
		}
		st.Name = name
		st.Step = subjEnteringDescription
		subjStates.Set(chatID, st)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите описание предмета (или \"-\" чтобы пропустить):"))

	case subjEnteringDescription:
		defer subjStates.Clear(chatID)
		var description *string
		if text := strings.TrimSpace(msg.Text); text != "" && text != "-" {
			description = &text
		}
		_, err := db.AddSubject(ctx, database, st.Name, description)
		if errors.Is(err, db.ErrDuplicate) {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Такой предмет уже существует."))
			return
		}
		if err != nil {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Ошибка при добавлении предмета."))
			return
		}
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, fmt.Sprintf("Предмет «%s» добавлен!", st.Name)))
	}
}
