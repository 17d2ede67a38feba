package handlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/bot/menu"
	"github.com/kulun-school/telegram-bot/internal/bot/shared/fsmutil"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/fsm"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/tg"
)

type regStep int

const (
	regChoosingRole regStep = iota + 1
	regEnteringName
	regEnteringPhone
)

type regState struct {
	Step     regStep
	Role     models.Role
	FullName string
	Phone    string
}

var regStates = fsm.NewStore[*regState]()

// StartRegistration — первый шаг: выбор роли inline-кнопками.
func StartRegistration(bot *tgbotapi.BotAPI, chatID int64) {
	regStates.Set(chatID, &regState{Step: regChoosingRole})
	msg := tgbotapi.NewMessage(chatID, "Добро пожаловать! Выберите вашу роль:")
	msg.ReplyMarkup = menu.RoleSelect()
	_, _ = tg.Send(bot, msg)
}

func InRegistration(chatID int64) bool {
	_, ok := regStates.Get(chatID)
	return ok
}

// HandleRegistrationCallback — reg_student / reg_teacher.
func HandleRegistrationCallback(bot *tgbotapi.BotAPI, cb *tgbotapi.CallbackQuery) {
	chatID := cb.Message.Chat.ID
	st, ok := regStates.Get(chatID)
	if !ok || st.Step != regChoosingRole {
		return
	}
	_, _ = tg.Request(bot, tgbotapi.NewCallback(cb.ID, ""))

	switch cb.Data {
	case "reg_student":
		st.Role = models.Student
	case "reg_teacher":
		st.Role = models.Teacher
	default:
		// свободный текст и посторонние кнопки на этом шаге не принимаются
		return
	}
	st.Step = regEnteringName
	regStates.Set(chatID, st)
	fsmutil.DisableMarkup(bot, chatID, cb.Message.MessageID)
	_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите ваше ФИО:"))
}

// HandleRegistrationText — шаги с текстовым вводом (ФИО, телефон).
// Невалидный ввод перепрашивает, не продвигая диалог.
func HandleRegistrationText(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st, ok := regStates.Get(chatID)
	if !ok {
		return
	}

	switch st.Step {
	case regChoosingRole:
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Выберите роль кнопкой выше."))

	case regEnteringName:
		name := strings.TrimSpace(msg.Text)
		if len([]rune(name)) < 2 {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Имя должно содержать хотя бы 2 символа. Введите ваше ФИО:"))
			return
		}
		st.FullName = name
		st.Step = regEnteringPhone
		regStates.Set(chatID, st)
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите ваш номер телефона:"))

	case regEnteringPhone:
		phone, ok := normalizePhone(msg.Text)
		if !ok {
			_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Введите корректный номер телефона (минимум 10 цифр):"))
			return
		}
		st.Phone = phone
		completeRegistration(ctx, bot, database, msg, st)
	}
}

func completeRegistration(ctx context.Context, bot *tgbotapi.BotAPI, database *sql.DB, msg *tgbotapi.Message, st *regState) {
	chatID := msg.Chat.ID
	defer regStates.Clear(chatID)

	// все поля обязаны быть накоплены; иначе диалог начинаем заново
	if st.Role == "" || st.FullName == "" || st.Phone == "" {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Произошла ошибка при регистрации. Попробуйте снова: /start"))
		return
	}

	err := db.CreateUser(ctx, database, msg.From.ID, st.FullName, st.Phone, st.Role)
	if errors.Is(err, db.ErrDuplicate) {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Вы уже зарегистрированы. Ожидайте подтверждения администратора."))
		return
	}
	if err != nil {
		_, _ = tg.Send(bot, tgbotapi.NewMessage(chatID, "Произошла ошибка при регистрации. Попробуйте снова: /start"))
		return
	}

	out := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Заявка отправлена! Ожидайте подтверждения администратора.\n\nВаши данные:\nФИО: %s\nТелефон: %s\nРоль: %s",
		st.FullName, st.Phone, models.RoleTitle(st.Role)))
	out.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, _ = tg.Send(bot, out)
}

// normalizePhone — убираем всё, кроме цифр, и восстанавливаем префикс:
// ведущая "8" → "+7", ведущая "7" → "+", иначе считаем номер местным.
// false — если цифр меньше 10.
func normalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 {
		return "", false
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "+") {
		return "+" + digits, true
	}
	switch digits[0] {
	case '8':
		return "+7" + digits[1:], true
	case '7':
		return "+" + digits, true
	default:
		return "+7" + digits, true
	}
}
