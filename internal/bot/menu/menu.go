package menu

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/models"
)

// Кнопки главных меню. Тексты используются и при маршрутизации сообщений.
const (
	BtnMySchedule   = "📅 Моё расписание"
	BtnMyGrades     = "📊 Мои оценки"
	BtnMyTasks      = "📝 Задания"
	BtnMyAttendance = "✅ Моя посещаемость"

	BtnMyGroups       = "👥 Мои группы"
	BtnAttendance     = "✅ Посещаемость"
	BtnGrades         = "📊 Оценки"
	BtnNewAssignment  = "📝 Создать задание"
	BtnMyAssignments  = "📋 Мои задания"

	BtnUsers    = "👥 Пользователи"
	BtnGroups   = "🏫 Группы"
	BtnSubjects = "📚 Предметы"
	BtnSchedule = "📅 Расписание"
	BtnStats    = "📈 Статистика"
	BtnSync     = "🔄 Синхронизация"
	BtnExport   = "📤 Экспорт"
	BtnImport   = "📥 Импорт"
)

// ForRole — главное меню по роли; switch исчерпывающий по закрытому enum.
func ForRole(role models.Role) tgbotapi.ReplyKeyboardMarkup {
	switch role {
	case models.Student:
		return studentMenu()
	case models.Teacher:
		return teacherMenu()
	case models.Admin:
		return adminMenu()
	default:
		return tgbotapi.NewReplyKeyboard() // пустое меню
	}
}

func studentMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnMySchedule),
			tgbotapi.NewKeyboardButton(BtnMyGrades),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnMyTasks),
			tgbotapi.NewKeyboardButton(BtnMyAttendance),
		),
	)
}

func teacherMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnMyGroups),
			tgbotapi.NewKeyboardButton(BtnAttendance),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnGrades),
			tgbotapi.NewKeyboardButton(BtnNewAssignment),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnMyAssignments),
		),
	)
}

func adminMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnUsers),
			tgbotapi.NewKeyboardButton(BtnGroups),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSubjects),
			tgbotapi.NewKeyboardButton(BtnSchedule),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnStats),
			tgbotapi.NewKeyboardButton(BtnSync),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnExport),
			tgbotapi.NewKeyboardButton(BtnImport),
		),
	)
}

// RoleSelect — inline-клавиатура выбора роли при регистрации.
func RoleSelect() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎒 Ученик", "reg_student"),
			tgbotapi.NewInlineKeyboardButtonData("👨‍🏫 Учитель", "reg_teacher"),
		),
	)
}
