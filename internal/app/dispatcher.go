package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/kulun-school/telegram-bot/internal/bot/handlers"
	"github.com/kulun-school/telegram-bot/internal/bot/menu"
	"github.com/kulun-school/telegram-bot/internal/bot/shared/fsmutil"
	"github.com/kulun-school/telegram-bot/internal/ctxutil"
	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/metrics"
	"github.com/kulun-school/telegram-bot/internal/mirror"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/observability"
	"github.com/kulun-school/telegram-bot/internal/tg"
	"go.uber.org/zap"
)

// Dispatcher маршрутизирует апдейты к обработчикам.
type Dispatcher struct {
	Bot     *tgbotapi.BotAPI
	DB      *sql.DB
	Mirror  *mirror.Engine
	Log     *zap.SugaredLogger
	limiter *ChatLimiter
}

func NewDispatcher(bot *tgbotapi.BotAPI, database *sql.DB, engine *mirror.Engine, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		Bot:     bot,
		DB:      database,
		Mirror:  engine,
		Log:     log,
		limiter: NewChatLimiter(),
	}
}

// HandleUpdate — точка входа для одного апдейта.
func (d *Dispatcher) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	metrics.BotUpdates.Inc()

	var chatID int64
	var op string
	switch {
	case upd.Message != nil:
		chatID, op = upd.Message.Chat.ID, "message"
	case upd.CallbackQuery != nil:
		chatID, op = upd.CallbackQuery.Message.Chat.ID, "callback"
	default:
		return
	}
	ctx = ctxutil.WithChatID(ctx, chatID)
	ctx = ctxutil.WithOp(ctx, op)

	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrors.Inc()
			chat, _ := ctxutil.ChatID(ctx)
			opName, _ := ctxutil.Op(ctx)
			d.Log.Errorw("panic in handler", "recover", r, "chat_id", chat, "op", opName)
			observability.CaptureErr(fmt.Errorf("panic in %s handler: %v", op, r))
		}
	}()

	unlock := d.limiter.lock(chatID)
	defer unlock()

	if upd.Message != nil {
		d.handleMessage(ctx, upd.Message)
		return
	}
	d.handleCallback(ctx, upd.CallbackQuery)
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := msg.Text

	switch text {
	case "/start":
		handlers.CancelDialogs(chatID)
		handlers.HandleStart(ctx, d.Bot, d.DB, msg)
		return
	case "/help":
		handlers.HandleHelp(d.Bot, chatID)
		return
	}

	if fsmutil.IsCancelText(text) && handlers.CancelDialogs(chatID) {
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "Действие отменено."))
		return
	}

	user, err := db.GetUserByTelegramID(ctx, d.DB, msg.From.ID)
	if err != nil {
		d.Log.Errorw("lookup user", "err", err)
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "⚠️ Ошибка доступа к базе. Попробуйте позже."))
		return
	}

	// незарегистрированный пользователь может находиться только в диалоге регистрации
	if user == nil {
		if handlers.InRegistration(chatID) {
			handlers.HandleRegistrationText(ctx, d.Bot, d.DB, msg)
			return
		}
		_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "⚠️ Вы не зарегистрированы. Нажмите /start для начала."))
		return
	}
	if user.Status != models.Active {
		handlers.HandleStart(ctx, d.Bot, d.DB, msg)
		return
	}

	// активные диалоги перехватывают свободный текст
	switch {
	case handlers.InGroupDialog(chatID):
		handlers.HandleGroupText(ctx, d.Bot, d.DB, msg)
		return
	case handlers.InSubjectDialog(chatID):
		handlers.HandleSubjectText(ctx, d.Bot, d.DB, msg)
		return
	case handlers.InScheduleDialog(chatID):
		handlers.HandleScheduleText(ctx, d.Bot, d.DB, msg)
		return
	case handlers.InAssignmentDialog(chatID):
		handlers.HandleAssignmentText(ctx, d.Bot, d.DB, msg)
		return
	}

	switch text {
	case "/sync":
		if user.Role == models.Admin {
			handlers.RunFullSync(ctx, d.Bot, d.Mirror, chatID)
			return
		}
	case "/export":
		if user.Role == models.Admin {
			handlers.RunExport(ctx, d.Bot, d.Mirror, chatID)
			return
		}
	case "/import":
		if user.Role == models.Admin {
			handlers.RunImport(ctx, d.Bot, d.Mirror, chatID)
			return
		}
	}

	d.handleMenuButton(ctx, user, chatID, text)
}

// handleMenuButton — кнопки главного меню; каждая проверяется на роль.
func (d *Dispatcher) handleMenuButton(ctx context.Context, user *models.User, chatID int64, text string) {
	switch text {
	// ученик
	case menu.BtnMySchedule:
		if user.Role == models.Student {
			handlers.ShowMySchedule(ctx, d.Bot, d.DB, chatID, user)
			return
		}
	case menu.BtnMyGrades:
		if user.Role == models.Student {
			handlers.ShowMyGrades(ctx, d.Bot, d.DB, chatID, user)
			return
		}
	case menu.BtnMyTasks:
		if user.Role == models.Student {
			handlers.ShowMyTasks(ctx, d.Bot, d.DB, chatID, user)
			return
		}
	case menu.BtnMyAttendance:
		if user.Role == models.Student {
			handlers.ShowMyAttendance(ctx, d.Bot, d.DB, chatID, user)
			return
		}

	// учитель
	case menu.BtnMyGroups:
		if user.Role == models.Teacher {
			handlers.ShowMyGroups(ctx, d.Bot, d.DB, chatID, user.ID)
			return
		}
	case menu.BtnAttendance:
		if user.Role == models.Teacher {
			handlers.StartAttendance(ctx, d.Bot, d.DB, chatID, user.ID)
			return
		}
	case menu.BtnGrades:
		if user.Role == models.Teacher {
			handlers.StartGrading(ctx, d.Bot, d.DB, chatID, user.ID)
			return
		}
	case menu.BtnNewAssignment:
		if user.Role == models.Teacher {
			handlers.StartNewAssignment(ctx, d.Bot, d.DB, chatID, user.ID)
			return
		}
	case menu.BtnMyAssignments:
		if user.Role == models.Teacher {
			handlers.ShowMyAssignments(ctx, d.Bot, d.DB, chatID, user.ID)
			return
		}

	// администратор
	case menu.BtnUsers:
		if user.Role == models.Admin {
			handlers.ShowPendingUsers(ctx, d.Bot, d.DB, chatID)
			return
		}
	case menu.BtnGroups:
		if user.Role == models.Admin {
			handlers.ShowGroups(ctx, d.Bot, d.DB, chatID)
			return
		}
	case menu.BtnSubjects:
		if user.Role == models.Admin {
			handlers.ShowSubjects(ctx, d.Bot, d.DB, chatID)
			return
		}
	case menu.BtnSchedule:
		if user.Role == models.Admin {
			handlers.StartScheduleManage(ctx, d.Bot, d.DB, chatID)
			return
		}
	case menu.BtnStats:
		if user.Role == models.Admin {
			handlers.ShowStats(ctx, d.Bot, d.DB, chatID)
			return
		}
	case menu.BtnSync:
		if user.Role == models.Admin {
			handlers.RunFullSync(ctx, d.Bot, d.Mirror, chatID)
			return
		}
	case menu.BtnExport:
		if user.Role == models.Admin {
			handlers.RunExport(ctx, d.Bot, d.Mirror, chatID)
			return
		}
	case menu.BtnImport:
		if user.Role == models.Admin {
			handlers.RunImport(ctx, d.Bot, d.Mirror, chatID)
			return
		}
	}

	_, _ = tg.Send(d.Bot, tgbotapi.NewMessage(chatID, "Неизвестная команда. Используйте меню или /help."))
}

func (d *Dispatcher) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data

	// регистрация доступна до появления записи в базе
	if strings.HasPrefix(data, "reg_") {
		handlers.HandleRegistrationCallback(d.Bot, cb)
		return
	}

	user, err := db.GetUserByTelegramID(ctx, d.DB, cb.From.ID)
	if err != nil {
		d.Log.Errorw("lookup user", "err", err)
		return
	}
	if user == nil || user.Status != models.Active {
		_, _ = tg.Request(d.Bot, tgbotapi.NewCallback(cb.ID, "Доступ закрыт"))
		return
	}

	switch {
	case hasAnyPrefix(data, "approve_", "reject_", "assign_group_", "new_group_"):
		if user.Role == models.Admin {
			handlers.HandleApprovalCallback(ctx, d.Bot, d.DB, cb)
			return
		}
	case strings.HasPrefix(data, "grp_"):
		if user.Role == models.Admin {
			handlers.HandleGroupCallback(ctx, d.Bot, d.DB, cb)
			return
		}
	case strings.HasPrefix(data, "subj_"):
		if user.Role == models.Admin {
			handlers.HandleSubjectCallback(ctx, d.Bot, d.DB, cb)
			return
		}
	case strings.HasPrefix(data, "sch_"):
		if user.Role == models.Admin {
			handlers.HandleScheduleCallback(ctx, d.Bot, d.DB, cb)
			return
		}
	case strings.HasPrefix(data, "asg_"):
		if user.Role == models.Teacher {
			handlers.HandleAssignmentCallback(ctx, d.Bot, d.DB, cb, user.ID)
			return
		}
	case strings.HasPrefix(data, "att_"):
		if user.Role == models.Teacher {
			handlers.HandleAttendanceCallback(ctx, d.Bot, d.DB, cb, user.ID)
			return
		}
	case strings.HasPrefix(data, "grd_"):
		if user.Role == models.Teacher {
			handlers.HandleGradeCallback(ctx, d.Bot, d.DB, cb, user.ID)
			return
		}
	}

	_, _ = tg.Request(d.Bot, tgbotapi.NewCallback(cb.ID, ""))
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
