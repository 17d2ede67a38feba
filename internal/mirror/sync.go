package mirror

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/metrics"
	"github.com/kulun-school/telegram-bot/internal/models"
	"go.uber.org/zap"
)

const (
	UsersTable  = "Users"
	GroupsTable = "Groups"

	timeLayout = "2006-01-02 15:04:05"
)

var (
	usersHeader = []string{"ID", "Telegram ID", "Full Name", "Phone", "Role",
		"Status", "Group ID", "Group Name", "Created At"}
	groupsHeader = []string{"ID", "Name", "Teacher ID", "Teacher Name",
		"Students Count", "Created At"}
)

// Engine гоняет Users/Groups между локальной базой и внешним зеркалом.
// Синхронизация всегда запускается явно оператором: экспорт (push) и
// импорт (pull) — отдельные вызовы, вместе они не атомарны.
type Engine struct {
	database *sql.DB
	client   Client
	log      *zap.SugaredLogger
}

func NewEngine(database *sql.DB, client Client, log *zap.SugaredLogger) *Engine {
	return &Engine{database: database, client: client, log: log}
}

// PushUsers выгружает всех пользователей: upsert по ID, затем зачистка
// строк, которых больше нет локально. Ошибка одной строки не прерывает
// остальные, но итог считается неуспешным.
func (e *Engine) PushUsers(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObserveSync("push_users", time.Since(start)) }()

	users, err := db.GetAllUsers(ctx, e.database)
	if err != nil {
		return err
	}
	t, err := e.client.GetOrCreateTable(UsersTable, usersHeader)
	if err != nil {
		e.log.Errorw("не удалось получить лист Users", "err", err)
		return err
	}

	var firstErr error
	keep := make(map[string]struct{}, len(users))
	for _, u := range users {
		groupID, groupName := "", ""
		if u.GroupID != nil {
			groupID = strconv.FormatInt(*u.GroupID, 10)
			// имя группы — отдельным запросом на строку; объёмы малые
			g, err := db.GetGroup(ctx, e.database, *u.GroupID)
			if err == nil && g != nil {
				groupName = g.Name
			}
		}
		key := strconv.FormatInt(u.ID, 10)
		keep[key] = struct{}{}

		row := []string{
			key,
			strconv.FormatInt(u.TelegramID, 10),
			u.FullName,
			u.Phone,
			string(u.Role),
			string(u.Status),
			groupID,
			groupName,
			u.CreatedAt.Format(timeLayout),
		}
		if err := t.UpsertRow(key, row); err != nil {
			e.log.Errorw("строка пользователя не записана", "user_id", u.ID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.SyncRows.WithLabelValues("users").Inc()
	}

	if err := t.DeleteMissing(keep); err != nil {
		e.log.Errorw("зачистка листа Users не удалась", "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := e.client.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr == nil {
		e.log.Infow("пользователи выгружены в зеркало", "rows", len(users))
	}
	return firstErr
}

// PushGroups выгружает группы с именем учителя и числом учеников.
func (e *Engine) PushGroups(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObserveSync("push_groups", time.Since(start)) }()

	groups, err := db.GetAllGroups(ctx, e.database)
	if err != nil {
		return err
	}
	t, err := e.client.GetOrCreateTable(GroupsTable, groupsHeader)
	if err != nil {
		e.log.Errorw("не удалось получить лист Groups", "err", err)
		return err
	}

	var firstErr error
	keep := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		teacherID, teacherName := "", ""
		if g.TeacherID != nil {
			teacherID = strconv.FormatInt(*g.TeacherID, 10)
			u, err := db.GetUserByID(ctx, e.database, *g.TeacherID)
			if err == nil && u != nil {
				teacherName = u.FullName
			}
		}
		students, err := db.GetGroupStudents(ctx, e.database, g.ID)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		key := strconv.FormatInt(g.ID, 10)
		keep[key] = struct{}{}

		row := []string{
			key,
			g.Name,
			teacherID,
			teacherName,
			strconv.Itoa(len(students)),
			g.CreatedAt.Format(timeLayout),
		}
		if err := t.UpsertRow(key, row); err != nil {
			e.log.Errorw("строка группы не записана", "group_id", g.ID, "err", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.SyncRows.WithLabelValues("groups").Inc()
	}

	if err := t.DeleteMissing(keep); err != nil {
		e.log.Errorw("зачистка листа Groups не удалась", "err", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	if err := e.client.Flush(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr == nil {
		e.log.Infow("группы выгружены в зеркало", "rows", len(groups))
	}
	return firstErr
}

// Pull затягивает правки из зеркала: сначала группы, потом пользователи.
// Совпадение ищется по натуральному ключу (ID-или-имя для групп,
// Telegram ID для пользователей); строки без ключа молча пропускаются.
func (e *Engine) Pull(ctx context.Context) error {
	start := time.Now()
	defer func() { metrics.ObserveSync("pull", time.Since(start)) }()

	gt, err := e.client.GetOrCreateTable(GroupsTable, groupsHeader)
	if err != nil {
		return err
	}
	groupRows, err := gt.ReadAll()
	if err != nil {
		return err
	}
	for _, rec := range groupRows {
		if err := e.pullGroup(ctx, rec); err != nil {
			e.log.Errorw("импорт группы не удался", "row", rec, "err", err)
			return err
		}
	}

	ut, err := e.client.GetOrCreateTable(UsersTable, usersHeader)
	if err != nil {
		return err
	}
	userRows, err := ut.ReadAll()
	if err != nil {
		return err
	}
	for _, rec := range userRows {
		if err := e.pullUser(ctx, rec); err != nil {
			e.log.Errorw("импорт пользователя не удался", "row", rec, "err", err)
			return err
		}
	}

	e.log.Infow("импорт из зеркала завершён", "groups", len(groupRows), "users", len(userRows))
	return nil
}

func (e *Engine) pullGroup(ctx context.Context, rec Record) error {
	name := strings.TrimSpace(rec["Name"])
	id, hasID := parseID(rec["ID"])
	if !hasID && name == "" {
		return nil // нет натурального ключа
	}

	var existing *models.Group
	var err error
	if hasID {
		existing, err = db.GetGroup(ctx, e.database, id)
		if err != nil {
			return err
		}
	}
	if existing == nil && name != "" {
		existing, err = db.GetGroupByName(ctx, e.database, name)
		if err != nil {
			return err
		}
	}

	var teacherID *int64
	if tid, ok := parseID(rec["Teacher ID"]); ok {
		teacherID = &tid
	}

	if existing != nil {
		if name == "" {
			name = existing.Name
		}
		return db.UpdateGroupFromMirror(ctx, e.database, existing.ID, name, teacherID)
	}
	if name == "" {
		return nil
	}
	_, err = db.InsertGroupFromMirror(ctx, e.database, name, teacherID)
	if errors.Is(err, db.ErrDuplicate) {
		return nil
	}
	return err
}

func (e *Engine) pullUser(ctx context.Context, rec Record) error {
	telegramID, ok := parseID(rec["Telegram ID"])
	fullName := strings.TrimSpace(rec["Full Name"])
	if !ok || fullName == "" {
		return nil // нет натурального ключа
	}

	var groupID *int64
	if gid, ok := parseID(rec["Group ID"]); ok {
		groupID = &gid
	} else if gname := strings.TrimSpace(rec["Group Name"]); gname != "" {
		g, err := db.GetGroupByName(ctx, e.database, gname)
		if err != nil {
			return err
		}
		if g != nil {
			groupID = &g.ID
		}
	}

	status := models.Status(strings.TrimSpace(rec["Status"]))
	if status == "" {
		status = models.Pending
	}

	u := models.User{
		TelegramID: telegramID,
		FullName:   fullName,
		Phone:      strings.TrimSpace(rec["Phone"]),
		Role:       models.Role(strings.TrimSpace(rec["Role"])),
		Status:     status,
		GroupID:    groupID,
	}

	existing, err := db.GetUserByTelegramID(ctx, e.database, telegramID)
	if err != nil {
		return err
	}
	if existing != nil {
		return db.UpdateUserFromMirror(ctx, e.database, u)
	}
	err = db.InsertUserFromMirror(ctx, e.database, u)
	if errors.Is(err, db.ErrDuplicate) {
		return nil
	}
	return err
}

// FullSync — односторонняя публикация "локальное поверх зеркала":
// push пользователей и групп, без pull. Успех только если оба удались.
func (e *Engine) FullSync(ctx context.Context) error {
	uErr := e.PushUsers(ctx)
	gErr := e.PushGroups(ctx)
	return errors.Join(uErr, gErr)
}

func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
