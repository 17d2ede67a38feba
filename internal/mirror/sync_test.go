//go:build testutil
// +build testutil

package mirror_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/mirror"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/testutil/testdb"
	"go.uber.org/zap"
)

// memClient — зеркало в памяти для тестов движка синхронизации.
type memClient struct {
	tables map[string]*memTable
}

func newMemClient() *memClient {
	return &memClient{tables: make(map[string]*memTable)}
}

func (c *memClient) GetOrCreateTable(name string, header []string) (mirror.Table, error) {
	if t, ok := c.tables[name]; ok {
		return t, nil
	}
	t := &memTable{name: name, header: header}
	c.tables[name] = t
	return t, nil
}

func (c *memClient) Flush() error { return nil }

type memTable struct {
	name        string
	header      []string
	rows        [][]string
	failUpserts int // первые N upsert'ов отвечают ошибкой
}

func (t *memTable) Name() string     { return t.name }
func (t *memTable) Header() []string { return t.header }

func (t *memTable) ReadAll() ([]mirror.Record, error) {
	var out []mirror.Record
	for _, row := range t.rows {
		rec := make(mirror.Record, len(t.header))
		for i, col := range t.header {
			if i < len(row) {
				rec[col] = row[i]
			} else {
				rec[col] = ""
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (t *memTable) UpsertRow(key string, values []string) error {
	if t.failUpserts > 0 {
		t.failUpserts--
		return errors.New("временный сбой зеркала")
	}
	for i, row := range t.rows {
		if len(row) > 0 && row[0] == key {
			t.rows[i] = values
			return nil
		}
	}
	t.rows = append(t.rows, values)
	return nil
}

func (t *memTable) DeleteMissing(keep map[string]struct{}) error {
	var kept [][]string
	for _, row := range t.rows {
		if len(row) > 0 {
			if _, ok := keep[row[0]]; ok {
				kept = append(kept, row)
			}
		}
	}
	t.rows = kept
	return nil
}

func (t *memTable) AppendRow(values []string) error {
	t.rows = append(t.rows, values)
	return nil
}

func (t *memTable) Clear() error {
	t.rows = nil
	return nil
}

func (t *memTable) find(key string) []string {
	for _, row := range t.rows {
		if len(row) > 0 && row[0] == key {
			return row
		}
	}
	return nil
}

func seedUser(t *testing.T, ctx context.Context, h *testdb.DBHandle, tgID int64, name string, role models.Role) *models.User {
	t.Helper()
	if err := db.CreateUser(ctx, h.DB, tgID, name, "+79990000000", role); err != nil {
		t.Fatal(err)
	}
	if err := db.ApproveUser(ctx, h.DB, tgID); err != nil {
		t.Fatal(err)
	}
	u, err := db.GetUserByTelegramID(ctx, h.DB, tgID)
	if err != nil || u == nil {
		t.Fatalf("seed user %d: %v", tgID, err)
	}
	return u
}

func TestPush_UpsertAndTombstone(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	client := newMemClient()
	engine := mirror.NewEngine(h.DB, client, zap.NewNop().Sugar())

	g1, err := db.CreateGroup(ctx, h.DB, "Группа А")
	if err != nil {
		t.Fatal(err)
	}
	g2, err := db.CreateGroup(ctx, h.DB, "Группа Б")
	if err != nil {
		t.Fatal(err)
	}

	if err := engine.PushGroups(ctx); err != nil {
		t.Fatal(err)
	}
	gt := client.tables[mirror.GroupsTable]
	if len(gt.rows) != 2 {
		t.Fatalf("после push 2 строки, получили %d", len(gt.rows))
	}

	// локальное удаление должно зачищать строку при следующем push
	if err := db.DeleteGroup(ctx, h.DB, g2); err != nil {
		t.Fatal(err)
	}
	if err := db.UpdateGroupName(ctx, h.DB, g1, "Группа А+"); err != nil {
		t.Fatal(err)
	}
	if err := engine.PushGroups(ctx); err != nil {
		t.Fatal(err)
	}
	if len(gt.rows) != 1 {
		t.Fatalf("удалённая группа должна исчезнуть из зеркала: %v", gt.rows)
	}
	if gt.rows[0][1] != "Группа А+" {
		t.Fatalf("переименование не доехало до зеркала: %v", gt.rows[0])
	}
}

func TestPull_UpdatesAndInserts(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	client := newMemClient()
	engine := mirror.NewEngine(h.DB, client, zap.NewNop().Sugar())

	u := seedUser(t, ctx, h, 100, "Иванов", models.Student)
	if err := engine.FullSync(ctx); err != nil {
		t.Fatal(err)
	}

	ut := client.tables[mirror.UsersTable]
	row := ut.find("1")
	if row == nil {
		// внутренний id пользователя не обязан быть 1, ищем по telegram id
		for _, r := range ut.rows {
			if r[1] == "100" {
				row = r
			}
		}
	}
	if row == nil {
		t.Fatalf("пользователь не выгружен: %v", ut.rows)
	}

	// правка имени в зеркале
	row[2] = "Иванов Иван Иванович"
	// новая группа, заведённая в зеркале вручную (без ID)
	gt := client.tables[mirror.GroupsTable]
	_ = gt.AppendRow([]string{"", "Новая группа", "", "", "", ""})
	// новый пользователь из зеркала, без статуса — должен стать pending
	_ = ut.AppendRow([]string{"", "200", "Новичок", "+79991112233", "student", "", "", "Новая группа", ""})
	// строка без натурального ключа молча пропускается
	_ = ut.AppendRow([]string{"", "", "", "", "", "", "", "", ""})

	if err := engine.Pull(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetUserByTelegramID(ctx, h.DB, u.TelegramID)
	if err != nil {
		t.Fatal(err)
	}
	if got.FullName != "Иванов Иван Иванович" {
		t.Fatalf("правка имени из зеркала не применилась: %#v", got)
	}

	g, err := db.GetGroupByName(ctx, h.DB, "Новая группа")
	if err != nil || g == nil {
		t.Fatalf("группа из зеркала не создана: %v, %v", g, err)
	}

	newcomer, err := db.GetUserByTelegramID(ctx, h.DB, 200)
	if err != nil || newcomer == nil {
		t.Fatalf("пользователь из зеркала не создан: %v, %v", newcomer, err)
	}
	if newcomer.Status != models.Pending {
		t.Fatalf("без статуса в зеркале ожидали pending, получили %s", newcomer.Status)
	}
	if newcomer.GroupID == nil || *newcomer.GroupID != g.ID {
		t.Fatalf("группа по имени не сопоставлена: %#v", newcomer)
	}

	// повторный pull идемпотентен
	if err := engine.Pull(ctx); err != nil {
		t.Fatal(err)
	}
	users, err := db.GetAllUsers(ctx, h.DB)
	if err != nil {
		t.Fatal(err)
	}
	if len(users) != 2 {
		t.Fatalf("повторный pull не должен плодить пользователей: %d", len(users))
	}
}

func TestPush_RowFailureDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	client := newMemClient()
	engine := mirror.NewEngine(h.DB, client, zap.NewNop().Sugar())

	seedUser(t, ctx, h, 300, "Первый", models.Student)
	seedUser(t, ctx, h, 301, "Второй", models.Student)

	// лист заводим заранее и ломаем первую запись
	tbl, _ := client.GetOrCreateTable(mirror.UsersTable, nil)
	tbl.(*memTable).failUpserts = 1

	err = engine.PushUsers(ctx)
	if err == nil {
		t.Fatal("сбой строки должен делать итог неуспешным")
	}
	ut := client.tables[mirror.UsersTable]
	if len(ut.rows) != 1 {
		t.Fatalf("вторая строка должна быть записана несмотря на сбой первой: %v", ut.rows)
	}
}
