//go:build testutil
// +build testutil

package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/kulun-school/telegram-bot/internal/db"
	"github.com/kulun-school/telegram-bot/internal/models"
	"github.com/kulun-school/telegram-bot/internal/testutil/testdb"
)

func TestUsers_RegistrationLifecycle(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if err := db.CreateUser(ctx, h.DB, 100, "Иванов Иван", "+79991234567", models.Student); err != nil {
		t.Fatal(err)
	}

	// повторная заявка с тем же telegram_id
	err = db.CreateUser(ctx, h.DB, 100, "Иванов Иван", "+79991234567", models.Student)
	if !errors.Is(err, db.ErrDuplicate) {
		t.Fatalf("ожидали ErrDuplicate, получили %v", err)
	}

	u, err := db.GetUserByTelegramID(ctx, h.DB, 100)
	if err != nil {
		t.Fatal(err)
	}
	if u == nil || u.Status != models.Pending || u.Role != models.Student {
		t.Fatalf("новая заявка должна быть pending student: %#v", u)
	}

	if err := db.ApproveUser(ctx, h.DB, 100); err != nil {
		t.Fatal(err)
	}
	u, _ = db.GetUserByTelegramID(ctx, h.DB, 100)
	if u.Status != models.Active {
		t.Fatalf("после подтверждения статус active, получили %s", u.Status)
	}

	// подтверждение идемпотентно
	if err := db.ApproveUser(ctx, h.DB, 100); err != nil {
		t.Fatalf("повторное подтверждение не должно падать: %v", err)
	}

	// неизвестный telegram_id
	if err := db.ApproveUser(ctx, h.DB, 999); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestUsers_RejectAndMissingLookups(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	u, err := db.GetUserByTelegramID(ctx, h.DB, 555)
	if err != nil || u != nil {
		t.Fatalf("отсутствующий пользователь — nil, nil; получили %v, %v", u, err)
	}

	if err := db.CreateUser(ctx, h.DB, 555, "Сидоров", "+79990000000", models.Teacher); err != nil {
		t.Fatal(err)
	}
	if err := db.RejectUser(ctx, h.DB, 555); err != nil {
		t.Fatal(err)
	}
	u, _ = db.GetUserByTelegramID(ctx, h.DB, 555)
	if u.Status != models.Rejected {
		t.Fatalf("ожидали rejected, получили %s", u.Status)
	}
}

func TestUsers_GroupAssignment(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	if err := db.CreateUser(ctx, h.DB, 200, "Ученик", "+79991112233", models.Student); err != nil {
		t.Fatal(err)
	}
	if err := db.ApproveUser(ctx, h.DB, 200); err != nil {
		t.Fatal(err)
	}
	u, _ := db.GetUserByTelegramID(ctx, h.DB, 200)

	gid, err := db.CreateGroup(ctx, h.DB, "Группа А")
	if err != nil {
		t.Fatal(err)
	}

	// несуществующая группа
	if err := db.AssignUserToGroup(ctx, h.DB, u.ID, 9999); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound по группе, получили %v", err)
	}

	if err := db.AssignUserToGroup(ctx, h.DB, u.ID, gid); err != nil {
		t.Fatal(err)
	}
	u, _ = db.GetUserByTelegramID(ctx, h.DB, 200)
	if u.GroupID == nil || *u.GroupID != gid {
		t.Fatalf("group_id не записан: %#v", u)
	}

	students, err := db.GetGroupStudents(ctx, h.DB, gid)
	if err != nil || len(students) != 1 {
		t.Fatalf("в группе должен быть 1 ученик: %v, %v", students, err)
	}

	if err := db.RemoveUserFromGroup(ctx, h.DB, u.ID); err != nil {
		t.Fatal(err)
	}
	u, _ = db.GetUserByTelegramID(ctx, h.DB, 200)
	if u.GroupID != nil {
		t.Fatal("после открепления group_id должен быть NULL")
	}
}

func TestEnsureAdmins_Idempotent(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	ids := []int64{42, 43}
	if err := db.EnsureAdmins(ctx, h.DB, ids); err != nil {
		t.Fatal(err)
	}
	// повторный запуск при старте — штатная ситуация
	if err := db.EnsureAdmins(ctx, h.DB, ids); err != nil {
		t.Fatal(err)
	}

	for _, id := range ids {
		u, err := db.GetUserByTelegramID(ctx, h.DB, id)
		if err != nil {
			t.Fatal(err)
		}
		if u == nil || u.Role != models.Admin || u.Status != models.Active {
			t.Fatalf("администратор %d должен быть active admin: %#v", id, u)
		}
	}
}
