package models

import "time"

type Role string

const (
	Student Role = "student"
	Teacher Role = "teacher"
	Admin   Role = "admin"
)

type Status string

const (
	Pending  Status = "pending"
	Active   Status = "active"
	Rejected Status = "rejected"
)

// RoleTitle — отображаемое имя роли для сообщений и меню.
func RoleTitle(r Role) string {
	switch r {
	case Student:
		return "Ученик"
	case Teacher:
		return "Учитель"
	case Admin:
		return "Администратор"
	default:
		return string(r)
	}
}

type User struct {
	ID         int64
	TelegramID int64
	FullName   string
	Phone      string
	Role       Role
	Status     Status
	GroupID    *int64
	CreatedAt  time.Time
}

type Group struct {
	ID        int64
	Name      string
	TeacherID *int64
	CreatedAt time.Time
}

// GroupDetails — группа вместе с разрешёнными ссылками (учитель, ученики).
type GroupDetails struct {
	Group
	Teacher       *User
	Students      []User
	StudentsCount int
}
