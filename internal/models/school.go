package models

import "time"

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays — порядок дней для сортировки и клавиатур.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdayTitles = map[Weekday]string{
	Monday:    "Понедельник",
	Tuesday:   "Вторник",
	Wednesday: "Среда",
	Thursday:  "Четверг",
	Friday:    "Пятница",
	Saturday:  "Суббота",
	Sunday:    "Воскресенье",
}

// WeekdayFromTime — соответствие дню недели стандартной библиотеки.
func WeekdayFromTime(d time.Weekday) Weekday {
	switch d {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

func WeekdayTitle(d Weekday) string {
	if t, ok := weekdayTitles[d]; ok {
		return t
	}
	return string(d)
}

type Subject struct {
	ID          int64
	Name        string
	Description *string
}

type ScheduleItem struct {
	ID          int64
	GroupID     int64
	DayOfWeek   Weekday
	StartTime   string // "HH:MM"
	EndTime     string // "HH:MM"
	Subject     string
	TeacherID   *int64
	TeacherName *string
}

type Assignment struct {
	ID          int64
	Title       string
	Description string
	GroupID     int64
	TeacherID   int64
	Deadline    time.Time
	CreatedAt   time.Time
	GroupName   *string
	TeacherName *string
}

type AttendanceStatus string

const (
	Present AttendanceStatus = "present"
	Absent  AttendanceStatus = "absent"
	Late    AttendanceStatus = "late"
)

type AttendanceRecord struct {
	ID        int64
	Date      time.Time
	GroupID   int64
	StudentID int64
	Status    AttendanceStatus
	MarkedBy  int64
	MarkedAt  time.Time
}

// AttendanceStats — сводка по ученику в группе.
type AttendanceStats struct {
	TotalClasses int
	Present      int
	Rate         float64 // процент
}

type Grade struct {
	ID          int64
	StudentID   int64
	GroupID     int64
	Subject     string
	Grade       int // 1..5
	Date        time.Time
	TeacherID   int64
	Comment     *string
	CreatedAt   time.Time
	StudentName *string
}

// SystemStats — агрегаты для админского отчёта. Считаются независимыми
// запросами, моментального снимка нет.
type SystemStats struct {
	TotalUsers    int
	ActiveUsers   int
	PendingUsers  int
	StudentsCount int
	TeachersCount int
	GroupsCount   int
}
