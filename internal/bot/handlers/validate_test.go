package handlers

import (
	"strings"
	"testing"

	"github.com/kulun-school/telegram-bot/internal/models"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+7 999 123-45-67", "+79991234567", true},
		{"8 (999) 123-45-67", "+79991234567", true},
		{"79991234567", "+79991234567", true},
		{"9991234567", "+79991234567", true},
		{"999123456", "", false}, // 9 цифр — мало
		{"abc", "", false},
		{"", "", false},
		{"  8999 123 45 67  ", "+79991234567", true},
	}
	for _, c := range cases {
		got, ok := normalizePhone(c.in)
		if ok != c.ok || got != c.want {
			t.Errorf("normalizePhone(%q) = %q, %v; ожидали %q, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestParseTimeRange(t *testing.T) {
	cases := []struct {
		in         string
		start, end string
		ok         bool
	}{
		{"14:00-15:30", "14:00", "15:30", true},
		{" 09:00 - 10:00 ", "09:00", "10:00", true},
		{"15:30-14:00", "", "", false}, // начало позже конца
		{"14:00-14:00", "", "", false},
		{"25:00-26:00", "", "", false},
		{"14:00", "", "", false},
		{"14:0-15:00", "", "", false},
		{"", "", "", false},
	}
	for _, c := range cases {
		start, end, ok := parseTimeRange(c.in)
		if ok != c.ok || start != c.start || end != c.end {
			t.Errorf("parseTimeRange(%q) = %q, %q, %v; ожидали %q, %q, %v",
				c.in, start, end, ok, c.start, c.end, c.ok)
		}
	}
}

func TestFormatSchedule(t *testing.T) {
	if got := formatSchedule(nil); !strings.Contains(got, "пустое") {
		t.Fatalf("для пустого расписания ожидали заглушку, получили %q", got)
	}

	teacher := "Петров Пётр"
	items := []models.ScheduleItem{
		{DayOfWeek: models.Wednesday, StartTime: "10:00", EndTime: "11:00", Subject: "Физика"},
		{DayOfWeek: models.Monday, StartTime: "14:00", EndTime: "15:30", Subject: "Математика", TeacherName: &teacher},
	}
	got := formatSchedule(items)

	mon := strings.Index(got, "Понедельник")
	wed := strings.Index(got, "Среда")
	if mon == -1 || wed == -1 || mon > wed {
		t.Fatalf("дни должны идти в порядке недели:\n%s", got)
	}
	if !strings.Contains(got, "Математика") || !strings.Contains(got, teacher) {
		t.Fatalf("в расписании нет предмета или учителя:\n%s", got)
	}
}
