package fsm

import (
	"context"
	"testing"
	"time"
)

func TestStore_SetGetClear(t *testing.T) {
	s := NewStore[string]()

	if _, ok := s.Get(1); ok {
		t.Fatal("пустое хранилище не должно отдавать значение")
	}

	s.Set(1, "a")
	v, ok := s.Get(1)
	if !ok || v != "a" {
		t.Fatalf("ожидали \"a\", получили %q, ok=%v", v, ok)
	}

	s.Clear(1)
	if _, ok := s.Get(1); ok {
		t.Fatal("после Clear значение не должно находиться")
	}
}

func TestSweep_ExpiresStaleDialogs(t *testing.T) {
	old := DefaultTTL
	DefaultTTL = 10 * time.Millisecond
	defer func() { DefaultTTL = old }()

	s := NewStore[int]()
	s.Set(1, 42)
	s.Set(2, 43)

	time.Sleep(30 * time.Millisecond)
	s.Set(2, 44) // свежая запись переживает sweep

	if err := Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}

	if _, ok := s.Get(1); ok {
		t.Fatal("просроченный диалог должен быть вычищен")
	}
	if v, ok := s.Get(2); !ok || v != 44 {
		t.Fatalf("свежий диалог должен остаться, получили %d, ok=%v", v, ok)
	}
}

func TestTouch_ProlongsDialog(t *testing.T) {
	old := DefaultTTL
	DefaultTTL = 50 * time.Millisecond
	defer func() { DefaultTTL = old }()

	s := NewStore[int]()
	s.Set(7, 1)

	time.Sleep(30 * time.Millisecond)
	s.Touch(7)
	time.Sleep(30 * time.Millisecond)

	if err := Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Get(7); !ok {
		t.Fatal("Touch должен продлевать жизнь записи")
	}
}
