package fsm

import (
	"context"
	"sync"
	"time"
)

// Хранилище состояния диалога: одна запись на chatID. Обновление
// обрабатывается по одному на чат, поэтому достаточно обычного мьютекса.
// Брошенные диалоги не живут вечно: Sweep выметает записи старше TTL.

var DefaultTTL = 30 * time.Minute

type entry[T any] struct {
	val     T
	touched time.Time
}

type Store[T any] struct {
	mu sync.Mutex
	m  map[int64]entry[T]
}

type sweeper interface {
	sweep(now time.Time) int
}

var registry struct {
	mu     sync.Mutex
	stores []sweeper
}

func NewStore[T any]() *Store[T] {
	s := &Store[T]{m: make(map[int64]entry[T])}
	registry.mu.Lock()
	registry.stores = append(registry.stores, s)
	registry.mu.Unlock()
	return s
}

// Get возвращает состояние диалога; zero value и false, если его нет.
func (s *Store[T]) Get(chatID int64) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[chatID]
	if !ok {
		var zero T
		return zero, false
	}
	return e.val, true
}

// Set сохраняет состояние и продлевает его жизнь.
func (s *Store[T]) Set(chatID int64, val T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = entry[T]{val: val, touched: time.Now()}
}

// Touch продлевает жизнь записи без изменения значения.
func (s *Store[T]) Touch(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[chatID]; ok {
		e.touched = time.Now()
		s.m[chatID] = e
	}
}

// Clear убирает состояние (завершение или отмена диалога).
func (s *Store[T]) Clear(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
}

func (s *Store[T]) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.m {
		if now.Sub(e.touched) > DefaultTTL {
			delete(s.m, id)
			n++
		}
	}
	return n
}

// Sweep выметает просроченные диалоги во всех хранилищах.
// Запускается фоновой джобой.
func Sweep(context.Context) error {
	now := time.Now()
	registry.mu.Lock()
	stores := registry.stores
	registry.mu.Unlock()
	for _, s := range stores {
		s.sweep(now)
	}
	return nil
}
