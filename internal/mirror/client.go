package mirror

import "time"

// Record — строка листа как "колонка → значение".
type Record map[string]string

// Table — именованный лист зеркала. Ключевой считается первая колонка
// заголовка (ID).
type Table interface {
	Name() string
	Header() []string
	ReadAll() ([]Record, error)
	// UpsertRow обновляет строку с ключом key или дописывает новую.
	UpsertRow(key string, values []string) error
	// DeleteMissing убирает строки, чей ключ не входит в keep.
	DeleteMissing(keep map[string]struct{}) error
	AppendRow(values []string) error
	Clear() error
}

// Client — доступ к внешнему зеркалу (ненадёжная I/O-граница).
type Client interface {
	// GetOrCreateTable возвращает лист, создавая его с заголовком при
	// первом обращении.
	GetOrCreateTable(name string, header []string) (Table, error)
	// Flush сбрасывает накопленные изменения.
	Flush() error
}

const (
	rowRetries    = 3
	rowRetryDelay = time.Second
)

// withRowRetry — повтор записи строки при временном сбое, до 3 попыток
// с паузой в секунду.
func withRowRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < rowRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt < rowRetries-1 {
			time.Sleep(rowRetryDelay)
		}
	}
	return err
}
