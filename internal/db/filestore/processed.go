package filestore

import (
	"time"

	"github.com/awmitch/GME-bot/internal/common"
)

// DefaultProcessedLimit — сколько последних id команд помнить.
const DefaultProcessedLimit = 5000

// Processed — журнал уже обработанных команд ("id события → когда обработано").
// Нужен, чтобы после перезапуска повтор той же команды не начислил репутацию второй раз.
// Хранит только limit последних id.
type Processed struct {
	table *Table[string]
	limit int
}

// OpenProcessed загружает журнал обработанных команд.
func OpenProcessed(path string, limit int) *Processed {
	if limit <= 0 {
		limit = DefaultProcessedLimit
	}
	return &Processed{table: OpenTable[string](path), limit: limit}
}

// Path возвращает путь к файлу журнала.
func (p *Processed) Path() string { return p.table.Path() }

// Seen сообщает, обрабатывалась ли команда.
func (p *Processed) Seen(eventID string) bool {
	_, ok := p.table.Get(eventID)
	return ok
}

// Mark записывает команду как обработанную и сохраняет файл.
// Возвращает false, если команда уже была в журнале (файл тогда не трогаем).
func (p *Processed) Mark(eventID string, at time.Time) (bool, error) {
	t := p.table
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.values[eventID]; ok {
		return false, nil
	}
	t.keys = append(t.keys, eventID)
	t.values[eventID] = common.FormatStamp(at)

	if over := len(t.keys) - p.limit; over > 0 {
		for _, k := range t.keys[:over] {
			delete(t.values, k)
		}
		t.keys = append(t.keys[:0], t.keys[over:]...)
	}

	return true, t.flushLocked()
}

// Flush повторяет запись, если прошлая не удалась.
func (p *Processed) Flush() error { return p.table.Flush() }
