package filestore

import (
	"sort"

	"github.com/awmitch/GME-bot/internal/common"
)

// Ledger — счётчики репутации "имя → количество".
// Ключи нормализуются внутри, вызывающему не нужно приводить регистр.
// Счётчики только растут.
type Ledger struct {
	table *Table[int]
}

// OpenLedger загружает счётчики из файла.
func OpenLedger(path string) *Ledger {
	return &Ledger{table: OpenTable[int](path)}
}

// Path возвращает путь к файлу счётчиков.
func (l *Ledger) Path() string { return l.table.Path() }

// Get возвращает счётчик (0, если записи нет).
func (l *Ledger) Get(handle string) int {
	v, _ := l.table.Get(common.NormalizeHandle(handle))
	return v
}

// Increment добавляет 1 и сразу сохраняет файл.
// Чтение, изменение и запись идут под одним локом, поэтому параллельные
// вызовы для одного имени не теряют обновлений.
// При ошибке записи новое значение всё равно возвращается вместе с *PersistError.
func (l *Ledger) Increment(handle string) (int, error) {
	return l.table.Update(common.NormalizeHandle(handle), func(cur int, _ bool) int {
		return cur + 1
	})
}

// Standing — строка таблицы лидеров.
type Standing struct {
	Handle string
	Count  int
}

// TopN возвращает n лучших по убыванию счётчика.
// При равенстве раньше идёт тот, кто раньше появился в таблице.
func (l *Ledger) TopN(n int) []Standing {
	if n <= 0 {
		return nil
	}
	entries := l.table.Snapshot()
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value > entries[j].Value
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]Standing, len(entries))
	for i, e := range entries {
		out[i] = Standing{Handle: e.Key, Count: e.Value}
	}
	return out
}

// Flush повторяет запись, если прошлая не удалась.
func (l *Ledger) Flush() error { return l.table.Flush() }
