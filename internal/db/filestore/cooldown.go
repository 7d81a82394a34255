package filestore

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/common"
)

// Cooldowns — время последней удачной выдачи по выдающему ("имя → метка").
// Метки хранятся строками в common.StampLayout (UTC), как в старых файлах бота.
//
// Новые записи идут под именем в нижнем регистре. Старый бот писал имя как есть,
// поэтому при отсутствии нормализованного ключа ищем исходное написание.
type Cooldowns struct {
	table *Table[string]
}

// OpenCooldowns загружает таблицу кулдаунов из файла.
func OpenCooldowns(path string) *Cooldowns {
	return &Cooldowns{table: OpenTable[string](path)}
}

// Path возвращает путь к файлу кулдаунов.
func (c *Cooldowns) Path() string { return c.table.Path() }

// Last возвращает момент последней выдачи. ok=false, если записи нет
// или метка не разбирается.
func (c *Cooldowns) Last(handle string) (time.Time, bool) {
	c.table.mu.Lock()
	defer c.table.mu.Unlock()
	return c.lastLocked(handle)
}

// Claim проверяет кулдаун и, если он истёк, записывает выдачу в момент now.
// Проверка и запись идут под одним локом: из параллельных вызовов для одного
// выдающего в окне window проходит только один.
// Если кулдаун ещё идёт, возвращает оставшееся время и ok=false.
// При ошибке записи выдача всё равно засчитана (ok=true) и возвращается *PersistError.
func (c *Cooldowns) Claim(handle string, now time.Time, window time.Duration) (time.Duration, bool, error) {
	t := c.table
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, ok := c.lastLocked(handle); ok {
		if elapsed := now.Sub(last); elapsed < window {
			return window - elapsed, false, nil
		}
	}

	key := common.NormalizeHandle(handle)
	if _, ok := t.values[key]; !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = common.FormatStamp(now)
	return 0, true, t.flushLocked()
}

// lastLocked ищет метку по нормализованному имени, затем по исходному. Вызывается под локом.
func (c *Cooldowns) lastLocked(handle string) (time.Time, bool) {
	key := common.NormalizeHandle(handle)
	raw, ok := c.table.values[key]
	if !ok {
		legacy := common.StripHandlePrefix(handle)
		if legacy == key {
			return time.Time{}, false
		}
		if raw, ok = c.table.values[legacy]; !ok {
			return time.Time{}, false
		}
		key = legacy
	}

	t, err := common.ParseStamp(raw)
	if err != nil {
		log.WithError(err).WithField("awarder", key).Warn("bad cooldown stamp, ignoring")
		return time.Time{}, false
	}
	return t, true
}

// Flush повторяет запись, если прошлая не удалась.
func (c *Cooldowns) Flush() error { return c.table.Flush() }
