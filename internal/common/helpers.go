// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: нормализация имён пользователей, форматирование времени,
// формат временных меток в файлах состояния.
package common

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// StampLayout — формат временных меток в файлах состояния (всегда UTC).
// Доли секунды пишутся, только если они есть: метка на целой секунде
// совпадает с форматом старых файлов бота, и старые файлы читаются без миграции.
const StampLayout = "2006-01-02 15:04:05.999999999"

// Имена на Reddit: 3–20 символов, латиница, цифры, _ и -.
var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,20}$`)

// NormalizeHandle приводит имя пользователя к ключу хранилища:
// без префикса u/ и в нижнем регистре.
func NormalizeHandle(handle string) string {
	return strings.ToLower(StripHandlePrefix(handle))
}

// StripHandlePrefix убирает префиксы "/u/" и "u/", регистр сохраняется.
//
// Примеры:
//
//	StripHandlePrefix("u/Alice")   → "Alice"
//	StripHandlePrefix("/u/Alice")  → "Alice"
//	StripHandlePrefix("ursula")    → "ursula"
func StripHandlePrefix(handle string) string {
	h := strings.TrimSpace(handle)
	h = strings.TrimPrefix(h, "/")
	if len(h) > 2 && strings.EqualFold(h[:2], "u/") {
		h = h[2:]
	}
	return h
}

// HasHandlePrefix проверяет, что имя указано как u/имя.
func HasHandlePrefix(handle string) bool {
	h := strings.TrimPrefix(strings.TrimSpace(handle), "/")
	return len(h) > 2 && strings.EqualFold(h[:2], "u/")
}

// IsValidHandle проверяет формат имени (без префикса).
func IsValidHandle(handle string) bool {
	return handlePattern.MatchString(handle)
}

// SameHandle сравнивает имена без учёта регистра и префиксов.
func SameHandle(a, b string) bool {
	return NormalizeHandle(a) == NormalizeHandle(b)
}

// FormatRemaining форматирует оставшееся время для ответа пользователю.
// Пример: FormatRemaining(252*time.Second) → "4m12s"
func FormatRemaining(d time.Duration) string {
	if d < time.Second {
		return "1s"
	}
	d = d.Round(time.Second)
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	if m == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// FormatStamp форматирует время в StampLayout (UTC).
func FormatStamp(t time.Time) string {
	return t.UTC().Format(StampLayout)
}

// ParseStamp разбирает метку в StampLayout как UTC. Доли секунды необязательны.
func ParseStamp(s string) (time.Time, error) {
	return time.ParseInLocation(StampLayout, strings.TrimSpace(s), time.UTC)
}
