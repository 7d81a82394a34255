// Package filestore хранит состояние бота в JSON-файлах.
//
// Каждый файл — плоский JSON-объект "ключ → значение". Порядок ключей в файле
// совпадает с порядком их первого появления, поэтому после перезапуска
// таблица лидеров разрешает ничьи так же, как до него.
//
// Запись атомарная: снимок пишется во временный файл рядом с основным,
// затем временный файл переименовывается поверх основного. Падение посреди
// записи не портит последний удачный снимок.
package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/metrics"
)

// PersistError — не удалось сбросить снимок на диск.
// Значение в памяти при этом уже изменено и остаётся главным до следующей записи.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Table — упорядоченная таблица "ключ → значение" с файлом на диске.
// Все операции берут один мьютекс на файл; запись на диск идёт под ним же.
type Table[V any] struct {
	mu     sync.Mutex
	path   string
	keys   []string
	values map[string]V
	dirty  bool // последний сброс не удался
}

// OpenTable загружает таблицу из path.
// Отсутствующий, нечитаемый или битый файл — пустая таблица (с записью в лог).
func OpenTable[V any](path string) *Table[V] {
	t := &Table[V]{
		path:   path,
		values: make(map[string]V),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.WithField("file", path).Info("Файл состояния не найден, начинаем с пустого")
		return t
	case err != nil:
		log.WithError(err).WithField("file", path).Warn("Файл состояния не читается, начинаем с пустого")
		return t
	}

	keys, values, err := decodeOrdered[V](data)
	if err != nil {
		log.WithError(err).WithField("file", path).Error("Файл состояния повреждён, начинаем с пустого")
		return t
	}
	t.keys, t.values = keys, values

	log.WithFields(log.Fields{
		"file":    path,
		"entries": len(keys),
	}).Info("Файл состояния загружен")
	return t
}

// Path возвращает путь к файлу таблицы.
func (t *Table[V]) Path() string { return t.path }

// Get возвращает значение по ключу.
func (t *Table[V]) Get(key string) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.values[key]
	return v, ok
}

// Len возвращает количество ключей.
func (t *Table[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.keys)
}

// Update атомарно читает, меняет и сохраняет значение ключа.
// fn получает текущее значение и признак его наличия.
// При ошибке записи возвращается новое значение и *PersistError.
func (t *Table[V]) Update(key string, fn func(cur V, ok bool) V) (V, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur, ok := t.values[key]
	next := fn(cur, ok)
	if !ok {
		t.keys = append(t.keys, key)
	}
	t.values[key] = next

	return next, t.flushLocked()
}

// Entry — пара ключ/значение снимка.
type Entry[V any] struct {
	Key   string
	Value V
}

// Snapshot возвращает копию таблицы в порядке первого появления ключей.
func (t *Table[V]) Snapshot() []Entry[V] {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry[V], 0, len(t.keys))
	for _, k := range t.keys {
		out = append(out, Entry[V]{Key: k, Value: t.values[k]})
	}
	return out
}

// Flush принудительно сохраняет таблицу (например, при остановке, если прошлая запись не удалась).
func (t *Table[V]) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty {
		return nil
	}
	return t.flushLocked()
}

func (t *Table[V]) flushLocked() error {
	data, err := encodeOrdered(t.keys, t.values)
	if err == nil {
		err = writeAtomic(t.path, data)
	}
	if err != nil {
		t.dirty = true
		metrics.PersistErrors.WithLabelValues(filepath.Base(t.path)).Inc()
		log.WithError(err).WithField("file", t.path).Error("Не удалось сохранить файл состояния")
		return &PersistError{Path: t.path, Err: err}
	}
	if t.dirty {
		log.WithField("file", t.path).Info("Файл состояния снова сохраняется")
	}
	t.dirty = false
	return nil
}

// encodeOrdered пишет плоский JSON-объект с ключами в заданном порядке.
// Один и тот же снимок всегда даёт одинаковые байты.
func encodeOrdered[V any](keys []string, values map[string]V) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteString(", ")
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(values[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(kb)
		buf.WriteString(": ")
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeOrdered читает плоский JSON-объект, сохраняя порядок ключей.
// Повторный ключ оставляет первую позицию и последнее значение.
func decodeOrdered[V any](data []byte) ([]string, map[string]V, error) {
	values := make(map[string]V)
	var keys []string

	if len(bytes.TrimSpace(data)) == 0 {
		return keys, values, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("expected key, got %v", tok)
		}
		var v V
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("key %q: %w", key, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = v
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, nil, fmt.Errorf("trailing data after JSON object")
	}
	return keys, values, nil
}

// writeAtomic пишет data во временный файл в той же папке и переименовывает его в path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// после удачного Rename файла уже нет, ошибку игнорируем
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
