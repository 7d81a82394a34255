package filestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store открывает файлы состояния в одной папке.
// Один и тот же файл открывается один раз: варианты репутации,
// указавшие одно имя файла, получают общий экземпляр и общий лок.
type Store struct {
	dir string

	mu        sync.Mutex
	ledgers   map[string]*Ledger
	cooldowns map[string]*Cooldowns
	processed map[string]*Processed
	flushers  []func() error
}

// NewStore создаёт папку dir (если её нет) и возвращает хранилище.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать папку данных %s: %w", dir, err)
	}
	return &Store{
		dir:       dir,
		ledgers:   make(map[string]*Ledger),
		cooldowns: make(map[string]*Cooldowns),
		processed: make(map[string]*Processed),
	}, nil
}

// Dir возвращает папку данных.
func (s *Store) Dir() string { return s.dir }

// Ledger возвращает счётчики из файла name.
func (s *Store) Ledger(name string) *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.dir, name)
	if l, ok := s.ledgers[path]; ok {
		return l
	}
	l := OpenLedger(path)
	s.ledgers[path] = l
	s.flushers = append(s.flushers, l.Flush)
	return l
}

// Cooldowns возвращает таблицу кулдаунов из файла name.
func (s *Store) Cooldowns(name string) *Cooldowns {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.dir, name)
	if c, ok := s.cooldowns[path]; ok {
		return c
	}
	c := OpenCooldowns(path)
	s.cooldowns[path] = c
	s.flushers = append(s.flushers, c.Flush)
	return c
}

// Processed возвращает журнал обработанных команд из файла name.
func (s *Store) Processed(name string) *Processed {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := filepath.Join(s.dir, name)
	if p, ok := s.processed[path]; ok {
		return p
	}
	p := OpenProcessed(path, DefaultProcessedLimit)
	s.processed[path] = p
	s.flushers = append(s.flushers, p.Flush)
	return p
}

// Path возвращает полный путь к файлу name в папке данных.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// Flush повторяет запись всех файлов, чья прошлая запись не удалась.
// Вызывается при остановке.
func (s *Store) Flush() error {
	s.mu.Lock()
	flushers := append([]func() error(nil), s.flushers...)
	s.mu.Unlock()

	var errs []error
	for _, f := range flushers {
		if err := f(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
