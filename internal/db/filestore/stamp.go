package filestore

import (
	"errors"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/common"
)

// ReadStamp читает одну метку времени из текстового файла (common.StampLayout, UTC).
// ok=false, если файла нет или метка не разбирается.
func ReadStamp(path string) (time.Time, bool) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false
	}
	if err != nil {
		log.WithError(err).WithField("file", path).Warn("stamp file unreadable")
		return time.Time{}, false
	}
	t, err := common.ParseStamp(strings.TrimSpace(string(data)))
	if err != nil {
		log.WithError(err).WithField("file", path).Warn("bad stamp, ignoring")
		return time.Time{}, false
	}
	return t, true
}

// WriteStamp атомарно записывает метку времени в файл.
func WriteStamp(path string, t time.Time) error {
	if err := writeAtomic(path, []byte(common.FormatStamp(t))); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}
