package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"

	"github.com/awmitch/GME-bot/internal/features/reputation"
)

// execer — то, что нужно журналу от пула (*pgxpool.Pool подходит).
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Journal пишет удачные выдачи в таблицу award_log.
// Повтор той же команды (variant, event_id) игнорируется.
type Journal struct {
	db execer
}

// NewJournal создаёт журнал выдач.
func NewJournal(db execer) *Journal {
	return &Journal{db: db}
}

// Record записывает выдачу.
func (j *Journal) Record(ctx context.Context, rec reputation.AwardRecord) error {
	query := `
		INSERT INTO award_log (variant, event_id, awarder, target, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (variant, event_id) DO NOTHING
	`
	tag, err := j.db.Exec(ctx, query, rec.Variant, rec.EventID, rec.Awarder, rec.Target, rec.Reason, rec.At)
	if err != nil {
		return fmt.Errorf("award_log insert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		log.WithFields(log.Fields{
			"variant":  rec.Variant,
			"event_id": rec.EventID,
		}).Debug("award already journaled")
	}
	return nil
}
