package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/mesafacil/comanda/pkg/outbox"
	"github.com/mesafacil/comanda/pkg/tracing"
)

// Outbox appends events through the context-scoped querier, so an append
// made inside WithinTx commits or rolls back with the business mutation.
type Outbox struct {
	log *slog.Logger
	db  *DB
}

func NewOutbox(log *slog.Logger, db *DB) *Outbox {
	return &Outbox{log: log, db: db}
}

func (o *Outbox) Append(ctx context.Context, aggregateType, aggregateID, eventType string, payload []byte) error {
	q := o.db.Querier(ctx)
	_, err := q.Exec(ctx, `
		INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, traceparent, status)
		VALUES ($1, $2, $3, $4, $5, 'pending')`,
		aggregateType, aggregateID, eventType, payload, tracing.CurrentTraceparent(ctx))
	return err
}

// OutboxStore is the relay-facing side: it leases pending rows and records
// dispatch outcomes. Runs on the pool, never inside a business transaction.
type OutboxStore struct {
	log *slog.Logger
	db  *DB
}

func NewOutboxStore(log *slog.Logger, db *DB) *OutboxStore {
	return &OutboxStore{log: log, db: db}
}

func (s *OutboxStore) LockBatch(ctx context.Context, relayID string, batchSize int, lease time.Duration) ([]outbox.Event, error) {
	var events []outbox.Event
	err := s.db.WithinTx(ctx, func(ctx context.Context) error {
		q := s.db.Querier(ctx)
		rows, err := q.Query(ctx, `
			SELECT id, aggregate_type, aggregate_id, type, payload, COALESCE(traceparent, ''), created_at
			FROM outbox
			WHERE status = 'pending'
			   OR (status = 'in_progress' AND lease_until < now())
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT $1`, batchSize)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var ev outbox.Event
			if err := rows.Scan(&ev.ID, &ev.AggregateType, &ev.AggregateID, &ev.Type, &ev.Payload, &ev.Traceparent, &ev.CreatedAt); err != nil {
				return err
			}
			events = append(events, ev)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			ids = append(ids, ev.ID)
		}
		_, err = q.Exec(ctx, `
			UPDATE outbox
			SET status = 'in_progress', relay_id = $1, lease_until = now() + $2::interval
			WHERE id = ANY($3)`,
			relayID, lease.String(), ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, ids []int64) error {
	_, err := s.db.Querier(ctx).Exec(ctx, `UPDATE outbox SET status = 'sent' WHERE id = ANY($1)`, ids)
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	_, err := s.db.Querier(ctx).Exec(ctx, `
		UPDATE outbox SET status = 'failed', last_error = $2, retry_count = retry_count + 1 WHERE id = $1`,
		id, errMsg)
	return err
}
