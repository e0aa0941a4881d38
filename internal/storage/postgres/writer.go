package postgres

import (
	"context"
	"fmt"
	"strings"

	"example.com/ticketsales/internal/domain"
)

var snapshotCols = []string{
	"snapshot_key", "run_id", "occurrence_id", "event_name", "venue", "date",
	"start_time", "end_time", "total_tickets", "total_issued_tickets",
	"remaining_tickets", "captured_at",
}

type Writer struct {
	db *DB
}

func NewWriter(db *DB) *Writer { return &Writer{db: db} }

// InsertBatch inserts snapshots with ON CONFLICT DO NOTHING to enforce idempotency.
func (w *Writer) InsertBatch(ctx context.Context, items []domain.Snapshot) (int64, error) {
	if len(items) == 0 {
		return 0, nil
	}
	sql, args := buildInsert(items)
	ct, err := w.db.Pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func buildInsert(items []domain.Snapshot) (string, []any) {
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*len(snapshotCols))

	argi := 1
	for _, s := range items {
		ph := make([]string, 0, len(snapshotCols))
		args = append(args,
			s.Key, s.RunID, s.ID, s.Name, s.Venue, s.Date,
			s.StartTime, s.EndTime, s.TotalTickets, s.TotalIssuedTickets,
			s.RemainingTickets, s.CapturedAt.UTC(),
		)
		for range snapshotCols {
			ph = append(ph, fmt.Sprintf("$%d", argi))
			argi++
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ",")+")")
	}

	sql := "INSERT INTO sales_snapshots (" + strings.Join(snapshotCols, ",") + ") VALUES " +
		strings.Join(placeholders, ",") +
		" ON CONFLICT DO NOTHING"
	return sql, args
}
