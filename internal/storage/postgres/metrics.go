package postgres

import (
	"context"
	"fmt"
	"strings"
)

// SnapshotFilter narrows snapshot queries. Dates are YYYY-MM-DD occurrence
// dates; empty fields mean "no filter".
type SnapshotFilter struct {
	Venue string
	From  string
	To    string
}

type SnapshotTotals struct {
	Occurrences        int64 `json:"occurrences"`
	TotalTickets       int64 `json:"total_tickets"`
	TotalIssuedTickets int64 `json:"total_issued_tickets"`
	RemainingTickets   int64 `json:"remaining_tickets"`
}

type SnapshotBucket struct {
	BucketStart        int64 `json:"bucket_start"`
	TotalIssuedTickets int64 `json:"total_issued_tickets"`
	Occurrences        int64 `json:"occurrences"`
}

func (f SnapshotFilter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(expr, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}
	add("venue=$%d", f.Venue)
	add("date >= $%d", f.From)
	add("date <= $%d", f.To)

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func totalsSQL(f SnapshotFilter) (string, []any) {
	cond, args := f.where()
	return fmt.Sprintf(`
WITH latest AS (
  SELECT DISTINCT ON (occurrence_id) total_tickets, total_issued_tickets, remaining_tickets
  FROM sales_snapshots
  %s
  ORDER BY occurrence_id, captured_at DESC
)
SELECT COUNT(*)::bigint,
  COALESCE(SUM(total_tickets), 0)::bigint,
  COALESCE(SUM(total_issued_tickets), 0)::bigint,
  COALESCE(SUM(remaining_tickets), 0)::bigint
FROM latest`, cond), args
}

// QueryTotals sums the latest capture of every matching occurrence.
func (db *DB) QueryTotals(ctx context.Context, f SnapshotFilter) (SnapshotTotals, error) {
	var res SnapshotTotals
	sql, args := totalsSQL(f)
	row := db.Pool.QueryRow(ctx, sql, args...)
	if err := row.Scan(&res.Occurrences, &res.TotalTickets, &res.TotalIssuedTickets, &res.RemainingTickets); err != nil {
		return res, fmt.Errorf("scan totals: %w", err)
	}
	return res, nil
}

func bucketsSQL(f SnapshotFilter) (string, []any) {
	cond, args := f.where()
	return fmt.Sprintf(`
SELECT
  EXTRACT(EPOCH FROM date_trunc('day', captured_at))::bigint AS bucket_start,
  SUM(total_issued_tickets)::bigint AS issued,
  COUNT(DISTINCT occurrence_id)::bigint AS occ
FROM sales_snapshots
%s
GROUP BY 1
ORDER BY 1 ASC`, cond), args
}

// QueryBucketsDaily returns issued tickets per capture day, which traces
// how sales grew across runs.
func (db *DB) QueryBucketsDaily(ctx context.Context, f SnapshotFilter) ([]SnapshotBucket, error) {
	sql, args := bucketsSQL(f)
	rows, err := db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotBucket
	for rows.Next() {
		var b SnapshotBucket
		if err := rows.Scan(&b.BucketStart, &b.TotalIssuedTickets, &b.Occurrences); err != nil {
			return nil, fmt.Errorf("scan bucket: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
