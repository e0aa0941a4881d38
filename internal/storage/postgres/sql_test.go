package postgres

import (
	"strings"
	"testing"
	"time"

	"example.com/ticketsales/internal/domain"
)

func TestBuildInsert(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 6, 1, 11, 0, 0, 0, time.FixedZone("CEST", 2*60*60))
	items := []domain.Snapshot{
		{Key: "k1", RunID: "run", CapturedAt: at, OccurrenceRecord: domain.OccurrenceRecord{ID: "ev_1", Name: "Lot A", TotalTickets: 100, TotalIssuedTickets: 80, RemainingTickets: 20}},
		{Key: "k2", RunID: "run", CapturedAt: at, OccurrenceRecord: domain.OccurrenceRecord{ID: "ev_2", Name: "Lot B", RemainingTickets: -2}},
	}
	sql, args := buildInsert(items)

	if !strings.HasPrefix(sql, "INSERT INTO sales_snapshots (snapshot_key,run_id,occurrence_id,") {
		t.Fatalf("unexpected statement %s", sql)
	}
	if !strings.HasSuffix(sql, "($13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24) ON CONFLICT DO NOTHING") {
		t.Fatalf("unexpected placeholders %s", sql)
	}
	if len(args) != 24 {
		t.Fatalf("expected 24 args, got %d", len(args))
	}
	if args[2] != "ev_1" || args[14] != "ev_2" || args[22] != -2 {
		t.Fatalf("unexpected args %v", args)
	}
	if ts := args[11].(time.Time); ts.Location() != time.UTC || ts.Hour() != 9 {
		t.Fatalf("expected capture time in UTC, got %v", ts)
	}
}

func TestSnapshotFilterSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filter   SnapshotFilter
		wantCond string
		wantArgs int
	}{
		{name: "no filter", filter: SnapshotFilter{}, wantCond: "", wantArgs: 0},
		{name: "venue only", filter: SnapshotFilter{Venue: "Arena"}, wantCond: "WHERE venue=$1", wantArgs: 1},
		{name: "date range", filter: SnapshotFilter{From: "2025-06-01", To: "2025-06-30"}, wantCond: "WHERE date >= $1 AND date <= $2", wantArgs: 2},
		{name: "all", filter: SnapshotFilter{Venue: "Arena", From: "2025-06-01", To: "2025-06-30"}, wantCond: "WHERE venue=$1 AND date >= $2 AND date <= $3", wantArgs: 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cond, args := tc.filter.where()
			if cond != tc.wantCond || len(args) != tc.wantArgs {
				t.Fatalf("expected %q with %d args, got %q %v", tc.wantCond, tc.wantArgs, cond, args)
			}
			totals, _ := totalsSQL(tc.filter)
			if !strings.Contains(totals, "DISTINCT ON (occurrence_id)") || !strings.Contains(totals, tc.wantCond) {
				t.Fatalf("unexpected totals query %s", totals)
			}
			buckets, _ := bucketsSQL(tc.filter)
			if !strings.Contains(buckets, "date_trunc('day', captured_at)") {
				t.Fatalf("unexpected buckets query %s", buckets)
			}
		})
	}
}
