package publish

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"example.com/ticketsales/internal/domain"
)

var fixedNow = time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeChannel struct {
	exchange, key string
	msgs          []amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNotifierReportGenerated(t *testing.T) {
	t.Parallel()

	ch := &fakeChannel{}
	n := &Notifier{ch: ch, queue: ReportsGeneratedQueue, logger: discardLogger(), now: func() time.Time { return fixedNow }}

	runID := NewRunID()
	if _, err := uuid.Parse(runID); err != nil {
		t.Fatalf("run id should be a uuid: %v", err)
	}
	if err := n.ReportGenerated(context.Background(), ReportGenerated{RunID: runID, Venue: "Arena", Title: "Sales", File: "Arena.html", Events: 2}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if ch.exchange != "" || ch.key != ReportsGeneratedQueue {
		t.Fatalf("expected default exchange and queue routing key, got %q %q", ch.exchange, ch.key)
	}
	msg := ch.msgs[0]
	if msg.DeliveryMode != amqp.Persistent || msg.ContentType != "application/json" {
		t.Fatalf("unexpected publishing %+v", msg)
	}
	var got ReportGenerated
	if err := json.Unmarshal(msg.Body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Venue != "Arena" || got.Events != 2 || !got.GeneratedAt.Equal(fixedNow) {
		t.Fatalf("unexpected body %+v", got)
	}

	ch.err = errors.New("channel closed")
	if err := n.ReportGenerated(context.Background(), ReportGenerated{Venue: "Arena"}); err == nil {
		t.Fatalf("expected publish error")
	}
	if err := n.Close(); err != nil || !ch.closed {
		t.Fatalf("expected channel to be closed, got %v", err)
	}
}

type fakeRedis struct {
	values map[string]any
	ttls   map[string]time.Duration
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = value
	f.ttls[key] = ttl
	return redis.NewStatusResult("OK", nil)
}

func TestSummaryStore(t *testing.T) {
	t.Parallel()

	v := domain.NewVenue("Arena")
	v.Event("Lot A").Add(domain.Occurrence{
		ID:                 "ev_1",
		Start:              domain.Moment{Date: "2025-06-01", Time: "18:00"},
		End:                domain.Moment{Date: "2025-06-01", Time: "23:00"},
		TicketTypes:        []domain.TicketType{{QuantityTotal: 10}},
		TotalIssuedTickets: 4,
	})

	fr := &fakeRedis{values: map[string]any{}, ttls: map[string]time.Duration{}}
	s := newSummaryStore(fr, "ticketsales:", time.Hour, discardLogger())
	s.now = func() time.Time { return fixedNow }

	if err := s.Store(context.Background(), "run-1", v); err != nil {
		t.Fatalf("store: %v", err)
	}

	raw, ok := fr.values["ticketsales:summary:Arena"].([]byte)
	if !ok {
		t.Fatalf("expected summary bytes, got %#v", fr.values)
	}
	var doc struct {
		RunID string `json:"run_id"`
		Venue map[string]struct {
			Summary domain.Summary `json:"summary"`
		} `json:"venue"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.RunID != "run-1" || doc.Venue["Lot A"].Summary.RemainingTickets != 6 {
		t.Fatalf("unexpected document %s", raw)
	}
	if fr.values["ticketsales:latest_run"] != "run-1" || fr.ttls["ticketsales:summary:Arena"] != time.Hour {
		t.Fatalf("unexpected writes %#v %#v", fr.values, fr.ttls)
	}
}
